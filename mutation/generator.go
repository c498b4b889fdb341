package mutation

import (
	"math/rand"
	"time"

	"github.com/YuminosukeSato/metamorph/dataset"
	"github.com/YuminosukeSato/metamorph/pkg/errors"
	"github.com/YuminosukeSato/metamorph/pkg/log"
	"github.com/YuminosukeSato/metamorph/transform"
)

// Generator はパーティショナと変換カタログを組み合わせて変換済みデータセットを作ります。
// サブセット k には Catalog[k] が適用されます。
type Generator struct {
	Catalog []transform.Transformation
	Logger  log.Logger
}

// Option は Generator の設定を変更する関数です。
type Option func(*Generator)

// WithLexicon は同義語置換に使う語彙リソースを指定します。
func WithLexicon(lex transform.Lexicon) Option {
	return func(g *Generator) {
		g.Catalog = transform.Catalog(lex)
	}
}

// WithCatalog は変換カタログを差し替えます。要素数は4でなければなりません。
func WithCatalog(catalog []transform.Transformation) Option {
	return func(g *Generator) {
		g.Catalog = catalog
	}
}

// WithLogger はロガーを指定します。
func WithLogger(logger log.Logger) Option {
	return func(g *Generator) {
		g.Logger = logger
	}
}

// NewGenerator は埋め込みの英語語彙を使う Generator を作成します。
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{}
	for _, opt := range opts {
		opt(g)
	}
	if g.Catalog == nil {
		g.Catalog = transform.Catalog(transform.DefaultLexicon())
	}
	if g.Logger == nil {
		g.Logger = log.GetLoggerWithName("mutation")
	}
	return g
}

// Generate はコーパスを分割し、各サブセットに対応する変換を適用します。
//
// 一つの乱数ソースを seed で初期化し、まずシャッフルに、続いてサブセット0から3の順に
// すべての変換呼び出しに使います。各サブセット内の行順序は保たれます。
func (g *Generator) Generate(corpus []dataset.Example, seed int64) (*dataset.TransformedDataset, error) {
	if len(corpus) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	if len(g.Catalog) != dataset.NumSubsets {
		return nil, errors.NewValidationError("Catalog", "catalog must contain exactly one transformation per subset", len(g.Catalog))
	}
	// TSV と内訳は変換名で行を識別するので、名前は一意でなければならない
	for k, tr := range g.Catalog {
		if _, dup := transform.Lookup(g.Catalog[:k], tr.Name()); dup {
			return nil, errors.NewValidationError("Catalog", "duplicate transformation name", tr.Name())
		}
	}

	start := time.Now()
	rng := rand.New(rand.NewSource(seed))
	subsets := partition(rng, corpus)

	rows := make([]dataset.TransformedExample, 0, len(corpus))
	for k, subset := range subsets {
		tr := g.Catalog[k]
		for _, ex := range subset {
			text, label, err := tr.Apply(rng, ex.Text, ex.Label)
			if err != nil {
				return nil, errors.Wrapf(err, "apply %s to subset %d", tr.Name(), k)
			}
			rows = append(rows, dataset.TransformedExample{
				OriginalText:     ex.Text,
				OriginalLabel:    ex.Label,
				TransformedText:  text,
				TransformedLabel: label,
				Subset:           k,
				Transformation:   tr.Name(),
			})
		}
		g.Logger.Debug("Subset transformed",
			log.SubsetKey, k,
			log.TransformationKey, tr.Name(),
			log.SamplesKey, len(subset),
		)
	}

	g.Logger.Info("Transformed dataset generated",
		log.OperationKey, log.OperationGenerate,
		log.SamplesKey, len(rows),
		log.SeedKey, seed,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return dataset.NewTransformedDataset(rows), nil
}
