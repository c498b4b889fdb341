package preprocessing

import (
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/metamorph/core/model"
	"github.com/YuminosukeSato/metamorph/core/parallel"
	"github.com/YuminosukeSato/metamorph/pkg/errors"
)

// DefaultMaxFeatures は語彙サイズの既定上限
const DefaultMaxFeatures = 1420

// 並列化の閾値（文書数）
const transformParallelThreshold = 2048

// 2文字以上の単語文字の連続をトークンとする
var tokenPattern = regexp.MustCompile(`\w\w+`)

// CountVectorizer はテキストを単語の出現回数行列（Bag-of-Words）に変換する
//
// 語彙はコーパス全体での出現回数が多い順に MaxFeatures 個まで選ばれ、
// 同数の場合はアルファベット順で決まる。列の順序はアルファベット順。
// gobでそのまま保存・読み込みできる。
//
// 使用例:
//
//	cv := preprocessing.NewCountVectorizer(preprocessing.WithMaxFeatures(1420))
//	err := cv.Fit(corpus)
//	X, err := cv.Transform(texts)
type CountVectorizer struct {
	State *model.StateManager

	// MaxFeatures は語彙サイズの上限。0以下なら無制限
	MaxFeatures int

	// Vocabulary は単語から列インデックスへの対応
	Vocabulary map[string]int
}

// CountVectorizerOption は CountVectorizer の設定関数
type CountVectorizerOption func(*CountVectorizer)

// WithMaxFeatures は語彙サイズの上限を設定する
func WithMaxFeatures(n int) CountVectorizerOption {
	return func(cv *CountVectorizer) {
		cv.MaxFeatures = n
	}
}

// NewCountVectorizer は新しい CountVectorizer を作成する
func NewCountVectorizer(opts ...CountVectorizerOption) *CountVectorizer {
	cv := &CountVectorizer{
		State:       model.NewStateManager(),
		MaxFeatures: DefaultMaxFeatures,
	}
	for _, opt := range opts {
		opt(cv)
	}
	return cv
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Fit はコーパスから語彙を学習する
func (cv *CountVectorizer) Fit(texts []string) error {
	if len(texts) == 0 {
		return errors.NewModelError("CountVectorizer.Fit", "empty data", errors.ErrEmptyData)
	}

	counts := make(map[string]int)
	for _, text := range texts {
		for _, tok := range tokenize(text) {
			counts[tok]++
		}
	}
	if len(counts) == 0 {
		return errors.NewValueError("CountVectorizer.Fit", "empty vocabulary; the documents only contain stop words or single characters")
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	if cv.MaxFeatures > 0 && len(terms) > cv.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if counts[terms[i]] != counts[terms[j]] {
				return counts[terms[i]] > counts[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:cv.MaxFeatures]
	}
	sort.Strings(terms)

	cv.Vocabulary = make(map[string]int, len(terms))
	for i, term := range terms {
		cv.Vocabulary[term] = i
	}
	if cv.State == nil {
		cv.State = model.NewStateManager()
	}
	cv.State.SetDimensions(len(terms), len(texts))
	cv.State.SetFitted()
	return nil
}

// Transform は学習済みの語彙でテキストを n_samples × n_features の行列に変換する。
// 語彙にない単語は無視される。
func (cv *CountVectorizer) Transform(texts []string) (mat.Matrix, error) {
	if err := cv.requireFitted("Transform"); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, errors.NewModelError("CountVectorizer.Transform", "empty data", errors.ErrEmptyData)
	}

	X := mat.NewDense(len(texts), len(cv.Vocabulary), nil)
	// 各ワーカーは担当する行だけに書き込む
	parallel.ParallelizeWithThreshold(len(texts), transformParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for _, tok := range tokenize(texts[i]) {
				if j, ok := cv.Vocabulary[tok]; ok {
					X.Set(i, j, X.At(i, j)+1)
				}
			}
		}
	})
	return X, nil
}

// FitTransform は Fit と Transform を続けて実行する
func (cv *CountVectorizer) FitTransform(texts []string) (mat.Matrix, error) {
	if err := cv.Fit(texts); err != nil {
		return nil, err
	}
	return cv.Transform(texts)
}

// FeatureNames は列順の語彙を返す
func (cv *CountVectorizer) FeatureNames() []string {
	names := make([]string, len(cv.Vocabulary))
	for term, j := range cv.Vocabulary {
		names[j] = term
	}
	return names
}

func (cv *CountVectorizer) requireFitted(method string) error {
	if cv.State == nil {
		return errors.NewNotFittedError("CountVectorizer", method)
	}
	return cv.State.RequireFitted("CountVectorizer", method)
}
