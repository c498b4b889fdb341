package evaluation

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/metamorph/core/model"
	"github.com/YuminosukeSato/metamorph/dataset"
	"github.com/YuminosukeSato/metamorph/mutation"
	"github.com/YuminosukeSato/metamorph/pkg/errors"
	"github.com/YuminosukeSato/metamorph/pkg/log"
	"github.com/YuminosukeSato/metamorph/preprocessing"
	"github.com/YuminosukeSato/metamorph/recorder"
	"github.com/YuminosukeSato/metamorph/sklearn/naive_bayes"
	"github.com/YuminosukeSato/metamorph/transform"
)

const (
	neg = dataset.Negative
	pos = dataset.Positive
)

type recordCall struct {
	Name     string
	Value    interface{}
	Message  string
	Category string
}

type fakeRecorder struct {
	calls []recordCall
	err   error
}

func (f *fakeRecorder) Record(name string, value interface{}, message, category string) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, recordCall{name, value, message, category})
	return nil
}

func (f *fakeRecorder) names() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Name
	}
	return out
}

// scripted は入力テキストから決められたラベルを返すスタブ分類器
func scripted(answers map[string]dataset.Label) model.TextClassifier {
	return model.TextClassifierFunc(func(texts []string) ([]dataset.Label, error) {
		out := make([]dataset.Label, len(texts))
		for i, t := range texts {
			out[i] = answers[t]
		}
		return out, nil
	})
}

func sampleDataset() *dataset.TransformedDataset {
	return dataset.NewTransformedDataset([]dataset.TransformedExample{
		{OriginalText: "good food", OriginalLabel: pos, TransformedText: "good nutrient", TransformedLabel: pos, Subset: 0, Transformation: transform.NameSynonymReplacement},
		{OriginalText: "bad food", OriginalLabel: neg, TransformedText: "bad not food", TransformedLabel: pos, Subset: 1, Transformation: transform.NameNegationInversion},
		{OriginalText: "great place", OriginalLabel: pos, TransformedText: "place great", TransformedLabel: pos, Subset: 2, Transformation: transform.NameWordOrderShuffle},
		{OriginalText: "slow service", OriginalLabel: neg, TransformedText: "slow service Birds can fly.", TransformedLabel: neg, Subset: 3, Transformation: transform.NameIrrelevantInfoInjection},
	})
}

func newTestEngine(rec recorder.Recorder, opts ...Option) (*Engine, *log.TestLogger) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	opts = append([]Option{WithLogger(logger), WithRunIDFunc(func() string { return "run-1" })}, opts...)
	return NewEngine(rec, opts...), logger
}

func TestEvaluateMetamorphic(t *testing.T) {
	clf := scripted(map[string]dataset.Label{
		"good food": pos, "good nutrient": pos,
		"bad food": neg, "bad not food": neg, // 否定を無視する
		"great place": pos, "place great": neg, // 語順に敏感
		"slow service": neg, "slow service Birds can fly.": neg,
	})
	rec := &fakeRecorder{}
	engine, logger := newTestEngine(rec)

	res, err := engine.Evaluate(clf, sampleDataset())
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, CategoryMetamorphic, res.Category)
	assert.InDelta(t, 0.75, res.Metrics.Consistency, 1e-12)
	require.True(t, res.Metrics.LabelPreservation.Valid)
	assert.InDelta(t, 2.0/3.0, res.Metrics.LabelPreservation.Value, 1e-12)
	require.True(t, res.Metrics.Flipping.Valid)
	assert.Equal(t, 0.0, res.Metrics.Flipping.Value)
	// 元データは全問正解、変換後は2件不正解
	assert.InDelta(t, 0.5, res.Metrics.AccuracyDrop, 1e-12)

	assert.Equal(t, []dataset.Label{pos, neg, pos, neg}, res.PredOriginal)
	assert.Equal(t, []dataset.Label{pos, neg, neg, neg}, res.PredTransformed)

	require.Equal(t, []string{MetricConsistencyRate, MetricLabelPreservationRate, MetricFlippingRate, MetricAccuracyDrop}, rec.names())
	assert.Equal(t, recordCall{MetricConsistencyRate, 0.75, "Same predictions before and after transformation", CategoryMetamorphic}, rec.calls[0])
	assert.Equal(t, "Accuracy drop after metamorphic transformation", rec.calls[3].Message)

	require.Len(t, res.Breakdown, 4)
	assert.Equal(t, transform.NameNegationInversion, res.Breakdown[1].Transformation)
	assert.Equal(t, 1, res.Breakdown[1].Rows)
	assert.False(t, res.Breakdown[1].Metrics.LabelPreservation.Valid)
	assert.Equal(t, 0.0, res.Breakdown[2].Metrics.Consistency)

	assert.True(t, logger.ContainsField(log.RunIDKey, "run-1"))
	assert.True(t, logger.ContainsMessage("Robustness evaluated"))
}

func TestEvaluateSkipsAbsentMetrics(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })

	ds := dataset.NewTransformedDataset([]dataset.TransformedExample{
		{OriginalText: "a", OriginalLabel: pos, TransformedText: "b", TransformedLabel: pos},
		{OriginalText: "c", OriginalLabel: neg, TransformedText: "d", TransformedLabel: neg},
	})
	rec := &fakeRecorder{}
	engine, _ := newTestEngine(rec, WithCategory("CUSTOM"))

	res, err := engine.Evaluate(scripted(map[string]dataset.Label{"a": pos, "b": pos}), ds)
	require.NoError(t, err)

	assert.False(t, res.Metrics.Flipping.Valid)
	assert.Equal(t, []string{MetricConsistencyRate, MetricLabelPreservationRate, MetricAccuracyDrop}, rec.names())
	for _, c := range rec.calls {
		assert.Equal(t, "CUSTOM", c.Category)
	}

	require.Len(t, warnings, 1)
	var uw *errors.UndefinedMetricWarning
	require.True(t, errors.As(warnings[0], &uw))
	assert.Equal(t, MetricFlippingRate, uw.Metric)
}

func TestEvaluateErrors(t *testing.T) {
	engine, _ := newTestEngine(&fakeRecorder{})
	ds := sampleDataset()

	t.Run("prediction count mismatch", func(t *testing.T) {
		short := model.TextClassifierFunc(func(texts []string) ([]dataset.Label, error) {
			return make([]dataset.Label, len(texts)-1), nil
		})
		_, err := engine.Evaluate(short, ds)
		var de *errors.DimensionError
		assert.True(t, errors.As(err, &de))
	})

	t.Run("invalid label", func(t *testing.T) {
		bad := model.TextClassifierFunc(func(texts []string) ([]dataset.Label, error) {
			out := make([]dataset.Label, len(texts))
			out[0] = dataset.Label(3)
			return out, nil
		})
		_, err := engine.Evaluate(bad, ds)
		var ie *errors.InvalidInputError
		assert.True(t, errors.As(err, &ie))
	})

	t.Run("classifier panic", func(t *testing.T) {
		panicky := model.TextClassifierFunc(func([]string) ([]dataset.Label, error) {
			panic("model exploded")
		})
		_, err := engine.Evaluate(panicky, ds)
		var pe *errors.PanicError
		assert.True(t, errors.As(err, &pe))
	})

	t.Run("empty dataset", func(t *testing.T) {
		_, err := engine.Evaluate(scripted(nil), dataset.NewTransformedDataset(nil))
		assert.True(t, errors.Is(err, errors.ErrEmptyData))
	})

	t.Run("nil classifier", func(t *testing.T) {
		_, err := engine.Evaluate(nil, ds)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("recorder failure", func(t *testing.T) {
		failing, _ := newTestEngine(&fakeRecorder{err: errors.New("disk full")})
		_, err := failing.Evaluate(scripted(nil), ds)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestEvaluateConcurrentPredict(t *testing.T) {
	answers := map[string]dataset.Label{
		"good food": pos, "good nutrient": pos,
		"bad food": neg, "bad not food": neg,
		"great place": pos, "place great": neg,
		"slow service": neg, "slow service Birds can fly.": neg,
	}

	sequential, _ := newTestEngine(nil)
	want, err := sequential.Evaluate(scripted(answers), sampleDataset())
	require.NoError(t, err)

	concurrent, _ := newTestEngine(nil, WithConcurrentPredict(true))
	got, err := concurrent.Evaluate(scripted(answers), sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	t.Run("panic in one branch", func(t *testing.T) {
		clf := model.TextClassifierFunc(func(texts []string) ([]dataset.Label, error) {
			if texts[0] == "good nutrient" {
				panic("boom")
			}
			return make([]dataset.Label, len(texts)), nil
		})
		_, err := concurrent.Evaluate(clf, sampleDataset())
		var pe *errors.PanicError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "predict transformed texts", pe.Operation)
	})
}

func TestEvaluateWithoutRecorder(t *testing.T) {
	engine, _ := newTestEngine(nil)
	res, err := engine.Evaluate(scripted(nil), sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Metrics.Consistency)
}

func TestEvaluateMutamorphicEndToEnd(t *testing.T) {
	corpus := []dataset.Example{
		{Text: "The food was great and tasty", Label: pos},
		{Text: "Loved the friendly staff", Label: pos},
		{Text: "Great place, great service", Label: pos},
		{Text: "Tasty pizza and friendly waiter", Label: pos},
		{Text: "The food was terrible and cold", Label: neg},
		{Text: "Awful service, rude staff", Label: neg},
		{Text: "Terrible place, cold pizza", Label: neg},
		{Text: "Rude waiter and awful food", Label: neg},
	}
	texts := dataset.Texts(corpus)

	// 学習済みモデルを用意する
	pre := preprocessing.NewTextPreprocessor()
	trainVec := preprocessing.NewCountVectorizer()
	X, err := trainVec.FitTransform(pre.ProcessAll(texts))
	require.NoError(t, err)
	y := mat.NewDense(len(corpus), 1, nil)
	for i, ex := range corpus {
		y.Set(i, 0, ex.Label.Float())
	}
	nb := naive_bayes.NewMultinomialNB()
	require.NoError(t, nb.Fit(X, y))

	ds, err := mutation.NewGenerator(mutation.WithLogger(nopLogger())).Generate(corpus, 42)
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := recorder.Open(filepath.Join(dir, "metrics.json"), recorder.WithLogger(nopLogger()))
	require.NoError(t, err)
	engine, _ := newTestEngine(store)

	pipe := &FeaturePipeline{
		Preprocessor: pre,
		Vectorizer:   preprocessing.NewCountVectorizer(),
		Classifier:   nb,
	}
	res, err := engine.EvaluateMutamorphic(pipe, texts, ds)
	require.NoError(t, err)
	assert.Equal(t, CategoryMutamorphic, res.Category)
	assert.GreaterOrEqual(t, res.Metrics.Consistency, 0.0)
	assert.LessOrEqual(t, res.Metrics.Consistency, 1.0)
	// 全行のラベルは学習データそのものなので元テキストはすべて正解する
	acc := 0
	for i, r := range ds.Rows() {
		if res.PredOriginal[i] == r.OriginalLabel {
			acc++
		}
	}
	assert.Equal(t, len(corpus), acc)

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, CategoryMutamorphic, doc[MetricConsistencyRate].Category)
	assert.Equal(t, "Accuracy drop after mutamorphic transformation", doc[MetricAccuracyDrop].Message)

	out := filepath.Join(dir, "results", PredictionsFile(res.Category))
	require.NoError(t, WritePredictionsTSV(out, ds, res))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, len(corpus)+1)
	assert.Equal(t, "original_text\toriginal_label\ttransformed_text\ttransformed_label\tpred_original\tpred_transformed", lines[0])
}

func TestEvaluateMutamorphicErrors(t *testing.T) {
	engine, _ := newTestEngine(&fakeRecorder{})

	_, err := engine.EvaluateMutamorphic(nil, []string{"x"}, sampleDataset())
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	pipe := &FeaturePipeline{Vectorizer: preprocessing.NewCountVectorizer(), Classifier: naive_bayes.NewMultinomialNB()}
	_, err = engine.EvaluateMutamorphic(pipe, nil, sampleDataset())
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	// 未学習の分類器
	_, err = engine.EvaluateMutamorphic(pipe, []string{"good food", "bad food"}, sampleDataset())
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	_, err = (&FeaturePipeline{}).Predict([]string{"x"})
	assert.True(t, errors.As(err, &ve))
}

func TestWriteSummary(t *testing.T) {
	res := &Result{Category: CategoryMutamorphic}
	res.Metrics.Consistency = 0.8125
	res.Metrics.Flipping.Valid = true
	res.Metrics.Flipping.Value = 0.25
	res.Metrics.AccuracyDrop = -0.0625

	var buf bytes.Buffer
	require.NoError(t, res.WriteSummary(&buf))
	assert.Equal(t, strings.Join([]string{
		"Mutamorphic Robustness Evaluation:",
		"Consistency Rate:        0.812",
		"Flipping Rate:           0.250",
		"Accuracy Drop (delta acc): -0.062",
		"",
	}, "\n"), buf.String())

	buf.Reset()
	res.Breakdown = []TransformationMetrics{{Transformation: transform.NameNegationInversion, Rows: 2, Metrics: res.Metrics}}
	require.NoError(t, res.WriteBreakdown(&buf))
	assert.Contains(t, buf.String(), "NegationInversion")
	assert.Contains(t, buf.String(), " - ")
}

func nopLogger() log.Logger {
	l, _ := log.NewTestLogger(log.LevelError)
	return l
}
