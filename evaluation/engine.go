// Package evaluation は変換前後のテキストに対する分類器の予測を比較し、
// ロバスト性指標を計算・記録する評価エンジンを提供します。
package evaluation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/metamorph/core/model"
	"github.com/YuminosukeSato/metamorph/dataset"
	"github.com/YuminosukeSato/metamorph/metrics"
	"github.com/YuminosukeSato/metamorph/pkg/errors"
	"github.com/YuminosukeSato/metamorph/pkg/log"
	"github.com/YuminosukeSato/metamorph/recorder"
)

// 指標カテゴリ
const (
	CategoryMetamorphic = "METAMORPHIC_TESTING"
	CategoryMutamorphic = "MUTAMORPHIC_TESTING"
)

// ストアに記録される指標名
const (
	MetricConsistencyRate       = "CONSISTENCY_RATE"
	MetricLabelPreservationRate = "LABEL_PRESERVATION_RATE"
	MetricFlippingRate          = "FLIPPING_RATE"
	MetricAccuracyDrop          = "ACCURACY_DROP"
)

// Engine はロバスト性評価を実行する。依存はすべてコンストラクタで渡される。
type Engine struct {
	recorder   recorder.Recorder
	category   string
	logger     log.Logger
	runID      func() string
	concurrent bool
}

// Option は Engine の設定関数
type Option func(*Engine)

// WithCategory は記録時のカテゴリを固定する。未指定の場合は評価の種類から決まる。
func WithCategory(category string) Option {
	return func(e *Engine) {
		e.category = category
	}
}

// WithLogger はロガーを設定する
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRunIDFunc は実行IDの生成関数を差し替える
func WithRunIDFunc(fn func() string) Option {
	return func(e *Engine) {
		e.runID = fn
	}
}

// WithConcurrentPredict は変換前と変換後の予測を並行に実行する。
// 分類器の Predict が並行呼び出しに対して安全な場合にだけ有効にすること。
func WithConcurrentPredict(on bool) Option {
	return func(e *Engine) {
		e.concurrent = on
	}
}

// NewEngine は新しい Engine を作成する。rec が nil の場合、指標は記録されない。
func NewEngine(rec recorder.Recorder, opts ...Option) *Engine {
	e := &Engine{
		recorder: rec,
		runID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.GetLoggerWithName("evaluation")
	}
	return e
}

// TransformationMetrics は変換ごとの内訳
type TransformationMetrics struct {
	Transformation string
	Rows           int
	Metrics        metrics.Robustness
}

// Result は1回の評価結果
type Result struct {
	RunID    string
	Category string
	Metrics  metrics.Robustness

	// PredOriginal と PredTransformed はデータセットの行順に並ぶ
	PredOriginal    []dataset.Label
	PredTransformed []dataset.Label

	// Breakdown は変換ごとの指標（記録の対象外）
	Breakdown []TransformationMetrics
}

// Evaluate はメタモルフィック評価を行う。分類器は生テキストを直接受け取る。
func (e *Engine) Evaluate(clf model.TextClassifier, ds *dataset.TransformedDataset) (*Result, error) {
	return e.run(CategoryMetamorphic, clf, ds)
}

// EvaluateMutamorphic はミュータモルフィック評価を行う。
// 採点の前に referenceTexts でパイプラインのベクトライザを学習し直す。
func (e *Engine) EvaluateMutamorphic(pipe *FeaturePipeline, referenceTexts []string, ds *dataset.TransformedDataset) (*Result, error) {
	if pipe == nil {
		return nil, errors.NewValidationError("pipeline", "mutamorphic evaluation requires a feature pipeline", nil)
	}
	if len(referenceTexts) == 0 {
		return nil, errors.NewModelError("EvaluateMutamorphic", "empty reference corpus", errors.ErrEmptyData)
	}
	if err := pipe.FitReference(referenceTexts); err != nil {
		return nil, err
	}
	e.logger.Info("Vectorizer fitted on reference corpus",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(referenceTexts),
	)
	return e.run(CategoryMutamorphic, pipe, ds)
}

func (e *Engine) run(defaultCategory string, clf model.TextClassifier, ds *dataset.TransformedDataset) (res *Result, err error) {
	defer errors.Recover(&err, "Engine.Evaluate")

	if clf == nil {
		return nil, errors.NewValidationError("classifier", "evaluation requires a classifier", nil)
	}
	if ds == nil || ds.Len() == 0 {
		return nil, errors.NewModelError("Engine.Evaluate", "empty dataset", errors.ErrEmptyData)
	}

	category := e.category
	if category == "" {
		category = defaultCategory
	}
	runID := e.runID()
	logger := e.logger.With(log.RunIDKey, runID, log.CategoryKey, category)
	start := time.Now()

	predOrig, predTrans, err := e.predictBoth(clf, ds)
	if err != nil {
		return nil, err
	}

	rows := ds.Rows()
	m, err := metrics.ComputeRobustness(rows, predOrig, predTrans)
	if err != nil {
		return nil, err
	}

	res = &Result{
		RunID:           runID,
		Category:        category,
		Metrics:         m,
		PredOriginal:    predOrig,
		PredTransformed: predTrans,
		Breakdown:       breakdown(rows, predOrig, predTrans),
	}

	logger.Info("Robustness evaluated",
		log.OperationKey, log.OperationEvaluate,
		log.SamplesKey, ds.Len(),
		log.ConsistencyRateKey, m.Consistency,
		log.AccuracyDropKey, m.AccuracyDrop,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	if err := e.record(logger, category, m); err != nil {
		return nil, err
	}
	return res, nil
}

// predictBoth は元テキストと変換後テキストの予測を返す
func (e *Engine) predictBoth(clf model.TextClassifier, ds *dataset.TransformedDataset) (predOrig, predTrans []dataset.Label, err error) {
	if !e.concurrent {
		if predOrig, err = predict(clf, ds.OriginalTexts()); err != nil {
			return nil, nil, errors.Wrap(err, "predict original texts")
		}
		if predTrans, err = predict(clf, ds.TransformedTexts()); err != nil {
			return nil, nil, errors.Wrap(err, "predict transformed texts")
		}
		return predOrig, predTrans, nil
	}

	// goroutine 内の panic は呼び出し側の Recover に届かないので個別に回収する
	var g errgroup.Group
	g.Go(func() error {
		return errors.SafeExecute("predict original texts", func() (err error) {
			predOrig, err = predict(clf, ds.OriginalTexts())
			return errors.Wrap(err, "predict original texts")
		})
	})
	g.Go(func() error {
		return errors.SafeExecute("predict transformed texts", func() (err error) {
			predTrans, err = predict(clf, ds.TransformedTexts())
			return errors.Wrap(err, "predict transformed texts")
		})
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return predOrig, predTrans, nil
}

func predict(clf model.TextClassifier, texts []string) ([]dataset.Label, error) {
	labels, err := clf.Predict(texts)
	if err != nil {
		return nil, err
	}
	if len(labels) != len(texts) {
		return nil, errors.NewDimensionError("TextClassifier.Predict", len(texts), len(labels), 0)
	}
	for i, l := range labels {
		if !l.Valid() {
			return nil, errors.NewInvalidInputError("TextClassifier.Predict", fmt.Sprintf("prediction %d is not a label", i), l)
		}
	}
	return labels, nil
}

func (e *Engine) record(logger log.Logger, category string, m metrics.Robustness) error {
	kind := "metamorphic"
	if category == CategoryMutamorphic {
		kind = "mutamorphic"
	}

	type entry struct {
		name    string
		value   metrics.Optional
		message string
	}
	entries := []entry{
		{MetricConsistencyRate, metrics.Some(m.Consistency), "Same predictions before and after transformation"},
		{MetricLabelPreservationRate, m.LabelPreservation, "Labels preserved where they should be"},
		{MetricFlippingRate, m.Flipping, "Predictions flipped where they should flip"},
		{MetricAccuracyDrop, metrics.Some(m.AccuracyDrop), "Accuracy drop after " + kind + " transformation"},
	}

	for _, en := range entries {
		if !en.value.Valid {
			errors.Warn(errors.NewUndefinedMetricWarning(en.name, "no qualifying rows in the dataset"))
			logger.Debug("Metric undefined, not recorded", log.MetricNameKey, en.name)
			continue
		}
		if e.recorder == nil {
			continue
		}
		if err := e.recorder.Record(en.name, en.value.Value, en.message, category); err != nil {
			return errors.Wrapf(err, "record %s", en.name)
		}
	}
	return nil
}

func breakdown(rows []dataset.TransformedExample, predOrig, predTrans []dataset.Label) []TransformationMetrics {
	type group struct {
		rows      []dataset.TransformedExample
		predOrig  []dataset.Label
		predTrans []dataset.Label
	}
	var order []string
	groups := map[string]*group{}
	for i, r := range rows {
		name := r.Transformation
		if name == "" {
			name = fmt.Sprintf("subset %d", r.Subset)
		}
		g, ok := groups[name]
		if !ok {
			g = &group{}
			groups[name] = g
			order = append(order, name)
		}
		g.rows = append(g.rows, r)
		g.predOrig = append(g.predOrig, predOrig[i])
		g.predTrans = append(g.predTrans, predTrans[i])
	}

	out := make([]TransformationMetrics, 0, len(order))
	for _, name := range order {
		g := groups[name]
		m, err := metrics.ComputeRobustness(g.rows, g.predOrig, g.predTrans)
		if err != nil {
			continue
		}
		out = append(out, TransformationMetrics{Transformation: name, Rows: len(g.rows), Metrics: m})
	}
	return out
}
