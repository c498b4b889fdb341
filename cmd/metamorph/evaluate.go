package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/metamorph/core/model"
	"github.com/YuminosukeSato/metamorph/dataset"
	"github.com/YuminosukeSato/metamorph/evaluation"
	"github.com/YuminosukeSato/metamorph/pkg/errors"
	"github.com/YuminosukeSato/metamorph/pkg/log"
	"github.com/YuminosukeSato/metamorph/preprocessing"
	"github.com/YuminosukeSato/metamorph/recorder"
	"github.com/YuminosukeSato/metamorph/report"
	"github.com/YuminosukeSato/metamorph/sklearn/linear_model"
	"github.com/YuminosukeSato/metamorph/sklearn/naive_bayes"
)

// DefaultModelVersion は --model-version 未指定時に読み込むモデル
const DefaultModelVersion = "test_model_dev"

// モデル成果物の種類（--classifier）
const (
	classifierNaiveBayes = "multinomial_nb"
	classifierLogistic   = "logistic_regression"
)

type evaluateParams struct {
	input        string
	modelVersion string
	classifier   string
	breakdown    bool
	plot         string
}

func addEvaluateFlags(cmd *cobra.Command, p *evaluateParams) {
	f := cmd.Flags()
	f.StringVarP(&p.input, "input", "i", "", "input corpus TSV (text<TAB>label)")
	f.StringVar(&p.modelVersion, "model-version", DefaultModelVersion, "model version under the models directory")
	f.StringVar(&p.classifier, "classifier", classifierNaiveBayes, "model artifact type: multinomial_nb or logistic_regression")
	f.BoolVar(&p.breakdown, "breakdown", false, "print metrics per transformation")
	f.StringVar(&p.plot, "plot", "", "write a per-transformation bar chart (.png, .svg, .pdf)")
	_ = cmd.MarkFlagRequired("input")
}

func newMetamorphicCmd(a *app) *cobra.Command {
	var p evaluateParams
	cmd := &cobra.Command{
		Use:   "metamorphic",
		Short: "Evaluate a model with its saved vectorizer on transformed inputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.runMetamorphic(p)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res, p)
		},
	}
	addEvaluateFlags(cmd, &p)
	return cmd
}

func newMutamorphicCmd(a *app) *cobra.Command {
	var p evaluateParams
	cmd := &cobra.Command{
		Use:   "mutamorphic",
		Short: "Evaluate a model with a vectorizer refit on the input corpus",
		Long: "mutamorphic refits a fresh bag-of-words vectorizer on the input corpus\n" +
			"(assumed to be training data) before scoring the transformed dataset.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.runMutamorphic(p)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res, p)
		},
	}
	addEvaluateFlags(cmd, &p)
	return cmd
}

func (a *app) runMetamorphic(p evaluateParams) (*evaluation.Result, error) {
	ds, _, err := a.runGenerate(generateParams{input: p.input, mode: modeMetamorphic})
	if err != nil {
		return nil, err
	}
	clf, err := a.loadClassifier(p.classifier, p.modelVersion)
	if err != nil {
		return nil, err
	}
	vec := &preprocessing.CountVectorizer{}
	if err := model.LoadArtifact("vectorizer", vec, a.cfg.VectorizerPath()); err != nil {
		return nil, err
	}

	eng, err := a.engine()
	if err != nil {
		return nil, err
	}
	pipe := &evaluation.FeaturePipeline{
		Preprocessor: preprocessing.NewTextPreprocessor(),
		Vectorizer:   vec,
		Classifier:   clf,
	}
	res, err := eng.Evaluate(pipe, ds)
	if err != nil {
		return nil, err
	}
	return res, a.writePredictions(ds, res, p.plot)
}

func (a *app) runMutamorphic(p evaluateParams) (*evaluation.Result, error) {
	ds, _, err := a.runGenerate(generateParams{input: p.input, mode: modeMutamorphic})
	if err != nil {
		return nil, err
	}
	clf, err := a.loadClassifier(p.classifier, p.modelVersion)
	if err != nil {
		return nil, err
	}
	corpus, err := dataset.ReadCorpus(p.input)
	if err != nil {
		return nil, err
	}

	eng, err := a.engine()
	if err != nil {
		return nil, err
	}
	pipe := &evaluation.FeaturePipeline{
		Preprocessor: preprocessing.NewTextPreprocessor(),
		Vectorizer:   preprocessing.NewCountVectorizer(preprocessing.WithMaxFeatures(a.cfg.MaxFeatures)),
		Classifier:   clf,
	}
	res, err := eng.EvaluateMutamorphic(pipe, dataset.Texts(corpus), ds)
	if err != nil {
		return nil, err
	}
	return res, a.writePredictions(ds, res, p.plot)
}

func (a *app) loadClassifier(kind, version string) (model.Predictor, error) {
	var clf model.Predictor
	switch kind {
	case classifierNaiveBayes:
		clf = naive_bayes.NewMultinomialNB()
	case classifierLogistic:
		clf = linear_model.NewLogisticRegression()
	default:
		return nil, errors.NewValidationError("classifier", "must be multinomial_nb or logistic_regression", kind)
	}

	path := a.cfg.ModelPath(version)
	if err := model.LoadModel(clf, path); err != nil {
		return nil, err
	}
	log.GetLoggerWithName("cli").Info("Model loaded",
		log.ModelNameKey, kind,
		log.ModelVersionKey, version,
		log.PathKey, path,
	)
	return clf, nil
}

func (a *app) engine() (*evaluation.Engine, error) {
	store, err := recorder.Open(a.cfg.MetricsPath,
		recorder.WithPrecision(a.cfg.Precision),
		recorder.WithLogger(log.GetLoggerWithName("recorder")),
	)
	if err != nil {
		return nil, err
	}
	// FeaturePipeline は予測時に状態を書き換えないので並行予測してよい
	return evaluation.NewEngine(store,
		evaluation.WithLogger(log.GetLoggerWithName("evaluation")),
		evaluation.WithConcurrentPredict(true),
	), nil
}

func (a *app) writePredictions(ds *dataset.TransformedDataset, res *evaluation.Result, plotPath string) error {
	if err := os.MkdirAll(a.cfg.ResultsDir, 0o755); err != nil {
		return errors.Wrapf(err, "create results directory %s", a.cfg.ResultsDir)
	}
	path := filepath.Join(a.cfg.ResultsDir, evaluation.PredictionsFile(res.Category))
	if err := evaluation.WritePredictionsTSV(path, ds, res); err != nil {
		return err
	}
	if plotPath != "" {
		if err := report.PlotBreakdown(res, plotPath); err != nil {
			return err
		}
	}
	return nil
}

func printResult(w io.Writer, res *evaluation.Result, p evaluateParams) error {
	if err := res.WriteSummary(w); err != nil {
		return err
	}
	if p.breakdown {
		fmt.Fprintln(w)
		if err := res.WriteBreakdown(w); err != nil {
			return err
		}
	}
	return nil
}
