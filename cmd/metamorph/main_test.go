package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/metamorph/core/model"
	"github.com/YuminosukeSato/metamorph/dataset"
	"github.com/YuminosukeSato/metamorph/evaluation"
	"github.com/YuminosukeSato/metamorph/internal/config"
	"github.com/YuminosukeSato/metamorph/mutation"
	"github.com/YuminosukeSato/metamorph/pkg/errors"
	"github.com/YuminosukeSato/metamorph/preprocessing"
	"github.com/YuminosukeSato/metamorph/sklearn/linear_model"
	"github.com/YuminosukeSato/metamorph/sklearn/naive_bayes"
)

var reviews = []dataset.Example{
	{Text: "Wow... Loved this place.", Label: dataset.Positive},
	{Text: "Crust is not good.", Label: dataset.Negative},
	{Text: "Not tasty and the texture was just nasty.", Label: dataset.Negative},
	{Text: "The selection on the menu was great and so were the prices.", Label: dataset.Positive},
	{Text: "Now I am getting angry and I want my damn pho.", Label: dataset.Negative},
	{Text: "Honeslty it didn't taste THAT fresh.", Label: dataset.Negative},
	{Text: "The fries were great too.", Label: dataset.Positive},
	{Text: "A great touch.", Label: dataset.Positive},
	{Text: "Service was very prompt.", Label: dataset.Positive},
	{Text: "Would not go back.", Label: dataset.Negative},
	{Text: "The cashier had no care what so ever on what I had to say.", Label: dataset.Negative},
	{Text: "I tried the Cape Cod ravoli, chicken, with cranberry...mmmm!", Label: dataset.Positive},
	{Text: "I was disgusted because I was pretty sure that was human hair.", Label: dataset.Negative},
	{Text: "Highly recommended.", Label: dataset.Positive},
	{Text: "Waitress was a little slow in service.", Label: dataset.Negative},
	{Text: "This place is not worth your time, let alone Vegas.", Label: dataset.Negative},
	{Text: "The food was amazing and the staff friendly.", Label: dataset.Positive},
	{Text: "Terrible food and awful service.", Label: dataset.Negative},
	{Text: "Great burger, great beer, great place.", Label: dataset.Positive},
	{Text: "The potatoes were like rubber and you could tell they had been made up ahead of time.", Label: dataset.Negative},
}

const logisticVersion = "lr_v1"

type fixture struct {
	dir     string
	corpus  string
	metrics string
	results string
	models  string
}

// newFixture は入力コーパスと学習済みモデル・ベクトライザを一時ディレクトリに用意する
func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	fx := fixture{
		dir:     dir,
		corpus:  filepath.Join(dir, "data", "a1_RestaurantReviews_HistoricDump.tsv"),
		metrics: filepath.Join(dir, "metrics.json"),
		results: filepath.Join(dir, "results"),
		models:  filepath.Join(dir, "models"),
	}

	var sb strings.Builder
	sb.WriteString("Review\tLiked\n")
	for _, ex := range reviews {
		fmt.Fprintf(&sb, "%s\t%d\n", ex.Text, ex.Label.Int())
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(fx.corpus), 0o755))
	require.NoError(t, os.WriteFile(fx.corpus, []byte(sb.String()), 0o644))

	pre := preprocessing.NewTextPreprocessor()
	cv := preprocessing.NewCountVectorizer()
	X, err := cv.FitTransform(pre.ProcessAll(dataset.Texts(reviews)))
	require.NoError(t, err)

	y := mat.NewDense(len(reviews), 1, nil)
	for i, ex := range reviews {
		y.Set(i, 0, ex.Label.Float())
	}
	nb := naive_bayes.NewMultinomialNB()
	require.NoError(t, nb.Fit(X, y))

	lr := linear_model.NewLogisticRegression(linear_model.WithC(10))
	require.NoError(t, lr.Fit(X, y))

	cfg := config.Default()
	cfg.ModelsDir = fx.models
	require.NoError(t, model.SaveModel(nb, cfg.ModelPath(DefaultModelVersion)))
	require.NoError(t, model.SaveModel(lr, cfg.ModelPath(logisticVersion)))
	require.NoError(t, model.SaveModel(cv, cfg.VectorizerPath()))
	return fx
}

func (fx fixture) args(args ...string) []string {
	return append(args,
		"--metrics", fx.metrics,
		"--results-dir", fx.results,
		"--models-dir", fx.models,
		"--log-level", "error",
	)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func readMetrics(t *testing.T, path string) map[string]map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestGenerateCommand(t *testing.T) {
	fx := newFixture(t)

	tests := []struct {
		name string
		mode string
		want string
	}{
		{"metamorphic", modeMetamorphic, mutation.MetamorphicDataFile},
		{"mutamorphic", modeMutamorphic, mutation.MutamorphicDataFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, fx.args("generate", "--input", fx.corpus, "--mode", tt.mode)...)
			require.NoError(t, err)

			path := filepath.Join(filepath.Dir(fx.corpus), tt.want)
			assert.Contains(t, out, path)

			ds, err := mutation.ReadTSV(path)
			require.NoError(t, err)
			assert.Equal(t, len(reviews), ds.Len())
		})
	}

	t.Run("same seed same output", func(t *testing.T) {
		a := filepath.Join(fx.dir, "a.tsv")
		b := filepath.Join(fx.dir, "b.tsv")
		_, err := execute(t, fx.args("generate", "-i", fx.corpus, "-o", a, "--seed", "7")...)
		require.NoError(t, err)
		_, err = execute(t, fx.args("generate", "-i", fx.corpus, "-o", b, "--seed", "7")...)
		require.NoError(t, err)

		da, err := os.ReadFile(a)
		require.NoError(t, err)
		db, err := os.ReadFile(b)
		require.NoError(t, err)
		assert.Equal(t, string(da), string(db))
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := execute(t, fx.args("generate", "-i", fx.corpus, "--mode", "sideways")...)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("missing corpus", func(t *testing.T) {
		_, err := execute(t, fx.args("generate", "-i", filepath.Join(fx.dir, "nope.tsv"))...)
		assert.True(t, errors.IsMissingArtifact(err))
	})
}

func TestEvaluateCommands(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		category string
		title    string
	}{
		{"metamorphic", "metamorphic", evaluation.CategoryMetamorphic, "Metamorphic Robustness Evaluation:"},
		{"mutamorphic", "mutamorphic", evaluation.CategoryMutamorphic, "Mutamorphic Robustness Evaluation:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			plot := filepath.Join(fx.dir, "breakdown.svg")

			out, err := execute(t, fx.args(tt.command, "--input", fx.corpus, "--breakdown", "--plot", plot)...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.title)
			assert.Contains(t, out, "Consistency Rate:")
			assert.Contains(t, out, "transformation")

			doc := readMetrics(t, fx.metrics)
			for _, name := range []string{evaluation.MetricConsistencyRate, evaluation.MetricAccuracyDrop} {
				require.Contains(t, doc, name)
				assert.Equal(t, tt.category, doc[name]["category"])
			}

			assert.FileExists(t, filepath.Join(fx.results, evaluation.PredictionsFile(tt.category)))
			assert.FileExists(t, plot)
		})
	}
}

func TestEvaluateLogisticClassifier(t *testing.T) {
	fx := newFixture(t)
	out, err := execute(t, fx.args("metamorphic", "-i", fx.corpus,
		"--classifier", classifierLogistic, "--model-version", logisticVersion)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Metamorphic Robustness Evaluation:")

	_, err = execute(t, fx.args("metamorphic", "-i", fx.corpus, "--classifier", "svm")...)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestEvaluateMissingModel(t *testing.T) {
	fx := newFixture(t)
	_, err := execute(t, fx.args("mutamorphic", "--input", fx.corpus, "--model-version", "v404")...)
	require.Error(t, err)
	assert.True(t, errors.IsMissingArtifact(err))
	assert.NoFileExists(t, fx.metrics)
}

func TestReportCommand(t *testing.T) {
	fx := newFixture(t)
	_, err := execute(t, fx.args("metamorphic", "-i", fx.corpus)...)
	require.NoError(t, err)

	chart := filepath.Join(fx.dir, "metrics.png")
	out, err := execute(t, fx.args("report", "-o", chart, "--category", evaluation.CategoryMetamorphic)...)
	require.NoError(t, err)
	assert.Contains(t, out, chart)
	assert.FileExists(t, chart)
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	fx := newFixture(t)
	cfgPath := filepath.Join(fx.dir, "metamorph.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("seed: 1\nlog_level: warn\nprecision: 2\n"), 0o644))

	a := &app{}
	cmd := newRootCmdFor(a)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"generate", "-i", fx.corpus, "--config", cfgPath, "--seed", "9"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, int64(9), a.cfg.Seed, "flag overrides file")
	assert.Equal(t, 2, a.cfg.Precision, "file overrides default")
	assert.Equal(t, "warn", a.cfg.LogLevel)
	assert.Equal(t, config.Default().MaxFeatures, a.cfg.MaxFeatures)
}

func TestUnknownConfigKey(t *testing.T) {
	fx := newFixture(t)
	cfgPath := filepath.Join(fx.dir, "metamorph.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("sead: 1\n"), 0o644))

	_, err := execute(t, fx.args("generate", "-i", fx.corpus, "--config", cfgPath)...)
	assert.Error(t, err)
}
