package model

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/metamorph/dataset"
	"github.com/YuminosukeSato/metamorph/pkg/errors"
)

type countsModel struct {
	State  *StateManager
	Counts []float64
	Name   string
}

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	assert.False(t, s.IsFitted())

	err := s.RequireFitted("MultinomialNB", "Predict")
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "MultinomialNB", nf.ModelName)
	assert.Equal(t, "Predict", nf.Method)

	s.SetFitted()
	s.SetDimensions(12, 40)
	assert.NoError(t, s.RequireFitted("MultinomialNB", "Predict"))

	nFeatures, nSamples := s.GetDimensions()
	assert.Equal(t, 12, nFeatures)
	assert.Equal(t, 40, nSamples)

	s.Reset()
	assert.False(t, s.IsFitted())
	nFeatures, nSamples = s.GetDimensions()
	assert.Zero(t, nFeatures)
	assert.Zero(t, nSamples)
}

func TestSaveLoadModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v1", "v1_Sentiment_Model.gob")

	src := &countsModel{State: NewStateManager(), Counts: []float64{1, 2.5, 0}, Name: "nb"}
	src.State.SetFitted()
	src.State.SetDimensions(3, 8)
	require.NoError(t, SaveModel(src, path))

	dst := &countsModel{}
	require.NoError(t, LoadModel(dst, path))
	assert.Equal(t, src.Counts, dst.Counts)
	assert.Equal(t, "nb", dst.Name)
	assert.True(t, dst.State.IsFitted())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestLoadArtifactMissing(t *testing.T) {
	err := LoadArtifact("vectorizer", &countsModel{}, filepath.Join(t.TempDir(), "nope.gob"))
	require.Error(t, err)
	assert.True(t, errors.IsMissingArtifact(err))

	var missing *errors.MissingArtifactError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "vectorizer", missing.Kind)
}

func TestLoadModelCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.gob")
	require.NoError(t, os.WriteFile(path, []byte("not a gob stream"), 0o644))

	err := LoadModel(&countsModel{}, path)
	var me *errors.ModelError
	assert.True(t, errors.As(err, &me))
	assert.False(t, errors.IsMissingArtifact(err))
}

func TestWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SaveModelToWriter(&countsModel{Counts: []float64{4}}, &buf))

	var got countsModel
	require.NoError(t, LoadModelFromReader(&got, &buf))
	assert.Equal(t, []float64{4}, got.Counts)
}

func TestTextClassifierFunc(t *testing.T) {
	var clf TextClassifier = TextClassifierFunc(func(texts []string) ([]dataset.Label, error) {
		out := make([]dataset.Label, len(texts))
		for i, s := range texts {
			if len(s) > 3 {
				out[i] = dataset.Positive
			}
		}
		return out, nil
	})
	got, err := clf.Predict([]string{"ok", "great"})
	require.NoError(t, err)
	assert.Equal(t, []dataset.Label{dataset.Negative, dataset.Positive}, got)
}
