package linear_model

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/metamorph/core/model"
	"github.com/YuminosukeSato/metamorph/pkg/errors"
)

// Linearly separable bag-of-words counts: column 0 marks class 0, column 2 class 1.
func separableCounts() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(6, 3, []float64{
		3, 0, 0,
		2, 1, 0,
		1, 0, 0,
		0, 0, 3,
		0, 1, 2,
		0, 0, 1,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})
	return X, y
}

func TestLogisticRegressionFitPredict(t *testing.T) {
	X, y := separableCounts()
	lr := NewLogisticRegression(WithC(10))
	require.NoError(t, lr.Fit(X, y))

	assert.True(t, lr.IsFitted())
	assert.Equal(t, []int{0, 1}, lr.Classes())
	assert.Positive(t, lr.NIter())

	score, err := lr.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	pred, err := lr.Predict(mat.NewDense(2, 3, []float64{4, 0, 0, 0, 0, 4}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, mat.Col(nil, 0, pred))
}

func TestLogisticRegressionPredictProba(t *testing.T) {
	X, y := separableCounts()
	lr := NewLogisticRegression()
	require.NoError(t, lr.Fit(X, y))

	proba, err := lr.PredictProba(X)
	require.NoError(t, err)
	rows, cols := proba.Dims()
	require.Equal(t, 6, rows)
	require.Equal(t, 2, cols)
	for i := 0; i < rows; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-12)
	}
	assert.Greater(t, proba.At(0, 0), 0.5)
	assert.Greater(t, proba.At(3, 1), 0.5)
}

func TestLogisticRegressionLabelsOtherThanZeroOne(t *testing.T) {
	X, _ := separableCounts()
	y := mat.NewDense(6, 1, []float64{-1, -1, -1, 1, 1, 1})
	lr := NewLogisticRegression(WithC(10))
	require.NoError(t, lr.Fit(X, y))
	assert.Equal(t, []int{-1, 1}, lr.Classes())

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -1, -1, 1, 1, 1}, mat.Col(nil, 0, pred))
}

func TestLogisticRegressionErrors(t *testing.T) {
	X, y := separableCounts()

	tests := []struct {
		name  string
		lr    *LogisticRegression
		X, y  mat.Matrix
		check func(t *testing.T, err error)
	}{
		{
			name: "single class",
			lr:   NewLogisticRegression(),
			X:    X,
			y:    mat.NewDense(6, 1, []float64{1, 1, 1, 1, 1, 1}),
			check: func(t *testing.T, err error) {
				var ve *errors.ValueError
				assert.True(t, errors.As(err, &ve))
			},
		},
		{
			name: "row mismatch",
			lr:   NewLogisticRegression(),
			X:    X,
			y:    mat.NewDense(5, 1, nil),
			check: func(t *testing.T, err error) {
				var de *errors.DimensionError
				assert.True(t, errors.As(err, &de))
			},
		},
		{
			name: "non-integer label",
			lr:   NewLogisticRegression(),
			X:    X,
			y:    mat.NewDense(6, 1, []float64{0, 0.5, 0, 1, 1, 1}),
			check: func(t *testing.T, err error) {
				var ve *errors.ValidationError
				assert.True(t, errors.As(err, &ve))
			},
		},
		{
			name: "non-finite feature",
			lr:   NewLogisticRegression(),
			X:    mat.NewDense(2, 1, []float64{math.Inf(1), 0}),
			y:    mat.NewDense(2, 1, []float64{0, 1}),
			check: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},
		{
			name: "invalid C",
			lr:   NewLogisticRegression(WithC(0)),
			X:    X,
			y:    y,
			check: func(t *testing.T, err error) {
				var ve *errors.ValidationError
				assert.True(t, errors.As(err, &ve))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.lr.Fit(tt.X, tt.y)
			require.Error(t, err)
			tt.check(t, err)
			assert.False(t, tt.lr.IsFitted())
		})
	}
}

func TestLogisticRegressionNotFittedAndDimensions(t *testing.T) {
	lr := NewLogisticRegression()
	_, err := lr.Predict(mat.NewDense(1, 3, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	X, y := separableCounts()
	require.NoError(t, lr.Fit(X, y))
	_, err = lr.Predict(mat.NewDense(1, 4, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestLogisticRegressionPersistence(t *testing.T) {
	X, y := separableCounts()
	lr := NewLogisticRegression(WithC(5), WithMaxIter(50))
	require.NoError(t, lr.Fit(X, y))

	path := filepath.Join(t.TempDir(), "v1", "v1_Sentiment_Model.gob")
	require.NoError(t, model.SaveModel(lr, path))

	loaded := NewLogisticRegression()
	require.NoError(t, model.LoadModel(loaded, path))
	assert.True(t, loaded.IsFitted())
	assert.Equal(t, lr.GetParams(), loaded.GetParams())

	want, err := lr.DecisionFunction(X)
	require.NoError(t, err)
	got, err := loaded.DecisionFunction(X)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.RawVector().Data, got.RawVector().Data, 1e-12)
}
