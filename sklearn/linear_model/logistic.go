// Package linear_model provides linear classifiers over count features.
package linear_model

import (
	"bytes"
	"encoding/gob"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/metamorph/core/model"
	"github.com/YuminosukeSato/metamorph/pkg/errors"
)

// LogisticRegression implements binary L2-regularised logistic regression
// fitted by full-batch gradient descent.
// Compatible with scikit-learn's LogisticRegression objective
// (C * Σ log-loss + ½‖w‖²), scaled by the number of samples.
type LogisticRegression struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	c            float64 // Inverse regularization strength
	fitIntercept bool
	maxIter      int
	tol          float64 // Stop when the largest gradient component falls below tol
	learningRate float64 // Initial step size, decays as lr / (1 + 0.1 * iter)

	// Model parameters
	classes   []int // Exactly two labels, ascending
	coef      *mat.VecDense
	intercept float64
	nIter     int
}

var _ model.Classifier = (*LogisticRegression)(nil)

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
//
// Example:
//
//	lr := linear_model.NewLogisticRegression(linear_model.WithC(10))
//	err := lr.Fit(X, y)
//	pred, err := lr.Predict(XTest)
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		c:            1.0,
		fitIntercept: true,
		maxIter:      300,
		tol:          1e-4,
		learningRate: 1.0,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// WithC sets the inverse regularization strength
func WithC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.c = c
	}
}

// WithFitIntercept sets whether to fit intercept
func WithFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithMaxIter sets the maximum number of iterations
func WithMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithTol sets the tolerance for stopping criteria
func WithTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLearningRate sets the initial gradient step
func WithLearningRate(eta float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.learningRate = eta
	}
}

// Fit trains the logistic regression model. Previous results are discarded.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	if err := lr.validateParams(); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows, _ := y.Dims(); yRows != nSamples {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}

	labels := make([]int, nSamples)
	for i := range labels {
		v := y.At(i, 0)
		if v != math.Trunc(v) || math.IsNaN(v) {
			return errors.NewValidationError("y", "class labels must be integers", v)
		}
		labels[i] = int(v)
	}
	classes := uniqueSorted(labels)
	if len(classes) != 2 {
		return errors.NewValueError("LogisticRegression.Fit", "binary classification requires exactly two classes in y")
	}
	for i := 0; i < nSamples; i++ {
		for j := 0; j < nFeatures; j++ {
			if err := errors.CheckFinite("LogisticRegression.Fit", X.At(i, j)); err != nil {
				return err
			}
		}
	}

	target := mat.NewVecDense(nSamples, nil)
	for i, l := range labels {
		if l == classes[1] {
			target.SetVec(i, 1)
		}
	}

	lr.state.Reset()
	lr.classes = classes
	lr.coef = mat.NewVecDense(nFeatures, nil)
	lr.intercept = 0
	lr.nIter = 0

	n := float64(nSamples)
	lambda := 1.0 / (lr.c * n)
	residual := mat.NewVecDense(nSamples, nil)
	grad := mat.NewVecDense(nFeatures, nil)

	for iter := 0; iter < lr.maxIter; iter++ {
		lr.decision(X, residual)
		for i := 0; i < nSamples; i++ {
			residual.SetVec(i, sigmoid(residual.AtVec(i))-target.AtVec(i))
		}

		// ∇w = Xᵀ(p - y)/n + w/(C n)
		grad.MulVec(X.T(), residual)
		grad.ScaleVec(1/n, grad)
		grad.AddScaledVec(grad, lambda, lr.coef)
		gradIntercept := floats.Sum(residual.RawVector().Data) / n

		eta := lr.learningRate / (1.0 + 0.1*float64(iter))
		lr.coef.AddScaledVec(lr.coef, -eta, grad)
		if lr.fitIntercept {
			lr.intercept -= eta * gradIntercept
		}
		lr.nIter = iter + 1

		maxGrad := math.Abs(gradIntercept)
		if g := mat.Norm(grad, math.Inf(1)); g > maxGrad {
			maxGrad = g
		}
		if maxGrad < lr.tol {
			break
		}
	}

	lr.state.SetDimensions(nFeatures, nSamples)
	lr.state.SetFitted()
	return nil
}

// decision writes X·w + b into dst.
func (lr *LogisticRegression) decision(X mat.Matrix, dst *mat.VecDense) {
	dst.MulVec(X, lr.coef)
	if lr.intercept != 0 {
		raw := dst.RawVector()
		for i := 0; i < raw.N; i++ {
			raw.Data[i*raw.Inc] += lr.intercept
		}
	}
}

// DecisionFunction returns the signed distance to the separating hyperplane
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (*mat.VecDense, error) {
	if err := lr.state.RequireFitted("LogisticRegression", "DecisionFunction"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if cols != lr.coef.Len() {
		return nil, errors.NewDimensionError("LogisticRegression.DecisionFunction", lr.coef.Len(), cols, 1)
	}
	scores := mat.NewVecDense(rows, nil)
	lr.decision(X, scores)
	return scores, nil
}

// Predict makes predictions for input data (n_samples × 1)
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	predictions := mat.NewDense(scores.Len(), 1, nil)
	for i := 0; i < scores.Len(); i++ {
		label := lr.classes[0]
		if scores.AtVec(i) >= 0 {
			label = lr.classes[1]
		}
		predictions.Set(i, 0, float64(label))
	}
	return predictions, nil
}

// PredictProba returns probability estimates for each class (n_samples × 2)
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	probas := mat.NewDense(scores.Len(), 2, nil)
	for i := 0; i < scores.Len(); i++ {
		p := sigmoid(scores.AtVec(i))
		probas.Set(i, 0, 1-p)
		probas.Set(i, 1, p)
	}
	return probas, nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	nSamples, _ := predictions.Dims()
	if yRows, _ := y.Dims(); yRows != nSamples {
		return 0, errors.NewDimensionError("LogisticRegression.Score", nSamples, yRows, 0)
	}
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples), nil
}

// Classes returns the two class labels in ascending order
func (lr *LogisticRegression) Classes() []int {
	out := make([]int, len(lr.classes))
	copy(out, lr.classes)
	return out
}

// NIter returns the number of gradient steps taken by the last Fit
func (lr *LogisticRegression) NIter() int { return lr.nIter }

// IsFitted reports whether Fit has completed
func (lr *LogisticRegression) IsFitted() bool { return lr.state.IsFitted() }

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"C":             lr.c,
		"fit_intercept": lr.fitIntercept,
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
		"learning_rate": lr.learningRate,
	}
}

func (lr *LogisticRegression) validateParams() error {
	if lr.c <= 0 || math.IsNaN(lr.c) {
		return errors.NewValidationError("C", "must be positive", lr.c)
	}
	if lr.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", lr.maxIter)
	}
	if lr.learningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", lr.learningRate)
	}
	return nil
}

type lrSnapshot struct {
	C            float64
	FitIntercept bool
	MaxIter      int
	Tol          float64
	LearningRate float64
	Fitted       bool
	Classes      []int
	Coef         []float64
	Intercept    float64
	NIter        int
}

// GobEncode implements gob.GobEncoder.
func (lr *LogisticRegression) GobEncode() ([]byte, error) {
	snap := lrSnapshot{
		C:            lr.c,
		FitIntercept: lr.fitIntercept,
		MaxIter:      lr.maxIter,
		Tol:          lr.tol,
		LearningRate: lr.learningRate,
		Fitted:       lr.state.IsFitted(),
		Classes:      lr.classes,
		Intercept:    lr.intercept,
		NIter:        lr.nIter,
	}
	if lr.coef != nil {
		snap.Coef = mat.Col(nil, 0, lr.coef)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, errors.Wrap(err, "encode LogisticRegression")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (lr *LogisticRegression) GobDecode(data []byte) error {
	var snap lrSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return errors.Wrap(err, "decode LogisticRegression")
	}
	*lr = LogisticRegression{
		state:        model.NewStateManager(),
		c:            snap.C,
		fitIntercept: snap.FitIntercept,
		maxIter:      snap.MaxIter,
		tol:          snap.Tol,
		learningRate: snap.LearningRate,
		classes:      snap.Classes,
		intercept:    snap.Intercept,
		nIter:        snap.NIter,
	}
	if snap.Fitted {
		if len(snap.Coef) == 0 || len(snap.Classes) != 2 {
			return errors.NewModelError("LogisticRegression.GobDecode", "fitted model without coefficients", nil)
		}
		lr.coef = mat.NewVecDense(len(snap.Coef), snap.Coef)
		lr.state.SetDimensions(len(snap.Coef), 0)
		lr.state.SetFitted()
	}
	return nil
}

// sigmoid computes the sigmoid function
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1.0 + e)
}

func uniqueSorted(values []int) []int {
	seen := make(map[int]struct{}, len(values))
	out := make([]int, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
