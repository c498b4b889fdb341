// Package naive_bayes は単語出現回数などの離散特徴量向けのナイーブベイズ分類器を提供します。
package naive_bayes

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

// alpha がこれより小さい場合は数値安定性のために切り上げる
const minAlpha = 1e-10

// MultinomialNB は多項分布ナイーブベイズ分類器（scikit-learn互換）
//
// Bag-of-Words のような非負のカウント特徴量を前提とする。
// Fit による一括学習と PartialFit による逐次学習の両方に対応し、
// gob でそのまま保存・読み込みできる。
type MultinomialNB struct {
	state *model.StateManager

	alpha    float64
	fitPrior bool

	classes        []int
	classCount     []float64
	featureCount   *mat.Dense // n_classes × n_features
	classLogPrior  []float64
	featureLogProb *mat.Dense // n_classes × n_features
	nSamplesSeen   int
}

var _ model.ClassifierWithPartialFit = (*MultinomialNB)(nil)

// Option は MultinomialNB の設定関数
type Option func(*MultinomialNB)

// WithAlpha は加算スムージング（ラプラス/リッドストーン）のパラメータを設定する
func WithAlpha(alpha float64) Option {
	return func(nb *MultinomialNB) {
		nb.alpha = alpha
	}
}

// WithFitPrior はクラス事前確率を学習するかを設定する。false の場合は一様事前分布
func WithFitPrior(fitPrior bool) Option {
	return func(nb *MultinomialNB) {
		nb.fitPrior = fitPrior
	}
}

// NewMultinomialNB は新しい MultinomialNB を作成する
//
// 使用例:
//
//	nb := naive_bayes.NewMultinomialNB(naive_bayes.WithAlpha(1.0))
//	err := nb.Fit(X, y)
//	pred, err := nb.Predict(XTest)
func NewMultinomialNB(opts ...Option) *MultinomialNB {
	nb := &MultinomialNB{
		state:    model.NewStateManager(),
		alpha:    1.0,
		fitPrior: true,
	}
	for _, opt := range opts {
		opt(nb)
	}
	return nb
}

// Fit はモデルを学習する。以前の学習結果は破棄される。
func (nb *MultinomialNB) Fit(X, y mat.Matrix) error {
	labels, err := checkXy("MultinomialNB.Fit", X, y)
	if err != nil {
		return err
	}
	nb.reset()
	return nb.partialFit(X, labels, uniqueSorted(labels))
}

// PartialFit は1バッチ分の逐次学習を行う。
// 最初の呼び出しでは classes に全クラスを指定しなければならない。
func (nb *MultinomialNB) PartialFit(X, y mat.Matrix, classes []int) error {
	labels, err := checkXy("MultinomialNB.PartialFit", X, y)
	if err != nil {
		return err
	}
	if !nb.state.IsFitted() {
		if len(classes) == 0 {
			return errors.NewValueError("MultinomialNB.PartialFit", "classes must be passed on the first call to PartialFit")
		}
		return nb.partialFit(X, labels, uniqueSorted(classes))
	}
	if len(classes) > 0 && !equalInts(uniqueSorted(classes), nb.classes) {
		return errors.NewValueError("MultinomialNB.PartialFit", "classes differ from the classes of the first call")
	}
	return nb.partialFit(X, labels, nil)
}

func (nb *MultinomialNB) partialFit(X mat.Matrix, labels []int, classes []int) error {
	rows, cols := X.Dims()

	if classes != nil {
		nb.classes = classes
		nb.classCount = make([]float64, len(classes))
		nb.featureCount = mat.NewDense(len(classes), cols, nil)
	} else if _, nFeatures := nb.featureCount.Dims(); nFeatures != cols {
		return errors.NewDimensionError("MultinomialNB.PartialFit", nFeatures, cols, 1)
	}

	index := make(map[int]int, len(nb.classes))
	for k, c := range nb.classes {
		index[c] = k
	}
	for _, label := range labels {
		if _, ok := index[label]; !ok {
			return errors.NewValidationError("y", "label not in classes", label)
		}
	}
	for i := 0; i < rows; i++ {
		k := index[labels[i]]
		nb.classCount[k]++
		for j := 0; j < cols; j++ {
			nb.featureCount.Set(k, j, nb.featureCount.At(k, j)+X.At(i, j))
		}
	}

	nb.nSamplesSeen += rows
	nb.updateLogProbs()
	nb.state.SetDimensions(cols, nb.nSamplesSeen)
	nb.state.SetFitted()
	return nil
}

func (nb *MultinomialNB) updateLogProbs() {
	alpha := math.Max(nb.alpha, minAlpha)
	nClasses, nFeatures := nb.featureCount.Dims()

	nb.featureLogProb = mat.NewDense(nClasses, nFeatures, nil)
	for k := 0; k < nClasses; k++ {
		row := nb.featureCount.RawRowView(k)
		total := floats.Sum(row) + alpha*float64(nFeatures)
		for j, c := range row {
			nb.featureLogProb.Set(k, j, math.Log(c+alpha)-math.Log(total))
		}
	}

	nb.classLogPrior = make([]float64, nClasses)
	if !nb.fitPrior {
		for k := range nb.classLogPrior {
			nb.classLogPrior[k] = -math.Log(float64(nClasses))
		}
		return
	}
	logTotal := math.Log(floats.Sum(nb.classCount))
	for k, c := range nb.classCount {
		// まだサンプルのないクラスは -Inf ではなく極小の事前確率にする
		nb.classLogPrior[k] = errors.StabilizeLog(c) - logTotal
	}
}

// jointLogLikelihood は log P(c) + Σ_j x_j log P(w_j|c) を計算する
func (nb *MultinomialNB) jointLogLikelihood(op string, X mat.Matrix) (*mat.Dense, error) {
	if err := nb.state.RequireFitted("MultinomialNB", op); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if _, nFeatures := nb.featureLogProb.Dims(); cols != nFeatures {
		return nil, errors.NewDimensionError("MultinomialNB."+op, nFeatures, cols, 1)
	}
	if err := errors.CheckNonNegative("MultinomialNB."+op, X, rows, cols); err != nil {
		return nil, err
	}

	var jll mat.Dense
	jll.Mul(X, nb.featureLogProb.T())
	for i := 0; i < rows; i++ {
		floats.Add(jll.RawRowView(i), nb.classLogPrior)
	}
	return &jll, nil
}

// PredictLogProba はクラスごとの対数確率を n_samples × n_classes で返す
func (nb *MultinomialNB) PredictLogProba(X mat.Matrix) (mat.Matrix, error) {
	jll, err := nb.jointLogLikelihood("PredictLogProba", X)
	if err != nil {
		return nil, err
	}
	rows, _ := jll.Dims()
	for i := 0; i < rows; i++ {
		row := jll.RawRowView(i)
		floats.AddConst(-floats.LogSumExp(row), row)
	}
	return jll, nil
}

// PredictProba はクラスごとの確率を n_samples × n_classes で返す
func (nb *MultinomialNB) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	logProba, err := nb.PredictLogProba(X)
	if err != nil {
		return nil, err
	}
	proba := logProba.(*mat.Dense)
	proba.Apply(func(_, _ int, v float64) float64 { return math.Exp(v) }, proba)
	return proba, nil
}

// Predict は各サンプルのクラスラベルを n_samples × 1 で返す
func (nb *MultinomialNB) Predict(X mat.Matrix) (mat.Matrix, error) {
	jll, err := nb.jointLogLikelihood("Predict", X)
	if err != nil {
		return nil, err
	}
	rows, _ := jll.Dims()
	pred := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		pred.Set(i, 0, float64(nb.classes[floats.MaxIdx(jll.RawRowView(i))]))
	}
	return pred, nil
}

// Score は正解率（accuracy）を返す
func (nb *MultinomialNB) Score(X, y mat.Matrix) (float64, error) {
	pred, err := nb.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := pred.Dims()
	if yRows, _ := y.Dims(); yRows != rows {
		return 0, errors.NewDimensionError("MultinomialNB.Score", rows, yRows, 0)
	}
	correct := 0
	for i := 0; i < rows; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(rows), nil
}

// Classes は学習したクラスラベルを昇順で返す
func (nb *MultinomialNB) Classes() []int {
	out := make([]int, len(nb.classes))
	copy(out, nb.classes)
	return out
}

// NSamplesSeen は学習に使われたサンプル数の累計を返す
func (nb *MultinomialNB) NSamplesSeen() int { return nb.nSamplesSeen }

// IsFitted はモデルが学習済みかを返す
func (nb *MultinomialNB) IsFitted() bool { return nb.state.IsFitted() }

// GetParams はハイパーパラメータを返す
func (nb *MultinomialNB) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":     nb.alpha,
		"fit_prior": nb.fitPrior,
	}
}

func (nb *MultinomialNB) reset() {
	nb.state.Reset()
	nb.classes = nil
	nb.classCount = nil
	nb.featureCount = nil
	nb.classLogPrior = nil
	nb.featureLogProb = nil
	nb.nSamplesSeen = 0
}

// ===========================================================================
//
//	永続化
//
// ===========================================================================

type nbSnapshot struct {
	Alpha        float64
	FitPrior     bool
	Fitted       bool
	Classes      []int
	ClassCount   []float64
	FeatureCount *mat.Dense
	NSamplesSeen int
}

// GobEncode implements gob.GobEncoder.
func (nb *MultinomialNB) GobEncode() ([]byte, error) {
	snap := nbSnapshot{
		Alpha:        nb.alpha,
		FitPrior:     nb.fitPrior,
		Fitted:       nb.state.IsFitted(),
		Classes:      nb.classes,
		ClassCount:   nb.classCount,
		FeatureCount: nb.featureCount,
		NSamplesSeen: nb.nSamplesSeen,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, errors.Wrap(err, "encode MultinomialNB")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (nb *MultinomialNB) GobDecode(data []byte) error {
	var snap nbSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return errors.Wrap(err, "decode MultinomialNB")
	}
	*nb = MultinomialNB{
		state:        model.NewStateManager(),
		alpha:        snap.Alpha,
		fitPrior:     snap.FitPrior,
		classes:      snap.Classes,
		classCount:   snap.ClassCount,
		featureCount: snap.FeatureCount,
		nSamplesSeen: snap.NSamplesSeen,
	}
	if snap.Fitted {
		if snap.FeatureCount == nil {
			return errors.NewModelError("MultinomialNB.GobDecode", "fitted model without feature counts", nil)
		}
		nb.updateLogProbs()
		_, nFeatures := snap.FeatureCount.Dims()
		nb.state.SetDimensions(nFeatures, snap.NSamplesSeen)
		nb.state.SetFitted()
	}
	return nil
}

// ===========================================================================
//
//	入力検証
//
// ===========================================================================

func checkXy(op string, X, y mat.Matrix) ([]int, error) {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	yRows, _ := y.Dims()
	if yRows != rows {
		return nil, errors.NewDimensionError(op, rows, yRows, 0)
	}
	if err := errors.CheckNonNegative(op, X, rows, cols); err != nil {
		return nil, err
	}

	labels := make([]int, rows)
	for i := range labels {
		v := y.At(i, 0)
		if v != math.Trunc(v) || math.IsNaN(v) {
			return nil, errors.NewValidationError("y", "class labels must be integers", v)
		}
		labels[i] = int(v)
	}
	return labels, nil
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

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
