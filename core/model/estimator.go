package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/metamorph/dataset"
)

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は特徴量行列からラベルを予測するモデルのインターフェース。
// 戻り値は n×1 の列ベクトルで、各要素はクラスラベル（0 または 1）。
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// TextClassifier は生テキストを直接分類する評価対象モデルのインターフェース。
// メタモルフィックテストはこの能力だけに依存する。
type TextClassifier interface {
	// Predict はテキストごとにラベルを1つ返す。戻り値の長さは入力と一致しなければならない。
	Predict(texts []string) ([]dataset.Label, error)
}

// Vectorizer はテキストを特徴量行列へ変換するインターフェース
type Vectorizer interface {
	// Fit は語彙を学習する
	Fit(texts []string) error
	// Transform は学習済みの語彙でテキストを n×d 行列に変換する
	Transform(texts []string) (mat.Matrix, error)
}

// TextPreprocessor はベクトル化の前に各テキストを正規化するインターフェース
type TextPreprocessor interface {
	Process(text string) string
}

// TextClassifierFunc は関数を TextClassifier として扱うためのアダプタ
type TextClassifierFunc func(texts []string) ([]dataset.Label, error)

// Predict implements TextClassifier.
func (f TextClassifierFunc) Predict(texts []string) ([]dataset.Label, error) {
	return f(texts)
}
