package evaluation

import (
	"github.com/YuminosukeSato/metamorph/core/model"
	"github.com/YuminosukeSato/metamorph/dataset"
	"github.com/YuminosukeSato/metamorph/pkg/errors"
)

// FeaturePipeline は前処理・ベクトル化・特徴量分類器を組み合わせて
// 生テキストを分類する model.TextClassifier として振る舞う。
//
// 各要素は明示的に渡され、パッケージ全体で共有される状態は持たない。
type FeaturePipeline struct {
	Preprocessor model.TextPreprocessor // nil の場合は前処理しない
	Vectorizer   model.Vectorizer
	Classifier   model.Predictor
}

var _ model.TextClassifier = (*FeaturePipeline)(nil)

// FitReference は参照コーパス（通常は学習データ）でベクトライザを学習する
func (p *FeaturePipeline) FitReference(texts []string) error {
	if err := p.check(); err != nil {
		return err
	}
	if err := p.Vectorizer.Fit(p.preprocess(texts)); err != nil {
		return errors.Wrap(err, "fit vectorizer on reference corpus")
	}
	return nil
}

// Predict implements model.TextClassifier.
func (p *FeaturePipeline) Predict(texts []string) ([]dataset.Label, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	X, err := p.Vectorizer.Transform(p.preprocess(texts))
	if err != nil {
		return nil, errors.Wrap(err, "vectorize texts")
	}
	pred, err := p.Classifier.Predict(X)
	if err != nil {
		return nil, errors.Wrap(err, "predict")
	}

	rows, _ := pred.Dims()
	if rows != len(texts) {
		return nil, errors.NewDimensionError("FeaturePipeline.Predict", len(texts), rows, 0)
	}
	labels := make([]dataset.Label, rows)
	for i := range labels {
		l, err := dataset.LabelFromFloat(pred.At(i, 0))
		if err != nil {
			return nil, errors.Wrapf(err, "prediction %d", i)
		}
		labels[i] = l
	}
	return labels, nil
}

func (p *FeaturePipeline) preprocess(texts []string) []string {
	if p.Preprocessor == nil {
		return texts
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = p.Preprocessor.Process(t)
	}
	return out
}

func (p *FeaturePipeline) check() error {
	if p.Vectorizer == nil {
		return errors.NewValidationError("Vectorizer", "feature pipeline requires a vectorizer", nil)
	}
	if p.Classifier == nil {
		return errors.NewValidationError("Classifier", "feature pipeline requires a classifier", nil)
	}
	return nil
}
