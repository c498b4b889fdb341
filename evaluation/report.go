package evaluation

import (
	"fmt"
	"io"

	"github.com/YuminosukeSato/metamorph/dataset"
	"github.com/YuminosukeSato/metamorph/pkg/errors"
)

// 予測結果の成果物ファイル名（結果ディレクトリ配下）
const (
	MetamorphicPredictionsFile = "metamorphic_predictions.tsv"
	MutamorphicPredictionsFile = "mutamorphic_predictions.tsv"
)

// PredictionsFile はカテゴリに対応する予測ファイル名を返す
func PredictionsFile(category string) string {
	if category == CategoryMutamorphic {
		return MutamorphicPredictionsFile
	}
	return MetamorphicPredictionsFile
}

// WritePredictionsTSV はデータセットに pred_original, pred_transformed 列を加えた
// 6列のTSVをアトミックに書き出す
func WritePredictionsTSV(path string, ds *dataset.TransformedDataset, res *Result) error {
	if res == nil {
		return errors.NewValidationError("result", "nil evaluation result", nil)
	}
	return dataset.WritePredictionsTSV(path, ds, res.PredOriginal, res.PredTransformed)
}

// WriteSummary は4つの指標を小数点以下3桁で書き出す。欠損した指標は行ごと省略される。
func (r *Result) WriteSummary(w io.Writer) error {
	title := "Metamorphic"
	if r.Category == CategoryMutamorphic {
		title = "Mutamorphic"
	}
	lines := []string{
		fmt.Sprintf("%s Robustness Evaluation:", title),
		fmt.Sprintf("Consistency Rate:        %.3f", r.Metrics.Consistency),
	}
	if r.Metrics.LabelPreservation.Valid {
		lines = append(lines, fmt.Sprintf("Label Preservation Rate: %.3f", r.Metrics.LabelPreservation.Value))
	}
	if r.Metrics.Flipping.Valid {
		lines = append(lines, fmt.Sprintf("Flipping Rate:           %.3f", r.Metrics.Flipping.Value))
	}
	lines = append(lines, fmt.Sprintf("Accuracy Drop (delta acc): %.3f", r.Metrics.AccuracyDrop))

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return errors.Wrap(err, "write summary")
		}
	}
	return nil
}

// WriteBreakdown は変換ごとの内訳を表形式で書き出す
func (r *Result) WriteBreakdown(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%-24s %5s %11s %11s %9s %8s\n", "transformation", "rows", "consistency", "preserved", "flipped", "acc_drop"); err != nil {
		return errors.Wrap(err, "write breakdown")
	}
	for _, b := range r.Breakdown {
		_, err := fmt.Fprintf(w, "%-24s %5d %11.3f %11s %9s %8.3f\n",
			b.Transformation, b.Rows, b.Metrics.Consistency,
			formatOptional(b.Metrics.LabelPreservation.Valid, b.Metrics.LabelPreservation.Value),
			formatOptional(b.Metrics.Flipping.Valid, b.Metrics.Flipping.Value),
			b.Metrics.AccuracyDrop)
		if err != nil {
			return errors.Wrap(err, "write breakdown")
		}
	}
	return nil
}

func formatOptional(valid bool, v float64) string {
	if !valid {
		return "-"
	}
	return fmt.Sprintf("%.3f", v)
}
