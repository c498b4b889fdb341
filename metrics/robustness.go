package metrics

import (
	"github.com/YuminosukeSato/metamorph/dataset"
	"github.com/YuminosukeSato/metamorph/pkg/errors"
)

// Optional は未定義になりうる指標値。Valid が false の場合、値は「欠損」であり
// ゼロとして扱ってはならない。
type Optional struct {
	Value float64
	Valid bool
}

// Some は定義済みの値を返す
func Some(v float64) Optional { return Optional{Value: v, Valid: true} }

// Absent は欠損値を返す
func Absent() Optional { return Optional{} }

// Robustness は変換前後の予測から計算される4つの指標
type Robustness struct {
	// Consistency は変換前後で予測が一致した行の割合
	Consistency float64
	// LabelPreservation はラベル保存行のうち変換後の予測が元のラベルと一致した割合
	LabelPreservation Optional
	// Flipping はラベル反転行のうち予測が変化した割合
	Flipping Optional
	// AccuracyDrop は元データでの正解率から変換後データでの正解率を引いた値。負になりうる
	AccuracyDrop float64
}

// ComputeRobustness は全行を一度走査して4つの指標を計算する
func ComputeRobustness(rows []dataset.TransformedExample, predOriginal, predTransformed []dataset.Label) (Robustness, error) {
	n := len(rows)
	if n == 0 {
		return Robustness{}, errors.NewValueError("ComputeRobustness", "empty dataset")
	}
	if len(predOriginal) != n {
		return Robustness{}, errors.NewDimensionError("ComputeRobustness", n, len(predOriginal), 0)
	}
	if len(predTransformed) != n {
		return Robustness{}, errors.NewDimensionError("ComputeRobustness", n, len(predTransformed), 0)
	}

	var (
		same                    int
		preserveRows, preserved int
		flipRows, flipped       int
		correctOrig, correctTr  int
	)
	for i, r := range rows {
		po, pt := predOriginal[i], predTransformed[i]
		if po == pt {
			same++
		}
		if r.OriginalLabel == r.TransformedLabel {
			preserveRows++
			if pt == r.OriginalLabel {
				preserved++
			}
		} else {
			flipRows++
			if pt != po {
				flipped++
			}
		}
		if po == r.OriginalLabel {
			correctOrig++
		}
		if pt == r.TransformedLabel {
			correctTr++
		}
	}

	total := float64(n)
	return Robustness{
		Consistency:       float64(same) / total,
		LabelPreservation: ratio(preserved, preserveRows),
		Flipping:          ratio(flipped, flipRows),
		AccuracyDrop:      float64(correctOrig)/total - float64(correctTr)/total,
	}, nil
}

// ConsistencyRate は変換前後の予測が一致した割合を返す
func ConsistencyRate(predOriginal, predTransformed []dataset.Label) (float64, error) {
	n := len(predOriginal)
	if n == 0 {
		return 0, errors.NewValueError("ConsistencyRate", "empty predictions")
	}
	if len(predTransformed) != n {
		return 0, errors.NewDimensionError("ConsistencyRate", n, len(predTransformed), 0)
	}
	same := 0
	for i := range predOriginal {
		if predOriginal[i] == predTransformed[i] {
			same++
		}
	}
	return float64(same) / float64(n), nil
}

// LabelPreservationRate はラベル保存行に限った指標を返す。該当行がなければ欠損
func LabelPreservationRate(rows []dataset.TransformedExample, predTransformed []dataset.Label) (Optional, error) {
	if len(predTransformed) != len(rows) {
		return Absent(), errors.NewDimensionError("LabelPreservationRate", len(rows), len(predTransformed), 0)
	}
	total, hit := 0, 0
	for i, r := range rows {
		if r.OriginalLabel != r.TransformedLabel {
			continue
		}
		total++
		if predTransformed[i] == r.OriginalLabel {
			hit++
		}
	}
	return ratio(hit, total), nil
}

// FlippingRate はラベル反転行に限った指標を返す。該当行がなければ欠損
func FlippingRate(rows []dataset.TransformedExample, predOriginal, predTransformed []dataset.Label) (Optional, error) {
	if len(predOriginal) != len(rows) {
		return Absent(), errors.NewDimensionError("FlippingRate", len(rows), len(predOriginal), 0)
	}
	if len(predTransformed) != len(rows) {
		return Absent(), errors.NewDimensionError("FlippingRate", len(rows), len(predTransformed), 0)
	}
	total, hit := 0, 0
	for i, r := range rows {
		if r.OriginalLabel == r.TransformedLabel {
			continue
		}
		total++
		if predTransformed[i] != predOriginal[i] {
			hit++
		}
	}
	return ratio(hit, total), nil
}

// AccuracyDrop は accuracy(元ラベル, 元予測) − accuracy(変換後ラベル, 変換後予測) を返す
func AccuracyDrop(rows []dataset.TransformedExample, predOriginal, predTransformed []dataset.Label) (float64, error) {
	origTrue := make([]dataset.Label, len(rows))
	transTrue := make([]dataset.Label, len(rows))
	for i, r := range rows {
		origTrue[i] = r.OriginalLabel
		transTrue[i] = r.TransformedLabel
	}
	accOrig, err := Accuracy(LabelVector(origTrue), LabelVector(predOriginal))
	if err != nil {
		return 0, errors.Wrap(err, "accuracy on original texts")
	}
	accTrans, err := Accuracy(LabelVector(transTrue), LabelVector(predTransformed))
	if err != nil {
		return 0, errors.Wrap(err, "accuracy on transformed texts")
	}
	return accOrig - accTrans, nil
}

func ratio(hit, total int) Optional {
	if total == 0 {
		return Absent()
	}
	return Some(float64(hit) / float64(total))
}
