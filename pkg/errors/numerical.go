package errors

import (
	"math"
)

// CheckFinite returns a ValueError if value is NaN or ±Inf.
func CheckFinite(operation string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewValueError(operation, "value must be finite")
	}
	return nil
}

// CheckNonNegative checks every cell of a count matrix.
// Bag-of-words features are counts, so a negative or non-finite cell means
// the caller handed the wrong matrix to a count model.
func CheckNonNegative(operation string, matrix interface{ At(int, int) float64 }, rows, cols int) error {
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return NewInvalidInputError(operation, "count features must be finite and non-negative", v)
			}
		}
	}
	return nil
}

// StabilizeLog computes log with protection against log(0).
func StabilizeLog(value float64) float64 {
	const epsilon = 1e-10
	if value < epsilon {
		return math.Log(epsilon)
	}
	return math.Log(value)
}
