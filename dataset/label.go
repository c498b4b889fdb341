// Package dataset holds the data model shared by the generator and the
// evaluation engine: binary labels, corpus examples, transformed rows and
// their tab-separated artifact formats.
package dataset

import (
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/metamorph/pkg/errors"
)

// Label is a binary sentiment label. The string encodings are "0" and "1",
// the integer encodings 0 and 1.
type Label uint8

const (
	// Negative is label 0.
	Negative Label = 0
	// Positive is label 1.
	Positive Label = 1
)

// ParseLabel parses "0" or "1". Float spellings ("0.0", "1.0") written by
// some tabular tools are accepted too.
func ParseLabel(s string) (Label, error) {
	switch strings.TrimSpace(s) {
	case "0", "0.0":
		return Negative, nil
	case "1", "1.0":
		return Positive, nil
	}
	return 0, errors.NewInvalidInputError("ParseLabel", "label must be 0 or 1", s)
}

// LabelFromInt converts the integer encoding.
func LabelFromInt(v int) (Label, error) {
	switch v {
	case 0:
		return Negative, nil
	case 1:
		return Positive, nil
	}
	return 0, errors.NewInvalidInputError("LabelFromInt", "label must be 0 or 1", strconv.Itoa(v))
}

// LabelFromFloat converts a classifier output cell. Only exact 0 and 1 are
// labels.
func LabelFromFloat(v float64) (Label, error) {
	if v == 0 || v == 1 {
		return Label(math.Round(v)), nil
	}
	return 0, errors.NewInvalidInputError("LabelFromFloat", "prediction must be 0 or 1", strconv.FormatFloat(v, 'g', -1, 64))
}

// Valid reports whether l is one of the two defined labels.
func (l Label) Valid() bool { return l == Negative || l == Positive }

// Invert maps 0 to 1 and 1 to 0.
func (l Label) Invert() Label {
	if l == Negative {
		return Positive
	}
	return Negative
}

// Int returns the integer encoding.
func (l Label) Int() int { return int(l) }

// Float returns the label as a matrix cell.
func (l Label) Float() float64 { return float64(l) }

func (l Label) String() string {
	switch l {
	case Negative:
		return "0"
	case Positive:
		return "1"
	}
	return "invalid(" + strconv.Itoa(int(l)) + ")"
}

// Example is one row of an input corpus.
type Example struct {
	Text  string
	Label Label
}

// Texts returns the text column of examples.
func Texts(examples []Example) []string {
	out := make([]string, len(examples))
	for i, ex := range examples {
		out[i] = ex.Text
	}
	return out
}
