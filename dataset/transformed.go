package dataset

// NumSubsets is the number of partitions, one per transformation.
const NumSubsets = 4

// TransformedExample is one row of a transformed dataset.
type TransformedExample struct {
	OriginalText     string
	OriginalLabel    Label
	TransformedText  string
	TransformedLabel Label

	// Subset is the partition index 0..3. Transformation names the
	// transformation that produced the row. Neither is written to the
	// 4-column artifact; both are recovered from row position on read.
	Subset         int
	Transformation string
}

// LabelChanged reports whether the row expects an inverted prediction.
func (r TransformedExample) LabelChanged() bool {
	return r.OriginalLabel != r.TransformedLabel
}

// TransformedDataset is an immutable ordered sequence of rows: subset 0
// first, subset 3 last.
type TransformedDataset struct {
	rows []TransformedExample
}

// NewTransformedDataset copies rows into a new dataset.
func NewTransformedDataset(rows []TransformedExample) *TransformedDataset {
	cp := make([]TransformedExample, len(rows))
	copy(cp, rows)
	return &TransformedDataset{rows: cp}
}

// Len returns the number of rows.
func (d *TransformedDataset) Len() int { return len(d.rows) }

// Row returns row i.
func (d *TransformedDataset) Row(i int) TransformedExample { return d.rows[i] }

// Rows returns a copy of all rows.
func (d *TransformedDataset) Rows() []TransformedExample {
	cp := make([]TransformedExample, len(d.rows))
	copy(cp, d.rows)
	return cp
}

// Subset returns the rows of partition i in order.
func (d *TransformedDataset) Subset(i int) []TransformedExample {
	var out []TransformedExample
	for _, r := range d.rows {
		if r.Subset == i {
			out = append(out, r)
		}
	}
	return out
}

// OriginalTexts returns the original_text column.
func (d *TransformedDataset) OriginalTexts() []string {
	out := make([]string, len(d.rows))
	for i, r := range d.rows {
		out[i] = r.OriginalText
	}
	return out
}

// TransformedTexts returns the transformed_text column.
func (d *TransformedDataset) TransformedTexts() []string {
	out := make([]string, len(d.rows))
	for i, r := range d.rows {
		out[i] = r.TransformedText
	}
	return out
}

// SubsetSizes returns the sizes of the 4 partitions of an n-row corpus when
// row i goes to subset i mod 4.
func SubsetSizes(n int) [NumSubsets]int {
	var sizes [NumSubsets]int
	for i := 0; i < NumSubsets; i++ {
		if n > i {
			sizes[i] = (n - i + NumSubsets - 1) / NumSubsets
		}
	}
	return sizes
}

// subsetOfPosition maps a row position in a concatenated dataset back to its
// partition index.
func subsetOfPosition(pos int, sizes [NumSubsets]int) int {
	for i, size := range sizes {
		if pos < size {
			return i
		}
		pos -= size
	}
	return NumSubsets - 1
}
