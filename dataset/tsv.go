package dataset

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/YuminosukeSato/metamorph/pkg/atomicfile"
	"github.com/YuminosukeSato/metamorph/pkg/errors"
)

// Column names of the tabular artifacts.
const (
	ColOriginalText     = "original_text"
	ColOriginalLabel    = "original_label"
	ColTransformedText  = "transformed_text"
	ColTransformedLabel = "transformed_label"
	ColPredOriginal     = "pred_original"
	ColPredTransformed  = "pred_transformed"
)

var (
	transformedHeader = []string{ColOriginalText, ColOriginalLabel, ColTransformedText, ColTransformedLabel}
	predictionsHeader = append(append([]string{}, transformedHeader...), ColPredOriginal, ColPredTransformed)
)

// ReadCorpus reads a raw two-column corpus: text, a tab, then a label.
// Lines are not quoted; the last tab on a line separates the label so review
// text may itself contain tabs. A first line whose label column is not a label
// is a header and skipped. Blank lines are skipped.
func ReadCorpus(path string) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewMissingArtifactError("corpus", path)
		}
		return nil, errors.Wrapf(err, "open corpus %s", path)
	}
	defer f.Close()

	examples, err := ParseCorpus(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read corpus %s", path)
	}
	return examples, nil
}

// ParseCorpus parses the format described at ReadCorpus.
func ParseCorpus(r io.Reader) ([]Example, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var examples []Example
	lineNo := 0
	seenContent := false
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		first := !seenContent
		seenContent = true

		idx := strings.LastIndex(line, "\t")
		if idx < 0 {
			if first {
				continue
			}
			return nil, errors.NewInvalidInputError("ParseCorpus", "line "+strconv.Itoa(lineNo)+" has no tab separator", line)
		}
		text, rawLabel := line[:idx], line[idx+1:]
		label, err := ParseLabel(rawLabel)
		if err != nil {
			if first {
				continue
			}
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		if !utf8.ValidString(text) {
			return nil, errors.NewInvalidInputError("ParseCorpus", "line "+strconv.Itoa(lineNo)+" is not valid UTF-8", text)
		}
		examples = append(examples, Example{Text: text, Label: label})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan corpus")
	}
	return examples, nil
}

// WriteTransformedTSV writes the 4-column artifact atomically: either the
// complete dataset is at path afterwards or path is unchanged.
func WriteTransformedTSV(path string, ds *TransformedDataset) error {
	return atomicfile.WriteFile(path, 0o644, func(w io.Writer) error {
		cw := newTSVWriter(w)
		if err := cw.Write(transformedHeader); err != nil {
			return errors.Wrap(err, "write header")
		}
		for _, r := range ds.rows {
			if err := cw.Write(transformedRecord(r)); err != nil {
				return errors.Wrap(err, "write row")
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// WritePredictionsTSV writes the 6-column predictions artifact atomically.
func WritePredictionsTSV(path string, ds *TransformedDataset, predOriginal, predTransformed []Label) error {
	if len(predOriginal) != ds.Len() {
		return errors.NewDimensionError("WritePredictionsTSV", ds.Len(), len(predOriginal), 0)
	}
	if len(predTransformed) != ds.Len() {
		return errors.NewDimensionError("WritePredictionsTSV", ds.Len(), len(predTransformed), 0)
	}
	return atomicfile.WriteFile(path, 0o644, func(w io.Writer) error {
		cw := newTSVWriter(w)
		if err := cw.Write(predictionsHeader); err != nil {
			return errors.Wrap(err, "write header")
		}
		for i, r := range ds.rows {
			rec := append(transformedRecord(r), predOriginal[i].String(), predTransformed[i].String())
			if err := cw.Write(rec); err != nil {
				return errors.Wrap(err, "write row")
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// ReadTransformedTSV reads a 4-column artifact. Subset indexes are recovered
// from row positions; names, when given, label each subset in order.
func ReadTransformedTSV(path string, names []string) (*TransformedDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewMissingArtifactError("dataset", path)
		}
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = '\t'
	cr.FieldsPerRecord = len(transformedHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "read header of %s", path)
	}
	for i, col := range transformedHeader {
		if header[i] != col {
			return nil, errors.NewInvalidInputError("ReadTransformedTSV", "unexpected column "+header[i], path)
		}
	}

	var rows []TransformedExample
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		origLabel, err := ParseLabel(rec[1])
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", len(rows)+1)
		}
		transLabel, err := ParseLabel(rec[3])
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", len(rows)+1)
		}
		rows = append(rows, TransformedExample{
			OriginalText:     rec[0],
			OriginalLabel:    origLabel,
			TransformedText:  rec[2],
			TransformedLabel: transLabel,
		})
	}

	sizes := SubsetSizes(len(rows))
	for i := range rows {
		rows[i].Subset = subsetOfPosition(i, sizes)
		if rows[i].Subset < len(names) {
			rows[i].Transformation = names[rows[i].Subset]
		}
	}
	return &TransformedDataset{rows: rows}, nil
}

func transformedRecord(r TransformedExample) []string {
	return []string{r.OriginalText, r.OriginalLabel.String(), r.TransformedText, r.TransformedLabel.String()}
}

func newTSVWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return cw
}
