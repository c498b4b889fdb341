// Package report renders metrics as bar charts with gonum/plot.
package report

import (
	"encoding/json"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/metamorph/evaluation"
	"github.com/YuminosukeSato/metamorph/pkg/atomicfile"
	"github.com/YuminosukeSato/metamorph/pkg/errors"
	"github.com/YuminosukeSato/metamorph/recorder"
)

// Chart size.
const (
	Width  = 8 * vg.Inch
	Height = 4 * vg.Inch
)

var barWidth = vg.Points(18)

// NumericMetrics extracts the numeric entries of doc, optionally limited to
// one category, sorted by name. Text and boolean values are skipped.
func NumericMetrics(doc recorder.Document, category string) (names []string, values []float64) {
	for name, e := range doc {
		if category != "" && e.Category != category {
			continue
		}
		if _, ok := toFloat(e.Value); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	values = make([]float64, len(names))
	for i, name := range names {
		values[i], _ = toFloat(doc[name].Value)
	}
	return names, values
}

// PlotMetrics draws one bar per numeric metric of doc to path. The image
// format follows the file extension (png, svg, pdf, ...).
func PlotMetrics(doc recorder.Document, category, path string) error {
	names, values := NumericMetrics(doc, category)
	if len(names) == 0 {
		return errors.NewValueError("PlotMetrics", "no numeric metrics to plot")
	}

	p := plot.New()
	p.Title.Text = "Robustness metrics"
	if category != "" {
		p.Title.Text += " (" + category + ")"
	}
	p.Y.Label.Text = "value"

	bars, err := plotter.NewBarChart(plotter.Values(values), barWidth)
	if err != nil {
		return errors.Wrap(err, "build bar chart")
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars, plotter.NewGrid())
	p.NominalX(shortNames(names)...)

	return save(p, path)
}

// PlotBreakdown draws the per-transformation consistency next to the rate
// each transformation is expected to satisfy: label preservation for
// meaning-preserving edits, flipping for label-inverting ones.
func PlotBreakdown(res *evaluation.Result, path string) error {
	if res == nil || len(res.Breakdown) == 0 {
		return errors.NewValueError("PlotBreakdown", "no per-transformation results to plot")
	}

	consistency := make(plotter.Values, len(res.Breakdown))
	expected := make(plotter.Values, len(res.Breakdown))
	names := make([]string, len(res.Breakdown))
	for i, b := range res.Breakdown {
		names[i] = b.Transformation
		consistency[i] = b.Metrics.Consistency
		switch {
		case b.Metrics.LabelPreservation.Valid:
			expected[i] = b.Metrics.LabelPreservation.Value
		case b.Metrics.Flipping.Valid:
			expected[i] = b.Metrics.Flipping.Value
		}
	}

	p := plot.New()
	p.Title.Text = "Per-transformation robustness (" + res.Category + ")"
	p.Y.Label.Text = "rate"
	p.Y.Min, p.Y.Max = 0, 1

	c, err := plotter.NewBarChart(consistency, barWidth)
	if err != nil {
		return errors.Wrap(err, "build consistency bars")
	}
	c.Color = plotutil.Color(0)
	c.LineStyle.Width = vg.Length(0)
	c.Offset = -barWidth / 2

	e, err := plotter.NewBarChart(expected, barWidth)
	if err != nil {
		return errors.Wrap(err, "build expected-behaviour bars")
	}
	e.Color = plotutil.Color(1)
	e.LineStyle.Width = vg.Length(0)
	e.Offset = barWidth / 2

	p.Add(c, e, plotter.NewGrid())
	p.Legend.Add("consistency", c)
	p.Legend.Add("preserved / flipped", e)
	p.Legend.Top = true
	p.NominalX(names...)

	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		return errors.NewValidationError("path", "chart path needs an image extension such as .png or .svg", path)
	}
	wt, err := p.WriterTo(Width, Height, format)
	if err != nil {
		return errors.Wrapf(err, "render chart as %s", format)
	}
	return atomicfile.WriteFile(path, 0o644, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}

func shortNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.TrimSuffix(n, "_RATE")
	}
	return out
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
