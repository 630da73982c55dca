// Package views holds what the dashboard view engines share: text
// templates for headline sinks, month brushing and chart buffers.
package views

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"gnucashboard/internal/core"
	"gnucashboard/internal/sink"
)

var ErrIndexOutOfRange = errors.New("index out of range")

// Funcs are available to every headline template.
var Funcs = template.FuncMap{
	"money":   core.FormatMoney,
	"percent": core.FormatPercent,
	"number":  core.FormatNumber,
}

// MustTemplate parses a headline template at init time.
func MustTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(Funcs).Parse(text))
}

// Execute renders a template into a string. Templates are parsed with
// known fields, so a failure is a programming error.
func Execute(t *template.Template, data any) string {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		panic(fmt.Sprintf("views: template %s: %v", t.Name(), err))
	}
	return b.String()
}

// PickMonths resolves brushed month indices. No index means every month;
// otherwise the months follow the order of indices.
func PickMonths(all []string, indices []int) ([]string, error) {
	if len(indices) == 0 {
		return slices.Clone(all), nil
	}
	out := make([]string, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(all) {
			return nil, fmt.Errorf("%w: month %d of %d", ErrIndexOutOfRange, i, len(all))
		}
		out = append(out, all[i])
	}
	return out, nil
}

// SameMonths reports whether a and b hold the same set of months,
// ignoring order and repeats.
func SameMonths(a, b []string) bool {
	return slices.Equal(monthSet(a), monthSet(b))
}

func monthSet(months []string) []string {
	set := slices.Clone(months)
	slices.Sort(set)
	return slices.Compact(set)
}

// LineChart is the buffer of a monthly trend line.
func LineChart(months []string, values []float64, upper float64) sink.Chart {
	return sink.Chart{
		Columns: map[string]any{"x": slices.Clone(months), "y": sink.Floats(values)},
		Attrs:   map[string]any{"x_range": slices.Clone(months), "y_range": sink.Floats{0, upper}},
	}
}

// MissingOr returns s, or core.Missing when s is empty.
func MissingOr(s string) string {
	if s == "" {
		return core.Missing
	}
	return s
}

// Palette of the dashboard charts.
type Palette struct {
	Base     string
	Contrary string
	Text     string
	Positive string
	Negative string
}

func DefaultPalette() Palette {
	return Palette{
		Base:     "#19529c",
		Contrary: "#9c2b19",
		Text:     "#8C8C8C",
		Positive: "#0f5e3b",
		Negative: "#9c2b19",
	}
}
