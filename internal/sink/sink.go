// Package sink defines the named outputs the dashboard views write into.
//
// Identifiers form a closed set; each one has a fixed kind (text, chart or
// table) and a stable string name used on the wire.
package sink

import (
	"encoding/json"
	"fmt"
	"math"
)

type Kind int

const (
	KindText Kind = iota
	KindChart
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindChart:
		return "chart"
	case KindTable:
		return "table"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// ID identifies one output element.
type ID int

const (
	CategoryTitle ID = iota
	CategoryStatistics
	CategoryTotal
	CategoryFraction
	CategoryProducts
	CategoryProductsFraction
	CategoryLinePlot
	CategoryHistogram
	CategoryTransactions

	OverviewMonth
	OverviewExpenses
	OverviewProducts
	OverviewShops
	OverviewNextMonth
	OverviewSavingsInfo
	OverviewSavingsPie
	OverviewCategoryBar

	TrendsMonthlyTitle
	TrendsMonthlyStatistics
	TrendsDailyTitle
	TrendsDailyStatistics
	TrendsLinePlot
	TrendsHistogram
	TrendsHeatmapTitle
	TrendsHeatmap

	idCount
)

// View groups identifiers by the component that owns them.
type View string

const (
	ViewCategory View = "category"
	ViewOverview View = "overview"
	ViewTrends   View = "trends"
)

// Views lists every dashboard view.
func Views() []View { return []View{ViewCategory, ViewOverview, ViewTrends} }

// ParseView validates a view name.
func ParseView(s string) (View, bool) {
	for _, v := range Views() {
		if string(v) == s {
			return v, true
		}
	}
	return "", false
}

var specs = [idCount]struct {
	name string
	kind Kind
	view View
}{
	CategoryTitle:            {"category.title", KindText, ViewCategory},
	CategoryStatistics:       {"category.statistics", KindTable, ViewCategory},
	CategoryTotal:            {"category.total", KindText, ViewCategory},
	CategoryFraction:         {"category.fraction", KindText, ViewCategory},
	CategoryProducts:         {"category.products", KindText, ViewCategory},
	CategoryProductsFraction: {"category.products_fraction", KindText, ViewCategory},
	CategoryLinePlot:         {"category.line_plot", KindChart, ViewCategory},
	CategoryHistogram:        {"category.histogram", KindChart, ViewCategory},
	CategoryTransactions:     {"category.transactions", KindTable, ViewCategory},

	OverviewMonth:       {"overview.month", KindText, ViewOverview},
	OverviewExpenses:    {"overview.expenses", KindText, ViewOverview},
	OverviewProducts:    {"overview.products", KindText, ViewOverview},
	OverviewShops:       {"overview.shops", KindText, ViewOverview},
	OverviewNextMonth:   {"overview.next_month", KindText, ViewOverview},
	OverviewSavingsInfo: {"overview.savings_info", KindText, ViewOverview},
	OverviewSavingsPie:  {"overview.savings_pie", KindChart, ViewOverview},
	OverviewCategoryBar: {"overview.category_bar", KindChart, ViewOverview},

	TrendsMonthlyTitle:      {"trends.monthly_title", KindText, ViewTrends},
	TrendsMonthlyStatistics: {"trends.monthly_statistics", KindText, ViewTrends},
	TrendsDailyTitle:        {"trends.daily_title", KindText, ViewTrends},
	TrendsDailyStatistics:   {"trends.daily_statistics", KindText, ViewTrends},
	TrendsLinePlot:          {"trends.line_plot", KindChart, ViewTrends},
	TrendsHistogram:         {"trends.histogram", KindChart, ViewTrends},
	TrendsHeatmapTitle:      {"trends.heatmap_title", KindText, ViewTrends},
	TrendsHeatmap:           {"trends.heatmap", KindChart, ViewTrends},
}

func (id ID) Valid() bool { return id >= 0 && id < idCount }

func (id ID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("sink(%d)", int(id))
	}
	return specs[id].name
}

func (id ID) Kind() Kind { return specs[id].kind }

func (id ID) View() View { return specs[id].view }

// All returns every identifier in declaration order.
func All() []ID {
	out := make([]ID, 0, idCount)
	for id := ID(0); id < idCount; id++ {
		out = append(out, id)
	}
	return out
}

// Of returns the identifiers owned by a view.
func Of(v View) []ID {
	var out []ID
	for _, id := range All() {
		if id.View() == v {
			out = append(out, id)
		}
	}
	return out
}

// Parse finds an identifier by its name.
func Parse(name string) (ID, bool) {
	for _, id := range All() {
		if specs[id].name == name {
			return id, true
		}
	}
	return 0, false
}

// Value is the content of a sink.
type Value interface {
	Kind() Kind
}

// Text is a headline or statistics block.
type Text struct {
	Text string `json:"text"`
}

func (Text) Kind() Kind { return KindText }

// Chart is a column data buffer plus chart attributes such as axis ranges,
// categorical factors and colour bounds.
type Chart struct {
	Columns map[string]any `json:"columns"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

func (Chart) Kind() Kind { return KindChart }

// Table is a listing keyed by column name. Columns keeps the display order.
type Table struct {
	Columns []string            `json:"columns"`
	Rows    map[string][]string `json:"rows"`
}

func (Table) Kind() Kind { return KindTable }

// Len returns the number of rows.
func (t Table) Len() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Rows[t.Columns[0]])
}

// Floats is a numeric series. NaN and infinities encode as JSON null.
type Floats []float64

func (f Floats) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(f))
	for i := range f {
		if !math.IsNaN(f[i]) && !math.IsInf(f[i], 0) {
			out[i] = &f[i]
		}
	}
	return json.Marshal(out)
}

// Float is a single number with the same encoding as Floats.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}
