// Package trends shows spending over the whole period: monthly and daily
// statistics, the monthly trend line used to brush months, a histogram of
// daily expenses and a calendar heatmap of every day.
package trends

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"gnucashboard/internal/aggregate"
	"gnucashboard/internal/core"
	"gnucashboard/internal/sink"
	"gnucashboard/internal/views"
)

// HistogramBins is the number of bins of the daily expense histogram.
const HistogramBins = 50

// HeatmapMode selects what colours the calendar heatmap.
type HeatmapMode int

const (
	ByPrice HeatmapMode = iota
	ByCount
)

func (m HeatmapMode) Valid() bool { return m == ByPrice || m == ByCount }

func (m HeatmapMode) String() string {
	switch m {
	case ByPrice:
		return "price"
	case ByCount:
		return "count"
	}
	return fmt.Sprintf("heatmap_mode(%d)", int(m))
}

var ErrInvalidHeatmapMode = errors.New("invalid heatmap mode")

var (
	monthlyTitle = views.MustTemplate("monthly_title", `Monthly expenses ({{.From}} - {{.To}})`)
	dailyTitle   = views.MustTemplate("daily_title", `Daily expenses ({{.From}} - {{.To}})`)
	heatmapTitle = views.MustTemplate("heatmap_title", `Calendar of expenses by {{.Mode}}`)
	statsText    = views.MustTemplate("statistics", `Mean: {{money .Mean .Currency}}
Median: {{money .Median .Currency}}
Min: {{money .Min .Currency}}
Max: {{money .Max .Currency}}
Std: {{money .Std .Currency}}`)
)

// Names of the generated heatmap columns.
const (
	colDate    = "date_str"
	colWeek    = "week_str"
	colWeekday = "weekday_str"
	colMonth   = "monthyear_str"
	colPrice   = "price"
	colCount   = "count"
	colValue   = "value"
)

var heatmapColumns = []string{colDate, colWeek, colWeekday, colMonth, colPrice, colCount, colValue}

var weekdayNames = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

type Options struct {
	Columns     core.ColumnNames
	MonthFormat core.MonthFormat
	// Rand draws replacement names for generated columns.
	Rand *rand.Rand
}

type View struct {
	board  *sink.Board
	cols   core.ColumnNames
	format core.MonthFormat
	rng    *rand.Rand

	table    core.Table
	months   []string
	currency string

	chosenMonths []string
	mode         HeatmapMode
	current      core.Table

	calendar []aggregate.CalendarDay
	names    map[string]string
}

func New(opts Options) *View {
	if opts.Columns == (core.ColumnNames{}) {
		opts.Columns = core.DefaultColumnNames()
	}
	if opts.MonthFormat == (core.MonthFormat{}) {
		opts.MonthFormat = core.MustMonthFormat(core.DefaultMonthPattern)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(rand.Int63()))
	}
	return &View{board: sink.NewBoard(), cols: opts.Columns, format: opts.MonthFormat, rng: opts.Rand}
}

func (v *View) Board() *sink.Board { return v.board }

// Render starts over from a new table with every month brushed and the
// heatmap coloured by price.
func (v *View) Render(t core.Table) error {
	v.table = t
	v.months = aggregate.Months(t)
	v.currency = t.Currency()
	v.chosenMonths = slices.Clone(v.months)
	v.current = t.InMonths(v.chosenMonths)
	v.calendar = aggregate.Calendar(aggregate.SumByDay(t))
	v.names = aggregate.ColumnNames(heatmapColumns, v.cols.List(), v.rng)
	v.mode = ByPrice

	v.updateSelection()
	v.updateLinePlot()
	v.updateHeatmap()
	return nil
}

// SelectMonths brushes months of the trend line by index, keeping the order
// of indices. An empty selection brushes every month.
func (v *View) SelectMonths(indices []int) error {
	months, err := views.PickMonths(v.months, indices)
	if err != nil {
		return err
	}
	if views.SameMonths(months, v.chosenMonths) {
		return nil
	}
	v.chosenMonths = months
	v.current = v.table.InMonths(v.chosenMonths)

	v.updateSelection()
	v.updateLinePlot()
	return nil
}

// SelectHeatmapMode recolours the heatmap.
func (v *View) SelectHeatmapMode(m HeatmapMode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidHeatmapMode, int(m))
	}
	v.mode = m
	v.updateHeatmap()
	return nil
}

func (v *View) updateSelection() {
	from, to := core.Missing, core.Missing
	if len(v.chosenMonths) > 0 {
		sorted := slices.Clone(v.chosenMonths)
		slices.Sort(sorted)
		from, to = sorted[0], sorted[len(sorted)-1]
	}
	span := map[string]any{"From": from, "To": to}
	v.board.SetText(sink.TrendsMonthlyTitle, views.Execute(monthlyTitle, span))
	v.board.SetText(sink.TrendsDailyTitle, views.Execute(dailyTitle, span))

	monthly := aggregate.Describe(aggregate.Sums(aggregate.SumByMonth(v.current)))
	daily := aggregate.SumByDay(v.current)
	dailyStats := aggregate.Describe(aggregate.DailySums(daily))
	v.board.SetText(sink.TrendsMonthlyStatistics, v.statistics(monthly))
	v.board.SetText(sink.TrendsDailyStatistics, v.statistics(dailyStats))

	h := aggregate.NewHistogram(aggregate.DailySums(daily), HistogramBins, true)
	v.board.Set(sink.TrendsHistogram, sink.Chart{
		Columns: map[string]any{
			"top":    sink.Floats(h.Counts),
			"left":   sink.Floats(h.Edges[:len(h.Edges)-1]),
			"right":  sink.Floats(h.Edges[1:]),
			"bottom": make(sink.Floats, len(h.Counts)),
		},
	})
}

func (v *View) statistics(s aggregate.Stats) string {
	return views.Execute(statsText, map[string]any{
		"Mean": s.Mean, "Median": s.Median, "Min": s.Min, "Max": s.Max, "Std": s.Std,
		"Currency": v.currency,
	})
}

// updateLinePlot always covers the whole period so that the brushing
// control stays put; the brushed months are passed as the selection.
func (v *View) updateLinePlot() {
	values := aggregate.Reindex(aggregate.SumByMonth(v.table), v.months)
	chart := views.LineChart(v.months, values, aggregate.UpperBound(values))
	selected := make([]int, 0, len(v.chosenMonths))
	for _, m := range v.chosenMonths {
		if i := slices.Index(v.months, m); i >= 0 {
			selected = append(selected, i)
		}
	}
	chart.Attrs["selected"] = selected
	v.board.Set(sink.TrendsLinePlot, chart)
}

func (v *View) updateHeatmap() {
	n := len(v.calendar)
	dates := make([]string, n)
	weeks := make([]string, n)
	weekdays := make([]string, n)
	months := make([]string, n)
	prices := make(sink.Floats, n)
	counts := make(sink.Floats, n)
	for i, d := range v.calendar {
		dates[i] = d.DateKey
		weeks[i] = d.WeekKey
		weekdays[i] = weekdayNames[d.Weekday]
		months[i] = v.format.Key(d.Date)
		prices[i] = d.Sum
		counts[i] = float64(d.Count)
	}

	values, low, high := v.heatmapValues(prices, counts)

	labels := map[string]string{}
	for _, l := range aggregate.WeekLabels(v.calendar) {
		labels[l.WeekKey] = l.Label
	}

	v.board.SetText(sink.TrendsHeatmapTitle, views.Execute(heatmapTitle, map[string]any{"Mode": v.mode}))
	v.board.Set(sink.TrendsHeatmap, sink.Chart{
		Columns: map[string]any{
			v.names[colDate]:    dates,
			v.names[colWeek]:    weeks,
			v.names[colWeekday]: weekdays,
			v.names[colMonth]:   months,
			v.names[colPrice]:   prices,
			v.names[colCount]:   counts,
			v.names[colValue]:   values,
		},
		Attrs: map[string]any{
			"x_range":     aggregate.UniqueSorted(weeks),
			"y_range":     slices.Clone(weekdayNames),
			"week_labels": labels,
			"low":         sink.Float(low),
			"high":        sink.Float(high),
			"mode":        v.mode.String(),
			"fields":      v.fieldNames(),
		},
	})
}

// heatmapValues picks the coloured series and its colour bounds. Prices cap
// the scale at mean + 3 std so that a few large days do not wash it out.
func (v *View) heatmapValues(prices, counts sink.Floats) (sink.Floats, float64, float64) {
	if v.mode == ByCount {
		s := aggregate.Describe(counts)
		return slices.Clone(counts), s.Min, s.Max
	}
	s := aggregate.Describe(prices)
	return slices.Clone(prices), s.Min, s.Mean + 3*s.Std
}

// fieldNames tells the client under which names the generated columns ended up.
func (v *View) fieldNames() map[string]string {
	out := make(map[string]string, len(v.names))
	for k, name := range v.names {
		out[k] = name
	}
	return out
}

func (v *View) Months() []string { return slices.Clone(v.months) }

func (v *View) ChosenMonths() []string { return slices.Clone(v.chosenMonths) }

func (v *View) Mode() HeatmapMode { return v.mode }

// Current is the table narrowed to the brushed months.
func (v *View) Current() core.Table { return v.current }

// Calendar is the heatmap bucketing of the whole table.
func (v *View) Calendar() []aggregate.CalendarDay { return slices.Clone(v.calendar) }
