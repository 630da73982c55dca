// Package category drills into one expense category: its monthly trend,
// descriptive statistics, share of all spending, most bought products and
// the list of its transactions.
//
// Choosing a category refreshes every sink. Brushing months on the trend
// line only narrows the product histogram and the transaction listing.
package category

import (
	"slices"
	"strings"

	"gnucashboard/internal/aggregate"
	"gnucashboard/internal/core"
	"gnucashboard/internal/sink"
	"gnucashboard/internal/views"
)

var (
	totalText         = views.MustTemplate("total", `{{money .Total .Currency}}`)
	fractionText      = views.MustTemplate("fraction", `{{percent .Fraction}} of all expenses`)
	productsText      = views.MustTemplate("products", `{{.Products}} products bought`)
	productsShareText = views.MustTemplate("products_fraction", `{{percent .Fraction}} of all products`)
)

// Statistic row labels of the statistics table.
var statisticLabels = []string{"Last Month", "Mean", "Median", "Min", "Max", "Std"}

type Options struct {
	Columns core.ColumnNames
}

type View struct {
	board *sink.Board
	cols  core.ColumnNames

	table      core.Table
	months     []string
	categories []string
	currency   string

	chosenCategory string
	chosenMonths   []string

	categoryTable      core.Table
	categoryMonthTable core.Table
	monthly            []aggregate.Group
}

func New(opts Options) *View {
	if opts.Columns == (core.ColumnNames{}) {
		opts.Columns = core.DefaultColumnNames()
	}
	return &View{board: sink.NewBoard(), cols: opts.Columns}
}

func (v *View) Board() *sink.Board { return v.board }

// Render starts over from a new table: every month is brushed and the first
// category is chosen.
func (v *View) Render(t core.Table) error {
	v.table = t
	v.months = aggregate.Months(t)
	v.categories = aggregate.Categories(t)
	v.currency = t.Currency()
	v.chosenMonths = slices.Clone(v.months)

	first := ""
	if len(v.categories) > 0 {
		first = v.categories[0]
	}
	v.update(first)
	return nil
}

// SelectCategory chooses the category whose path contains c. Choosing the
// current category again does nothing.
func (v *View) SelectCategory(c string) error {
	if c == v.chosenCategory {
		return nil
	}
	v.update(c)
	return nil
}

// SelectMonths brushes months of the trend line by index. An empty
// selection brushes every month.
func (v *View) SelectMonths(indices []int) error {
	months, err := views.PickMonths(v.months, indices)
	if err != nil {
		return err
	}
	if views.SameMonths(months, v.chosenMonths) {
		return nil
	}
	v.chosenMonths = months
	v.categoryMonthTable = v.categoryTable.InMonths(v.chosenMonths)

	v.updateHistogram()
	v.updateTransactions()
	return nil
}

func (v *View) update(c string) {
	v.chosenCategory = c
	v.categoryTable = v.table.Filter(func(row core.Transaction) bool {
		return strings.Contains(row.FullCategory, c)
	})
	v.categoryMonthTable = v.categoryTable.InMonths(v.chosenMonths)
	v.monthly = aggregate.SumByMonth(v.categoryTable)

	v.board.SetText(sink.CategoryTitle, c)
	v.updateStatistics()
	v.updateTotals()
	v.updateLinePlot()
	v.updateHistogram()
	v.updateTransactions()
}

func (v *View) updateStatistics() {
	prices := aggregate.Describe(aggregate.Reindex(v.monthly, v.months))
	counts := aggregate.Describe(aggregate.ReindexCounts(v.monthly, v.months))

	priceValues := []float64{prices.Last, prices.Mean, prices.Median, prices.Min, prices.Max, prices.Std}
	countValues := []float64{counts.Last, counts.Mean, counts.Median, counts.Min, counts.Max, counts.Std}

	priceCol := make([]string, len(priceValues))
	countCol := make([]string, len(countValues))
	for i := range priceValues {
		priceCol[i] = core.FormatMoney(priceValues[i], v.currency)
		countCol[i] = core.FormatNumber(countValues[i], 2)
	}

	const statistic, products = "Statistic", "Products"
	v.board.Set(sink.CategoryStatistics, sink.Table{
		Columns: []string{statistic, v.cols.Price, products},
		Rows: map[string][]string{
			statistic:   slices.Clone(statisticLabels),
			v.cols.Price: priceCol,
			products:    countCol,
		},
	})
}

func (v *View) updateTotals() {
	total := v.totalFromCategory()
	all := core.Float(v.table.Total())

	v.board.SetText(sink.CategoryTotal, views.Execute(totalText, map[string]any{
		"Total": total, "Currency": v.currency,
	}))
	v.board.SetText(sink.CategoryFraction, views.Execute(fractionText, map[string]any{
		"Fraction": core.Fraction(total, all),
	}))
	v.board.SetText(sink.CategoryProducts, views.Execute(productsText, map[string]any{
		"Products": len(v.categoryTable),
	}))
	v.board.SetText(sink.CategoryProductsFraction, views.Execute(productsShareText, map[string]any{
		"Fraction": core.Fraction(float64(len(v.categoryTable)), float64(len(v.table))),
	}))
}

func (v *View) updateLinePlot() {
	values := aggregate.Reindex(v.monthly, v.months)
	v.board.Set(sink.CategoryLinePlot, views.LineChart(v.months, values, aggregate.UpperBound(values)))
}

func (v *View) updateHistogram() {
	counts := aggregate.ValueCounts(aggregate.Column(v.categoryMonthTable, func(r core.Transaction) string {
		return r.Product
	}))
	products := make([]string, len(counts))
	heights := make(sink.Floats, len(counts))
	for i, c := range counts {
		products[i] = c.Value
		heights[i] = float64(c.Count)
	}
	v.board.Set(sink.CategoryHistogram, sink.Chart{
		Columns: map[string]any{"x": products, "y": heights},
		Attrs:   map[string]any{"x_range": slices.Clone(products)},
	})
}

func (v *View) updateTransactions() {
	rows := v.categoryMonthTable.SortedByDate()
	cols := []string{v.cols.Date, v.cols.Product, v.cols.Price, v.cols.Currency, v.cols.Shop}
	data := make(map[string][]string, len(cols))
	for _, c := range cols {
		data[c] = make([]string, 0, len(rows))
	}
	for _, r := range rows {
		data[v.cols.Date] = append(data[v.cols.Date], r.Date.Format("2006-01-02"))
		data[v.cols.Product] = append(data[v.cols.Product], views.MissingOr(r.Product))
		data[v.cols.Price] = append(data[v.cols.Price], r.Price.StringFixed(2))
		data[v.cols.Currency] = append(data[v.cols.Currency], views.MissingOr(r.Currency))
		data[v.cols.Shop] = append(data[v.cols.Shop], views.MissingOr(r.Shop))
	}
	v.board.Set(sink.CategoryTransactions, sink.Table{Columns: cols, Rows: data})
}

func (v *View) totalFromCategory() float64 {
	return core.Float(v.categoryTable.Total())
}

// Categories lists the categories that can be chosen.
func (v *View) Categories() []string { return slices.Clone(v.categories) }

// Months lists the months of the trend line.
func (v *View) Months() []string { return slices.Clone(v.months) }

func (v *View) ChosenCategory() string { return v.chosenCategory }

func (v *View) ChosenMonths() []string { return slices.Clone(v.chosenMonths) }

// CategoryMonthTable is the category table narrowed to the brushed months.
func (v *View) CategoryMonthTable() core.Table { return v.categoryMonthTable }
