// Package overview summarises a single month: total expenses, products and
// shops, how much of the income was saved and where the money went.
package overview

import (
	"math"
	"slices"
	"time"

	"gnucashboard/internal/aggregate"
	"gnucashboard/internal/core"
	"gnucashboard/internal/sink"
	"gnucashboard/internal/views"
)

// StartAngle is where the savings wedge begins, the top of the circle.
const StartAngle = math.Pi / 2

var (
	expensesText  = views.MustTemplate("expenses", `{{money .Total .Currency}}`)
	productsText  = views.MustTemplate("products", `{{.Count}}`)
	shopsText     = views.MustTemplate("shops", `{{.Count}}`)
	nextMonthText = views.MustTemplate("next_month", `{{.Month}}: {{money .Expenses .Currency}} spent, {{money .Income .Currency}} earned`)
	savedText     = views.MustTemplate("saved", `You saved {{percent .Fraction}} of your income`)
	overpaidText  = views.MustTemplate("overpaid", `You overpaid {{percent .Fraction}} of your income`)
	noIncomeText  = views.MustTemplate("no_income", `Savings: {{percent .Fraction}}`)
)

type Options struct {
	MonthFormat core.MonthFormat
	Palette     views.Palette
	// Now is the clock used for the default month.
	Now func() time.Time
}

type View struct {
	board   *sink.Board
	format  core.MonthFormat
	palette views.Palette
	now     func() time.Time

	expenses core.Table
	income   core.Table
	months   []string
	currency string

	chosenMonth string
	nextMonth   string

	expenseMonth core.Table
	incomeMonth  core.Table
	expenseNext  core.Table
	incomeNext   core.Table
}

func New(opts Options) *View {
	if opts.MonthFormat == (core.MonthFormat{}) {
		opts.MonthFormat = core.MustMonthFormat(core.DefaultMonthPattern)
	}
	if opts.Palette == (views.Palette{}) {
		opts.Palette = views.DefaultPalette()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &View{board: sink.NewBoard(), format: opts.MonthFormat, palette: opts.Palette, now: opts.Now}
}

func (v *View) Board() *sink.Board { return v.board }

// Render takes the expense and income tables and shows the default month.
func (v *View) Render(expenses, income core.Table) error {
	v.expenses = expenses
	v.income = income
	v.months = aggregate.Months(expenses)
	v.currency = expenses.Currency()
	return v.SelectMonth(nil)
}

// SelectMonth shows the month with the given key. Nil selects the month
// before the current one, or the latest month with data when that month
// has none.
func (v *View) SelectMonth(month *string) error {
	var key string
	if month == nil {
		key = v.defaultMonth()
	} else {
		if _, err := v.format.Parse(*month); err != nil {
			return err
		}
		key = *month
	}
	next, err := v.format.Shift(key, 1)
	if err != nil {
		return err
	}
	v.chosenMonth, v.nextMonth = key, next

	v.expenseMonth = v.expenses.InMonth(v.chosenMonth)
	v.incomeMonth = v.income.InMonth(v.chosenMonth)
	v.expenseNext = v.expenses.InMonth(v.nextMonth)
	v.incomeNext = v.income.InMonth(v.nextMonth)

	v.updateHeadlines()
	v.updateSavings()
	v.updateCategoryBar()
	return nil
}

func (v *View) defaultMonth() string {
	key := v.format.Key(core.MonthStart(v.now()).AddDate(0, -1, 0))
	if len(v.months) > 0 && !slices.Contains(v.months, key) {
		key = v.months[len(v.months)-1]
	}
	return key
}

func (v *View) updateHeadlines() {
	title := v.chosenMonth
	if t, err := v.format.Parse(v.chosenMonth); err == nil {
		title = t.Format("January 2006")
	}
	v.board.SetText(sink.OverviewMonth, title)
	v.board.SetText(sink.OverviewExpenses, views.Execute(expensesText, map[string]any{
		"Total": core.Float(v.expenseMonth.Total()), "Currency": v.currency,
	}))
	v.board.SetText(sink.OverviewProducts, views.Execute(productsText, map[string]any{
		"Count": len(v.expenseMonth),
	}))
	v.board.SetText(sink.OverviewShops, views.Execute(shopsText, map[string]any{
		"Count": aggregate.DistinctNonEmpty(aggregate.Column(v.expenseMonth, func(r core.Transaction) string { return r.Shop })),
	}))
	v.board.SetText(sink.OverviewNextMonth, views.Execute(nextMonthText, map[string]any{
		"Month":    v.nextMonth,
		"Expenses": core.Float(v.expenseNext.Total()),
		"Income":   -core.Float(v.incomeNext.Total()),
		"Currency": v.currency,
	}))
}

// Savings returns the share of the chosen month's income that was not
// spent. It is NaN when there was no income.
func (v *View) Savings() float64 {
	income := -core.Float(v.incomeMonth.Total())
	expenses := core.Float(v.expenseMonth.Total())
	return core.Fraction(income-expenses, income)
}

// Sweep is the angle of the savings wedge: the share of a full circle given
// by |fraction|, never more than one circle.
func Sweep(fraction float64) float64 {
	if math.IsNaN(fraction) {
		return 0
	}
	return math.Min(math.Abs(fraction), 1) * 2 * math.Pi
}

func (v *View) updateSavings() {
	fraction := v.Savings()

	color, tmpl := v.palette.Positive, savedText
	switch {
	case math.IsNaN(fraction):
		color, tmpl = v.palette.Text, noIncomeText
	case fraction < 0:
		color, tmpl = v.palette.Negative, overpaidText
	}
	v.board.SetText(sink.OverviewSavingsInfo, views.Execute(tmpl, map[string]any{
		"Fraction": math.Abs(fraction),
	}))

	// Clockwise: the end angle is below the start angle.
	v.board.Set(sink.OverviewSavingsPie, sink.Chart{
		Columns: map[string]any{
			"start_angle": sink.Floats{StartAngle},
			"end_angle":   sink.Floats{StartAngle - Sweep(fraction)},
			"color":       []string{color},
		},
		Attrs: map[string]any{"direction": "clock", "fraction": sink.Float(fraction)},
	})
}

func (v *View) updateCategoryBar() {
	groups := aggregate.SortedBySum(aggregate.SumByCategory(v.expenseMonth))
	factors := aggregate.Keys(groups)
	v.board.Set(sink.OverviewCategoryBar, sink.Chart{
		Columns: map[string]any{"x": factors, "y": sink.Floats(aggregate.Sums(groups))},
		Attrs:   map[string]any{"x_range": slices.Clone(factors), "color": v.palette.Base},
	})
}

func (v *View) ChosenMonth() string { return v.chosenMonth }

func (v *View) NextMonth() string { return v.nextMonth }

// Months lists the months with expenses.
func (v *View) Months() []string { return slices.Clone(v.months) }
