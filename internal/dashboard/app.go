// Package dashboard ties the settings and the three views together.
//
// An App owns one set of filters over the book tables. Settings report
// their changes through an observer.Dispatcher with the App as the notify
// target; the App keeps the chosen taxonomy, categories and months and
// narrows the expense table before a view renders. Sessions hold one App per
// browser and a Source holds the tables every App starts from.
package dashboard

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"time"

	"gnucashboard/internal/core"
	"gnucashboard/internal/observer"
	"gnucashboard/internal/settings"
	"gnucashboard/internal/sink"
	"gnucashboard/internal/views"
	"gnucashboard/internal/views/category"
	"gnucashboard/internal/views/overview"
	"gnucashboard/internal/views/trends"
)

type Options struct {
	Separator   string
	MonthFormat core.MonthFormat
	TypeLabels  []string
	Columns     core.ColumnNames
	Palette     views.Palette
	// Now is the clock of the overview's default month.
	Now func() time.Time
	// Rand names generated heatmap columns. Each App needs its own.
	Rand *rand.Rand
}

func (o Options) withDefaults() Options {
	if o.Separator == "" {
		o.Separator = core.DefaultSeparator
	}
	if o.MonthFormat == (core.MonthFormat{}) {
		o.MonthFormat = core.MustMonthFormat(core.DefaultMonthPattern)
	}
	if o.Columns == (core.ColumnNames{}) {
		o.Columns = core.DefaultColumnNames()
	}
	if o.Palette == (views.Palette{}) {
		o.Palette = views.DefaultPalette()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}

// App is the coordinator of one dashboard. It is not safe for concurrent
// use; Session serializes access.
type App struct {
	opts Options

	expenses core.Table
	income   core.Table

	dispatcher *observer.Dispatcher
	settings   *settings.Settings

	category *category.View
	overview *overview.View
	trends   *trends.View

	categoryType     settings.CategoryType
	chosenCategories []string
	chosenMonths     []string

	currentExpenses core.Table
	currentIncome   core.Table
}

// New builds an App over the book tables and announces the initial
// settings: every category of the Simple taxonomy and every month.
func New(expenses, income core.Table, opts Options) (*App, error) {
	opts = opts.withDefaults()
	a := &App{
		opts:       opts,
		expenses:   expenses,
		income:     income,
		dispatcher: observer.NewDispatcher(),
		category:   category.New(category.Options{Columns: opts.Columns}),
		overview:   overview.New(overview.Options{MonthFormat: opts.MonthFormat, Palette: opts.Palette, Now: opts.Now}),
		trends:     trends.New(trends.Options{Columns: opts.Columns, MonthFormat: opts.MonthFormat, Rand: opts.Rand}),
	}
	a.settings = settings.New(a.dispatcher, a, settings.SourceFromTable(expenses), settings.Options{
		Separator:   opts.Separator,
		MonthFormat: opts.MonthFormat,
		TypeLabels:  opts.TypeLabels,
	})
	a.dispatcher.Register(a.onChange)
	if err := a.settings.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize settings: %w", err)
	}
	a.updateCurrent()
	return a, nil
}

// onChange records a settings change addressed to this App.
func (a *App) onChange(target any, key string, value any) error {
	if target != a {
		return nil
	}
	switch key {
	case settings.KeyChosenCategoryType:
		ct, ok := value.(settings.CategoryType)
		if !ok {
			return fmt.Errorf("%s: unexpected value %T", key, value)
		}
		a.categoryType = ct
	case settings.KeyChosenCategories:
		cats, ok := value.([]string)
		if !ok {
			return fmt.Errorf("%s: unexpected value %T", key, value)
		}
		a.chosenCategories = slices.Clone(cats)
	case settings.KeyChosenMonths:
		months, ok := value.([]time.Time)
		if !ok {
			return fmt.Errorf("%s: unexpected value %T", key, value)
		}
		a.chosenMonths = a.opts.MonthFormat.Keys(months)
	}
	return nil
}

// categoryValue is the column the category filter matches: the leaf for
// the Simple taxonomy, the full path otherwise.
func (a *App) categoryValue(t core.Transaction) string {
	if a.categoryType == settings.Simple {
		return t.Category
	}
	return t.FullCategory
}

// updateCurrent narrows the tables to the chosen months and drops expense
// rows whose category contains any category left unchosen. Income is only
// narrowed by month.
func (a *App) updateCurrent() {
	chosen := make(map[string]struct{}, len(a.chosenCategories))
	for _, c := range a.chosenCategories {
		chosen[c] = struct{}{}
	}
	var unchosen []string
	for _, c := range a.settings.AllCategories() {
		if _, ok := chosen[c]; !ok {
			unchosen = append(unchosen, c)
		}
	}

	a.currentExpenses = a.expenses.InMonths(a.chosenMonths).Filter(func(t core.Transaction) bool {
		value := a.categoryValue(t)
		for _, c := range unchosen {
			if strings.Contains(value, c) {
				return false
			}
		}
		return true
	})
	a.currentIncome = a.income.InMonths(a.chosenMonths)
}

// Render refreshes the filtered tables and renders view from scratch.
func (a *App) Render(view sink.View) (*sink.Board, error) {
	a.updateCurrent()
	switch view {
	case sink.ViewCategory:
		return a.category.Board(), a.category.Render(a.currentExpenses)
	case sink.ViewOverview:
		return a.overview.Board(), a.overview.Render(a.currentExpenses, a.currentIncome)
	case sink.ViewTrends:
		return a.trends.Board(), a.trends.Render(a.currentExpenses)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownView, view)
}

// CategoryView renders the category view.
func (a *App) CategoryView() (*sink.Board, error) { return a.Render(sink.ViewCategory) }

// OverviewView renders the overview view.
func (a *App) OverviewView() (*sink.Board, error) { return a.Render(sink.ViewOverview) }

// TrendsView renders the trends view.
func (a *App) TrendsView() (*sink.Board, error) { return a.Render(sink.ViewTrends) }

// Board returns the sinks of view without rendering.
func (a *App) Board(view sink.View) (*sink.Board, error) {
	switch view {
	case sink.ViewCategory:
		return a.category.Board(), nil
	case sink.ViewOverview:
		return a.overview.Board(), nil
	case sink.ViewTrends:
		return a.trends.Board(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownView, view)
}

func (a *App) Settings() *settings.Settings { return a.settings }

func (a *App) Category() *category.View { return a.category }

func (a *App) Overview() *overview.View { return a.overview }

func (a *App) Trends() *trends.View { return a.trends }

func (a *App) CategoryType() settings.CategoryType { return a.categoryType }

func (a *App) ChosenCategories() []string { return slices.Clone(a.chosenCategories) }

// ChosenMonths are the month keys of the chosen month range.
func (a *App) ChosenMonths() []string { return slices.Clone(a.chosenMonths) }

// CurrentExpenses is the expense table after the latest filter pass.
func (a *App) CurrentExpenses() core.Table { return a.currentExpenses }

// CurrentIncome is the income table after the latest filter pass.
func (a *App) CurrentIncome() core.Table { return a.currentIncome }
