package dashboard

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gnucashboard/internal/core"
	"gnucashboard/internal/log"
	"gnucashboard/internal/settings"
	"gnucashboard/internal/sink"
	"gnucashboard/internal/views/trends"
)

func tx(y int, m time.Month, d int, price float64, path, product string) core.Transaction {
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	segments := strings.Split(path, ":")
	typ := ""
	if len(segments) > 1 {
		typ = segments[1]
	}
	return core.Transaction{
		Date:         date,
		Price:        decimal.NewFromFloat(price),
		Currency:     "PLN",
		Product:      product,
		Category:     segments[len(segments)-1],
		FullCategory: path,
		Type:         typ,
		MonthYear:    date.Format("2006-01"),
	}
}

func testTables() core.Tables {
	return core.Tables{
		Expenses: core.Table{
			tx(2019, 1, 3, 3.5, "Expenses:Family:Grocery:Bread", "White Bread"),
			tx(2019, 1, 20, 2000, "Expenses:Family:Flat:Rent", "Rent"),
			tx(2019, 2, 11, 2, "Expenses:Family:Grocery:Bread", "White Bread"),
			tx(2019, 2, 20, 2000, "Expenses:Family:Flat:Rent", "Rent"),
			tx(2019, 2, 14, 150, "Expenses:John's Expenses:Clothes", "Shirt"),
		},
		Income: core.Table{
			tx(2019, 1, 25, -5000, "Income:Salary", "Salary"),
			tx(2019, 2, 25, -5000, "Income:Salary", "Salary"),
		},
	}
}

func testOptions() Options {
	return Options{
		Now:  func() time.Time { return time.Date(2019, 3, 10, 0, 0, 0, 0, time.UTC) },
		Rand: rand.New(rand.NewSource(1)),
	}
}

func newApp(t *testing.T) *App {
	t.Helper()
	tables := testTables()
	app, err := New(tables.Expenses, tables.Income, testOptions())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return app
}

// categoriesOf lists the distinct categories of tbl, sorted.
func categoriesOf(tbl core.Table) []string {
	seen := map[string]bool{}
	var out []string
	for _, row := range tbl {
		if !seen[row.Category] {
			seen[row.Category] = true
			out = append(out, row.Category)
		}
	}
	slices.Sort(out)
	return out
}

func apply(t *testing.T, app *App, view sink.View, act Action) {
	t.Helper()
	if err := app.Apply(view, act); err != nil {
		t.Fatalf("Apply(%s, %+v) error = %v", view, act, err)
	}
}

func sinkNames(entries map[string]sink.Entry) []string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func TestNewAnnouncesInitialSettings(t *testing.T) {
	app := newApp(t)

	if app.CategoryType() != settings.Simple {
		t.Errorf("CategoryType() = %v, want %v", app.CategoryType(), settings.Simple)
	}
	if got := app.ChosenCategories(); !slices.Equal(got, []string{"Bread", "Clothes", "Rent"}) {
		t.Errorf("ChosenCategories() = %v", got)
	}
	if got := app.ChosenMonths(); !slices.Equal(got, []string{"2019-01", "2019-02"}) {
		t.Errorf("ChosenMonths() = %v", got)
	}
	if len(app.CurrentExpenses()) != 5 || len(app.CurrentIncome()) != 2 {
		t.Errorf("current tables = %d expenses, %d income; want 5, 2", len(app.CurrentExpenses()), len(app.CurrentIncome()))
	}
}

func TestCategorySelectionFiltersSimple(t *testing.T) {
	app := newApp(t)
	if _, err := app.CategoryView(); err != nil {
		t.Fatalf("CategoryView() error = %v", err)
	}

	apply(t, app, sink.ViewCategory, Action{Type: ActionCategories, Indices: []int{2, 0}})

	want := []string{"Bread", "Rent"}
	if got := app.ChosenCategories(); !slices.Equal(got, want) {
		t.Errorf("ChosenCategories() = %v, want %v", got, want)
	}
	if got := categoriesOf(app.CurrentExpenses()); !slices.Equal(got, want) {
		t.Errorf("expense categories = %v, want %v", got, want)
	}
	if got := app.Category().Categories(); !slices.Equal(got, want) {
		t.Errorf("view categories = %v, want %v: the view is rendered again", got, want)
	}
}

func TestCombinationsExcludeDescendants(t *testing.T) {
	app := newApp(t)
	apply(t, app, sink.ViewTrends, Action{Type: ActionCategoryType, Index: int(settings.Combinations)})

	all := app.Settings().AllCategories()
	var keep []int
	for i, c := range all {
		if c != "Expenses:Family:Grocery" {
			keep = append(keep, i)
		}
	}
	apply(t, app, sink.ViewTrends, Action{Type: ActionCategories, Indices: keep})

	if got := categoriesOf(app.CurrentExpenses()); !slices.Equal(got, []string{"Clothes", "Rent"}) {
		t.Errorf("expense categories = %v, want [Clothes Rent]", got)
	}
	if len(app.CurrentExpenses()) != 3 {
		t.Errorf("CurrentExpenses() = %d rows, want 3", len(app.CurrentExpenses()))
	}
}

func TestTaxonomySwitchResetsSelection(t *testing.T) {
	app := newApp(t)
	apply(t, app, sink.ViewCategory, Action{Type: ActionCategories, Indices: []int{0}})
	if got := app.ChosenCategories(); !slices.Equal(got, []string{"Bread"}) {
		t.Fatalf("ChosenCategories() = %v, want [Bread]", got)
	}

	apply(t, app, sink.ViewCategory, Action{Type: ActionCategoryType, Index: int(settings.Combinations)})

	if app.CategoryType() != settings.Combinations {
		t.Errorf("CategoryType() = %v, want %v", app.CategoryType(), settings.Combinations)
	}
	if !slices.Equal(app.ChosenCategories(), app.Settings().Taxonomy(settings.Combinations)) {
		t.Errorf("ChosenCategories() = %v, want the whole taxonomy", app.ChosenCategories())
	}
	for _, c := range app.ChosenCategories() {
		if !strings.HasPrefix(c, "Expenses") {
			t.Errorf("leftover simple category %q", c)
		}
	}
	if len(app.CurrentExpenses()) != 5 {
		t.Errorf("CurrentExpenses() = %d rows, want 5", len(app.CurrentExpenses()))
	}
}

func TestInvalidCategoryTypeChangesNothing(t *testing.T) {
	app := newApp(t)
	err := app.Apply(sink.ViewCategory, Action{Type: ActionCategoryType, Index: 3})
	if !errors.Is(err, settings.ErrInvalidCategoryType) {
		t.Errorf("Apply() error = %v, want %v", err, settings.ErrInvalidCategoryType)
	}
	if app.CategoryType() != settings.Simple {
		t.Errorf("CategoryType() = %v, want %v", app.CategoryType(), settings.Simple)
	}
	if got := app.ChosenCategories(); !slices.Equal(got, []string{"Bread", "Clothes", "Rent"}) {
		t.Errorf("ChosenCategories() = %v", got)
	}
}

func TestMonthRangeFiltersIncomeByMonthOnly(t *testing.T) {
	app := newApp(t)
	apply(t, app, sink.ViewOverview, Action{Type: ActionCategories, Indices: []int{0}})

	feb := time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	midFeb := time.Date(2019, 2, 15, 12, 0, 0, 0, time.UTC).UnixMilli()
	apply(t, app, sink.ViewOverview, Action{Type: ActionMonthRange, Start: feb, End: midFeb})

	if got := app.ChosenMonths(); !slices.Equal(got, []string{"2019-02"}) {
		t.Errorf("ChosenMonths() = %v, want [2019-02]", got)
	}
	for _, row := range app.CurrentExpenses() {
		if row.MonthYear != "2019-02" || row.Category != "Bread" {
			t.Errorf("unexpected expense %s %s", row.MonthYear, row.Category)
		}
	}
	income := app.CurrentIncome()
	if len(income) != 1 || income[0].MonthYear != "2019-02" {
		t.Errorf("CurrentIncome() = %v, want the February salary only", income)
	}
	if app.Overview().ChosenMonth() != "2019-02" {
		t.Errorf("overview month = %s, want 2019-02", app.Overview().ChosenMonth())
	}
}

func TestCategorySwitchScenario(t *testing.T) {
	app := newApp(t)
	if _, err := app.CategoryView(); err != nil {
		t.Fatalf("CategoryView() error = %v", err)
	}

	apply(t, app, sink.ViewCategory, Action{Type: ActionSelectCategory, Category: "Rent"})
	apply(t, app, sink.ViewCategory, Action{Type: ActionSelectCategory, Category: "Bread"})

	chart, ok := app.Category().Board().Chart(sink.CategoryLinePlot)
	if !ok {
		t.Fatal("line plot not written")
	}
	y := chart.Columns["y"].(sink.Floats)
	if len(y) != 2 || math.Abs(y[0]-3.5) > 1e-9 || math.Abs(y[1]-2) > 1e-9 {
		t.Errorf("line plot = %v, want [3.5 2]", y)
	}
}

func TestApplyRejectsForeignActions(t *testing.T) {
	app := newApp(t)

	tests := []struct {
		name string
		view sink.View
		act  Action
		want error
	}{
		{"category action on overview", sink.ViewOverview, Action{Type: ActionSelectCategory, Category: "Rent"}, ErrUnsupportedAction},
		{"unknown view", sink.View("monthly"), Action{Type: ActionCategories}, ErrUnknownView},
		{"unknown heatmap mode", sink.ViewTrends, Action{Type: ActionHeatmapMode, Mode: "size"}, trends.ErrInvalidHeatmapMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := app.Apply(tt.view, tt.act); !errors.Is(err, tt.want) {
				t.Errorf("Apply() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCallbackIgnoresOtherTargets(t *testing.T) {
	app := newApp(t)
	if err := app.onChange(struct{}{}, settings.KeyChosenCategories, []string{"Rent"}); err != nil {
		t.Fatalf("onChange() error = %v", err)
	}
	if got := app.ChosenCategories(); !slices.Equal(got, []string{"Bread", "Clothes", "Rent"}) {
		t.Errorf("ChosenCategories() = %v: another target's change was applied", got)
	}

	if err := app.onChange(app, settings.KeyChosenMonths, "2019-01"); err == nil {
		t.Error("onChange() with a mistyped value error = nil")
	}
}

func newSource(t *testing.T) *Source {
	t.Helper()
	src := NewSource(LoaderFunc(func(context.Context) (core.Tables, error) {
		return testTables(), nil
	}), log.Discard())
	if err := src.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	return src
}

func createSession(t *testing.T) *Session {
	t.Helper()
	sessions := NewSessions(newSource(t), 10, time.Hour, testOptions(), log.Discard())
	sess, err := sessions.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return sess
}

func TestSessionApplyReturnsChangedSinks(t *testing.T) {
	sess := createSession(t)

	all, err := sess.Render(sink.ViewCategory)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(all) != len(sink.Of(sink.ViewCategory)) {
		t.Errorf("Render() = %d sinks, want %d", len(all), len(sink.Of(sink.ViewCategory)))
	}

	changed, err := sess.Apply(sink.ViewCategory, Action{Type: ActionSelectCategory, Category: "Bread"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(changed) != 0 {
		t.Errorf("choosing the current category changed %v", sinkNames(changed))
	}

	changed, err = sess.Apply(sink.ViewCategory, Action{Type: ActionSelectMonths, Indices: []int{1}})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	want := []string{sink.CategoryHistogram.String(), sink.CategoryTransactions.String()}
	slices.Sort(want)
	if got := sinkNames(changed); !slices.Equal(got, want) {
		t.Errorf("changed = %v, want %v", got, want)
	}
}

func TestSessionApplyRendersFirst(t *testing.T) {
	sess := createSession(t)

	changed, err := sess.Apply(sink.ViewTrends, Action{Type: ActionHeatmapMode, Mode: "count"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	want := []string{sink.TrendsHeatmap.String(), sink.TrendsHeatmapTitle.String()}
	slices.Sort(want)
	if got := sinkNames(changed); !slices.Equal(got, want) {
		t.Errorf("changed = %v, want %v", got, want)
	}
}

func TestSessionsLifecycle(t *testing.T) {
	calls := 0
	src := NewSource(LoaderFunc(func(context.Context) (core.Tables, error) {
		calls++
		if calls == 3 {
			return core.Tables{}, errors.New("locked")
		}
		return testTables(), nil
	}), log.Discard())
	sessions := NewSessions(src, 10, time.Hour, testOptions(), log.Discard())

	if _, err := sessions.Create(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Create() before a load error = %v, want %v", err, ErrNotReady)
	}
	if src.Ready() {
		t.Error("Ready() = true before a load")
	}

	if err := src.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	sess, err := sessions.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got, err := sessions.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != sess {
		t.Error("Get() returned another session")
	}
	if labels := sess.Settings().CategoryLabels; !slices.Equal(labels, []string{"Bread", "Clothes", "Rent"}) {
		t.Errorf("CategoryLabels = %v", labels)
	}

	if err := src.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if _, err := sessions.Get(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after reload error = %v, want %v", err, ErrSessionNotFound)
	}
	if sessions.Len() != 0 {
		t.Errorf("Len() = %d after reload, want 0", sessions.Len())
	}

	if err := src.Reload(context.Background()); err == nil {
		t.Error("Reload() of a locked book error = nil")
	}
	tables, err := src.Tables()
	if err != nil {
		t.Fatalf("Tables() error = %v", err)
	}
	if len(tables.Expenses) != 5 {
		t.Errorf("a failed reload replaced the book: %d expenses", len(tables.Expenses))
	}
}
