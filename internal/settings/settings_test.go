package settings

import (
	"errors"
	"reflect"
	"slices"
	"testing"
	"time"

	"gnucashboard/internal/observer"
)

type notification struct {
	target any
	key    string
	value  any
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testSource() Source {
	return Source{
		Categories: []string{"Bread", "Rent", "Bread", "Clothes", "Clothes"},
		Paths: []string{
			"Expenses:Family:Grocery:Bread",
			"Expenses:Family:Flat:Rent",
			"Expenses:Family:Grocery:Bread",
			"Expenses:John's Expenses:Clothes",
			"Expenses:Susan's Expenses:Clothes",
		},
		Dates: []time.Time{day(2019, 3, 14), day(2019, 1, 20), day(2019, 5, 2), day(2019, 2, 1), day(2019, 3, 30)},
	}
}

func newSettings(t *testing.T) (*Settings, *[]notification, any) {
	t.Helper()
	d := observer.NewDispatcher()
	target := &struct{ name string }{"dashboard"}
	var got []notification
	d.Register(func(tg any, key string, value any) error {
		got = append(got, notification{tg, key, value})
		return nil
	})
	s := New(d, target, testSource(), Options{})
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return s, &got, target
}

func TestInitialize(t *testing.T) {
	s, got, target := newSettings(t)

	wantKeys := []string{KeyChosenCategoryType, KeyChosenCategories, KeyChosenMonths}
	if len(*got) != len(wantKeys) {
		t.Fatalf("notifications = %d, want %d", len(*got), len(wantKeys))
	}
	for i, n := range *got {
		if n.key != wantKeys[i] {
			t.Errorf("notification %d key = %s, want %s", i, n.key, wantKeys[i])
		}
		if n.target != target {
			t.Errorf("notification %d target = %v, want %v", i, n.target, target)
		}
	}
	if (*got)[0].value != Simple {
		t.Errorf("category type = %v, want %v", (*got)[0].value, Simple)
	}
	if !reflect.DeepEqual((*got)[1].value, []string{"Bread", "Clothes", "Rent"}) {
		t.Errorf("categories = %v", (*got)[1].value)
	}

	want := []time.Time{day(2019, 1, 1), day(2019, 2, 1), day(2019, 3, 1), day(2019, 4, 1), day(2019, 5, 1)}
	if !reflect.DeepEqual(s.ChosenMonths.Get(), want) {
		t.Errorf("ChosenMonths = %v, want %v", s.ChosenMonths.Get(), want)
	}
	if !reflect.DeepEqual(s.AllMonths(), want) {
		t.Errorf("AllMonths() = %v, want %v", s.AllMonths(), want)
	}

	c := s.Control()
	if !slices.Equal(c.TypeLabels, DefaultTypeLabels) {
		t.Errorf("TypeLabels = %v", c.TypeLabels)
	}
	if !slices.Equal(c.CategoryLabels, []string{"Bread", "Clothes", "Rent"}) {
		t.Errorf("CategoryLabels = %v", c.CategoryLabels)
	}
	if !slices.Equal(c.ActiveIndices, []int{0, 1, 2}) {
		t.Errorf("ActiveIndices = %v", c.ActiveIndices)
	}
	if !slices.Equal(c.ChosenMonthKeys, []string{"2019-01", "2019-02", "2019-03", "2019-04", "2019-05"}) {
		t.Errorf("ChosenMonthKeys = %v", c.ChosenMonthKeys)
	}
}

func TestTaxonomies(t *testing.T) {
	s, _, _ := newSettings(t)

	tests := []struct {
		name string
		ct   CategoryType
		want []string
	}{
		{
			name: "expanded",
			ct:   Expanded,
			want: []string{
				"Expenses:Family:Flat:Rent",
				"Expenses:Family:Grocery:Bread",
				"Expenses:John's Expenses:Clothes",
				"Expenses:Susan's Expenses:Clothes",
			},
		},
		{
			name: "combinations",
			ct:   Combinations,
			want: []string{
				"Expenses",
				"Expenses:Family",
				"Expenses:Family:Flat",
				"Expenses:Family:Flat:Rent",
				"Expenses:Family:Grocery",
				"Expenses:Family:Grocery:Bread",
				"Expenses:John's Expenses",
				"Expenses:John's Expenses:Clothes",
				"Expenses:Susan's Expenses",
				"Expenses:Susan's Expenses:Clothes",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Taxonomy(tt.ct); !slices.Equal(got, tt.want) {
				t.Errorf("Taxonomy(%v) = %v, want %v", tt.ct, got, tt.want)
			}
		})
	}
}

func TestCategoryTypeChangeResetsSelection(t *testing.T) {
	s, got, _ := newSettings(t)
	if err := s.OnCategorySelectionChanged([]int{0}); err != nil {
		t.Fatalf("OnCategorySelectionChanged() error = %v", err)
	}
	*got = nil

	if err := s.OnCategoryTypeChanged(int(Combinations)); err != nil {
		t.Fatalf("OnCategoryTypeChanged() error = %v", err)
	}

	combos := s.Taxonomy(Combinations)
	if !slices.Equal(s.ChosenCategories.Get(), combos) {
		t.Errorf("ChosenCategories = %v, want %v", s.ChosenCategories.Get(), combos)
	}
	if !slices.Equal(s.AllCategories(), combos) {
		t.Errorf("AllCategories() = %v, want %v", s.AllCategories(), combos)
	}
	if slices.Contains(s.ChosenCategories.Get(), "Bread") {
		t.Error("simple category Bread still chosen")
	}
	if s.ChosenCategoryType.Get() != Combinations {
		t.Errorf("ChosenCategoryType = %v, want %v", s.ChosenCategoryType.Get(), Combinations)
	}

	c := s.Control()
	if !slices.Equal(c.CategoryLabels, combos) {
		t.Errorf("CategoryLabels = %v", c.CategoryLabels)
	}
	if len(c.ActiveIndices) != len(combos) {
		t.Errorf("ActiveIndices = %v, want %d entries", c.ActiveIndices, len(combos))
	}
	if c.ActiveType != Combinations {
		t.Errorf("ActiveType = %v, want %v", c.ActiveType, Combinations)
	}

	if len(*got) != 2 {
		t.Fatalf("notifications = %d, want 2", len(*got))
	}
	if (*got)[0].key != KeyChosenCategories || (*got)[1].key != KeyChosenCategoryType {
		t.Errorf("notification keys = %s, %s", (*got)[0].key, (*got)[1].key)
	}
}

func TestCategoryTypeChangeInvalid(t *testing.T) {
	for _, index := range []int{-1, 3, 10} {
		s, got, _ := newSettings(t)
		*got = nil
		if err := s.OnCategoryTypeChanged(index); !errors.Is(err, ErrInvalidCategoryType) {
			t.Errorf("OnCategoryTypeChanged(%d) error = %v, want %v", index, err, ErrInvalidCategoryType)
		}
		if len(*got) != 0 {
			t.Errorf("OnCategoryTypeChanged(%d) notified %d times", index, len(*got))
		}
		if s.ChosenCategoryType.Get() != Simple {
			t.Errorf("ChosenCategoryType = %v, want %v", s.ChosenCategoryType.Get(), Simple)
		}
		if !slices.Equal(s.AllCategories(), []string{"Bread", "Clothes", "Rent"}) {
			t.Errorf("AllCategories() = %v", s.AllCategories())
		}
	}
}

func TestCategorySelectionKeepsTaxonomyOrder(t *testing.T) {
	s, _, _ := newSettings(t)

	if err := s.OnCategorySelectionChanged([]int{2, 0}); err != nil {
		t.Fatalf("OnCategorySelectionChanged() error = %v", err)
	}
	if got := s.ChosenCategories.Get(); !slices.Equal(got, []string{"Bread", "Rent"}) {
		t.Errorf("ChosenCategories = %v, want [Bread Rent]", got)
	}
	if got := s.Control().ActiveIndices; !slices.Equal(got, []int{0, 2}) {
		t.Errorf("ActiveIndices = %v, want [0 2]", got)
	}

	if err := s.OnCategorySelectionChanged(nil); err != nil {
		t.Fatalf("OnCategorySelectionChanged(nil) error = %v", err)
	}
	if got := s.ChosenCategories.Get(); len(got) != 0 {
		t.Errorf("ChosenCategories = %v, want none", got)
	}

	if err := s.OnCategorySelectionChanged([]int{3}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("OnCategorySelectionChanged([3]) error = %v, want %v", err, ErrIndexOutOfRange)
	}
}

func TestMonthRangeChanged(t *testing.T) {
	s, got, _ := newSettings(t)
	*got = nil

	// The initial range only moves by days: nothing to do.
	if err := s.OnMonthRangeChanged(day(2019, 1, 15).UnixMilli(), day(2019, 5, 31).UnixMilli()); err != nil {
		t.Fatalf("OnMonthRangeChanged() error = %v", err)
	}
	if len(*got) != 0 {
		t.Errorf("unchanged month pair notified %d times", len(*got))
	}

	if err := s.OnMonthRangeChanged(day(2019, 2, 10).UnixMilli(), day(2019, 3, 2).UnixMilli()); err != nil {
		t.Fatalf("OnMonthRangeChanged() error = %v", err)
	}
	want := []time.Time{day(2019, 2, 1), day(2019, 3, 1)}
	if !reflect.DeepEqual(s.ChosenMonths.Get(), want) {
		t.Errorf("ChosenMonths = %v, want %v", s.ChosenMonths.Get(), want)
	}
	if len(*got) != 1 {
		t.Fatalf("notifications = %d, want 1", len(*got))
	}
	if keys := s.Control().ChosenMonthKeys; !slices.Equal(keys, []string{"2019-02", "2019-03"}) {
		t.Errorf("ChosenMonthKeys = %v", keys)
	}

	if err := s.OnMonthRangeChanged(day(2019, 2, 28).UnixMilli()+3600_000, day(2019, 3, 20).UnixMilli()); err != nil {
		t.Fatalf("OnMonthRangeChanged() error = %v", err)
	}
	if len(*got) != 1 {
		t.Errorf("jitter inside the same months notified, total %d", len(*got))
	}
}

func TestNotInitialized(t *testing.T) {
	s := New(observer.NewDispatcher(), nil, testSource(), Options{})
	if err := s.OnCategoryTypeChanged(0); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("OnCategoryTypeChanged() error = %v, want %v", err, ErrNotInitialized)
	}
}
