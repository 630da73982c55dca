// Package settings holds the filter state shared by every dashboard view:
// the category taxonomy in use, the chosen categories and the chosen months.
//
// Each piece of state is an observer.Observable reporting its changes on
// behalf of a notify target, usually the dashboard that owns the settings.
package settings

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"gnucashboard/internal/aggregate"
	"gnucashboard/internal/core"
	"gnucashboard/internal/observer"
)

// Keys under which the watched values are announced.
const (
	KeyChosenCategories   = "chosen_categories"
	KeyChosenCategoryType = "chosen_category_type"
	KeyChosenMonths       = "chosen_months"
)

// CategoryType selects one of the category taxonomies.
type CategoryType int

const (
	Simple CategoryType = iota
	Expanded
	Combinations
)

func (c CategoryType) Valid() bool { return c >= Simple && c <= Combinations }

func (c CategoryType) String() string {
	switch c {
	case Simple:
		return "simple"
	case Expanded:
		return "expanded"
	case Combinations:
		return "combinations"
	}
	return fmt.Sprintf("category_type(%d)", int(c))
}

// DefaultTypeLabels are the labels of the taxonomy selector.
var DefaultTypeLabels = []string{"Simple", "Extended", "Combinations"}

var (
	ErrInvalidCategoryType = errors.New("invalid category type")
	ErrIndexOutOfRange     = errors.New("index out of range")
	ErrNotInitialized      = errors.New("settings not initialized")
)

// Source is the raw material of the taxonomies: one entry per transaction.
type Source struct {
	Categories []string
	Paths      []string
	Dates      []time.Time
}

// SourceFromTable extracts a Source from transactions.
func SourceFromTable(t core.Table) Source {
	return Source{Categories: t.Categories(), Paths: t.Paths(), Dates: t.Dates()}
}

type Options struct {
	Separator   string
	MonthFormat core.MonthFormat
	TypeLabels  []string
}

// Control mirrors the widgets bound to the settings. It is updated in the
// same call as the state it reflects.
type Control struct {
	TypeLabels      []string     `json:"type_labels"`
	ActiveType      CategoryType `json:"active_type"`
	CategoryLabels  []string     `json:"category_labels"`
	ActiveIndices   []int        `json:"active_indices"`
	MonthMin        time.Time    `json:"month_min"`
	MonthMax        time.Time    `json:"month_max"`
	MonthStart      time.Time    `json:"month_start"`
	MonthEnd        time.Time    `json:"month_end"`
	ChosenMonthKeys []string     `json:"chosen_month_keys"`
}

type Settings struct {
	ChosenCategories   *observer.Observable[[]string]
	ChosenCategoryType *observer.Observable[CategoryType]
	ChosenMonths       *observer.Observable[[]time.Time]

	source Source
	opts   Options

	simple        []string
	expanded      []string
	combinations  []string
	allCategories []string
	allMonths     []time.Time

	control       Control
	lastMonthKeys [2]string
	initialized   bool
}

// New creates Settings reporting changes through d on behalf of target.
// Nothing is computed until Initialize.
func New(d *observer.Dispatcher, target any, src Source, opts Options) *Settings {
	if opts.Separator == "" {
		opts.Separator = core.DefaultSeparator
	}
	if opts.MonthFormat == (core.MonthFormat{}) {
		opts.MonthFormat = core.MustMonthFormat(core.DefaultMonthPattern)
	}
	if len(opts.TypeLabels) == 0 {
		opts.TypeLabels = DefaultTypeLabels
	}
	return &Settings{
		ChosenCategories:   observer.NewObservable[[]string](d, KeyChosenCategories, target, nil),
		ChosenCategoryType: observer.NewObservable(d, KeyChosenCategoryType, target, Simple),
		ChosenMonths:       observer.NewObservable[[]time.Time](d, KeyChosenMonths, target, nil),
		source:             src,
		opts:               opts,
		control:            Control{TypeLabels: slices.Clone(opts.TypeLabels)},
	}
}

// Initialize derives the taxonomies and the month range and announces the
// initial state: Simple taxonomy, every category and every month chosen.
func (s *Settings) Initialize() error {
	if err := s.initializeCategories(); err != nil {
		return err
	}
	if err := s.initializeMonthRange(); err != nil {
		return err
	}
	s.initialized = true
	return nil
}

func (s *Settings) initializeCategories() error {
	s.simple = aggregate.Simple(s.source.Categories)
	s.expanded = aggregate.Expanded(s.source.Paths)
	s.combinations = aggregate.Combinations(s.source.Paths, s.opts.Separator)

	s.allCategories = s.simple
	s.bindCategories(Simple)
	if err := s.ChosenCategoryType.Set(Simple); err != nil {
		return err
	}
	return s.ChosenCategories.Set(slices.Clone(s.allCategories))
}

func (s *Settings) initializeMonthRange() error {
	s.allMonths = nil
	if len(s.source.Dates) > 0 {
		lo, hi := slices.MinFunc(s.source.Dates, time.Time.Compare), slices.MaxFunc(s.source.Dates, time.Time.Compare)
		s.allMonths = core.MonthRange(lo, hi)
	}
	if len(s.allMonths) > 0 {
		s.control.MonthMin = s.allMonths[0]
		s.control.MonthMax = s.allMonths[len(s.allMonths)-1]
		s.control.MonthStart, s.control.MonthEnd = s.control.MonthMin, s.control.MonthMax
		s.lastMonthKeys = [2]string{s.monthKey(s.control.MonthStart), s.monthKey(s.control.MonthEnd)}
	}
	s.control.ChosenMonthKeys = s.opts.MonthFormat.Keys(s.allMonths)
	return s.ChosenMonths.Set(slices.Clone(s.allMonths))
}

// OnCategoryTypeChanged switches the taxonomy. The chosen categories are
// reset to the whole new list and the bound control is relabelled.
func (s *Settings) OnCategoryTypeChanged(index int) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	ct := CategoryType(index)
	if !ct.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidCategoryType, index)
	}
	s.allCategories = s.taxonomy(ct)
	s.bindCategories(ct)

	if err := s.ChosenCategories.Set(slices.Clone(s.allCategories)); err != nil {
		return err
	}
	return s.ChosenCategoryType.Set(ct)
}

// OnCategorySelectionChanged chooses the categories at indices of the
// active taxonomy. The result follows taxonomy order, not input order.
func (s *Settings) OnCategorySelectionChanged(indices []int) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	picked := make([]bool, len(s.allCategories))
	for _, i := range indices {
		if i < 0 || i >= len(s.allCategories) {
			return fmt.Errorf("%w: category %d of %d", ErrIndexOutOfRange, i, len(s.allCategories))
		}
		picked[i] = true
	}
	chosen := make([]string, 0, len(indices))
	active := make([]int, 0, len(indices))
	for i, cat := range s.allCategories {
		if picked[i] {
			chosen = append(chosen, cat)
			active = append(active, i)
		}
	}
	s.control.ActiveIndices = active
	return s.ChosenCategories.Set(chosen)
}

// OnMonthRangeChanged takes the two ends of the month slider as Unix
// milliseconds. Moves within the same pair of months are ignored.
func (s *Settings) OnMonthRangeChanged(startMs, endMs int64) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	start := core.MonthStart(time.UnixMilli(startMs).UTC())
	end := core.MonthStart(time.UnixMilli(endMs).UTC())
	keys := [2]string{s.monthKey(start), s.monthKey(end)}
	if keys == s.lastMonthKeys {
		return nil
	}
	s.lastMonthKeys = keys

	months := core.MonthRange(start, end)
	s.control.MonthStart, s.control.MonthEnd = start, end
	s.control.ChosenMonthKeys = s.opts.MonthFormat.Keys(months)
	return s.ChosenMonths.Set(months)
}

func (s *Settings) taxonomy(ct CategoryType) []string {
	switch ct {
	case Expanded:
		return s.expanded
	case Combinations:
		return s.combinations
	default:
		return s.simple
	}
}

func (s *Settings) bindCategories(ct CategoryType) {
	s.control.ActiveType = ct
	s.control.CategoryLabels = slices.Clone(s.allCategories)
	s.control.ActiveIndices = make([]int, len(s.allCategories))
	for i := range s.control.ActiveIndices {
		s.control.ActiveIndices[i] = i
	}
}

func (s *Settings) monthKey(t time.Time) string { return s.opts.MonthFormat.Key(t) }

// AllCategories is the active taxonomy.
func (s *Settings) AllCategories() []string { return slices.Clone(s.allCategories) }

// AllMonths lists every month between the first and last transaction.
func (s *Settings) AllMonths() []time.Time { return slices.Clone(s.allMonths) }

// Taxonomy returns one taxonomy regardless of the active type.
func (s *Settings) Taxonomy(ct CategoryType) []string { return slices.Clone(s.taxonomy(ct)) }

// Control returns a copy of the bound control state.
func (s *Settings) Control() Control {
	c := s.control
	c.TypeLabels = slices.Clone(c.TypeLabels)
	c.CategoryLabels = slices.Clone(c.CategoryLabels)
	c.ActiveIndices = slices.Clone(c.ActiveIndices)
	c.ChosenMonthKeys = slices.Clone(c.ChosenMonthKeys)
	return c
}
