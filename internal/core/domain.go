package core

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultSeparator joins account names into a category path.
const DefaultSeparator = ":"

type (
	// Transaction is one split of a GnuCash transaction flattened into a row.
	// Income rows carry a negative price, expense rows a positive one.
	Transaction struct {
		Date         time.Time
		Price        decimal.Decimal
		Currency     string
		Product      string
		Shop         string // empty when the split had no memo
		Category     string // leaf account name
		FullCategory string // account path without the root account
		Type         string
		MonthYear    string
	}

	// Table is an ordered set of transactions. Tables are shared between
	// sessions and must never be modified in place.
	Table []Transaction

	// Tables is what a book reader produces.
	Tables struct {
		Expenses Table
		Income   Table
	}
)

var (
	ErrEmptyCategory = errors.New("empty category")
	ErrZeroDate      = errors.New("date cannot be zero")
	ErrEmptyCurrency = errors.New("empty currency")
	ErrInvalidMonth  = errors.New("invalid month")
)

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	if strings.TrimSpace(t.Currency) == "" {
		return ErrEmptyCurrency
	}
	if strings.TrimSpace(t.Category) == "" || strings.TrimSpace(t.FullCategory) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// HasShop reports whether the transaction was part of a shop (split) transaction.
func (t Transaction) HasShop() bool { return t.Shop != "" }

// Filter returns the rows for which keep returns true.
func (t Table) Filter(keep func(Transaction) bool) Table {
	out := make(Table, 0, len(t))
	for _, row := range t {
		if keep(row) {
			out = append(out, row)
		}
	}
	return out
}

// InMonths keeps rows whose month key is one of months.
func (t Table) InMonths(months []string) Table {
	set := make(map[string]struct{}, len(months))
	for _, m := range months {
		set[m] = struct{}{}
	}
	return t.Filter(func(row Transaction) bool {
		_, ok := set[row.MonthYear]
		return ok
	})
}

// InMonth keeps rows of a single month key.
func (t Table) InMonth(month string) Table {
	return t.Filter(func(row Transaction) bool { return row.MonthYear == month })
}

// SortedByDate returns a copy ordered by date. Rows of the same day keep their order.
func (t Table) SortedByDate() Table {
	out := make(Table, len(t))
	copy(out, t)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Total sums the prices of every row.
func (t Table) Total() decimal.Decimal {
	total := decimal.Zero
	for _, row := range t {
		total = total.Add(row.Price)
	}
	return total
}

// DateRange returns the first and last transaction dates.
func (t Table) DateRange() (time.Time, time.Time, bool) {
	if len(t) == 0 {
		return time.Time{}, time.Time{}, false
	}
	lo, hi := t[0].Date, t[0].Date
	for _, row := range t[1:] {
		if row.Date.Before(lo) {
			lo = row.Date
		}
		if row.Date.After(hi) {
			hi = row.Date
		}
	}
	return lo, hi, true
}

// Currency returns the most frequent currency of the table, ties broken
// alphabetically. Empty tables have no currency.
func (t Table) Currency() string {
	counts := map[string]int{}
	for _, row := range t {
		counts[row.Currency]++
	}
	best, n := "", 0
	for cur, c := range counts {
		if c > n || (c == n && cur < best) {
			best, n = cur, c
		}
	}
	return best
}

// Categories returns the leaf category of every row.
func (t Table) Categories() []string {
	out := make([]string, len(t))
	for i, row := range t {
		out[i] = row.Category
	}
	return out
}

// Paths returns the full category path of every row.
func (t Table) Paths() []string {
	out := make([]string, len(t))
	for i, row := range t {
		out[i] = row.FullCategory
	}
	return out
}

// Dates returns the date of every row.
func (t Table) Dates() []time.Time {
	out := make([]time.Time, len(t))
	for i, row := range t {
		out[i] = row.Date
	}
	return out
}
