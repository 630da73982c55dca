package core

import (
	"fmt"
	"time"

	"github.com/ncruces/go-strftime"
)

// DefaultMonthPattern is the strftime pattern of month bucket keys.
const DefaultMonthPattern = "%Y-%m"

// MonthFormat turns dates into month bucket keys and back.
type MonthFormat struct {
	pattern string
	layout  string
}

// NewMonthFormat validates a strftime pattern. The pattern must identify a
// month unambiguously so that keys can be parsed back.
func NewMonthFormat(pattern string) (MonthFormat, error) {
	layout, err := strftime.Layout(pattern)
	if err != nil {
		return MonthFormat{}, fmt.Errorf("month pattern %q: %w", pattern, err)
	}
	f := MonthFormat{pattern: pattern, layout: layout}
	sample := time.Date(2019, time.November, 1, 0, 0, 0, 0, time.UTC)
	back, err := f.Parse(f.Key(sample))
	if err != nil || !back.Equal(sample) {
		return MonthFormat{}, fmt.Errorf("month pattern %q does not round trip", pattern)
	}
	return f, nil
}

// MustMonthFormat is NewMonthFormat for patterns known at compile time.
func MustMonthFormat(pattern string) MonthFormat {
	f, err := NewMonthFormat(pattern)
	if err != nil {
		panic(err)
	}
	return f
}

func (f MonthFormat) Pattern() string { return f.pattern }

// Key formats the month bucket of t.
func (f MonthFormat) Key(t time.Time) string {
	return strftime.Format(f.pattern, t)
}

// Parse returns the first day of the month identified by key.
func (f MonthFormat) Parse(key string) (time.Time, error) {
	t, err := time.Parse(f.layout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidMonth, key, err)
	}
	return MonthStart(t), nil
}

// Keys formats each month.
func (f MonthFormat) Keys(months []time.Time) []string {
	out := make([]string, len(months))
	for i, m := range months {
		out[i] = f.Key(m)
	}
	return out
}

// Shift moves a month key by n calendar months.
func (f MonthFormat) Shift(key string, n int) (string, error) {
	t, err := f.Parse(key)
	if err != nil {
		return "", err
	}
	return f.Key(t.AddDate(0, n, 0)), nil
}

// MonthStart truncates t to midnight UTC of the first day of its month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthRange lists month starts from the month of start to the month of end,
// both included. It is empty when start is after end.
func MonthRange(start, end time.Time) []time.Time {
	from, to := MonthStart(start), MonthStart(end)
	var out []time.Time
	for m := from; !m.After(to); m = m.AddDate(0, 1, 0) {
		out = append(out, m)
	}
	return out
}
