package aggregate

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// CalendarDay places one day of totals on the heatmap grid.
type CalendarDay struct {
	Date    time.Time
	Weekday int // Monday is 0
	Week    int // weeks since the first Monday, negative before it
	WeekKey string
	DateKey string
	Sum     float64
	Count   int
}

// WeekLabel names the heatmap column holding a month's first Monday.
type WeekLabel struct {
	WeekKey string
	Label   string
}

// Weekday returns Monday=0 .. Sunday=6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// FirstMonday returns the first Monday on or after t.
func FirstMonday(t time.Time) time.Time {
	return t.AddDate(0, 0, (7-Weekday(t))%7)
}

// WeekIndex floors the distance between d and anchor to whole weeks. Days
// before anchor get negative indices, so weeks stay contiguous across years.
func WeekIndex(d, anchor time.Time) int {
	days := int(math.Round(d.Sub(anchor).Hours() / 24))
	return int(math.Floor(float64(days) / 7))
}

// WeekKey pads a week index to a fixed width so keys sort lexicographically.
func WeekKey(week int) string {
	return fmt.Sprintf("%04d", week)
}

// Calendar buckets daily totals by weekday and week. Days must be sorted.
func Calendar(days []Daily) []CalendarDay {
	if len(days) == 0 {
		return nil
	}
	anchor := FirstMonday(days[0].Date)
	out := make([]CalendarDay, len(days))
	for i, d := range days {
		week := WeekIndex(d.Date, anchor)
		out[i] = CalendarDay{
			Date:    d.Date,
			Weekday: Weekday(d.Date),
			Week:    week,
			WeekKey: WeekKey(week),
			DateKey: d.Date.Format("02-Jan-2006"),
			Sum:     d.Sum,
			Count:   d.Count,
		}
	}
	return out
}

// WeekLabels labels the week of every month's first Monday with the short
// month name. Only months with at least one day of data whose first Monday
// falls between the first and last day are labelled. The year is prepended
// for the first label, on a new year and after a month without data. Days
// must be sorted.
func WeekLabels(days []CalendarDay) []WeekLabel {
	if len(days) == 0 {
		return nil
	}
	first, last := days[0].Date, days[len(days)-1].Date
	anchor := FirstMonday(first)

	var out []WeekLabel
	var prev time.Time
	for _, d := range days {
		month := time.Date(d.Date.Year(), d.Date.Month(), 1, 0, 0, 0, 0, d.Date.Location())
		if !prev.IsZero() && month.Equal(prev) {
			continue
		}
		gap := prev.IsZero() || prev.Year() != month.Year() || monthsBetween(prev, month) > 1
		prev = month

		monday := FirstMonday(month)
		if monday.Before(first) || monday.After(last) {
			continue
		}
		label := month.Format("Jan")
		if gap || len(out) == 0 {
			label = fmt.Sprintf("(%d) %s", month.Year(), label)
		}
		out = append(out, WeekLabel{WeekKey: WeekKey(WeekIndex(monday, anchor)), Label: label})
	}
	return out
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

const nameAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NameLength is the length of generated replacement column names.
const NameLength = 8

// ColumnNames maps each wanted column name to itself, or to a random name
// when it collides with a taken name or with another result. Random names
// are drawn until they are unique; there is no retry limit.
func ColumnNames(wanted, taken []string, rng *rand.Rand) map[string]string {
	used := make(map[string]struct{}, len(taken)+len(wanted))
	for _, name := range taken {
		used[name] = struct{}{}
	}
	out := make(map[string]string, len(wanted))
	for _, name := range wanted {
		candidate := name
		for {
			if _, clash := used[candidate]; !clash {
				break
			}
			candidate = randomName(rng)
		}
		used[candidate] = struct{}{}
		out[name] = candidate
	}
	return out
}

func randomName(rng *rand.Rand) string {
	b := make([]byte, NameLength)
	for i := range b {
		b[i] = nameAlphabet[rng.Intn(len(nameAlphabet))]
	}
	return string(b)
}
