// Package aggregate is the query library shared by the dashboard views:
// unique values, grouped sums, value counts, descriptive statistics,
// histograms, category taxonomies and calendar bucketing.
//
// Every function is pure. Missing values are represented as NaN.
package aggregate

import (
	"cmp"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gnucashboard/internal/core"
)

// Group is the sum and row count of the rows sharing a key.
type Group struct {
	Key   string
	Sum   decimal.Decimal
	Count int
}

// Count is one entry of ValueCounts.
type Count struct {
	Value string
	Count int
}

// UniqueSorted returns the distinct values in ascending order.
func UniqueSorted[T cmp.Ordered](values []T) []T {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

// Column extracts one string column from a table.
func Column(t core.Table, col func(core.Transaction) string) []string {
	out := make([]string, len(t))
	for i, row := range t {
		out[i] = col(row)
	}
	return out
}

// Months returns the sorted month keys present in the table.
func Months(t core.Table) []string {
	return UniqueSorted(Column(t, func(r core.Transaction) string { return r.MonthYear }))
}

// Categories returns the sorted leaf categories present in the table.
func Categories(t core.Table) []string {
	return UniqueSorted(Column(t, func(r core.Transaction) string { return r.Category }))
}

// GroupSum sums prices by key. Groups are ordered by key.
func GroupSum(t core.Table, key func(core.Transaction) string) []Group {
	idx := map[string]int{}
	var groups []Group
	for _, row := range t {
		k := key(row)
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, Group{Key: k, Sum: decimal.Zero})
		}
		groups[i].Sum = groups[i].Sum.Add(row.Price)
		groups[i].Count++
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

// SumByMonth groups prices by month key.
func SumByMonth(t core.Table) []Group {
	return GroupSum(t, func(r core.Transaction) string { return r.MonthYear })
}

// SumByCategory groups prices by leaf category.
func SumByCategory(t core.Table) []Group {
	return GroupSum(t, func(r core.Transaction) string { return r.Category })
}

// SortedBySum orders groups by descending sum, ties by key.
func SortedBySum(groups []Group) []Group {
	out := slices.Clone(groups)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Sum.Cmp(out[j].Sum); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Reindex lays group sums along keys. Keys without a group get NaN.
func Reindex(groups []Group, keys []string) []float64 {
	byKey := make(map[string]decimal.Decimal, len(groups))
	for _, g := range groups {
		byKey[g.Key] = g.Sum
	}
	out := make([]float64, len(keys))
	for i, k := range keys {
		if v, ok := byKey[k]; ok {
			out[i] = core.Float(v)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// ReindexCounts lays group row counts along keys. Keys without a group get NaN.
func ReindexCounts(groups []Group, keys []string) []float64 {
	byKey := make(map[string]int, len(groups))
	for _, g := range groups {
		byKey[g.Key] = g.Count
	}
	out := make([]float64, len(keys))
	for i, k := range keys {
		if v, ok := byKey[k]; ok {
			out[i] = float64(v)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Sums returns the group sums as floats.
func Sums(groups []Group) []float64 {
	out := make([]float64, len(groups))
	for i, g := range groups {
		out[i] = core.Float(g.Sum)
	}
	return out
}

// Keys returns the group keys.
func Keys(groups []Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Key
	}
	return out
}

// ValueCounts counts occurrences of each non-empty value, most frequent
// first and ties in ascending order.
func ValueCounts(values []string) []Count {
	counts := map[string]int{}
	for _, v := range values {
		if v == "" {
			continue
		}
		counts[v]++
	}
	out := make([]Count, 0, len(counts))
	for v, n := range counts {
		out = append(out, Count{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// DistinctNonEmpty counts distinct non-empty values.
func DistinctNonEmpty(values []string) int {
	seen := map[string]struct{}{}
	for _, v := range values {
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

// Daily is the total of one calendar day.
type Daily struct {
	Date  time.Time
	Sum   float64
	Count int
}

// SumByDay groups prices by calendar day, ordered by date.
func SumByDay(t core.Table) []Daily {
	sums := map[time.Time]decimal.Decimal{}
	counts := map[time.Time]int{}
	for _, row := range t {
		d := core.Day(row.Date)
		sums[d] = sums[d].Add(row.Price)
		counts[d]++
	}
	out := make([]Daily, 0, len(sums))
	for d, s := range sums {
		out = append(out, Daily{Date: d, Sum: core.Float(s), Count: counts[d]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// DailySums returns the sum of each day.
func DailySums(days []Daily) []float64 {
	out := make([]float64, len(days))
	for i, d := range days {
		out[i] = d.Sum
	}
	return out
}

// Simple returns the sorted distinct leaf categories.
func Simple(categories []string) []string {
	return UniqueSorted(categories)
}

// Expanded returns the sorted distinct full paths.
func Expanded(paths []string) []string {
	return UniqueSorted(paths)
}

// Prefixes lists every non-empty prefix of path, shortest first. A path of
// n segments yields n prefixes, the last being the path itself.
func Prefixes(path, sep string) []string {
	parts := strings.Split(path, sep)
	out := make([]string, 0, len(parts))
	for i := range parts {
		out = append(out, strings.Join(parts[:i+1], sep))
	}
	return out
}

// Combinations returns the sorted distinct prefixes of every path.
func Combinations(paths []string, sep string) []string {
	var all []string
	for _, p := range UniqueSorted(paths) {
		all = append(all, Prefixes(p, sep)...)
	}
	return UniqueSorted(all)
}
