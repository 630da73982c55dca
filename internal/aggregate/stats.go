package aggregate

import (
	"math"
	"slices"
)

// Stats are descriptive statistics of a series. NaN entries are skipped;
// a series without values has NaN everywhere. Std is the sample standard
// deviation and is NaN below two values.
type Stats struct {
	Count  int
	Last   float64
	Mean   float64
	Median float64
	Min    float64
	Max    float64
	Std    float64
}

// Describe computes Stats of values. Last is the final entry of the series
// as given, so a trailing NaN stays NaN.
func Describe(values []float64) Stats {
	s := Stats{Last: math.NaN(), Mean: math.NaN(), Median: math.NaN(), Min: math.NaN(), Max: math.NaN(), Std: math.NaN()}
	if len(values) > 0 {
		s.Last = values[len(values)-1]
	}
	present := dropNaN(values)
	s.Count = len(present)
	if s.Count == 0 {
		return s
	}

	sorted := slices.Clone(present)
	slices.Sort(sorted)
	s.Min, s.Max = sorted[0], sorted[len(sorted)-1]
	if n := len(sorted); n%2 == 1 {
		s.Median = sorted[n/2]
	} else {
		s.Median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	var sum float64
	for _, v := range present {
		sum += v
	}
	s.Mean = sum / float64(s.Count)
	if s.Count > 1 {
		var sq float64
		for _, v := range present {
			sq += (v - s.Mean) * (v - s.Mean)
		}
		s.Std = math.Sqrt(sq / float64(s.Count-1))
	}
	return s
}

// Sum adds the non-NaN values.
func Sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		if !math.IsNaN(v) {
			total += v
		}
	}
	return total
}

// Max returns the largest non-NaN value, or NaN when there is none.
func Max(values []float64) float64 {
	present := dropNaN(values)
	if len(present) == 0 {
		return math.NaN()
	}
	return slices.Max(present)
}

// UpperBound is the y-axis bound used by line plots: 101% of the maximum,
// or 1 when the series has no positive value.
func UpperBound(values []float64) float64 {
	m := Max(values)
	if math.IsNaN(m) || m <= 0 {
		return 1
	}
	return m * 1.01
}

// Histogram holds bin edges (one more than counts) and bin heights.
type Histogram struct {
	Edges  []float64
	Counts []float64
}

// NewHistogram bins values into equal-width bins over their range. The last
// bin includes its right edge. With density the heights integrate to one.
// A constant series is binned over [v-0.5, v+0.5]; an empty one over [0, 1].
func NewHistogram(values []float64, bins int, density bool) Histogram {
	if bins < 1 {
		bins = 1
	}
	present := dropNaN(values)
	lo, hi := 0.0, 1.0
	if len(present) > 0 {
		lo, hi = slices.Min(present), slices.Max(present)
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	width := (hi - lo) / float64(bins)
	h := Histogram{Edges: make([]float64, bins+1), Counts: make([]float64, bins)}
	for i := range h.Edges {
		h.Edges[i] = lo + float64(i)*width
	}
	h.Edges[bins] = hi

	for _, v := range present {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		h.Counts[i]++
	}
	if density && len(present) > 0 {
		for i := range h.Counts {
			h.Counts[i] /= float64(len(present)) * width
		}
	}
	return h
}

func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
