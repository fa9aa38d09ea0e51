package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func ptr[T any](v T) *T {
	return &v
}

// Summary is a set of descriptive statistics; undefined values are nil.
type Summary struct {
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
}

// summarize rounds every statistic to one decimal. Std is the sample
// standard deviation and needs at least two values.
func summarize(xs []float64) Summary {
	s := Summary{Count: len(xs)}
	if len(xs) == 0 {
		return s
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	s.Mean = ptr(round1(stat.Mean(sorted, nil)))
	s.Median = ptr(round1(median(sorted)))
	s.Min = ptr(round1(sorted[0]))
	s.Max = ptr(round1(sorted[len(sorted)-1]))
	if len(sorted) > 1 {
		s.Std = ptr(round1(stat.StdDev(sorted, nil)))
	}
	return s
}

// median expects sorted input; even-length input averages the middle pair.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// share returns part/total as a percentage rounded to one decimal, or nil
// when total is zero.
func share(part, total int) *float64 {
	if total == 0 {
		return nil
	}
	return ptr(round1(float64(part) / float64(total) * 100))
}

// Bin is one histogram bucket over the half-open interval [Lo, Hi).
type Bin struct {
	Label string
	Lo    float64
	Hi    float64
}

// binIndex returns the bucket for x, or -1 when x falls outside every bin.
// closeLast makes the last bin include its upper edge.
func binIndex(bins []Bin, x float64, closeLast bool) int {
	for i, b := range bins {
		if x >= b.Lo && x < b.Hi {
			return i
		}
		if closeLast && i == len(bins)-1 && x == b.Hi {
			return i
		}
	}
	return -1
}
