package export

import (
	"math"
	"sort"
	"strings"

	"github.com/louisbranch/tracengine/compute"
)

// SummaryStats reduces every numeric column of an aggregate table to one row
// of descriptive statistics: mean, sample standard deviation, min, max,
// median, and the non-missing count. Metadata columns (__ prefix) and
// columns holding any non-numeric cell are excluded; missing cells (nil or
// NaN) are ignored.
func SummaryStats(t *compute.Table) *compute.Table {
	out := compute.NewTable("column", "mean", "std", "min", "max", "median", "count")
	if t == nil {
		return out
	}

	for j, col := range t.Columns {
		if strings.HasPrefix(col, "__") {
			continue
		}
		values, numeric := numericColumn(t, j)
		if !numeric {
			continue
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		out.AddRow(col,
			colMean(values),
			sampleStd(values),
			sortedAt(sorted, 0),
			sortedAt(sorted, len(sorted)-1),
			median(sorted),
			len(values),
		)
	}
	return out
}

// numericColumn extracts the finite values of column j. A column counts as
// numeric when every present cell coerces to float64 and at least one does.
func numericColumn(t *compute.Table, j int) ([]float64, bool) {
	var values []float64
	present := false
	for _, row := range t.Rows {
		if j >= len(row) || row[j] == nil {
			continue
		}
		v, ok := compute.Numeric(row[j])
		if !ok {
			return nil, false
		}
		present = true
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	return values, present
}

func colMean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStd is the n-1 normalized standard deviation, NaN below two samples.
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	m := colMean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func sortedAt(sorted []float64, i int) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	return sorted[i]
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
