package compute

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/platform/errors"
	"github.com/louisbranch/tracengine/processing"
	"github.com/louisbranch/tracengine/trial"
)

// SummaryStats reduces one signal channel to descriptive statistics: mean,
// population standard deviation, min, max, median, sample counts, plus
// optional percentiles, range, IQR, skewness/kurtosis, and first-derivative
// statistics. Missing samples (NaN) are ignored, except by count.
type SummaryStats struct{}

func (SummaryStats) Name() string    { return "SummaryStats" }
func (SummaryStats) Version() string { return "1.0.0" }

func (SummaryStats) ChannelSpecs() map[string]trial.ChannelSpec {
	return map[string]trial.ChannelSpec{
		"signal": {Role: "signal"},
	}
}

func (SummaryStats) EventSpecs() map[string]trial.EventSpec { return nil }

func (SummaryStats) Parameters() []param.Spec {
	return []param.Spec{
		{
			Name:    "percentiles",
			Label:   "Percentiles (comma-separated)",
			Type:    param.TypeString,
			Default: "25,75",
		},
		{
			Name:    "include_derivatives",
			Label:   "Include Derivative Stats",
			Type:    param.TypeBool,
			Default: false,
		},
		{
			Name:    "include_range",
			Label:   "Include Range (max-min)",
			Type:    param.TypeBool,
			Default: true,
		},
		{
			Name:    "include_iqr",
			Label:   "Include IQR",
			Type:    param.TypeBool,
			Default: true,
		},
		{
			Name:    "include_skew_kurtosis",
			Label:   "Include Skewness/Kurtosis",
			Type:    param.TypeBool,
			Default: false,
		},
	}
}

func (SummaryStats) Compute(_ *trial.RunData, in Inputs) (*Table, error) {
	sig, ok := in.Channels["signal"]
	if !ok {
		return nil, errors.WithMetadata(errors.CodeChannelNotBound,
			"summary stats needs a signal channel",
			map[string]string{"role": "signal"})
	}
	y := sig.Values

	valid := make([]float64, 0, len(y))
	for _, v := range y {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	sorted := append([]float64(nil), valid...)
	sort.Float64s(sorted)

	t := NewTable()
	var row []any
	add := func(name string, v any) {
		t.Columns = append(t.Columns, name)
		row = append(row, v)
	}

	add("mean", mean(valid))
	add("std", stddev(valid))
	add("min", boundary(sorted, 0))
	add("max", boundary(sorted, len(sorted)-1))
	add("median", percentile(sorted, 50))
	add("count", len(y))
	add("valid_count", len(valid))

	for _, pct := range parsePercentiles(in.Params.String("percentiles", "25,75")) {
		add(fmt.Sprintf("p%d", int(pct)), percentile(sorted, pct))
	}

	if in.Params.Bool("include_range", true) {
		add("range", boundary(sorted, len(sorted)-1)-boundary(sorted, 0))
	}
	if in.Params.Bool("include_iqr", true) {
		add("iqr", percentile(sorted, 75)-percentile(sorted, 25))
	}
	if in.Params.Bool("include_skew_kurtosis", false) {
		add("skewness", skewness(valid))
		add("kurtosis", kurtosis(valid))
	}

	if in.Params.Bool("include_derivatives", false) {
		dy, err := processing.Derivative(sig.Time, y, 1)
		if err != nil {
			log.Printf("summary stats: derivative block skipped: %v", err)
		} else {
			dvalid := make([]float64, 0, len(dy))
			for _, v := range dy {
				if !math.IsNaN(v) {
					dvalid = append(dvalid, v)
				}
			}
			add("derivative_mean", mean(dvalid))
			add("derivative_std", stddev(dvalid))
			add("derivative_max", maxAbs(dvalid))
		}
	}

	t.AddRow(row...)
	return t, nil
}

// parsePercentiles splits a comma-separated list of percentile ranks. A list
// with any unparseable entry falls back to the default quartiles.
func parsePercentiles(s string) []float64 {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return []float64{25, 75}
		}
		out = append(out, v)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// boundary indexes into a sorted sample, NaN when the sample is empty.
func boundary(sorted []float64, i int) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	return sorted[i]
}

// percentile evaluates the pct-th percentile of a sorted sample by linear
// interpolation between closest ranks.
func percentile(sorted []float64, pct float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	rank := pct / 100 * float64(n-1)
	if rank <= 0 {
		return sorted[0]
	}
	if rank >= float64(n-1) {
		return sorted[n-1]
	}
	lo := int(rank)
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func centralMoment(xs []float64, k float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		sum += math.Pow(x-m, k)
	}
	return sum / float64(len(xs))
}

// skewness is the biased sample skewness m3 / m2^1.5. Constant samples yield
// NaN.
func skewness(xs []float64) float64 {
	m2 := centralMoment(xs, 2)
	return centralMoment(xs, 3) / math.Pow(m2, 1.5)
}

// kurtosis is the biased excess kurtosis m4 / m2^2 - 3.
func kurtosis(xs []float64) float64 {
	m2 := centralMoment(xs, 2)
	return centralMoment(xs, 4)/(m2*m2) - 3
}

func maxAbs(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var m float64
	for _, x := range xs {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}
