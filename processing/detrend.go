package processing

import (
	"math"

	"github.com/louisbranch/tracengine/param"
)

// Detrend removes the least-squares straight line fitted over the sample
// index. Missing samples are ignored by the fit and stay missing in the
// output.
type Detrend struct{}

func (Detrend) Name() string { return "detrend" }

func (Detrend) Parameters() []param.Spec { return nil }

func (Detrend) Process(values []float64, samplingRate float64, params param.Values) ([]float64, error) {
	out := make([]float64, len(values))
	copy(out, values)

	var n, sumX, sumY, sumXX, sumXY float64
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		x := float64(i)
		n++
		sumX += x
		sumY += v
		sumXX += x * x
		sumXY += x * v
	}
	if n < 2 {
		return out, nil
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return out, nil
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	for i := range out {
		out[i] -= intercept + slope*float64(i)
	}
	return out, nil
}
