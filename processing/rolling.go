package processing

import (
	"strconv"

	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/platform/errors"
)

// RollingMean replaces each sample with the mean of a centered window.
// Windows hanging past the edges treat the out-of-range samples as zero, so
// the first and last few samples taper toward zero.
type RollingMean struct{}

func (RollingMean) Name() string { return "rolling_mean" }

func (RollingMean) Parameters() []param.Spec {
	return []param.Spec{
		{Name: "window_size", Label: "Window size", Type: param.TypeInt, Default: 5, Min: param.Bound(2), Suffix: "samples"},
	}
}

func (RollingMean) Process(values []float64, samplingRate float64, params param.Values) ([]float64, error) {
	window := params.Int("window_size", 5)
	if window < 1 {
		return nil, errors.WithMetadata(errors.CodeProcessingFailed,
			"rolling_mean: window_size must be at least 1",
			map[string]string{"window_size": strconv.Itoa(window)})
	}

	n := len(values)
	out := make([]float64, n)
	// Centered convolution with a uniform kernel; the center lands at
	// (window-1)/2, matching a same-length discrete convolution.
	offset := (window - 1) / 2
	for i := 0; i < n; i++ {
		lo := i + offset - window + 1
		hi := i + offset
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}
		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(window)
	}
	return out, nil
}
