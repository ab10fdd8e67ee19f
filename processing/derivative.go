package processing

import (
	"strconv"

	"github.com/louisbranch/tracengine/platform/errors"
)

// Derivative differentiates values with respect to time, order times.
// Interior samples use the second-order central estimate for possibly uneven
// spacing; the endpoints fall back to one-sided differences.
func Derivative(time, values []float64, order int) ([]float64, error) {
	if order < 1 {
		return nil, errors.WithMetadata(errors.CodeProcessingFailed,
			"derivative: order must be at least 1",
			map[string]string{"order": strconv.Itoa(order)})
	}
	if len(time) != len(values) {
		return nil, errors.WithMetadata(errors.CodeProcessingFailed,
			"derivative: time and values lengths differ",
			map[string]string{
				"time":   strconv.Itoa(len(time)),
				"values": strconv.Itoa(len(values)),
			})
	}
	if len(values) < 2 {
		return nil, errors.WithMetadata(errors.CodeProcessingFailed,
			"derivative: need at least 2 samples",
			map[string]string{"samples": strconv.Itoa(len(values))})
	}

	cur := make([]float64, len(values))
	copy(cur, values)
	for o := 0; o < order; o++ {
		cur = gradient(time, cur)
	}
	return cur, nil
}

func gradient(t, v []float64) []float64 {
	n := len(v)
	out := make([]float64, n)
	out[0] = (v[1] - v[0]) / (t[1] - t[0])
	out[n-1] = (v[n-1] - v[n-2]) / (t[n-1] - t[n-2])
	for i := 1; i < n-1; i++ {
		hs := t[i] - t[i-1]
		hd := t[i+1] - t[i]
		out[i] = (hs*hs*v[i+1] + (hd*hd-hs*hs)*v[i] - hd*hd*v[i-1]) / (hs * hd * (hd + hs))
	}
	return out
}
