package processing

import "math"

// FillMissing interpolates NaN gaps linearly over the sample index and holds
// the nearest valid value across leading and trailing gaps. A signal with no
// valid samples is returned as-is.
func FillMissing(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)

	first, last := -1, -1
	for i, v := range out {
		if !math.IsNaN(v) {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	if first == -1 {
		return out
	}

	for i := 0; i < first; i++ {
		out[i] = out[first]
	}
	for i := last + 1; i < len(out); i++ {
		out[i] = out[last]
	}

	prev := first
	for i := first + 1; i <= last; i++ {
		if math.IsNaN(out[i]) {
			continue
		}
		if i > prev+1 {
			step := (out[i] - out[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				out[j] = out[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
	return out
}
