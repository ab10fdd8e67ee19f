package processing

import (
	"strconv"

	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/platform/errors"
)

// SavitzkyGolay smooths a signal by least-squares polynomial fits over a
// sliding window. Polynomials up to the fit order pass through unchanged.
type SavitzkyGolay struct{}

func (SavitzkyGolay) Name() string { return "savitzky_golay" }

func (SavitzkyGolay) Parameters() []param.Spec {
	return []param.Spec{
		{Name: "window_length", Label: "Window length", Type: param.TypeInt, Default: 11, Min: param.Bound(3), Suffix: "samples"},
		{Name: "polyorder", Label: "Polynomial order", Type: param.TypeInt, Default: 3, Min: param.Bound(1), Max: param.Bound(5)},
	}
}

func (SavitzkyGolay) Process(values []float64, samplingRate float64, params param.Values) ([]float64, error) {
	window := params.Int("window_length", 11)
	polyorder := params.Int("polyorder", 3)

	// Coerce rather than reject: even windows round up, and the fit order
	// is capped below the window length.
	if window%2 == 0 {
		window++
	}
	if window < 3 {
		window = 3
	}
	if polyorder < 0 {
		polyorder = 0
	}
	if polyorder >= window {
		polyorder = window - 1
	}
	if window > len(values) {
		return nil, errors.WithMetadata(errors.CodeProcessingFailed,
			"savitzky_golay: window exceeds signal length",
			map[string]string{
				"window_length": strconv.Itoa(window),
				"samples":       strconv.Itoa(len(values)),
			})
	}

	kernel, ok := savgolKernel(window, polyorder)
	if !ok {
		return nil, errors.WithMetadata(errors.CodeProcessingFailed,
			"savitzky_golay: kernel fit is singular",
			map[string]string{
				"window_length": strconv.Itoa(window),
				"polyorder":     strconv.Itoa(polyorder),
			})
	}

	n := len(values)
	half := window / 2
	out := make([]float64, n)
	for i := half; i < n-half; i++ {
		sum := 0.0
		for j, w := range kernel {
			sum += w * values[i-half+j]
		}
		out[i] = sum
	}

	// Edges: fit one polynomial to the first and last full window and
	// evaluate it at the uncovered positions.
	xs := make([]float64, window)
	for i := range xs {
		xs[i] = float64(i)
	}
	head, okHead := polyFit(xs, values[:window], polyorder)
	tail, okTail := polyFit(xs, values[n-window:], polyorder)
	if !okHead || !okTail {
		return nil, errors.New(errors.CodeProcessingFailed, "savitzky_golay: edge fit is singular")
	}
	for i := 0; i < half; i++ {
		out[i] = polyEval(head, float64(i))
		out[n-1-i] = polyEval(tail, float64(window-1-i))
	}
	return out, nil
}

// savgolKernel returns the central smoothing weights for a window of odd
// length: the value at the window center of the least-squares polynomial fit,
// expressed as a convolution kernel.
func savgolKernel(window, polyorder int) ([]float64, bool) {
	m := polyorder + 1
	half := window / 2

	// Normal-equation matrix G[p][q] = sum_j j^(p+q) over offsets
	// j = -half..half, then solve G*x = e0; the kernel weight at offset j is
	// sum_p x[p]*j^p.
	g := make([][]float64, m)
	for i := range g {
		g[i] = make([]float64, m)
	}
	for j := -half; j <= half; j++ {
		pow := make([]float64, m)
		pow[0] = 1
		for p := 1; p < m; p++ {
			pow[p] = pow[p-1] * float64(j)
		}
		for p := 0; p < m; p++ {
			for q := 0; q < m; q++ {
				g[p][q] += pow[p] * pow[q]
			}
		}
	}
	rhs := make([]float64, m)
	rhs[0] = 1
	x, ok := solveLinear(g, rhs)
	if !ok {
		return nil, false
	}

	kernel := make([]float64, window)
	for idx := 0; idx < window; idx++ {
		j := float64(idx - half)
		pow := 1.0
		sum := 0.0
		for p := 0; p < m; p++ {
			sum += x[p] * pow
			pow *= j
		}
		kernel[idx] = sum
	}
	return kernel, true
}
