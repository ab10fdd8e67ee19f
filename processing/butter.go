package processing

import (
	"math"
	"math/cmplx"
	"strconv"

	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/platform/errors"
)

// Butterworth applies a zero-phase low-pass Butterworth filter (forward and
// backward passes, so the result has no phase lag).
type Butterworth struct{}

func (Butterworth) Name() string { return "butter" }

func (Butterworth) Parameters() []param.Spec {
	return []param.Spec{
		{Name: "cutoff", Label: "Cutoff frequency", Type: param.TypeFloat, Default: 10.0, Min: param.Bound(0.1), Suffix: "Hz"},
		{Name: "order", Label: "Filter order", Type: param.TypeInt, Default: 4, Min: param.Bound(1), Max: param.Bound(8)},
	}
}

func (Butterworth) Process(values []float64, samplingRate float64, params param.Values) ([]float64, error) {
	cutoff := params.Float("cutoff", 10.0)
	order := params.Int("order", 4)
	if order < 1 {
		return nil, errors.WithMetadata(errors.CodeProcessingFailed,
			"butter: order must be at least 1",
			map[string]string{"order": strconv.Itoa(order)})
	}

	nyquist := samplingRate / 2
	if nyquist <= 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out, nil
	}

	// Clamp the normalized cutoff into the open (0, 1) interval so a cutoff
	// above Nyquist degrades to a near-passthrough instead of failing.
	wn := cutoff / nyquist
	if wn >= 1 {
		wn = 0.99
	}
	if wn <= 0 {
		wn = 0.01
	}

	b, a := butterLowpass(order, wn)
	return filtfilt(b, a, values)
}

// butterLowpass designs digital low-pass Butterworth coefficients for the
// normalized cutoff wn in (0, 1), where 1 is the Nyquist frequency. The
// analog prototype is frequency-warped and mapped with the bilinear
// transform.
func butterLowpass(order int, wn float64) (b, a []float64) {
	// Analog prototype poles, evenly spaced on the left unit semicircle.
	poles := make([]complex128, order)
	for k := 0; k < order; k++ {
		theta := math.Pi * float64(2*k+1-order) / float64(2*order)
		poles[k] = -cmplx.Exp(complex(0, theta))
	}

	// Prewarp and scale to the target cutoff (sampling rate normalized to 2).
	const fs = 2.0
	warped := 2 * fs * math.Tan(math.Pi*wn/fs)
	gain := math.Pow(warped, float64(order))
	for k := range poles {
		poles[k] *= complex(warped, 0)
	}

	// Bilinear transform. The analog transfer has no finite zeros, so every
	// zero maps to z = -1.
	const fs2 = 2 * fs
	den := complex(1, 0)
	zPoles := make([]complex128, order)
	for k, p := range poles {
		zPoles[k] = (complex(fs2, 0) + p) / (complex(fs2, 0) - p)
		den *= complex(fs2, 0) - p
	}
	gainZ := gain * real(complex(1, 0)/den)

	zZeros := make([]complex128, order)
	for k := range zZeros {
		zZeros[k] = complex(-1, 0)
	}

	b = realPoly(zZeros)
	for i := range b {
		b[i] *= gainZ
	}
	a = realPoly(zPoles)
	return b, a
}

// realPoly expands a polynomial from its roots and returns the real
// coefficients, highest order first, with a leading 1.
func realPoly(roots []complex128) []float64 {
	coeffs := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(coeffs)+1)
		for i, c := range coeffs {
			next[i] += c
			next[i+1] -= c * r
		}
		coeffs = next
	}
	out := make([]float64, len(coeffs))
	for i, c := range coeffs {
		out[i] = real(c)
	}
	return out
}

// filtfilt applies the filter forward and backward with odd-reflection
// padding, cancelling phase distortion. The signal must be longer than three
// times the filter length.
func filtfilt(b, a []float64, values []float64) ([]float64, error) {
	n := max(len(a), len(b))
	b = padCoeffs(b, n)
	a = padCoeffs(a, n)
	if a[0] == 0 {
		return nil, errors.New(errors.CodeProcessingFailed, "butter: invalid filter coefficients")
	}
	for i := range b {
		b[i] /= a[0]
	}
	for i := n - 1; i >= 0; i-- {
		a[i] /= a[0]
	}

	padLen := 3 * n
	if len(values) <= padLen {
		return nil, errors.WithMetadata(errors.CodeProcessingFailed,
			"butter: signal too short for the requested filter",
			map[string]string{
				"samples":  strconv.Itoa(len(values)),
				"required": strconv.Itoa(padLen + 1),
			})
	}

	ext := oddExtend(values, padLen)
	zi := lfilterZI(b, a)

	fwd := lfilter(b, a, ext, scaleState(zi, ext[0]))
	reverseFloats(fwd)
	back := lfilter(b, a, fwd, scaleState(zi, fwd[0]))
	reverseFloats(back)

	out := make([]float64, len(values))
	copy(out, back[padLen:len(back)-padLen])
	return out, nil
}

func padCoeffs(c []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, c)
	return out
}

// oddExtend reflects padLen samples around both endpoints.
func oddExtend(x []float64, padLen int) []float64 {
	n := len(x)
	ext := make([]float64, 0, n+2*padLen)
	for i := padLen; i >= 1; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	for i := 1; i <= padLen; i++ {
		ext = append(ext, 2*x[n-1]-x[n-1-i])
	}
	return ext
}

// lfilter runs a direct-form II transposed IIR filter with initial state zi.
func lfilter(b, a, x, zi []float64) []float64 {
	n := len(b)
	z := make([]float64, n-1)
	copy(z, zi)
	y := make([]float64, len(x))
	for m := range x {
		ym := b[0]*x[m] + z[0]
		for i := 0; i < n-2; i++ {
			z[i] = b[i+1]*x[m] + z[i+1] - a[i+1]*ym
		}
		z[n-2] = b[n-1]*x[m] - a[n-1]*ym
		y[m] = ym
	}
	return y
}

// lfilterZI computes the filter state that makes a constant input produce a
// constant output immediately, eliminating the startup transient.
func lfilterZI(b, a []float64) []float64 {
	n := len(a)
	m := n - 1
	// Solve (I - A^T) zi = B with A the companion matrix of a and
	// B = b[1:] - a[1:]*b[0].
	sys := make([][]float64, m)
	rhs := make([]float64, m)
	for i := 0; i < m; i++ {
		sys[i] = make([]float64, m)
		for j := 0; j < m; j++ {
			var at float64
			if j == 0 {
				at = -a[i+1]
			} else if j == i+1 {
				at = 1
			}
			if i == j {
				sys[i][j] = 1 - at
			} else {
				sys[i][j] = -at
			}
		}
		rhs[i] = b[i+1] - a[i+1]*b[0]
	}
	zi, ok := solveLinear(sys, rhs)
	if !ok {
		return make([]float64, m)
	}
	return zi
}

func scaleState(zi []float64, x0 float64) []float64 {
	out := make([]float64, len(zi))
	for i, v := range zi {
		out[i] = v * x0
	}
	return out
}

func reverseFloats(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
