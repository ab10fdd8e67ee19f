package processing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/platform/errors"
)

func TestButterLowpassCoefficients(t *testing.T) {
	// Second-order design at half Nyquist has a well-known closed form.
	b, a := butterLowpass(2, 0.5)

	require.Len(t, b, 3)
	require.Len(t, a, 3)
	assert.InDelta(t, 0.2928932188, b[0], 1e-9)
	assert.InDelta(t, 0.5857864376, b[1], 1e-9)
	assert.InDelta(t, 0.2928932188, b[2], 1e-9)
	assert.InDelta(t, 1.0, a[0], 1e-9)
	assert.InDelta(t, 0.0, a[1], 1e-9)
	assert.InDelta(t, 0.1715728753, a[2], 1e-9)
}

func TestButterworthPreservesConstant(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = 3.5
	}

	out, err := Butterworth{}.Process(values, 100, param.Values{"cutoff": 10.0, "order": 4})
	require.NoError(t, err)
	require.Len(t, out, len(values))
	for i, v := range out {
		assert.InDelta(t, 3.5, v, 1e-8, "sample %d", i)
	}
}

func TestButterworthAttenuatesHighFrequency(t *testing.T) {
	const fs = 100.0
	n := 200
	clean := make([]float64, n)
	noisy := make([]float64, n)
	for i := range clean {
		ts := float64(i) / fs
		clean[i] = math.Sin(2 * math.Pi * 1 * ts)
		noisy[i] = clean[i] + 0.5*math.Sin(2*math.Pi*40*ts)
	}

	out, err := Butterworth{}.Process(noisy, fs, param.Values{"cutoff": 5.0, "order": 4})
	require.NoError(t, err)

	mse := func(s []float64) float64 {
		sum := 0.0
		for i := 30; i < n-30; i++ {
			d := s[i] - clean[i]
			sum += d * d
		}
		return sum
	}
	assert.Less(t, mse(out), mse(noisy)*0.05, "filtered signal should be far closer to the 1 Hz component")
}

func TestButterworthSignalTooShort(t *testing.T) {
	values := make([]float64, 10)
	_, err := Butterworth{}.Process(values, 100, param.Values{"order": 4})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeProcessingFailed))
}

func TestButterworthUnknownSamplingRate(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out, err := Butterworth{}.Process(values, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, values, out)

	out[0] = 99
	assert.Equal(t, 1.0, values[0], "result must be a copy")
}

func TestButterworthCutoffAboveNyquistIsNearPassthrough(t *testing.T) {
	const fs = 100.0
	n := 120
	values := make([]float64, n)
	for i := range values {
		values[i] = math.Sin(2 * math.Pi * float64(i) / fs)
	}

	out, err := Butterworth{}.Process(values, fs, param.Values{"cutoff": 80.0, "order": 2})
	require.NoError(t, err)
	for i := range out {
		assert.InDelta(t, values[i], out[i], 0.01, "sample %d", i)
	}
}

func TestButterworthInvalidOrder(t *testing.T) {
	_, err := Butterworth{}.Process(make([]float64, 50), 100, param.Values{"order": 0})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeProcessingFailed))
}
