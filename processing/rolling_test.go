package processing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/platform/errors"
)

func TestRollingMeanCenteredWindow(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	out, err := RollingMean{}.Process(values, 100, param.Values{"window_size": 3})
	require.NoError(t, err)

	// Edges average the truncated window over the full divisor.
	assert.InDelta(t, 1.0, out[0], 1e-12)
	assert.InDelta(t, (9.0+10.0)/3.0, out[9], 1e-12)
	for i := 1; i < 9; i++ {
		assert.InDelta(t, values[i], out[i], 1e-12, "interior sample %d", i)
	}
}

func TestRollingMeanEvenWindow(t *testing.T) {
	values := []float64{2, 2, 2, 2, 2, 2, 2, 2}

	out, err := RollingMean{}.Process(values, 100, param.Values{"window_size": 4})
	require.NoError(t, err)

	want := []float64{1, 1.5, 2, 2, 2, 2, 2, 1.5}
	for i := range want {
		assert.InDelta(t, want[i], out[i], 1e-12, "sample %d", i)
	}
}

func TestRollingMeanInvalidWindow(t *testing.T) {
	_, err := RollingMean{}.Process([]float64{1, 2, 3}, 100, param.Values{"window_size": 0})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeProcessingFailed))
}
