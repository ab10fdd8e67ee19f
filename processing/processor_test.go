package processing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{"butter", "detrend", "rolling_mean", "savitzky_golay"}, r.Names())

	p, ok := r.Get("butter")
	require.True(t, ok)
	assert.Equal(t, "butter", p.Name())
	assert.NotEmpty(t, p.Parameters())
}
