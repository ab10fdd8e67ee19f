package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/tracengine/derive"
	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/trial"
)

// Derived values are never read back from disk. The sidecar stores lineage
// only; a reloaded run rebuilds every derived column from raw data.
func TestRehydrateRecomputesDerivedChain(t *testing.T) {
	dir := t.TempDir()
	engine := derive.NewEngine(nil)

	original := testRun(t, 50)
	source := trial.NewChannel("motion", "X")

	bf, err := engine.CreateDerivedChannel(original, source, "butter",
		param.Values{"cutoff": 10.0, "order": 2})
	require.NoError(t, err)
	require.Equal(t, "motion:X_bf10", bf.ID)

	d1, err := engine.CreateDerivedChannel(original, bf, "derivative",
		param.Values{"order": 1})
	require.NoError(t, err)
	require.Equal(t, "motion:X_bf10_d1", d1.ID)

	wantBF, err := original.ChannelData(bf)
	require.NoError(t, err)
	wantD1, err := original.ChannelData(d1)
	require.NoError(t, err)

	require.NoError(t, SaveProvenance(dir, original))

	reloaded := testRun(t, 50)
	prov, err := LoadProvenance(dir, reloaded)
	require.NoError(t, err)
	require.Len(t, prov, 2)
	reloaded.Provenance = prov

	result := engine.Recompute(reloaded)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, []string{"motion:X_bf10", "motion:X_bf10_d1"}, result.Order,
		"parents recompute before children")

	gotBF, err := reloaded.ChannelData(bf)
	require.NoError(t, err)
	gotD1, err := reloaded.ChannelData(d1)
	require.NoError(t, err)
	assert.Equal(t, wantBF.Values, gotBF.Values, "recompute reproduces the filter bit for bit")
	assert.Equal(t, wantD1.Values, gotD1.Values)
}
