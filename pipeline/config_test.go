package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/tracengine/platform/errors"
)

const smokeYAML = `
name: smoke
description: batch smoke pipeline
preprocessing:
  - channel: motion:X
    operations:
      - op: butter
        cutoff: 10.0
        order: 2
      - op: derivative
annotators:
  - name: IntervalAnnotator
    instance: above
    channel_bindings:
      signal: motion:X_bf10
    parameters:
      mode: above
  - name: PeakAnnotator
    enabled: false
compute:
  - name: SummaryStats
    channel_bindings:
      signal: motion:X
  - name: IntervalMetrics
    depends_on: [above]
    channel_bindings:
      signal: motion:X
    event_bindings:
      intervals: above
export:
  summary_stats: false
  format: json
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(smokeYAML))
	require.NoError(t, err)

	assert.Equal(t, "smoke", cfg.Name)
	assert.Equal(t, "batch smoke pipeline", cfg.Description)

	require.Len(t, cfg.Preprocessing, 1)
	pre := cfg.Preprocessing[0]
	assert.Equal(t, "motion:X", pre.Channel)
	require.Len(t, pre.Operations, 2)
	assert.Equal(t, "butter", pre.Operations[0].Op)
	assert.Equal(t, 10.0, pre.Operations[0].Params.Float("cutoff", 0))
	assert.Equal(t, 2, pre.Operations[0].Params.Int("order", 0))
	assert.Equal(t, "derivative", pre.Operations[1].Op)
	assert.Empty(t, pre.Operations[1].Params)

	require.Len(t, cfg.Annotators, 2)
	above := cfg.Annotators[0]
	assert.Equal(t, "IntervalAnnotator", above.Name)
	assert.Equal(t, "above", above.InstanceName())
	assert.True(t, above.IsEnabled())
	assert.Equal(t, "motion:X_bf10", above.ChannelBindings["signal"])
	assert.Equal(t, "above", above.Parameters.String("mode", ""))
	disabled := cfg.Annotators[1]
	assert.False(t, disabled.IsEnabled())
	assert.Equal(t, "PeakAnnotator", disabled.InstanceName())

	require.Len(t, cfg.Compute, 2)
	assert.Equal(t, []string{"above"}, cfg.Compute[1].DependsOn)
	assert.Equal(t, "above", cfg.Compute[1].EventBindings["intervals"])

	assert.True(t, cfg.Export.AggregateEnabled())
	assert.False(t, cfg.Export.SummaryStatsEnabled())
	assert.True(t, cfg.Export.PerRunEnabled())
	assert.Equal(t, FormatJSON, cfg.Export.EffectiveFormat())
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("name: minimal\n"))
	require.NoError(t, err)

	assert.Empty(t, cfg.Preprocessing)
	assert.Empty(t, cfg.Annotators)
	assert.Empty(t, cfg.Compute)
	assert.True(t, cfg.Export.AggregateEnabled())
	assert.True(t, cfg.Export.SummaryStatsEnabled())
	assert.True(t, cfg.Export.PerRunEnabled())
	assert.Equal(t, FormatCSV, cfg.Export.EffectiveFormat())
}

func TestParseConfigRejectsBadYAML(t *testing.T) {
	_, err := ParseConfig([]byte("annotators: {nope"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodePipelineConfigInvalid))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "bad preprocessing channel",
			yaml: "preprocessing:\n  - channel: motionX\n    operations:\n      - op: butter\n",
		},
		{
			name: "operation missing op",
			yaml: "preprocessing:\n  - channel: motion:X\n    operations:\n      - cutoff: 10\n",
		},
		{
			name: "annotator missing name",
			yaml: "annotators:\n  - instance: above\n",
		},
		{
			name: "compute missing name",
			yaml: "compute:\n  - depends_on: [above]\n",
		},
		{
			name: "unknown export format",
			yaml: "export:\n  format: parquet\n",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tc.yaml))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodePipelineConfigInvalid))
		})
	}
}

func TestLoadConfigNameDefaultsToFileStem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "morning_session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("annotators:\n  - name: PeakAnnotator\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "morning_session", cfg.Name)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodePipelineConfigInvalid))
}
