package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportSuccessRate(t *testing.T) {
	empty := &Report{}
	assert.Equal(t, 0.0, empty.SuccessRate())

	partial := &Report{TotalRuns: 3, SuccessfulRuns: 2}
	assert.InDelta(t, 2.0/3.0, partial.SuccessRate(), 1e-9)
}

func TestReportSummary(t *testing.T) {
	report := &Report{
		PipelineName:   "smoke",
		TotalRuns:      3,
		SuccessfulRuns: 2,
		FailedRuns:     1,
		Duration:       1500 * time.Millisecond,
	}
	assert.Equal(t, "Pipeline 'smoke': 2/3 runs succeeded (66.7%) in 1.5s", report.Summary())
}

func TestRunResultStepNamed(t *testing.T) {
	result := RunResult{Steps: []StepResult{
		{Name: "preprocess:motion:X", Type: StepPreprocessing, Success: true},
		{Name: "above", Type: StepAnnotator, Success: true},
	}}

	step, ok := result.StepNamed("above")
	require.True(t, ok)
	assert.Equal(t, StepAnnotator, step.Type)

	_, ok = result.StepNamed("ghost")
	assert.False(t, ok)
}
