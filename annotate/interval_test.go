package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/trial"
)

func TestIntervalAnnotatorAbove(t *testing.T) {
	events, err := IntervalAnnotator{}.Annotate(peakInputs(
		[]float64{0, 1, 1, 0, 1, 1, 1, 1},
		param.Values{"threshold": 0.5}))
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "above_0.5", events[0].Name)
	assert.Equal(t, trial.EventInterval, events[0].Type)

	assert.InDelta(t, 0.01, events[0].Onset, 1e-9)
	require.NotNil(t, events[0].Offset)
	assert.InDelta(t, 0.02, *events[0].Offset, 1e-9, "offset is the last sample inside the region")

	// The second region runs to the end of the signal and closes there.
	assert.InDelta(t, 0.04, events[1].Onset, 1e-9)
	require.NotNil(t, events[1].Offset)
	assert.InDelta(t, 0.07, *events[1].Offset, 1e-9)
	assert.Equal(t, "above", events[1].Metadata["mode"])
}

func TestIntervalAnnotatorMinDuration(t *testing.T) {
	events, err := IntervalAnnotator{}.Annotate(peakInputs(
		[]float64{0, 1, 1, 0, 1, 1, 1, 1},
		param.Values{"threshold": 0.5, "min_duration": 0.02}))
	require.NoError(t, err)

	require.Len(t, events, 1, "the short region is dropped")
	assert.InDelta(t, 0.04, events[0].Onset, 1e-9)
}

func TestIntervalAnnotatorBetween(t *testing.T) {
	events, err := IntervalAnnotator{}.Annotate(peakInputs(
		[]float64{-1, 0, 0.4, 1},
		param.Values{"mode": "between", "lower_threshold": -0.5, "upper_threshold": 0.5}))
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "between_-0.5_0.5", events[0].Name)
	assert.InDelta(t, 0.01, events[0].Onset, 1e-9)
	assert.InDelta(t, 0.02, *events[0].Offset, 1e-9)
}

func TestIntervalAnnotatorOutside(t *testing.T) {
	events, err := IntervalAnnotator{}.Annotate(peakInputs(
		[]float64{0, -2, 2, 0},
		param.Values{"mode": "outside", "lower_threshold": -1, "upper_threshold": 1}))
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "outside_-1_1", events[0].Name)
	assert.InDelta(t, 0.01, events[0].Onset, 1e-9)
	assert.InDelta(t, 0.02, *events[0].Offset, 1e-9)
}

func TestIntervalAnnotatorAbsBelow(t *testing.T) {
	events, err := IntervalAnnotator{}.Annotate(peakInputs(
		[]float64{1, 0.2, -0.3, 1},
		param.Values{"mode": "abs_below", "threshold": 0.5}))
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "abs_below_0.5", events[0].Name)
}

func TestIntervalAnnotatorUnknownMode(t *testing.T) {
	events, err := IntervalAnnotator{}.Annotate(peakInputs(
		[]float64{0, 1, 0},
		param.Values{"mode": "sideways", "threshold": 0.5}))
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "interval", events[0].Name, "unknown modes fall back to above with a generic name")
}

func TestIntervalAnnotatorNoRegions(t *testing.T) {
	events, err := IntervalAnnotator{}.Annotate(peakInputs(
		[]float64{0, 0, 0},
		param.Values{"threshold": 0.5}))
	require.NoError(t, err)
	assert.Empty(t, events)
}
