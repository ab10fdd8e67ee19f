package derive

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/platform/errors"
	"github.com/louisbranch/tracengine/trial"
)

func evenTime(n int, rate float64) []float64 {
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = float64(i) / rate
	}
	return ts
}

// motionRun builds a run with a single motion group sampled at 100 Hz whose X
// channel is a slow sine.
func motionRun(t *testing.T, n int) *trial.RunData {
	t.Helper()
	run := trial.NewRunData("01", "A", "trace", "baseline", "run-001")
	group := trial.NewSignalGroup("motion", "motion", evenTime(n, 100))
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * float64(i) / 100)
	}
	require.NoError(t, group.SetColumn("X", x))
	run.AddSignal(group)
	return run
}

func TestCreateDerivedChannel(t *testing.T) {
	run := motionRun(t, 100)

	ch, err := NewEngine(nil).CreateDerivedChannel(run, trial.NewChannel("motion", "X"),
		"butter", param.Values{"cutoff": 10.0, "order": 4})
	require.NoError(t, err)

	assert.Equal(t, "motion:X_bf10", ch.ID)
	assert.Equal(t, "X_bf10", ch.Name)

	group, _ := run.Signal("motion")
	assert.True(t, group.HasChannel("X_bf10"))

	prov, ok := run.Provenance["motion:X_bf10"]
	require.True(t, ok)
	assert.Equal(t, []string{"motion:X"}, prov.Parents)
	assert.Equal(t, "butter", prov.Operation)
	assert.Equal(t, 10.0, prov.Parameters.Float("cutoff", 0))
	assert.False(t, prov.Timestamp.IsZero())
}

func TestCreateDerivedChannelCustomSuffix(t *testing.T) {
	run := motionRun(t, 100)

	ch, err := NewEngine(nil).CreateDerivedChannelWith(run, trial.NewChannel("motion", "X"),
		"butter", param.Values{"cutoff": 10.0}, Options{CustomSuffix: "smooth"})
	require.NoError(t, err)
	assert.Equal(t, "motion:X_smooth", ch.ID)
}

func TestCreateDerivedChannelDerivative(t *testing.T) {
	run := trial.NewRunData("01", "A", "trace", "baseline", "run-001")
	group := trial.NewSignalGroup("motion", "motion", evenTime(50, 100))
	x := make([]float64, 50)
	for i := range x {
		x[i] = 3 * group.Time[i]
	}
	require.NoError(t, group.SetColumn("X", x))
	run.AddSignal(group)

	ch, err := NewEngine(nil).CreateDerivedChannel(run, trial.NewChannel("motion", "X"),
		"derivative", param.Values{"order": 1})
	require.NoError(t, err)
	assert.Equal(t, "X_d1", ch.Name)

	velocity, ok := group.Column("X_d1")
	require.True(t, ok)
	for i, v := range velocity {
		assert.InDelta(t, 3.0, v, 1e-9, "sample %d", i)
	}
}

func TestCreateDerivedChannelInterpolatesMissing(t *testing.T) {
	run := trial.NewRunData("01", "A", "trace", "baseline", "run-001")
	group := trial.NewSignalGroup("motion", "motion", evenTime(10, 100))
	x := []float64{1, math.NaN(), 3, 4, 5, 6, 7, 8, 9, 10}
	require.NoError(t, group.SetColumn("X", x))
	run.AddSignal(group)

	// window_size 1 keeps every sample, isolating the gap fill.
	_, err := NewEngine(nil).CreateDerivedChannel(run, trial.NewChannel("motion", "X"),
		"rolling_mean", param.Values{"window_size": 1, "interpolate_missing": true})
	require.NoError(t, err)

	out, _ := group.Column("X_rm1")
	assert.InDelta(t, 2.0, out[1], 1e-12)

	// The flag persists in provenance so replay repeats the fill.
	prov := run.Provenance["motion:X_rm1"]
	assert.True(t, prov.Parameters.Bool("interpolate_missing", false))
}

func TestCreateDerivedChannelErrors(t *testing.T) {
	run := motionRun(t, 100)
	engine := NewEngine(nil)

	t.Run("unknown operation", func(t *testing.T) {
		_, err := engine.CreateDerivedChannel(run, trial.NewChannel("motion", "X"), "fourier", nil)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeUnknownOperation))
	})
	t.Run("missing group", func(t *testing.T) {
		_, err := engine.CreateDerivedChannel(run, trial.NewChannel("emg", "X"), "butter", nil)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeChannelNotFound))
	})
	t.Run("missing channel", func(t *testing.T) {
		_, err := engine.CreateDerivedChannel(run, trial.NewChannel("motion", "Z"), "butter", nil)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeChannelNotFound))
	})
	t.Run("processing failure", func(t *testing.T) {
		short := motionRun(t, 10)
		_, err := engine.CreateDerivedChannel(short, trial.NewChannel("motion", "X"),
			"butter", param.Values{"order": 4})
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeProcessingFailed))
	})
}

func TestCreateDerivedChannelCycleGuard(t *testing.T) {
	engine := NewEngine(nil)

	t.Run("recreating the same channel is allowed", func(t *testing.T) {
		run := motionRun(t, 100)
		src := trial.NewChannel("motion", "X")
		_, err := engine.CreateDerivedChannel(run, src, "detrend", nil)
		require.NoError(t, err)
		_, err = engine.CreateDerivedChannel(run, src, "detrend", nil)
		require.NoError(t, err)
	})

	t.Run("suffix colliding with an ancestor is rejected", func(t *testing.T) {
		run := motionRun(t, 100)
		group, _ := run.Signal("motion")
		require.NoError(t, group.SetColumn("X_f", make([]float64, 100)))
		run.Provenance = map[string]trial.ChannelProvenance{
			"motion:X_f": {Parents: []string{"motion:X_f_g"}, Operation: "average"},
		}

		_, err := engine.CreateDerivedChannelWith(run, trial.NewChannel("motion", "X_f"),
			"rolling_mean", nil, Options{CustomSuffix: "g"})
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeProvenanceCycle))
		assert.False(t, group.HasChannel("X_f_g"), "rejected derivation must not write a column")
	})
}

func TestApplyChain(t *testing.T) {
	run := motionRun(t, 100)

	ch, err := NewEngine(nil).ApplyChain(run, trial.NewChannel("motion", "X"), []Operation{
		{Op: "butter", Params: param.Values{"cutoff": 10.0}},
		{Op: "derivative", Params: param.Values{"order": 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "motion:X_bf10_d1", ch.ID)

	group, _ := run.Signal("motion")
	assert.True(t, group.HasChannel("X_bf10"))
	assert.True(t, group.HasChannel("X_bf10_d1"))

	prov := run.Provenance["motion:X_bf10_d1"]
	assert.Equal(t, []string{"motion:X_bf10"}, prov.Parents)
}

func TestApplyChainEmpty(t *testing.T) {
	run := motionRun(t, 100)
	source := trial.NewChannel("motion", "X")

	ch, err := NewEngine(nil).ApplyChain(run, source, nil)
	require.NoError(t, err)
	assert.Equal(t, source, ch)
	assert.Empty(t, run.Provenance)
}

func TestCreateAveragedChannel(t *testing.T) {
	run := trial.NewRunData("01", "A", "trace", "baseline", "run-001")
	group := trial.NewSignalGroup("motion", "motion", evenTime(4, 100))
	require.NoError(t, group.SetColumn("L", []float64{1, 2, math.NaN(), 4}))
	require.NoError(t, group.SetColumn("R", []float64{3, 4, 5, math.NaN()}))
	run.AddSignal(group)

	ch, err := NewEngine(nil).CreateAveragedChannel(run,
		[]trial.Channel{trial.NewChannel("motion", "L"), trial.NewChannel("motion", "R")},
		"motion", "both", false)
	require.NoError(t, err)
	assert.Equal(t, "motion:both", ch.ID)

	out, _ := group.Column("both")
	assert.InDelta(t, 2.0, out[0], 1e-12)
	assert.InDelta(t, 3.0, out[1], 1e-12)
	assert.InDelta(t, 5.0, out[2], 1e-12, "missing samples drop out of the mean")
	assert.InDelta(t, 4.0, out[3], 1e-12)

	prov := run.Provenance["motion:both"]
	assert.Equal(t, []string{"motion:L", "motion:R"}, prov.Parents)
	assert.Equal(t, "average", prov.Operation)
	assert.False(t, prov.Parameters.Bool("interpolate_missing", true))
}

func TestCreateAveragedChannelErrors(t *testing.T) {
	run := trial.NewRunData("01", "A", "trace", "baseline", "run-001")
	motion := trial.NewSignalGroup("motion", "motion", evenTime(4, 100))
	require.NoError(t, motion.SetColumn("L", []float64{1, 2, 3, 4}))
	run.AddSignal(motion)
	emg := trial.NewSignalGroup("emg", "emg", evenTime(6, 100))
	require.NoError(t, emg.SetColumn("R", []float64{1, 2, 3, 4, 5, 6}))
	run.AddSignal(emg)

	engine := NewEngine(nil)

	t.Run("too few sources", func(t *testing.T) {
		_, err := engine.CreateAveragedChannel(run,
			[]trial.Channel{trial.NewChannel("motion", "L")}, "motion", "avg", false)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeInsufficientSources))
	})
	t.Run("length mismatch", func(t *testing.T) {
		_, err := engine.CreateAveragedChannel(run,
			[]trial.Channel{trial.NewChannel("motion", "L"), trial.NewChannel("emg", "R")},
			"motion", "avg", false)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeLengthMismatch))
	})
	t.Run("missing target group", func(t *testing.T) {
		_, err := engine.CreateAveragedChannel(run,
			[]trial.Channel{trial.NewChannel("motion", "L"), trial.NewChannel("motion", "L")},
			"gaze", "avg", false)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeChannelNotFound))
	})
	t.Run("missing source", func(t *testing.T) {
		_, err := engine.CreateAveragedChannel(run,
			[]trial.Channel{trial.NewChannel("motion", "L"), trial.NewChannel("motion", "Z")},
			"motion", "avg", false)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeChannelNotFound))
	})
	t.Run("output named after a source", func(t *testing.T) {
		_, err := engine.CreateAveragedChannel(run,
			[]trial.Channel{trial.NewChannel("motion", "L"), trial.NewChannel("motion", "L")},
			"motion", "L", false)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeProvenanceCycle))
		out, _ := motion.Column("L")
		assert.Equal(t, []float64{1, 2, 3, 4}, out, "rejected average must not touch the source")
	})
}
