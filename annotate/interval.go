package annotate

import (
	"math"
	"strconv"

	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/platform/errors"
	"github.com/louisbranch/tracengine/trial"
)

// IntervalAnnotator marks contiguous regions where a signal satisfies a
// threshold condition. A region's offset is the last sample still inside it;
// a region still open at the end of the signal closes on the final sample.
type IntervalAnnotator struct{}

func (IntervalAnnotator) Name() string { return "IntervalAnnotator" }

func (IntervalAnnotator) Produces() trial.EventType { return trial.EventInterval }

func (IntervalAnnotator) ChannelSpecs() map[string]trial.ChannelSpec {
	return map[string]trial.ChannelSpec{"signal": {Role: "signal"}}
}

func (IntervalAnnotator) Parameters() []param.Spec {
	return []param.Spec{
		{Name: "mode", Label: "Condition mode", Type: param.TypeEnum, Default: "above", Options: []string{"above", "below", "between", "outside", "abs_below"}},
		{Name: "threshold", Label: "Threshold", Type: param.TypeFloat, Default: 0.0},
		{Name: "lower_threshold", Label: "Lower threshold (between/outside)", Type: param.TypeFloat, Default: -1.0},
		{Name: "upper_threshold", Label: "Upper threshold (between/outside)", Type: param.TypeFloat, Default: 1.0},
		{Name: "min_duration", Label: "Minimum duration", Type: param.TypeFloat, Default: 0.0, Min: param.Bound(0), Suffix: "s"},
	}
}

func (a IntervalAnnotator) Annotate(in Inputs) ([]trial.Event, error) {
	series, ok := in.Channels["signal"]
	if !ok {
		return nil, errors.New(errors.CodeChannelNotBound, "interval annotator needs a signal channel")
	}
	t, y := series.Time, series.Values

	mode := in.Params.String("mode", "above")
	threshold := in.Params.Float("threshold", 0)
	lower := in.Params.Float("lower_threshold", -1)
	upper := in.Params.Float("upper_threshold", 1)
	minDuration := in.Params.Float("min_duration", 0)

	ff := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

	var condition func(v float64) bool
	var name string
	switch mode {
	case "above":
		condition = func(v float64) bool { return v > threshold }
		name = "above_" + ff(threshold)
	case "below":
		condition = func(v float64) bool { return v < threshold }
		name = "below_" + ff(threshold)
	case "between":
		condition = func(v float64) bool { return v > lower && v < upper }
		name = "between_" + ff(lower) + "_" + ff(upper)
	case "outside":
		condition = func(v float64) bool { return v < lower || v > upper }
		name = "outside_" + ff(lower) + "_" + ff(upper)
	case "abs_below":
		condition = func(v float64) bool { return math.Abs(v) < threshold }
		name = "abs_below_" + ff(threshold)
	default:
		condition = func(v float64) bool { return v > threshold }
		name = "interval"
	}

	emit := func(events []trial.Event, onset, offset float64) []trial.Event {
		duration := offset - onset
		if duration < minDuration {
			return events
		}
		ev := trial.NewInterval(a.Name(), name, onset, offset).WithConfidence(1)
		ev.Metadata = map[string]string{
			"mode":     mode,
			"duration": ff(duration),
		}
		return append(events, ev)
	}

	var events []trial.Event
	inRegion := false
	start := 0
	for i, v := range y {
		active := condition(v)
		switch {
		case active && !inRegion:
			inRegion = true
			start = i
		case !active && inRegion:
			inRegion = false
			events = emit(events, t[start], t[i-1])
		}
	}
	if inRegion {
		events = emit(events, t[start], t[len(t)-1])
	}
	return events, nil
}
