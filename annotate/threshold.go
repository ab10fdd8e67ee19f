package annotate

import (
	"sort"
	"strconv"

	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/platform/errors"
	"github.com/louisbranch/tracengine/trial"
)

// ThresholdAnnotator marks the samples where a signal crosses a threshold.
// The event lands on the first sample past the crossing.
type ThresholdAnnotator struct{}

func (ThresholdAnnotator) Name() string { return "ThresholdAnnotator" }

func (ThresholdAnnotator) Produces() trial.EventType { return trial.EventTimepoint }

func (ThresholdAnnotator) ChannelSpecs() map[string]trial.ChannelSpec {
	return map[string]trial.ChannelSpec{"signal": {Role: "signal"}}
}

func (ThresholdAnnotator) Parameters() []param.Spec {
	return []param.Spec{
		{Name: "threshold", Label: "Threshold", Type: param.TypeFloat, Default: 0.0},
		{Name: "direction", Label: "Direction", Type: param.TypeEnum, Default: "rising", Options: []string{"rising", "falling", "both"}},
	}
}

func (a ThresholdAnnotator) Annotate(in Inputs) ([]trial.Event, error) {
	series, ok := in.Channels["signal"]
	if !ok {
		return nil, errors.New(errors.CodeChannelNotBound, "threshold annotator needs a signal channel")
	}
	t, y := series.Time, series.Values

	threshold := in.Params.Float("threshold", 0)
	direction := in.Params.String("direction", "rising")

	above := make([]bool, len(y))
	for i, v := range y {
		above[i] = v > threshold
	}

	meta := func(dir string) map[string]string {
		return map[string]string{
			"threshold": strconv.FormatFloat(threshold, 'g', -1, 64),
			"direction": dir,
		}
	}

	var events []trial.Event
	if direction == "rising" || direction == "both" {
		for i := 1; i < len(above); i++ {
			if !above[i-1] && above[i] {
				ev := trial.NewTimepoint(a.Name(), "threshold_rising", t[i]).WithConfidence(1)
				ev.Metadata = meta("rising")
				events = append(events, ev)
			}
		}
	}
	if direction == "falling" || direction == "both" {
		for i := 1; i < len(above); i++ {
			if above[i-1] && !above[i] {
				ev := trial.NewTimepoint(a.Name(), "threshold_falling", t[i]).WithConfidence(1)
				ev.Metadata = meta("falling")
				events = append(events, ev)
			}
		}
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Onset < events[j].Onset })
	return events, nil
}
