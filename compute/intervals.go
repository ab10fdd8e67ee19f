package compute

import (
	"math"

	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/platform/errors"
	"github.com/louisbranch/tracengine/trial"
)

// IntervalMetrics summarizes one interval-event role against a signal
// channel: event count, total and mean duration, and occupancy (the fraction
// of the signal's time span covered by intervals).
type IntervalMetrics struct{}

func (IntervalMetrics) Name() string    { return "IntervalMetrics" }
func (IntervalMetrics) Version() string { return "1.0.0" }

func (IntervalMetrics) ChannelSpecs() map[string]trial.ChannelSpec {
	return map[string]trial.ChannelSpec{
		"signal": {Role: "signal"},
	}
}

func (IntervalMetrics) EventSpecs() map[string]trial.EventSpec {
	return map[string]trial.EventSpec{
		"intervals": {EventType: trial.EventInterval, Kind: "intervals to summarize"},
	}
}

func (IntervalMetrics) Parameters() []param.Spec {
	return []param.Spec{
		{
			Name:        "name_filter",
			Label:       "Event Name Filter",
			Type:        param.TypeString,
			Default:     "",
			Description: "Only count intervals with this exact name; empty counts all.",
		},
	}
}

func (IntervalMetrics) Compute(_ *trial.RunData, in Inputs) (*Table, error) {
	sig, ok := in.Channels["signal"]
	if !ok {
		return nil, errors.WithMetadata(errors.CodeChannelNotBound,
			"interval metrics needs a signal channel",
			map[string]string{"role": "signal"})
	}
	filter := in.Params.String("name_filter", "")

	count := 0
	var total float64
	for _, ev := range in.Events["intervals"] {
		if ev.Type != trial.EventInterval || ev.Offset == nil {
			continue
		}
		if filter != "" && ev.Name != filter {
			continue
		}
		count++
		total += ev.Duration()
	}

	meanDuration := math.NaN()
	if count > 0 {
		meanDuration = total / float64(count)
	}

	occupancy := math.NaN()
	if n := len(sig.Time); n > 1 {
		if span := sig.Time[n-1] - sig.Time[0]; span > 0 {
			occupancy = total / span
		}
	}

	t := NewTable("interval_count", "total_duration", "mean_duration", "occupancy")
	t.AddRow(count, total, meanDuration, occupancy)
	return t, nil
}
