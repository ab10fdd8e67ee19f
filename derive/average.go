package derive

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/platform/errors"
	"github.com/louisbranch/tracengine/processing"
	"github.com/louisbranch/tracengine/trial"
)

// CreateAveragedChannel stores the sample-wise mean of sources as outputName
// in targetGroup. Samples missing in some sources average over the rest;
// samples missing everywhere stay missing. With interpolateMissing each
// source is gap-filled first.
func (e *Engine) CreateAveragedChannel(run *trial.RunData, sources []trial.Channel, targetGroup, outputName string, interpolateMissing bool) (trial.Channel, error) {
	if len(sources) < 2 {
		return trial.Channel{}, errors.WithMetadata(errors.CodeInsufficientSources,
			"need at least 2 channels to average",
			map[string]string{"sources": strconv.Itoa(len(sources))})
	}

	target, ok := run.Signal(targetGroup)
	if !ok {
		return trial.Channel{}, errors.WithMetadata(errors.CodeChannelNotFound,
			"target group not found",
			map[string]string{"group": targetGroup})
	}

	arrays := make([][]float64, 0, len(sources))
	parents := make([]string, 0, len(sources))
	for _, src := range sources {
		series, err := run.ChannelData(src)
		if err != nil {
			return trial.Channel{}, err
		}
		data := series.Values
		if interpolateMissing {
			data = processing.FillMissing(data)
		}
		arrays = append(arrays, data)
		parents = append(parents, trial.NewChannel(src.Group, src.Name).ID)
	}

	length := len(arrays[0])
	for i, arr := range arrays {
		if len(arr) != length {
			return trial.Channel{}, errors.WithMetadata(errors.CodeLengthMismatch,
				"source channel lengths differ",
				map[string]string{
					"channel": parents[i],
					"want":    strconv.Itoa(length),
					"got":     strconv.Itoa(len(arr)),
				})
		}
	}

	ch := trial.NewChannel(targetGroup, outputName)
	if isAncestor(run.Provenance, ch.ID, parents) {
		return trial.Channel{}, errors.WithMetadata(errors.CodeProvenanceCycle,
			"averaged channel would be its own ancestor",
			map[string]string{"channel": ch.ID})
	}

	averaged := make([]float64, length)
	for i := range averaged {
		averaged[i] = nanMean(arrays, i)
	}

	if err := target.SetColumn(outputName, averaged); err != nil {
		return trial.Channel{}, fmt.Errorf("storing averaged channel: %w", err)
	}

	if run.Provenance == nil {
		run.Provenance = make(map[string]trial.ChannelProvenance)
	}
	run.Provenance[ch.ID] = trial.ChannelProvenance{
		Parents:    parents,
		Operation:  "average",
		Parameters: param.Values{"interpolate_missing": interpolateMissing},
		Timestamp:  time.Now().UTC(),
	}
	return ch, nil
}

func nanMean(arrays [][]float64, i int) float64 {
	sum, n := 0.0, 0
	for _, arr := range arrays {
		if v := arr[i]; !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
