package annotate

import (
	"sort"
	"strconv"

	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/platform/errors"
	"github.com/louisbranch/tracengine/trial"
)

// PeakAnnotator detects local maxima in a signal, or minima when
// detect_valleys is set. Each detection is a timepoint event carrying the
// sample value and index.
type PeakAnnotator struct{}

func (PeakAnnotator) Name() string { return "PeakAnnotator" }

func (PeakAnnotator) Produces() trial.EventType { return trial.EventTimepoint }

func (PeakAnnotator) ChannelSpecs() map[string]trial.ChannelSpec {
	return map[string]trial.ChannelSpec{"signal": {Role: "signal"}}
}

func (PeakAnnotator) Parameters() []param.Spec {
	return []param.Spec{
		{Name: "height", Label: "Minimum height", Type: param.TypeFloat, Default: 0.0},
		{Name: "distance", Label: "Minimum distance", Type: param.TypeInt, Default: 1, Min: param.Bound(1), Max: param.Bound(1000), Suffix: "samples"},
		{Name: "prominence", Label: "Prominence", Type: param.TypeFloat, Default: 0.0, Min: param.Bound(0)},
		{Name: "detect_valleys", Label: "Detect valleys (minima)", Type: param.TypeBool, Default: false},
	}
}

func (a PeakAnnotator) Annotate(in Inputs) ([]trial.Event, error) {
	series, ok := in.Channels["signal"]
	if !ok {
		return nil, errors.New(errors.CodeChannelNotBound, "peak annotator needs a signal channel")
	}
	t, y := series.Time, series.Values

	height := in.Params.Float("height", 0)
	distance := in.Params.Int("distance", 1)
	prominence := in.Params.Float("prominence", 0)
	valleys := in.Params.Bool("detect_valleys", false)
	if distance < 1 {
		distance = 1
	}

	// Zero disables the optional filters.
	var minHeight, minProminence *float64
	if height > 0 {
		minHeight = &height
	}
	if prominence > 0 {
		minProminence = &prominence
	}

	signal := y
	name := "peak"
	if valleys {
		name = "valley"
		signal = make([]float64, len(y))
		for i, v := range y {
			signal[i] = -v
		}
	}

	var events []trial.Event
	for _, idx := range findPeaks(signal, minHeight, distance, minProminence) {
		ev := trial.NewTimepoint(a.Name(), name, t[idx]).WithConfidence(1)
		ev.Metadata = map[string]string{
			"value": strconv.FormatFloat(y[idx], 'g', -1, 64),
			"index": strconv.Itoa(idx),
		}
		events = append(events, ev)
	}
	return events, nil
}

// findPeaks locates local maxima, then filters them by minimum height,
// minimum sample distance (higher peaks shadow lower neighbors), and
// minimum prominence, in that order.
func findPeaks(y []float64, minHeight *float64, distance int, minProminence *float64) []int {
	peaks := localMaxima(y)

	if minHeight != nil {
		kept := peaks[:0]
		for _, p := range peaks {
			if y[p] >= *minHeight {
				kept = append(kept, p)
			}
		}
		peaks = kept
	}

	if distance > 1 {
		peaks = selectByDistance(y, peaks, distance)
	}

	if minProminence != nil {
		kept := peaks[:0]
		for _, p := range peaks {
			if peakProminence(y, p) >= *minProminence {
				kept = append(kept, p)
			}
		}
		peaks = kept
	}
	return peaks
}

// localMaxima returns the indices of strict local maxima. A flat plateau
// counts once, at its midpoint. Endpoints are never maxima.
func localMaxima(y []float64) []int {
	var peaks []int
	i := 1
	for i < len(y)-1 {
		if y[i-1] < y[i] {
			ahead := i + 1
			for ahead < len(y)-1 && y[ahead] == y[i] {
				ahead++
			}
			if y[ahead] < y[i] {
				peaks = append(peaks, (i+ahead-1)/2)
				i = ahead
				continue
			}
		}
		i++
	}
	return peaks
}

// selectByDistance keeps the highest peaks, discarding any peak closer than
// distance samples to an already-kept higher one.
func selectByDistance(y []float64, peaks []int, distance int) []int {
	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return y[peaks[order[a]]] > y[peaks[order[b]]]
	})

	keep := make([]bool, len(peaks))
	for i := range keep {
		keep[i] = true
	}
	for _, j := range order {
		if !keep[j] {
			continue
		}
		for k := j - 1; k >= 0 && peaks[j]-peaks[k] < distance; k-- {
			keep[k] = false
		}
		for k := j + 1; k < len(peaks) && peaks[k]-peaks[j] < distance; k++ {
			keep[k] = false
		}
	}

	kept := peaks[:0]
	for i, p := range peaks {
		if keep[i] {
			kept = append(kept, p)
		}
	}
	return kept
}

// peakProminence measures how much a peak stands out: its height above the
// higher of the two valley floors separating it from taller terrain.
func peakProminence(y []float64, peak int) float64 {
	leftMin := y[peak]
	for i := peak - 1; i >= 0 && y[i] <= y[peak]; i-- {
		if y[i] < leftMin {
			leftMin = y[i]
		}
	}
	rightMin := y[peak]
	for i := peak + 1; i < len(y) && y[i] <= y[peak]; i++ {
		if y[i] < rightMin {
			rightMin = y[i]
		}
	}
	base := leftMin
	if rightMin > base {
		base = rightMin
	}
	return y[peak] - base
}
