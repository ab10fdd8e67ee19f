package trial

import (
	"math"
	"sort"
	"strconv"

	"github.com/louisbranch/tracengine/platform/errors"
)

// SignalGroup holds equal-length sampled series sharing one time axis.
// Missing samples are NaN. Column insertion order is preserved.
type SignalGroup struct {
	Name     string
	Modality string
	Time     []float64 // seconds from run start

	columns map[string][]float64
	order   []string
}

// NewSignalGroup creates a group for the given time axis.
func NewSignalGroup(name, modality string, time []float64) *SignalGroup {
	return &SignalGroup{
		Name:     name,
		Modality: modality,
		Time:     time,
		columns:  make(map[string][]float64),
	}
}

// Len returns the number of samples on the group's time axis.
func (g *SignalGroup) Len() int {
	return len(g.Time)
}

// SetColumn stores values under name, replacing any existing column in place.
// The value length must match the time axis.
func (g *SignalGroup) SetColumn(name string, values []float64) error {
	if len(values) != len(g.Time) {
		return errors.WithMetadata(errors.CodeLengthMismatch,
			"column length does not match the group time axis",
			map[string]string{
				"group":   g.Name,
				"channel": name,
				"want":    strconv.Itoa(len(g.Time)),
				"got":     strconv.Itoa(len(values)),
			})
	}
	if g.columns == nil {
		g.columns = make(map[string][]float64)
	}
	if _, exists := g.columns[name]; !exists {
		g.order = append(g.order, name)
	}
	g.columns[name] = values
	return nil
}

// Column returns the samples stored under name.
func (g *SignalGroup) Column(name string) ([]float64, bool) {
	values, ok := g.columns[name]
	return values, ok
}

// HasChannel reports whether a column named name exists.
func (g *SignalGroup) HasChannel(name string) bool {
	_, ok := g.columns[name]
	return ok
}

// Channels returns the column names in insertion order.
func (g *SignalGroup) Channels() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Channel returns a reference to the named column.
func (g *SignalGroup) Channel(name string) (Channel, bool) {
	if !g.HasChannel(name) {
		return Channel{}, false
	}
	return NewChannel(g.Name, name), true
}

// SamplingRate estimates the sampling rate as the reciprocal of the median
// time step. It returns 0 when the axis has fewer than two samples or is not
// strictly increasing on average.
func (g *SignalGroup) SamplingRate() float64 {
	if len(g.Time) < 2 {
		return 0
	}
	diffs := make([]float64, 0, len(g.Time)-1)
	for i := 1; i < len(g.Time); i++ {
		d := g.Time[i] - g.Time[i-1]
		if math.IsNaN(d) {
			continue
		}
		diffs = append(diffs, d)
	}
	if len(diffs) == 0 {
		return 0
	}
	sort.Float64s(diffs)
	var median float64
	mid := len(diffs) / 2
	if len(diffs)%2 == 1 {
		median = diffs[mid]
	} else {
		median = (diffs[mid-1] + diffs[mid]) / 2
	}
	if median <= 0 {
		return 0
	}
	return 1 / median
}
