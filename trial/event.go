package trial

import (
	"math"

	"github.com/louisbranch/tracengine/platform/errors"
)

// EventType distinguishes instantaneous annotations from spanning ones.
type EventType string

const (
	// EventTimepoint marks a single instant; the event has an onset only.
	EventTimepoint EventType = "timepoint"
	// EventInterval spans from onset to offset.
	EventInterval EventType = "interval"
)

// Event is one annotation produced by an annotator (human or plugin).
type Event struct {
	Annotator  string            `json:"annotator"`
	Name       string            `json:"name"`
	Type       EventType         `json:"event_type"`
	Onset      float64           `json:"onset"`
	Offset     *float64          `json:"offset,omitempty"`
	Confidence *float64          `json:"confidence,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// NewTimepoint builds a timepoint event at onset seconds.
func NewTimepoint(annotator, name string, onset float64) Event {
	return Event{
		Annotator: annotator,
		Name:      name,
		Type:      EventTimepoint,
		Onset:     onset,
	}
}

// NewInterval builds an interval event spanning [onset, offset] seconds.
func NewInterval(annotator, name string, onset, offset float64) Event {
	return Event{
		Annotator: annotator,
		Name:      name,
		Type:      EventInterval,
		Onset:     onset,
		Offset:    &offset,
	}
}

// WithConfidence returns a copy of the event carrying a confidence score.
func (e Event) WithConfidence(c float64) Event {
	e.Confidence = &c
	return e
}

// Duration returns offset-onset for interval events and 0 otherwise.
func (e Event) Duration() float64 {
	if e.Type == EventInterval && e.Offset != nil {
		return *e.Offset - e.Onset
	}
	return 0
}

// Validate checks the structural invariants of an event: a known type, a
// non-empty name, a finite onset, no offset on timepoints, and an offset at
// or after the onset on intervals.
func (e Event) Validate() error {
	meta := func() map[string]string {
		return map[string]string{"name": e.Name, "annotator": e.Annotator}
	}
	if e.Name == "" {
		return errors.WithMetadata(errors.CodeEventInvalid, "event name is required", meta())
	}
	if e.Type != EventTimepoint && e.Type != EventInterval {
		m := meta()
		m["event_type"] = string(e.Type)
		return errors.WithMetadata(errors.CodeEventInvalid, "unknown event type", m)
	}
	if math.IsNaN(e.Onset) || math.IsInf(e.Onset, 0) {
		return errors.WithMetadata(errors.CodeEventInvalid, "event onset must be finite", meta())
	}
	if e.Type == EventTimepoint && e.Offset != nil {
		return errors.WithMetadata(errors.CodeEventInvalid, "timepoint event must not carry an offset", meta())
	}
	if e.Type == EventInterval {
		if e.Offset == nil {
			return errors.WithMetadata(errors.CodeEventInvalid, "interval event requires an offset", meta())
		}
		if math.IsNaN(*e.Offset) || math.IsInf(*e.Offset, 0) {
			return errors.WithMetadata(errors.CodeEventInvalid, "event offset must be finite", meta())
		}
		if *e.Offset < e.Onset {
			return errors.WithMetadata(errors.CodeEventInvalid, "interval offset precedes its onset", meta())
		}
	}
	return nil
}

// ChannelSpec declares one channel requirement of a plugin. Role names the
// semantic slot ("signal", "reference"); bindings map it to a concrete
// channel per plugin instance. AllowDerived is kept for configuration
// surfaces but resolution is always an exact match on the bound id.
type ChannelSpec struct {
	Role         string
	AllowDerived bool
}

// EventSpec declares one event requirement of a compute plugin. Kind is a
// free-form semantic label used in messages; matching is by EventType.
type EventSpec struct {
	EventType EventType
	Kind      string
}
