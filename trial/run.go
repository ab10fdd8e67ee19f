package trial

import (
	"fmt"
	"time"

	"github.com/louisbranch/tracengine/platform/errors"
)

// RunData is the in-memory container for one recorded run: its identity,
// signal groups, annotations, derived-channel provenance, and configuration.
// A RunData is owned by a single logical session at a time; its collections
// must not be mutated concurrently.
type RunData struct {
	Subject   string
	Session   string
	Task      string
	Condition string
	Run       string

	StartTime time.Time
	Metadata  map[string]string

	Signals    map[string]*SignalGroup
	Provenance map[string]ChannelProvenance
	Config     *RunConfig

	annotations     map[string][]Event
	annotationOrder []string
}

// NewRunData creates an empty run with the given identity.
func NewRunData(subject, session, task, condition, run string) *RunData {
	return &RunData{
		Subject:    subject,
		Session:    session,
		Task:       task,
		Condition:  condition,
		Run:        run,
		Metadata:   make(map[string]string),
		Signals:    make(map[string]*SignalGroup),
		Provenance: make(map[string]ChannelProvenance),

		annotations: make(map[string][]Event),
	}
}

// ID returns the run identifier used in reports and filenames:
// subject_session_run.
func (d *RunData) ID() string {
	return fmt.Sprintf("%s_%s_%s", d.Subject, d.Session, d.Run)
}

// BaseName returns the BIDS-style file stem shared by this run's sidecar
// files.
func (d *RunData) BaseName() string {
	return fmt.Sprintf("sub-%s_ses-%s_task-%s_condition-%s_run-%s",
		d.Subject, d.Session, d.Task, d.Condition, d.Run)
}

// AddSignal stores a signal group under its own name.
func (d *RunData) AddSignal(g *SignalGroup) {
	if d.Signals == nil {
		d.Signals = make(map[string]*SignalGroup)
	}
	d.Signals[g.Name] = g
}

// Signal returns the named signal group.
func (d *RunData) Signal(name string) (*SignalGroup, bool) {
	g, ok := d.Signals[name]
	return g, ok
}

// ChannelData returns the time axis and samples for a channel reference.
func (d *RunData) ChannelData(ch Channel) (Series, error) {
	g, ok := d.Signals[ch.Group]
	if !ok {
		return Series{}, errors.WithMetadata(errors.CodeChannelNotFound,
			"signal group not found",
			map[string]string{"channel": ch.ID, "group": ch.Group})
	}
	values, ok := g.Column(ch.Name)
	if !ok {
		return Series{}, errors.WithMetadata(errors.CodeChannelNotFound,
			"channel not found in group",
			map[string]string{"channel": ch.ID, "group": ch.Group})
	}
	return Series{Time: g.Time, Values: values}, nil
}

// SetAnnotations stores events under a group name, replacing the group's
// contents but keeping its original position in the group order.
func (d *RunData) SetAnnotations(group string, events []Event) {
	if d.annotations == nil {
		d.annotations = make(map[string][]Event)
	}
	if _, exists := d.annotations[group]; !exists {
		d.annotationOrder = append(d.annotationOrder, group)
	}
	d.annotations[group] = events
}

// AppendAnnotations adds events to a group, creating it at the end of the
// group order when absent.
func (d *RunData) AppendAnnotations(group string, events ...Event) {
	existing := d.annotations[group]
	d.SetAnnotations(group, append(existing, events...))
}

// Annotations returns the events stored under a group name.
func (d *RunData) Annotations(group string) ([]Event, bool) {
	events, ok := d.annotations[group]
	return events, ok
}

// AnnotationGroups returns the annotation group names in insertion order.
// Insertion order matters: event resolution scans groups in this order.
func (d *RunData) AnnotationGroups() []string {
	out := make([]string, len(d.annotationOrder))
	copy(out, d.annotationOrder)
	return out
}

// EnsureConfig returns the run's configuration, creating it when absent.
func (d *RunData) EnsureConfig() *RunConfig {
	if d.Config == nil {
		d.Config = NewRunConfig()
	}
	return d.Config
}
