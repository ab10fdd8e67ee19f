// Package annotate defines the annotator plugin contract and the builtin
// annotators. Annotators detect events (timepoints or intervals) in resolved
// channel data; they never mutate signals.
package annotate

import (
	"fmt"

	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/registry"
	"github.com/louisbranch/tracengine/trial"
	"github.com/louisbranch/tracengine/trial/resolve"
)

// Inputs carries what an annotator works with: channel series keyed by
// semantic role, and the merged parameter values.
type Inputs struct {
	Channels map[string]trial.Series
	Params   param.Values
}

// Annotator detects events in signal data.
type Annotator interface {
	Name() string
	// Produces declares the event type this annotator emits.
	Produces() trial.EventType
	// ChannelSpecs declares the channels the annotator needs, keyed by role.
	ChannelSpecs() map[string]trial.ChannelSpec
	// Parameters describes the accepted parameters for configuration
	// surfaces.
	Parameters() []param.Spec
	Annotate(in Inputs) ([]trial.Event, error)
}

// Run resolves a's channels against run and cfg, merges the instance's
// configured parameters with params (params win), executes the annotator,
// and validates every event. Events that omit their annotator name get
// stamped with a's. instance defaults to a's name.
func Run(run *trial.RunData, a Annotator, cfg *trial.RunConfig, instance string, params param.Values) ([]trial.Event, error) {
	if instance == "" {
		instance = a.Name()
	}

	channels := make(map[string]trial.Series)
	if specs := a.ChannelSpecs(); len(specs) > 0 {
		resolved, err := resolve.All(run, specs, cfg, instance)
		if err != nil {
			return nil, err
		}
		for role, ch := range resolved {
			series, err := run.ChannelData(ch)
			if err != nil {
				return nil, err
			}
			channels[role] = series
		}
	}

	if cfg == nil {
		cfg = run.Config
	}
	merged := param.Merge(cfg.InstanceParameters(instance), params)

	events, err := a.Annotate(Inputs{Channels: channels, Params: merged})
	if err != nil {
		return nil, err
	}
	for i := range events {
		if events[i].Annotator == "" {
			events[i].Annotator = a.Name()
		}
		if err := events[i].Validate(); err != nil {
			return nil, fmt.Errorf("%s event %d: %w", a.Name(), i, err)
		}
	}
	return events, nil
}

// NewRegistry returns an annotator registry preloaded with the builtins.
func NewRegistry() *registry.Registry[Annotator] {
	r := registry.New[Annotator]()
	for _, a := range []Annotator{
		PeakAnnotator{},
		ThresholdAnnotator{},
		IntervalAnnotator{},
	} {
		r.MustRegister(a.Name(), a)
	}
	return r
}
