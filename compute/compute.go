// Package compute defines the metric plugin contract and the builtin
// computes. Computes reduce resolved channels and events to tabular metrics;
// they never mutate run data.
package compute

import (
	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/registry"
	"github.com/louisbranch/tracengine/trial"
	"github.com/louisbranch/tracengine/trial/resolve"
)

// Inputs carries what a compute works with: channel series and event lists
// keyed by semantic role, plus the merged parameter values.
type Inputs struct {
	Channels map[string]trial.Series
	Events   map[string][]trial.Event
	Params   param.Values
}

// Compute calculates metrics from signals and events.
type Compute interface {
	Name() string
	// Version tags exported results so downstream consumers can tell when a
	// metric's definition changed.
	Version() string
	// ChannelSpecs declares the channels the compute needs, keyed by role.
	ChannelSpecs() map[string]trial.ChannelSpec
	// EventSpecs declares the event lists the compute needs, keyed by role.
	EventSpecs() map[string]trial.EventSpec
	// Parameters describes the accepted parameters for configuration
	// surfaces.
	Parameters() []param.Spec
	Compute(run *trial.RunData, in Inputs) (*Table, error)
}

// Run resolves c's channels and events against run and cfg, merges the
// instance's configured parameters with params (params win), and executes
// the compute. instance defaults to c's name.
func Run(run *trial.RunData, c Compute, cfg *trial.RunConfig, instance string, params param.Values) (*Table, error) {
	if instance == "" {
		instance = c.Name()
	}

	in := Inputs{
		Channels: make(map[string]trial.Series),
		Events:   make(map[string][]trial.Event),
	}
	if specs := c.ChannelSpecs(); len(specs) > 0 {
		resolved, err := resolve.All(run, specs, cfg, instance)
		if err != nil {
			return nil, err
		}
		for role, ch := range resolved {
			series, err := run.ChannelData(ch)
			if err != nil {
				return nil, err
			}
			in.Channels[role] = series
		}
	}
	if specs := c.EventSpecs(); len(specs) > 0 {
		resolved, err := resolve.Events(run, specs, cfg, instance)
		if err != nil {
			return nil, err
		}
		in.Events = resolved
	}

	if cfg == nil {
		cfg = run.Config
	}
	in.Params = param.Merge(cfg.InstanceParameters(instance), params)

	return c.Compute(run, in)
}

// NewRegistry returns a compute registry preloaded with the builtins.
func NewRegistry() *registry.Registry[Compute] {
	r := registry.New[Compute]()
	for _, c := range []Compute{
		SummaryStats{},
		IntervalMetrics{},
	} {
		r.MustRegister(c.Name(), c)
	}
	return r
}
