// Package derive creates derived channels: processed copies of raw channels
// whose lineage is recorded alongside the data so they can be rebuilt from
// the raw samples at load time. Raw channels stay untouched; every
// transformation that annotation or metric extraction depends on lands in a
// new column with a provenance entry.
package derive

import (
	"fmt"
	"strconv"
	"time"

	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/platform/errors"
	"github.com/louisbranch/tracengine/processing"
	"github.com/louisbranch/tracengine/registry"
	"github.com/louisbranch/tracengine/trial"
)

// fallbackSamplingRate is assumed when a group's timestamps cannot establish
// a rate.
const fallbackSamplingRate = 100.0

// Engine creates derived channels and replays them from provenance.
type Engine struct {
	processors *registry.Registry[processing.Processor]
}

// NewEngine returns an engine backed by reg. A nil reg means the builtin
// processors.
func NewEngine(reg *registry.Registry[processing.Processor]) *Engine {
	if reg == nil {
		reg = processing.NewRegistry()
	}
	return &Engine{processors: reg}
}

// Operation is one step of a processing chain.
type Operation struct {
	Op     string       `json:"op"`
	Params param.Values `json:"params,omitempty"`
}

// Options adjust derived channel creation.
type Options struct {
	// CustomSuffix replaces the generated operation suffix. The derived
	// channel is named source_<suffix>.
	CustomSuffix string
}

// CreateDerivedChannel applies op to source and stores the result as a new
// channel in the source's group, with provenance recording how it was made.
func (e *Engine) CreateDerivedChannel(run *trial.RunData, source trial.Channel, op string, params param.Values) (trial.Channel, error) {
	return e.CreateDerivedChannelWith(run, source, op, params, Options{})
}

// CreateDerivedChannelWith is CreateDerivedChannel with explicit options.
func (e *Engine) CreateDerivedChannelWith(run *trial.RunData, source trial.Channel, op string, params param.Values, opts Options) (trial.Channel, error) {
	group, ok := run.Signal(source.Group)
	if !ok {
		return trial.Channel{}, errors.WithMetadata(errors.CodeChannelNotFound,
			"signal group not found",
			map[string]string{"group": source.Group})
	}
	if !group.HasChannel(source.Name) {
		return trial.Channel{}, errors.WithMetadata(errors.CodeChannelNotFound,
			"source channel not found",
			map[string]string{"group": source.Group, "channel": source.Name})
	}

	name := DerivedName(source.Name, op, params)
	if opts.CustomSuffix != "" {
		name = source.Name + "_" + opts.CustomSuffix
	}

	ch := trial.NewChannel(group.Name, name)
	parent := trial.NewChannel(source.Group, source.Name)
	if isAncestor(run.Provenance, ch.ID, []string{parent.ID}) {
		return trial.Channel{}, errors.WithMetadata(errors.CodeProvenanceCycle,
			"derived channel would be its own ancestor",
			map[string]string{"channel": ch.ID, "source": parent.ID})
	}

	result, err := e.apply(group, source.Name, op, params)
	if err != nil {
		return trial.Channel{}, err
	}
	if err := group.SetColumn(name, result); err != nil {
		return trial.Channel{}, err
	}

	if run.Provenance == nil {
		run.Provenance = make(map[string]trial.ChannelProvenance)
	}
	run.Provenance[ch.ID] = trial.ChannelProvenance{
		Parents:    []string{parent.ID},
		Operation:  op,
		Parameters: params.Clone(),
		Timestamp:  time.Now().UTC(),
	}
	return ch, nil
}

// ApplyChain runs ops in sequence, each step deriving from the previous
// result: X -> X_bf10 -> X_bf10_d1. It returns the final channel. An empty
// chain returns source unchanged.
func (e *Engine) ApplyChain(run *trial.RunData, source trial.Channel, ops []Operation) (trial.Channel, error) {
	current := source
	for i, op := range ops {
		ch, err := e.CreateDerivedChannel(run, current, op.Op, op.Params)
		if err != nil {
			return trial.Channel{}, fmt.Errorf("chain step %d (%s): %w", i, op.Op, err)
		}
		current = ch
	}
	return current, nil
}

// isAncestor reports whether id appears among parents or their transitive
// ancestry. Writing such an id would put the channel on its own lineage,
// which the recompute walk could never order.
func isAncestor(provenance map[string]trial.ChannelProvenance, id string, parents []string) bool {
	seen := make(map[string]bool)
	queue := append([]string(nil), parents...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == id {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		queue = append(queue, provenance[cur].Parents...)
	}
	return false
}

// apply computes the result samples for op over the named column. The
// interpolate_missing parameter fills gaps before processing and is not
// forwarded to the processor.
func (e *Engine) apply(group *trial.SignalGroup, sourceName, op string, params param.Values) ([]float64, error) {
	values, ok := group.Column(sourceName)
	if !ok {
		return nil, errors.WithMetadata(errors.CodeChannelNotFound,
			"source channel not found",
			map[string]string{"group": group.Name, "channel": sourceName})
	}

	if params.Bool("interpolate_missing", false) {
		values = processing.FillMissing(values)
	}

	if op == "derivative" {
		return processing.Derivative(group.Time, values, params.Int("order", 1))
	}

	proc, ok := e.processors.Get(op)
	if !ok {
		return nil, errors.WithMetadata(errors.CodeUnknownOperation,
			"unknown processing operation",
			map[string]string{"operation": op})
	}

	rate := group.SamplingRate()
	if rate <= 0 {
		rate = fallbackSamplingRate
	}
	result, err := proc.Process(values, rate, params.Without("interpolate_missing"))
	if err != nil {
		return nil, errors.WrapWithMetadata(errors.CodeProcessingFailed,
			"processor failed",
			map[string]string{
				"operation": op,
				"group":     group.Name,
				"channel":   sourceName,
				"samples":   strconv.Itoa(group.Len()),
			}, err)
	}
	return result, nil
}
