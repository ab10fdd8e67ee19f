package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/louisbranch/tracengine/compute"
	"github.com/louisbranch/tracengine/trial"
)

// RunState tracks a run through the pipeline.
type RunState string

// Run states, in lifecycle order.
const (
	StatePending   RunState = "pending"
	StateRunning   RunState = "running"
	StateSucceeded RunState = "succeeded"
	StateFailed    RunState = "failed"
)

// StepType labels which pipeline phase produced a step result.
type StepType string

// Step types.
const (
	StepPreprocessing StepType = "preprocessing"
	StepAnnotator     StepType = "annotator"
	StepCompute       StepType = "compute"
)

// StepResult captures one executed pipeline step. Err carries the coded
// error behind a failure (STEP_EXECUTION_ERROR wrapping the cause, or
// STEP_DEPENDENCY_UNMET); Message holds its display text.
type StepResult struct {
	Name     string
	Type     StepType
	Success  bool
	Message  string
	Version  string         // compute module version, empty for other types
	Events   []trial.Event  // annotator output
	Metrics  *compute.Table // compute output
	Err      error
	Duration time.Duration
}

// RunResult is the outcome of one run through the pipeline.
type RunResult struct {
	RunID    string
	Subject  string
	Session  string
	Run      string
	State    RunState
	Steps    []StepResult
	Error    string
	Duration time.Duration
}

// Succeeded reports whether the run completed every step.
func (r RunResult) Succeeded() bool { return r.State == StateSucceeded }

// StepNamed returns the first step result with the given name.
func (r RunResult) StepNamed(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepResult{}, false
}

// Report aggregates one batch execution. TotalRuns counts every run that
// matched the filter, including runs skipped after a stop-on-error failure;
// RunResults holds only the runs that actually executed.
type Report struct {
	ID             uuid.UUID
	PipelineName   string
	StartedAt      time.Time
	Duration       time.Duration
	TotalRuns      int
	SuccessfulRuns int
	FailedRuns     int
	RunResults     []RunResult
	Plan           []string // populated by dry runs instead of RunResults
}

// SuccessRate returns the fraction of matched runs that succeeded, 0 when
// nothing matched.
func (r *Report) SuccessRate() float64 {
	if r.TotalRuns == 0 {
		return 0
	}
	return float64(r.SuccessfulRuns) / float64(r.TotalRuns)
}

// Summary renders the one-line batch outcome.
func (r *Report) Summary() string {
	return fmt.Sprintf("Pipeline '%s': %d/%d runs succeeded (%.1f%%) in %.1fs",
		r.PipelineName, r.SuccessfulRuns, r.TotalRuns, r.SuccessRate()*100, r.Duration.Seconds())
}
