package pipeline

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/tracengine/annotate"
	"github.com/louisbranch/tracengine/compute"
	"github.com/louisbranch/tracengine/derive"
	"github.com/louisbranch/tracengine/platform/errors"
	"github.com/louisbranch/tracengine/registry"
	"github.com/louisbranch/tracengine/trial"
)

// ProgressFunc receives a human-readable message, the 1-based index of the
// run about to execute, and the filtered batch size.
type ProgressFunc func(message string, current, total int)

// Runner executes one pipeline configuration over batches of runs.
type Runner struct {
	cfg        *Config
	engine     *derive.Engine
	annotators *registry.Registry[annotate.Annotator]
	computes   *registry.Registry[compute.Compute]
	onProgress ProgressFunc
	tracer     trace.Tracer
}

// Option adjusts runner construction.
type Option func(*Runner)

// WithProgress registers a callback invoked before each run executes.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) { r.onProgress = fn }
}

// NewRunner builds a runner for cfg. A nil engine or registry falls back to
// the builtin set.
func NewRunner(cfg *Config, engine *derive.Engine, annotators *registry.Registry[annotate.Annotator], computes *registry.Registry[compute.Compute], opts ...Option) *Runner {
	if engine == nil {
		engine = derive.NewEngine(nil)
	}
	if annotators == nil {
		annotators = annotate.NewRegistry()
	}
	if computes == nil {
		computes = compute.NewRegistry()
	}
	r := &Runner{
		cfg:        cfg,
		engine:     engine,
		annotators: annotators,
		computes:   computes,
		tracer:     otel.Tracer("github.com/louisbranch/tracengine/pipeline"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunOptions controls one batch execution.
type RunOptions struct {
	// Filter is a glob matched against RunData.Run; empty selects every run.
	Filter string
	// DryRun reports the execution plan without touching any run.
	DryRun bool
	// StopOnError stops the batch after the first failed run. Runs skipped
	// that way stay in TotalRuns but get no result.
	StopOnError bool
}

// Run executes the pipeline over runs. Every run matching the filter counts
// toward the report totals; each run fails or succeeds on its own.
func (r *Runner) Run(ctx context.Context, runs []*trial.RunData, opts RunOptions) (*Report, error) {
	ctx, span := r.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("pipeline.name", r.cfg.Name)))
	defer span.End()

	pattern := opts.Filter
	if pattern == "" {
		pattern = "*"
	}
	filtered := make([]*trial.RunData, 0, len(runs))
	for _, run := range runs {
		ok, err := path.Match(pattern, run.Run)
		if err != nil {
			return nil, errors.WrapWithMetadata(errors.CodePipelineConfigInvalid,
				"invalid run filter",
				map[string]string{"filter": opts.Filter}, err)
		}
		if ok {
			filtered = append(filtered, run)
		}
	}

	report := &Report{
		ID:           uuid.New(),
		PipelineName: r.cfg.Name,
		StartedAt:    time.Now().UTC(),
		TotalRuns:    len(filtered),
	}
	span.SetAttributes(attribute.Int("pipeline.total_runs", report.TotalRuns))

	if opts.DryRun {
		report.SuccessfulRuns = len(filtered)
		report.Plan = r.Plan()
		return report, nil
	}

	start := time.Now()
	for i, run := range filtered {
		if r.onProgress != nil {
			r.onProgress(fmt.Sprintf("Processing run %s...", run.Run), i+1, len(filtered))
		}

		result := r.RunSingle(ctx, run)
		report.RunResults = append(report.RunResults, result)
		if result.Succeeded() {
			report.SuccessfulRuns++
		} else {
			report.FailedRuns++
			if opts.StopOnError {
				break
			}
		}
	}
	report.Duration = time.Since(start)
	return report, nil
}

// RunSingle executes the pipeline phases on one run: preprocessing chains,
// then annotators, then compute steps. The first failing step fails the run;
// an unmet compute dependency records a failed step but lets the run
// continue.
func (r *Runner) RunSingle(ctx context.Context, run *trial.RunData) RunResult {
	_, span := r.tracer.Start(ctx, "pipeline.run_single",
		trace.WithAttributes(attribute.String("run.id", run.ID())))
	defer span.End()

	start := time.Now()
	result := RunResult{
		RunID:   run.ID(),
		Subject: run.Subject,
		Session: run.Session,
		Run:     run.Run,
		State:   StateRunning,
	}

	fail := func(prefix string, step StepResult) RunResult {
		result.State = StateFailed
		result.Error = prefix + step.Message
		result.Duration = time.Since(start)
		span.SetAttributes(attribute.String("run.error", result.Error))
		return result
	}

	for _, pre := range r.cfg.Preprocessing {
		step := r.runPreprocessing(run, pre)
		result.Steps = append(result.Steps, step)
		if !step.Success {
			return fail("Preprocessing failed: ", step)
		}
	}

	for _, stepCfg := range r.cfg.Annotators {
		if !stepCfg.IsEnabled() {
			continue
		}
		step := r.runAnnotator(run, stepCfg)
		result.Steps = append(result.Steps, step)
		if !step.Success {
			return fail("Annotator failed: ", step)
		}
	}

	for _, stepCfg := range r.cfg.Compute {
		if !stepCfg.IsEnabled() {
			continue
		}
		if missing := unmetDependencies(result.Steps, stepCfg.DependsOn); len(missing) > 0 {
			result.Steps = append(result.Steps, StepResult{
				Name:    stepCfg.InstanceName(),
				Type:    StepCompute,
				Message: "Dependencies not met",
				Err: errors.WithMetadata(errors.CodeStepDependencyUnmet,
					"Dependencies not met",
					map[string]string{
						"step":    stepCfg.InstanceName(),
						"missing": strings.Join(missing, ","),
					}),
			})
			continue
		}
		step := r.runCompute(run, stepCfg)
		result.Steps = append(result.Steps, step)
		if !step.Success {
			return fail("Compute failed: ", step)
		}
	}

	result.State = StateSucceeded
	result.Duration = time.Since(start)
	return result
}

// Plan lists the steps a run would execute, in order, without touching any
// data.
func (r *Runner) Plan() []string {
	var plan []string
	n := 1
	for _, pre := range r.cfg.Preprocessing {
		ops := make([]string, len(pre.Operations))
		for i, op := range pre.Operations {
			ops[i] = op.Op
		}
		plan = append(plan, fmt.Sprintf("%d. [PREPROCESSING] %s: %s", n, pre.Channel, strings.Join(ops, " -> ")))
		n++
	}
	for _, step := range r.cfg.Annotators {
		plan = append(plan, fmt.Sprintf("%d. [ANNOTATOR] %s%s", n, step.InstanceName(), disabledSuffix(step)))
		n++
	}
	for _, step := range r.cfg.Compute {
		deps := ""
		if len(step.DependsOn) > 0 {
			deps = fmt.Sprintf(" (depends: %s)", strings.Join(step.DependsOn, ", "))
		}
		plan = append(plan, fmt.Sprintf("%d. [COMPUTE] %s%s%s", n, step.InstanceName(), disabledSuffix(step), deps))
		n++
	}
	return plan
}

func disabledSuffix(step StepConfig) string {
	if step.IsEnabled() {
		return ""
	}
	return " (DISABLED)"
}

func (r *Runner) runPreprocessing(run *trial.RunData, pre PreprocessingConfig) StepResult {
	start := time.Now()
	name := "preprocess:" + pre.Channel

	source, err := trial.ParseChannelID(pre.Channel)
	if err != nil {
		return failedStep(name, StepPreprocessing, start,
			errors.Wrap(errors.CodeChannelIDInvalid, "Invalid channel format: "+pre.Channel, err))
	}

	ops := make([]derive.Operation, len(pre.Operations))
	for i, op := range pre.Operations {
		ops[i] = derive.Operation{Op: op.Op, Params: op.Params}
	}
	if _, err := r.engine.ApplyChain(run, source, ops); err != nil {
		return failedStep(name, StepPreprocessing, start, err)
	}

	return StepResult{
		Name:     name,
		Type:     StepPreprocessing,
		Success:  true,
		Message:  fmt.Sprintf("Applied %d operations", len(pre.Operations)),
		Duration: time.Since(start),
	}
}

func (r *Runner) runAnnotator(run *trial.RunData, stepCfg StepConfig) StepResult {
	start := time.Now()
	instance := stepCfg.InstanceName()

	a, ok := r.annotators.Get(stepCfg.Name)
	if !ok {
		return failedStep(instance, StepAnnotator, start,
			errors.WithMetadata(errors.CodeUnknownOperation,
				"Annotator not found: "+stepCfg.Name,
				map[string]string{"annotator": stepCfg.Name}))
	}

	events, err := annotate.Run(run, a, stepScopedConfig(run, stepCfg), instance, stepCfg.Parameters)
	if err != nil {
		return failedStep(instance, StepAnnotator, start, err)
	}
	run.SetAnnotations(instance, events)

	return StepResult{
		Name:     instance,
		Type:     StepAnnotator,
		Success:  true,
		Message:  fmt.Sprintf("Detected %d events", len(events)),
		Events:   events,
		Duration: time.Since(start),
	}
}

func (r *Runner) runCompute(run *trial.RunData, stepCfg StepConfig) StepResult {
	start := time.Now()
	instance := stepCfg.InstanceName()

	c, ok := r.computes.Get(stepCfg.Name)
	if !ok {
		return failedStep(instance, StepCompute, start,
			errors.WithMetadata(errors.CodeUnknownOperation,
				"Compute module not found: "+stepCfg.Name,
				map[string]string{"compute": stepCfg.Name}))
	}

	table, err := compute.Run(run, c, stepScopedConfig(run, stepCfg), instance, stepCfg.Parameters)
	if err != nil {
		return failedStep(instance, StepCompute, start, err)
	}

	message := "No output"
	if table != nil {
		message = fmt.Sprintf("Computed %d rows", len(table.Rows))
	}
	return StepResult{
		Name:     instance,
		Type:     StepCompute,
		Success:  true,
		Message:  message,
		Version:  c.Version(),
		Metrics:  table,
		Duration: time.Since(start),
	}
}

// stepScopedConfig overlays a step's bindings on a copy of the run's config,
// scoped to the step's instance. Pipeline execution never mutates the run's
// own config.
func stepScopedConfig(run *trial.RunData, step StepConfig) *trial.RunConfig {
	if len(step.ChannelBindings) == 0 && len(step.EventBindings) == 0 {
		return run.Config
	}
	cfg := run.Config.Clone()
	if cfg == nil {
		cfg = trial.NewRunConfig()
	}
	instance := step.InstanceName()
	for role, id := range step.ChannelBindings {
		cfg.BindChannel(instance, role, id)
	}
	for role, group := range step.EventBindings {
		cfg.BindEvent(instance, role, group)
	}
	return cfg
}

// unmetDependencies returns the deps with no successful step result yet.
func unmetDependencies(steps []StepResult, deps []string) []string {
	var missing []string
	for _, dep := range deps {
		met := false
		for _, s := range steps {
			if s.Name == dep && s.Success {
				met = true
				break
			}
		}
		if !met {
			missing = append(missing, dep)
		}
	}
	return missing
}

func failedStep(name string, typ StepType, start time.Time, err error) StepResult {
	return StepResult{
		Name:     name,
		Type:     typ,
		Message:  err.Error(),
		Err:      errors.Wrap(errors.CodeStepExecutionError, err.Error(), err),
		Duration: time.Since(start),
	}
}
