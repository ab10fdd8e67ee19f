// Package pipeline runs configured batches: preprocessing chains, annotator
// steps, and compute steps executed per run, with failures isolated to the
// run that raised them.
package pipeline

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/platform/errors"
	"github.com/louisbranch/tracengine/trial"
)

// Export output formats accepted by ExportConfig.
const (
	FormatCSV    = "csv"
	FormatJSON   = "json"
	FormatSQLite = "sqlite"
)

// Config is a pipeline definition, usually loaded from YAML.
type Config struct {
	Name          string                `yaml:"name"`
	Description   string                `yaml:"description"`
	Preprocessing []PreprocessingConfig `yaml:"preprocessing"`
	Annotators    []StepConfig          `yaml:"annotators"`
	Compute       []StepConfig          `yaml:"compute"`
	Export        ExportConfig          `yaml:"export"`
}

// PreprocessingConfig derives channels before any annotator runs. Channel is
// a "group:channel" reference; operations chain left to right, each step
// deriving from the previous result.
type PreprocessingConfig struct {
	Channel    string            `yaml:"channel"`
	Operations []OperationConfig `yaml:"operations"`
}

// OperationConfig is one processing operation written flat in YAML: the op
// key names the operation and every other key is a parameter.
//
//	operations:
//	  - op: butter
//	    cutoff: 10
//	    order: 2
type OperationConfig struct {
	Op     string
	Params param.Values
}

// UnmarshalYAML splits the op key from the parameter keys.
func (o *OperationConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	o.Params = make(param.Values, len(raw))
	for k, v := range raw {
		if k == "op" {
			if s, ok := v.(string); ok {
				o.Op = s
			}
			continue
		}
		o.Params[k] = v
	}
	return nil
}

// StepConfig configures one annotator or compute step. Instance scopes
// bindings and parameters and defaults to the step name. DependsOn lists
// step names that must have succeeded earlier in the same run; it only
// applies to compute steps.
type StepConfig struct {
	Name            string            `yaml:"name"`
	Instance        string            `yaml:"instance"`
	DependsOn       []string          `yaml:"depends_on"`
	ChannelBindings map[string]string `yaml:"channel_bindings"`
	EventBindings   map[string]string `yaml:"event_bindings"`
	Parameters      param.Values      `yaml:"parameters"`
	Enabled         *bool             `yaml:"enabled"`
}

// IsEnabled reports whether the step should run. Steps are enabled unless
// the config says otherwise.
func (s StepConfig) IsEnabled() bool { return s.Enabled == nil || *s.Enabled }

// InstanceName returns the binding scope for the step.
func (s StepConfig) InstanceName() string {
	if s.Instance != "" {
		return s.Instance
	}
	return s.Name
}

// ExportConfig controls what gets written after a batch. The boolean
// switches default on; format defaults to csv.
type ExportConfig struct {
	Aggregate    *bool  `yaml:"aggregate"`
	SummaryStats *bool  `yaml:"summary_stats"`
	PerRun       *bool  `yaml:"per_run"`
	Format       string `yaml:"format"`
}

// AggregateEnabled reports whether the cross-run aggregate table is written.
func (e ExportConfig) AggregateEnabled() bool { return e.Aggregate == nil || *e.Aggregate }

// SummaryStatsEnabled reports whether the aggregate summary table is written.
func (e ExportConfig) SummaryStatsEnabled() bool { return e.SummaryStats == nil || *e.SummaryStats }

// PerRunEnabled reports whether per-run metric tables are written.
func (e ExportConfig) PerRunEnabled() bool { return e.PerRun == nil || *e.PerRun }

// EffectiveFormat returns the configured output format, defaulting to csv.
func (e ExportConfig) EffectiveFormat() string {
	if e.Format == "" {
		return FormatCSV
	}
	return e.Format
}

// ParseConfig decodes a YAML pipeline definition and validates it.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.CodePipelineConfigInvalid, "parse pipeline config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads and parses a pipeline YAML file. A config without a name
// takes the file's base name.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodePipelineConfigInvalid, "read pipeline config", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		base := filepath.Base(path)
		cfg.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return cfg, nil
}

// Validate checks structural validity: preprocessing channels parse as
// "group:channel", every operation and step is named, and the export format
// is known. Unknown keys inside an operation are parameters, not errors.
func (c *Config) Validate() error {
	for _, pre := range c.Preprocessing {
		if _, err := trial.ParseChannelID(pre.Channel); err != nil {
			return errors.WrapWithMetadata(errors.CodePipelineConfigInvalid,
				"invalid preprocessing channel",
				map[string]string{"channel": pre.Channel}, err)
		}
		for i, op := range pre.Operations {
			if op.Op == "" {
				return errors.WithMetadata(errors.CodePipelineConfigInvalid,
					"preprocessing operation missing op",
					map[string]string{"channel": pre.Channel, "position": strconv.Itoa(i)})
			}
		}
	}
	for _, step := range c.Annotators {
		if step.Name == "" {
			return errors.New(errors.CodePipelineConfigInvalid, "annotator step missing name")
		}
	}
	for _, step := range c.Compute {
		if step.Name == "" {
			return errors.New(errors.CodePipelineConfigInvalid, "compute step missing name")
		}
	}
	switch c.Export.EffectiveFormat() {
	case FormatCSV, FormatJSON, FormatSQLite:
	default:
		return errors.WithMetadata(errors.CodePipelineConfigInvalid,
			"unknown export format",
			map[string]string{"format": c.Export.Format})
	}
	return nil
}
