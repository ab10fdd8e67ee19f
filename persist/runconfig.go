package persist

import (
	"encoding/json"
	"os"

	"github.com/louisbranch/tracengine/platform/errors"
	"github.com/louisbranch/tracengine/trial"
)

// SaveRunConfig writes the run's configuration to dir/{stem}_run_config.json.
// A run without a configuration persists an empty one.
func SaveRunConfig(dir string, run *trial.RunData) error {
	cfg := run.Config
	if cfg == nil {
		cfg = trial.NewRunConfig()
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(errors.CodeStorageError, "encode run config", err)
	}
	return writeFile(RunConfigPath(dir, run), data)
}

// LoadRunConfig reads dir/{stem}_run_config.json. A missing file yields a nil
// config and no error.
func LoadRunConfig(dir string, run *trial.RunData) (*trial.RunConfig, error) {
	data, err := os.ReadFile(RunConfigPath(dir, run))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageError, "read run config", err)
	}

	var cfg trial.RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.CodeStorageError, "decode run config", err)
	}
	return &cfg, nil
}
