// Package persist reads and writes a run's sidecar files: derived-channel
// provenance, run configuration, and annotations. Sidecars live next to each
// other in a derived directory and share the run's BIDS-style file stem.
//
// Derived channel values are never persisted. Rehydrating a run means loading
// its provenance, assigning it to the run, and recomputing every derived
// column from raw data (derive.Engine.Recompute).
//
// A missing sidecar is not an error: runs start without history. Malformed
// entries inside a sidecar are skipped with a log line; a file that is not
// valid JSON at all fails loudly with CodeStorageError.
package persist

import (
	"os"
	"path/filepath"

	"github.com/louisbranch/tracengine/platform/errors"
	"github.com/louisbranch/tracengine/trial"
)

// ProvenancePath returns dir/{stem}_channels.json for the run.
func ProvenancePath(dir string, run *trial.RunData) string {
	return filepath.Join(dir, run.BaseName()+"_channels.json")
}

// RunConfigPath returns dir/{stem}_run_config.json for the run.
func RunConfigPath(dir string, run *trial.RunData) string {
	return filepath.Join(dir, run.BaseName()+"_run_config.json")
}

// AnnotationsPath returns dir/{stem}_annotations.json for the run.
func AnnotationsPath(dir string, run *trial.RunData) string {
	return filepath.Join(dir, run.BaseName()+"_annotations.json")
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.CodeStorageError, "create sidecar directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.CodeStorageError, "write "+filepath.Base(path), err)
	}
	return nil
}
