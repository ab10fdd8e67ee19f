package persist

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/platform/errors"
	"github.com/louisbranch/tracengine/trial"
)

// SaveProvenance writes the run's channel provenance to
// dir/{stem}_channels.json.
func SaveProvenance(dir string, run *trial.RunData) error {
	data, err := MarshalProvenance(run.Provenance)
	if err != nil {
		return err
	}
	return writeFile(ProvenancePath(dir, run), data)
}

// LoadProvenance reads dir/{stem}_channels.json. A missing file yields a nil
// map and no error.
func LoadProvenance(dir string, run *trial.RunData) (map[string]trial.ChannelProvenance, error) {
	data, err := os.ReadFile(ProvenancePath(dir, run))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageError, "read channel provenance", err)
	}
	return UnmarshalProvenance(data)
}

// MarshalProvenance encodes a provenance map as a channels.json document.
func MarshalProvenance(provenance map[string]trial.ChannelProvenance) ([]byte, error) {
	data, err := json.MarshalIndent(provenance, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageError, "encode channel provenance", err)
	}
	return data, nil
}

// UnmarshalProvenance decodes a channels.json document. Entries that fail to
// decode are skipped with a log line; an entry without a timestamp gets the
// load time, matching files written before timestamps were recorded.
func UnmarshalProvenance(data []byte) (map[string]trial.ChannelProvenance, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.CodeStorageError, "decode channel provenance", err)
	}

	out := make(map[string]trial.ChannelProvenance, len(raw))
	for id, msg := range raw {
		var entry struct {
			Parents    []string     `json:"parents"`
			Operation  string       `json:"operation"`
			Parameters param.Values `json:"parameters"`
			Timestamp  string       `json:"timestamp"`
		}
		if err := json.Unmarshal(msg, &entry); err != nil {
			log.Printf("persist: skipping malformed provenance entry %q: %v", id, err)
			continue
		}

		prov := trial.ChannelProvenance{
			Parents:    entry.Parents,
			Operation:  entry.Operation,
			Parameters: entry.Parameters,
		}
		if prov.Operation == "" {
			prov.Operation = "unknown"
		}
		if entry.Timestamp == "" {
			prov.Timestamp = time.Now().UTC()
		} else {
			ts, err := time.Parse(time.RFC3339, entry.Timestamp)
			if err != nil {
				log.Printf("persist: skipping provenance entry %q: bad timestamp %q", id, entry.Timestamp)
				continue
			}
			prov.Timestamp = ts
		}
		out[id] = prov
	}
	return out, nil
}
