package persist

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/louisbranch/tracengine/platform/errors"
	"github.com/louisbranch/tracengine/trial"
)

// AnnotationGroup is one named group of events, in file order. Order matters:
// event resolution scans a run's groups in insertion order, so a reloaded run
// must see them the way they were saved.
type AnnotationGroup struct {
	Name   string
	Events []trial.Event
}

// SaveAnnotations writes the run's annotation groups to
// dir/{stem}_annotations.json, groups in insertion order.
func SaveAnnotations(dir string, run *trial.RunData) error {
	data, err := MarshalAnnotations(run)
	if err != nil {
		return err
	}
	return writeFile(AnnotationsPath(dir, run), data)
}

// LoadAnnotations reads the annotation groups for run from dir, in file
// order. A missing file yields nil and no error.
func LoadAnnotations(dir string, run *trial.RunData) ([]AnnotationGroup, error) {
	data, err := os.ReadFile(AnnotationsPath(dir, run))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageError, "read annotations", err)
	}
	return UnmarshalAnnotations(data)
}

// RestoreAnnotations loads the run's annotation sidecar and stores each group
// onto the run, replacing groups that already exist.
func RestoreAnnotations(dir string, run *trial.RunData) error {
	groups, err := LoadAnnotations(dir, run)
	if err != nil {
		return err
	}
	for _, g := range groups {
		run.SetAnnotations(g.Name, g.Events)
	}
	return nil
}

// MarshalAnnotations encodes the run's annotation document:
// {run_start_utc, annotations: {group: [events]}} with groups in insertion
// order.
func MarshalAnnotations(run *trial.RunData) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"run_start_utc":`)
	start, _ := json.Marshal(run.StartTime.UTC().Format(time.RFC3339Nano))
	buf.Write(start)
	buf.WriteString(`,"annotations":{`)
	for i, group := range run.AnnotationGroups() {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, _ := json.Marshal(group)
		buf.Write(name)
		buf.WriteByte(':')
		events, _ := run.Annotations(group)
		if events == nil {
			events = []trial.Event{}
		}
		encoded, err := json.Marshal(events)
		if err != nil {
			return nil, errors.Wrap(errors.CodeStorageError, "encode annotations", err)
		}
		buf.Write(encoded)
	}
	buf.WriteString("}}")

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, buf.Bytes(), "", "  "); err != nil {
		return nil, errors.Wrap(errors.CodeStorageError, "encode annotations", err)
	}
	return pretty.Bytes(), nil
}

// UnmarshalAnnotations decodes an annotations document, tolerantly. Two
// layouts exist: the standard {run_start_utc, annotations: {...}} wrapper and
// a legacy flat {group: [events]} map. Groups whose value is not an event
// list are skipped, as are events missing a name or onset; an event without
// an event_type is an interval when it carries an offset and a timepoint
// otherwise. Empty groups are dropped.
func UnmarshalAnnotations(data []byte) ([]AnnotationGroup, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageError, "decode annotations", err)
	}
	if tok != json.Delim('{') {
		return nil, errors.New(errors.CodeStorageError, "annotations document is not an object")
	}

	var flat, nested []AnnotationGroup
	sawWrapper := false
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(errors.CodeStorageError, "decode annotations", err)
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, errors.Wrap(errors.CodeStorageError, "decode annotations", err)
		}

		if key == "annotations" {
			sawWrapper = true
			groups, err := decodeGroupObject(raw)
			if err != nil {
				log.Printf("persist: annotations key does not hold a group object: %v", err)
				continue
			}
			nested = groups
			continue
		}
		if events := decodeEventList(raw); len(events) > 0 {
			flat = append(flat, AnnotationGroup{Name: key, Events: events})
		}
	}

	if sawWrapper {
		return nested, nil
	}
	return flat, nil
}

// decodeGroupObject walks an {group: [events]} object preserving key order.
func decodeGroupObject(raw json.RawMessage) ([]AnnotationGroup, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok != json.Delim('{') {
		return nil, errors.New(errors.CodeStorageError, "expected an object of groups")
	}

	var groups []AnnotationGroup
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		if events := decodeEventList(value); len(events) > 0 {
			groups = append(groups, AnnotationGroup{Name: key, Events: events})
		}
	}
	return groups, nil
}

func decodeEventList(raw json.RawMessage) []trial.Event {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	events := make([]trial.Event, 0, len(items))
	for _, item := range items {
		var entry struct {
			Annotator  string            `json:"annotator"`
			Name       *string           `json:"name"`
			EventType  *string           `json:"event_type"`
			Onset      *float64          `json:"onset"`
			Offset     *float64          `json:"offset"`
			Confidence *float64          `json:"confidence"`
			Metadata   map[string]string `json:"metadata"`
		}
		if err := json.Unmarshal(item, &entry); err != nil {
			continue
		}
		if entry.Name == nil || entry.Onset == nil {
			continue
		}

		eventType := trial.EventTimepoint
		switch {
		case entry.EventType != nil:
			eventType = trial.EventType(*entry.EventType)
		case entry.Offset != nil:
			eventType = trial.EventInterval
		}
		annotator := entry.Annotator
		if annotator == "" {
			annotator = "Unknown"
		}

		events = append(events, trial.Event{
			Annotator:  annotator,
			Name:       *entry.Name,
			Type:       eventType,
			Onset:      *entry.Onset,
			Offset:     entry.Offset,
			Confidence: entry.Confidence,
			Metadata:   entry.Metadata,
		})
	}
	return events
}
