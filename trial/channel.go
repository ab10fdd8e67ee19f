// Package trial defines the data model for recorded trial runs: signal
// groups of equal-length sampled channels, annotation events, derived-channel
// provenance, and per-run configuration.
package trial

import (
	"strings"

	"github.com/louisbranch/tracengine/platform/errors"
)

// Channel identifies one named series inside a signal group. A Channel is a
// descriptor only; the samples live in the group's column of the same name.
type Channel struct {
	ID    string
	Group string
	Name  string
}

// NewChannel builds a channel reference from its group and column name.
func NewChannel(group, name string) Channel {
	return Channel{
		ID:    group + ":" + name,
		Group: group,
		Name:  name,
	}
}

// ParseChannelID splits a "group:name" identifier into a channel reference.
// The name part may itself contain colons; only the first separates the group.
func ParseChannelID(id string) (Channel, error) {
	group, name, ok := strings.Cut(id, ":")
	if !ok || group == "" || name == "" {
		return Channel{}, errors.WithMetadata(errors.CodeChannelIDInvalid,
			"channel id must have the form group:name",
			map[string]string{"id": id})
	}
	return NewChannel(group, name), nil
}

// Series pairs one channel's samples with the time axis of its group. The
// slices alias the group's storage; treat them as read-only.
type Series struct {
	Time   []float64
	Values []float64
}
