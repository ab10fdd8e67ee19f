package trial

import (
	"time"

	"github.com/louisbranch/tracengine/param"
)

// ChannelProvenance records how a derived channel's values were produced:
// the parent channel ids, the operation name, and its parameters. One entry
// exists per derived channel, keyed by the derived channel's id, forming a
// DAG over channel ids.
type ChannelProvenance struct {
	Parents    []string     `json:"parents"`
	Operation  string       `json:"operation"`
	Parameters param.Values `json:"parameters,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}

// PrimaryParent returns the first recorded parent id, the one whose values
// feed a single-source replay.
func (p ChannelProvenance) PrimaryParent() (string, bool) {
	if len(p.Parents) == 0 {
		return "", false
	}
	return p.Parents[0], true
}
