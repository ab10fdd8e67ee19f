package trial

import (
	"testing"

	"github.com/louisbranch/tracengine/platform/errors"
)

func TestNewChannel(t *testing.T) {
	ch := NewChannel("motion", "X")
	if ch.ID != "motion:X" {
		t.Fatalf("ID = %q, want %q", ch.ID, "motion:X")
	}
	if ch.Group != "motion" || ch.Name != "X" {
		t.Fatalf("parts = (%q, %q), want (motion, X)", ch.Group, ch.Name)
	}
}

func TestParseChannelID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		want    Channel
		wantErr bool
	}{
		{
			name: "simple",
			id:   "motion:X",
			want: Channel{ID: "motion:X", Group: "motion", Name: "X"},
		},
		{
			name: "name keeps extra colons",
			id:   "motion:X:left",
			want: Channel{ID: "motion:X:left", Group: "motion", Name: "X:left"},
		},
		{
			name:    "missing separator",
			id:      "motionX",
			wantErr: true,
		},
		{
			name:    "empty group",
			id:      ":X",
			wantErr: true,
		},
		{
			name:    "empty name",
			id:      "motion:",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChannelID(tt.id)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseChannelID(%q): expected error", tt.id)
				}
				if !errors.HasCode(err, errors.CodeChannelIDInvalid) {
					t.Fatalf("error code = %q, want CHANNEL_ID_INVALID", errors.CodeOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseChannelID(%q): %v", tt.id, err)
			}
			if got != tt.want {
				t.Fatalf("ParseChannelID(%q) = %+v, want %+v", tt.id, got, tt.want)
			}
		})
	}
}
