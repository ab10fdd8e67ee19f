package trial

import (
	"math"
	"testing"

	"github.com/louisbranch/tracengine/platform/errors"
)

func TestEventValidate(t *testing.T) {
	offset := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{
			name:  "valid timepoint",
			event: NewTimepoint("PeakAnnotator", "peak", 1.5),
		},
		{
			name:  "valid interval",
			event: NewInterval("IntervalAnnotator", "above_0", 1.0, 2.0),
		},
		{
			name:  "zero-length interval allowed",
			event: NewInterval("IntervalAnnotator", "above_0", 1.0, 1.0),
		},
		{
			name:    "interval offset precedes onset",
			event:   NewInterval("IntervalAnnotator", "above_0", 2.0, 1.0),
			wantErr: true,
		},
		{
			name:    "interval missing offset",
			event:   Event{Annotator: "a", Name: "x", Type: EventInterval, Onset: 1.0},
			wantErr: true,
		},
		{
			name:    "timepoint with offset",
			event:   Event{Annotator: "a", Name: "x", Type: EventTimepoint, Onset: 1.0, Offset: offset(2.0)},
			wantErr: true,
		},
		{
			name:    "empty name",
			event:   Event{Annotator: "a", Type: EventTimepoint, Onset: 1.0},
			wantErr: true,
		},
		{
			name:    "unknown type",
			event:   Event{Annotator: "a", Name: "x", Type: "span", Onset: 1.0},
			wantErr: true,
		},
		{
			name:    "NaN onset",
			event:   Event{Annotator: "a", Name: "x", Type: EventTimepoint, Onset: math.NaN()},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected validation error")
				}
				if !errors.HasCode(err, errors.CodeEventInvalid) {
					t.Fatalf("error code = %q, want EVENT_INVALID", errors.CodeOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}

func TestEventDuration(t *testing.T) {
	interval := NewInterval("a", "hold", 1.0, 3.5)
	if got := interval.Duration(); got != 2.5 {
		t.Fatalf("Duration = %v, want 2.5", got)
	}
	point := NewTimepoint("a", "peak", 1.0)
	if got := point.Duration(); got != 0 {
		t.Fatalf("timepoint Duration = %v, want 0", got)
	}
}

func TestWithConfidence(t *testing.T) {
	e := NewTimepoint("a", "peak", 1.0).WithConfidence(0.8)
	if e.Confidence == nil || *e.Confidence != 0.8 {
		t.Fatalf("Confidence = %v, want 0.8", e.Confidence)
	}
}
