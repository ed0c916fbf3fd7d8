// Package trace records the file-tracking decisions made while running tasks.
package trace

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// RunTrace is the canonical record of what a run tracked.
//
// It captures logical facts only (which path entered which set, which
// registered location failed to resolve), never timestamps or error strings,
// so two runs over the same tree produce identical bytes.
type RunTrace struct {
	RunID  string  `json:"runId"`
	Events []Event `json:"events"`
}

// EventKind is the stable discriminator for Event.
// The string values are part of the trace's canonical bytes; do not rename.
type EventKind string

const (
	EventPhaseEntered     EventKind = "PhaseEntered"
	EventInputAdded       EventKind = "InputAdded"
	EventInputDirMissing  EventKind = "InputDirMissing"
	EventOutputRegistered EventKind = "OutputRegistered"
	EventOutputAdded      EventKind = "OutputAdded"
	EventOutputDirMissing EventKind = "OutputDirMissing"
	EventOutputResolved   EventKind = "OutputResolved"
	EventResolutionFailed EventKind = "ResolutionFailed"
)

// Event is a single logical decision about one path (or one phase change).
type Event struct {
	Kind   EventKind `json:"kind"`
	TaskID string    `json:"taskId,omitempty"`
	Path   string    `json:"path,omitempty"`
	// Reason is a stable code, e.g. the entered phase or "NotFound".
	Reason string `json:"reason,omitempty"`
}

// Validate checks basic invariants and returns a descriptive error.
func (t *RunTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	if t.RunID == "" {
		return errors.New("runId is required")
	}
	for i, e := range t.Events {
		if e.Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
		if e.TaskID == "" {
			return fmt.Errorf("events[%d].taskId is required for kind %q", i, e.Kind)
		}
		if e.Kind != EventPhaseEntered && e.Path == "" {
			return fmt.Errorf("events[%d].path is required for kind %q", i, e.Kind)
		}
	}
	return nil
}

// Canonicalize sorts events by (taskId, kindOrder, path, reason) and drops
// exact duplicates, which arise when the same path is offered twice.
func (t *RunTrace) Canonicalize() {
	if t == nil {
		return
	}
	sort.SliceStable(t.Events, func(i, j int) bool {
		a, b := t.Events[i], t.Events[j]
		if a.TaskID != b.TaskID {
			return a.TaskID < b.TaskID
		}
		if kindOrder(a.Kind) != kindOrder(b.Kind) {
			return kindOrder(a.Kind) < kindOrder(b.Kind)
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Reason < b.Reason
	})
	out := t.Events[:0]
	for _, e := range t.Events {
		if len(out) > 0 && e == out[len(out)-1] {
			continue
		}
		out = append(out, e)
	}
	t.Events = out
}

func kindOrder(k EventKind) int {
	switch k {
	case EventPhaseEntered:
		return 0
	case EventInputAdded:
		return 10
	case EventInputDirMissing:
		return 20
	case EventOutputRegistered:
		return 30
	case EventOutputAdded:
		return 40
	case EventOutputDirMissing:
		return 50
	case EventOutputResolved:
		return 60
	case EventResolutionFailed:
		return 70
	default:
		return 1000
	}
}

// CanonicalJSON returns the canonical JSON encoding of the trace.
// It canonicalizes a copy so the caller's slice is left untouched.
func (t RunTrace) CanonicalJSON() ([]byte, error) {
	cp := RunTrace{RunID: t.RunID, Events: make([]Event, len(t.Events))}
	copy(cp.Events, t.Events)
	cp.Canonicalize()
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(&cp)
}
