package core

import (
	"errors"
	"fmt"
)

// Phase is the lifecycle position of a single task run.
type Phase string

const (
	PhaseConstructed      Phase = "Constructed"
	PhaseAcceptingInputs  Phase = "AcceptingInputs"
	PhaseActionRunning    Phase = "ActionRunning"
	PhaseResolvingOutputs Phase = "ResolvingOutputs"
	PhaseFinished         Phase = "Finished"
	PhaseFailed           Phase = "Failed"
)

// ErrInvalidTransition is the kind of every rejected phase change.
var ErrInvalidTransition = errors.New("invalid phase transition")

// IsTerminal reports whether p is a final phase.
func IsTerminal(p Phase) bool {
	return p == PhaseFinished || p == PhaseFailed
}

// Lifecycle validates the phase changes of one task run.
//
// The phases only move forward:
//
//	Constructed -> AcceptingInputs -> ActionRunning -> ResolvingOutputs -> Finished
//
// and any non-terminal phase may move to Failed.
type Lifecycle struct {
	task  string
	phase Phase
}

// NewLifecycle starts a lifecycle in PhaseConstructed.
func NewLifecycle(task string) *Lifecycle {
	return &Lifecycle{task: task, phase: PhaseConstructed}
}

// Phase returns the current phase.
func (l *Lifecycle) Phase() Phase { return l.phase }

// Transition moves from the expected phase to the next one. The expected
// prior phase makes ordering bugs in the orchestrator observable.
func (l *Lifecycle) Transition(from, to Phase) error {
	if l.phase != from {
		return fmt.Errorf("%w for %q: expected %s, got %s", ErrInvalidTransition, l.task, from, l.phase)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("%w for %q: %s -> %s", ErrInvalidTransition, l.task, from, to)
	}
	l.phase = to
	return nil
}

// Fail moves any non-terminal phase to PhaseFailed.
func (l *Lifecycle) Fail() error {
	return l.Transition(l.phase, PhaseFailed)
}

func isAllowedTransition(from, to Phase) bool {
	if to == PhaseFailed {
		return !IsTerminal(from)
	}
	switch from {
	case PhaseConstructed:
		return to == PhaseAcceptingInputs
	case PhaseAcceptingInputs:
		return to == PhaseActionRunning
	case PhaseActionRunning:
		return to == PhaseResolvingOutputs
	case PhaseResolvingOutputs:
		return to == PhaseFinished
	default:
		return false
	}
}
