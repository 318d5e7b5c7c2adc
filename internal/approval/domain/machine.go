package domain

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// WorkflowContext is the context passed to the state machine.
type WorkflowContext struct {
	// Refreshed is set once a rejected decision sent the workflow back to resolving.
	Refreshed bool
}

// Event names for the state machine.
const (
	EventResolved  statekit.EventType = "RESOLVED"
	EventDecided   statekit.EventType = "DECIDED"
	EventCommitted statekit.EventType = "COMMITTED"
	EventConflict  statekit.EventType = "CONFLICT"
	EventRefresh   statekit.EventType = "REFRESH"
	EventAbort     statekit.EventType = "ABORT"
)

// State IDs for the state machine.
const (
	StateResolving  statekit.StateID = "resolving"
	StatePresenting statekit.StateID = "presenting"
	StateCommitting statekit.StateID = "committing"
	StateCommitted  statekit.StateID = "committed"
	StateConflict   statekit.StateID = "conflict"
	StateAborted    statekit.StateID = "aborted"
)

// Guard names for the state machine.
const (
	GuardNotRefreshed statekit.GuardType = "notRefreshed"
)

// Action names for the state machine.
const (
	ActionMarkRefreshed statekit.ActionType = "markRefreshed"
)

// ErrInvalidTransition indicates an event the machine refused in its current state.
var ErrInvalidTransition = errors.New("invalid workflow transition")

// WorkflowMachine wraps the Statekit state machine for one approval workflow.
type WorkflowMachine struct {
	interpreter *statekit.Interpreter[WorkflowContext]
}

// NewWorkflowMachine creates a new state machine for an approval workflow.
// No state has a transition back to itself, so a refused event is one that
// leaves the state unchanged.
func NewWorkflowMachine() (*WorkflowMachine, error) {
	machine, err := statekit.NewMachine[WorkflowContext]("approval-workflow").
		WithInitial(StateResolving).
		WithContext(WorkflowContext{}).
		WithGuard(GuardNotRefreshed, guardNotRefreshed).
		WithAction(ActionMarkRefreshed, markRefreshed).
		State(StateResolving).
		On(EventResolved).Target(StatePresenting).
		On(EventAbort).Target(StateAborted).
		Done().
		State(StatePresenting).
		On(EventDecided).Target(StateCommitting).
		On(EventAbort).Target(StateAborted).
		Done().
		State(StateCommitting).
		On(EventCommitted).Target(StateCommitted).
		On(EventConflict).Target(StateConflict).
		On(EventRefresh).Target(StateResolving).Guard(GuardNotRefreshed).Do(ActionMarkRefreshed).
		On(EventAbort).Target(StateAborted).
		Done().
		State(StateCommitted).
		Final().
		Done().
		State(StateConflict).
		Final().
		Done().
		State(StateAborted).
		Final().
		Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build state machine: %w", err)
	}

	return &WorkflowMachine{interpreter: statekit.NewInterpreter(machine)}, nil
}

// A request is refreshed at most once per workflow.
func guardNotRefreshed(ctx WorkflowContext, _ statekit.Event) bool {
	return !ctx.Refreshed
}

func markRefreshed(ctx *WorkflowContext, _ statekit.Event) {
	ctx.Refreshed = true
}

// Start enters the initial resolving state.
func (m *WorkflowMachine) Start() {
	m.interpreter.Start()
}

// Fire sends event and reports ErrInvalidTransition when the machine refused it.
func (m *WorkflowMachine) Fire(event statekit.EventType) error {
	if m.interpreter == nil {
		return fmt.Errorf("interpreter not started")
	}
	from := m.CurrentState()

	m.interpreter.Send(statekit.Event{Type: event})

	if m.CurrentState() == from {
		return fmt.Errorf("%w: %s in state %q", ErrInvalidTransition, event, from)
	}
	return nil
}

// CurrentState returns the current state.
func (m *WorkflowMachine) CurrentState() statekit.StateID {
	if m.interpreter == nil {
		return ""
	}
	return m.interpreter.State().Value
}

// Context returns a copy of the machine context.
func (m *WorkflowMachine) Context() WorkflowContext {
	if m.interpreter == nil {
		return WorkflowContext{}
	}
	return m.interpreter.State().Context
}

// Refreshed reports whether the workflow has used its one refresh.
func (m *WorkflowMachine) Refreshed() bool {
	return m.Context().Refreshed
}

// IsDone returns true if the machine is in a final state.
func (m *WorkflowMachine) IsDone() bool {
	if m.interpreter == nil {
		return false
	}
	return m.interpreter.Done()
}
