package ui

import (
	"github.com/jumpwire-ai/jwctl/internal/approval/domain"
)

// EventType is a discrete input to a Selection.
type EventType int

const (
	// EventUp moves the cursor up, wrapping to the last candidate.
	EventUp EventType = iota
	// EventDown moves the cursor down, wrapping to the first candidate.
	EventDown
	// EventSelect picks the highlighted candidate, or confirms an SSO login.
	EventSelect
	// EventConfirm confirms an SSO login.
	EventConfirm
	// EventDeny declines an SSO login.
	EventDeny
	// EventCancel ends the prompt without a decision.
	EventCancel
	// EventHelp toggles the help view.
	EventHelp
	// EventResize reports a terminal size. Only the first one is expected.
	EventResize
	// EventDeadline reports that the input deadline passed.
	EventDeadline
	// EventInterrupt reports a process interrupt.
	EventInterrupt
)

// Event is one input to a Selection.
type Event struct {
	Type EventType
}

// Selection is the prompt state machine. It ends with exactly one decision;
// events after that are ignored.
type Selection struct {
	req      *domain.PendingRequest
	cursor   int
	showHelp bool
	sized    bool
	done     bool
	decision domain.Decision
}

// NewSelection creates a selection for req with the cursor on the first candidate.
func NewSelection(req *domain.PendingRequest) *Selection {
	return &Selection{req: req}
}

// Handle applies ev and reports whether the selection is finished.
func (s *Selection) Handle(ev Event) bool {
	if s.done {
		return true
	}

	switch ev.Type {
	case EventDeadline:
		s.finish(domain.Cancel(domain.CauseTimedOut))
	case EventInterrupt:
		s.finish(domain.Cancel(domain.CauseInterrupted))
	case EventResize:
		if s.sized {
			s.finish(domain.Cancel(domain.CauseResized))
		}
		s.sized = true
	case EventHelp:
		s.showHelp = !s.showHelp
	case EventCancel:
		s.finish(domain.Cancel(domain.CauseUserCancelled))
	default:
		if s.req.Kind == domain.KindSSOLogin {
			s.handleSSO(ev)
		} else {
			s.handleList(ev)
		}
	}
	return s.done
}

func (s *Selection) handleList(ev Event) {
	n := len(s.req.Candidates)
	if n == 0 {
		return
	}
	switch ev.Type {
	case EventUp:
		s.cursor = (s.cursor - 1 + n) % n
	case EventDown:
		s.cursor = (s.cursor + 1) % n
	case EventSelect:
		s.finish(domain.Approve(s.req.Candidates[s.cursor].ID))
	}
}

func (s *Selection) handleSSO(ev Event) {
	switch ev.Type {
	case EventSelect, EventConfirm:
		s.finish(domain.Confirm())
	case EventDeny:
		s.finish(domain.Cancel(domain.CauseUserCancelled))
	}
}

func (s *Selection) finish(d domain.Decision) {
	s.done = true
	s.decision = d
}

// Done reports whether a decision has been made.
func (s *Selection) Done() bool {
	return s.done
}

// Decision returns the decision once the selection is done.
func (s *Selection) Decision() (domain.Decision, bool) {
	return s.decision, s.done
}

// Cursor returns the index of the highlighted candidate.
func (s *Selection) Cursor() int {
	return s.cursor
}

// ShowHelp reports whether the help view is open.
func (s *Selection) ShowHelp() bool {
	return s.showHelp
}

// Request returns the request being decided.
func (s *Selection) Request() *domain.PendingRequest {
	return s.req
}
