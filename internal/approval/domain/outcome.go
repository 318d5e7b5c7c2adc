package domain

import rperrors "github.com/jumpwire-ai/jwctl/internal/errors"

// CommitOutcome is the gateway's answer to a commit.
type CommitOutcome string

const (
	// OutcomeCommitted means the decision was applied.
	OutcomeCommitted CommitOutcome = "committed"
	// OutcomeConflict means the request was no longer pending.
	OutcomeConflict CommitOutcome = "conflict"
	// OutcomeFailed means the commit did not go through.
	OutcomeFailed CommitOutcome = "failed"
)

// TerminalState is where a workflow ends.
type TerminalState string

const (
	// TerminalCommitted is Done(Committed).
	TerminalCommitted TerminalState = "committed"
	// TerminalConflict is Done(Conflict).
	TerminalConflict TerminalState = "conflict"
	// TerminalAborted is Aborted(reason).
	TerminalAborted TerminalState = "aborted"
)

// Reason explains an aborted workflow.
type Reason string

// Abort reasons. Each has its own operator message.
const (
	ReasonNone               Reason = ""
	ReasonExpired            Reason = "expired"
	ReasonNotFound           Reason = "not_found"
	ReasonCommunicationError Reason = "communication_error"
	ReasonNotAuthenticated   Reason = "not_authenticated"
	ReasonUserCancelled      Reason = "user_cancelled"
	ReasonTimedOut           Reason = "timed_out"
	ReasonStaleRequest       Reason = "stale_request"
	ReasonUnknown            Reason = "unknown"
	ReasonRejected           Reason = "rejected"
)

// Message returns the operator-facing text for the reason.
func (r Reason) Message() string {
	switch r {
	case ReasonExpired:
		return "request expired"
	case ReasonNotFound:
		return "request not found"
	case ReasonCommunicationError:
		return "could not reach server"
	case ReasonNotAuthenticated:
		return "not authenticated: run 'jwctl token set' to re-authenticate"
	case ReasonUserCancelled:
		return "cancelled"
	case ReasonTimedOut:
		return "timed out waiting for a decision"
	case ReasonStaleRequest:
		return "request changed while deciding; nothing left to approve"
	case ReasonUnknown:
		return "commit outcome unknown: the gateway may have applied the decision"
	case ReasonRejected:
		return "rejected by gateway"
	default:
		return "aborted"
	}
}

// ReasonForCancel maps a selector cancellation to an abort reason.
func ReasonForCancel(cause CancelCause) Reason {
	if cause == CauseTimedOut {
		return ReasonTimedOut
	}
	return ReasonUserCancelled
}

// Result is the terminal report of one approval workflow.
type Result struct {
	State  TerminalState
	Reason Reason
	// Request is the last resolved snapshot, if any.
	Request *PendingRequest
	// Candidate is the approved upstream for committed database connections.
	Candidate *Candidate
	// CommitAttempts counts commit calls across the whole workflow.
	CommitAttempts int
	// Refreshed is true when the request was re-resolved after a rejection.
	Refreshed bool
	// Err is the underlying cause for aborted workflows.
	Err error
}

// Succeeded reports whether the decision was committed.
func (r Result) Succeeded() bool {
	return r.State == TerminalCommitted
}

// Message returns the single line printed to the operator.
func (r Result) Message() string {
	switch r.State {
	case TerminalCommitted:
		return "Committed: " + r.subject()
	case TerminalConflict:
		return "Conflict: already resolved"
	default:
		if r.Reason == ReasonNone && r.Err != nil {
			return "aborted: " + rperrors.RedactSensitive(r.Err.Error())
		}
		return r.Reason.Message()
	}
}

func (r Result) subject() string {
	if r.Candidate != nil {
		return r.Candidate.Label()
	}
	if name := r.Request.ProviderName(); name != "" {
		return name
	}
	return "login approved"
}
