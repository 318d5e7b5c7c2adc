package domain

import "fmt"

// Action is what the operator decided.
type Action string

const (
	// ActionApprove approves a database connection to one candidate.
	ActionApprove Action = "approve"
	// ActionConfirm confirms an SSO login.
	ActionConfirm Action = "confirm"
	// ActionCancel declines to decide. It is never sent to the gateway.
	ActionCancel Action = "cancel"
)

// CancelCause records why a selection ended without a decision.
type CancelCause string

const (
	// CauseUserCancelled means the operator pressed a cancel key.
	CauseUserCancelled CancelCause = "user_cancelled"
	// CauseTimedOut means the input deadline elapsed.
	CauseTimedOut CancelCause = "timed_out"
	// CauseInterrupted means the process received an interrupt.
	CauseInterrupted CancelCause = "interrupted"
	// CauseResized means the terminal was resized mid-prompt.
	CauseResized CancelCause = "resized"
)

// Decision is the single output of the interactive selector.
type Decision struct {
	Action      Action
	CandidateID CandidateID
	Cause       CancelCause
}

// Approve returns a decision approving the given candidate.
func Approve(id CandidateID) Decision {
	return Decision{Action: ActionApprove, CandidateID: id}
}

// Confirm returns a decision confirming an SSO login.
func Confirm() Decision {
	return Decision{Action: ActionConfirm}
}

// Cancel returns a local cancellation with its cause.
func Cancel(cause CancelCause) Decision {
	return Decision{Action: ActionCancel, Cause: cause}
}

// IsCancel reports whether the decision is a cancellation.
func (d Decision) IsCancel() bool {
	return d.Action == ActionCancel
}

// String returns a short description for logs.
func (d Decision) String() string {
	switch d.Action {
	case ActionApprove:
		return fmt.Sprintf("approve(%s)", d.CandidateID)
	case ActionCancel:
		return fmt.Sprintf("cancel(%s)", d.Cause)
	default:
		return string(d.Action)
	}
}

// ValidateFor checks that the decision can be committed for req.
func (d Decision) ValidateFor(req *PendingRequest) error {
	switch d.Action {
	case ActionCancel:
		return ErrCancelNotCommittable
	case ActionApprove:
		if req.Kind != KindDatabaseConnection {
			return fmt.Errorf("%w: approve on %s", ErrDecisionKindMismatch, req.Kind)
		}
		if _, ok := req.Candidate(d.CandidateID); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCandidate, d.CandidateID)
		}
		return nil
	case ActionConfirm:
		if req.Kind != KindSSOLogin {
			return fmt.Errorf("%w: confirm on %s", ErrDecisionKindMismatch, req.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown decision action %q", d.Action)
	}
}
