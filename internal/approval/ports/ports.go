// Package ports defines the interfaces (ports) the approval workflow depends on.
package ports

import (
	"context"
	"time"

	"github.com/jumpwire-ai/jwctl/internal/approval/domain"
)

// Gateway is the remote side of the approval workflow.
//
// Implementations classify failures with internal/errors kinds:
// KindNotFound, KindExpired, KindNotAuthenticated and KindRejected are final,
// recoverable KindNetwork errors are transient. A transient commit failure that
// may still have reached the gateway carries the MaybeAppliedDetail detail.
type Gateway interface {
	// FetchPending returns the current state of the request named by token.
	FetchPending(ctx context.Context, token domain.Token) (*domain.PendingRequest, error)

	// Commit submits a decision. It returns OutcomeCommitted or OutcomeConflict
	// on a definite answer from the gateway.
	Commit(ctx context.Context, token domain.Token, decision domain.Decision) (domain.CommitOutcome, error)
}

// MaybeAppliedDetail is the error detail set on transient commit failures that
// happened after the request left the client.
const MaybeAppliedDetail = "maybe_applied"

// Selector collects exactly one decision from the operator.
type Selector interface {
	// Select presents req and blocks until the operator decides, the deadline
	// passes or ctx is cancelled. Timeouts and interrupts are reported as
	// Cancel decisions, not errors.
	Select(ctx context.Context, req *domain.PendingRequest, deadline time.Time) (domain.Decision, error)
}

// BrowserLauncher opens a URL in the operator's default browser.
type BrowserLauncher interface {
	Open(url string) error
}

// Clock provides time-related functionality.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system time.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}
