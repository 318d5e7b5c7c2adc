package app

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/jumpwire-ai/jwctl/internal/approval/domain"
	"github.com/jumpwire-ai/jwctl/internal/approval/ports"
	rperrors "github.com/jumpwire-ai/jwctl/internal/errors"
	"github.com/jumpwire-ai/jwctl/internal/resilience"
)

// CommitReport describes one Commit call.
type CommitReport struct {
	Outcome domain.CommitOutcome
	// Attempts is the number of calls made to the gateway.
	Attempts int
	// MaybeApplied is true when at least one failed attempt may have reached the gateway.
	MaybeApplied bool
}

// Committer submits a decision to the gateway.
type Committer struct {
	gateway ports.Gateway
	policy  resilience.Policy
	logger  *log.Logger
}

// NewCommitter creates a Committer.
func NewCommitter(gateway ports.Gateway, policy resilience.Policy, logger *log.Logger) *Committer {
	return &Committer{
		gateway: gateway,
		policy:  policy,
		logger:  orDiscard(logger),
	}
}

// Commit sends decision for token. Transient failures are retried under the
// policy; a conflict or a rejection ends the call at once.
//
// Failures are reported as:
//   - KindRejected, KindNotFound or KindNotAuthenticated from the gateway, unchanged
//   - KindIndeterminate when the budget ran out and an attempt may have been applied
//   - KindIndeterminate when a conflict follows an attempt that may have been applied
//   - KindNetwork when the budget ran out and no attempt reached the gateway
//   - KindCanceled when ctx was cancelled before anything was sent
func (c *Committer) Commit(ctx context.Context, token domain.Token, decision domain.Decision) (CommitReport, error) {
	const op = "approval.Commit"

	if decision.IsCancel() {
		return CommitReport{Outcome: domain.OutcomeFailed}, rperrors.InternalWrap(domain.ErrCancelNotCommittable, op, "refusing to commit")
	}

	var report CommitReport
	outcome, attempts, err := resilience.Do(ctx, c.policy, func(ctx context.Context, attempt int) (domain.CommitOutcome, error) {
		outcome, err := c.gateway.Commit(ctx, token, decision)
		if err != nil {
			if maybeApplied(err) {
				report.MaybeApplied = true
			}
			c.logger.Debug("commit failed", "attempt", attempt, "decision", decision, "error", rperrors.RedactError(err))
			return domain.OutcomeFailed, err
		}
		return outcome, nil
	})
	report.Attempts = attempts

	if err == nil {
		report.Outcome = outcome
		if outcome == domain.OutcomeConflict && report.MaybeApplied {
			return c.unknown(report, op, "gateway reported a conflict after an attempt that may have been applied")
		}
		c.logger.Debug("commit answered", "outcome", outcome, "attempts", attempts)
		return report, nil
	}

	report.Outcome = domain.OutcomeFailed
	if rperrors.IsKind(err, rperrors.KindConflict) {
		if report.MaybeApplied {
			return c.unknown(report, op, "gateway reported a conflict after an attempt that may have been applied")
		}
		report.Outcome = domain.OutcomeConflict
		return report, nil
	}
	if isFinal(err) {
		return report, err
	}
	if report.MaybeApplied {
		return report, rperrors.Wrapf(err, rperrors.KindIndeterminate, op, "outcome unknown after %d attempts", attempts).
			WithDetail("attempts", attempts)
	}
	return report, classifyFailure(ctx, op, err, attempts)
}

// unknown reports a commit whose effect cannot be told apart from our own
// earlier attempt landing.
func (c *Committer) unknown(report CommitReport, op, msg string) (CommitReport, error) {
	c.logger.Debug("commit outcome unknown", "attempts", report.Attempts)
	report.Outcome = domain.OutcomeFailed
	return report, rperrors.Indeterminate(op, msg).WithDetail("attempts", report.Attempts)
}

// maybeApplied reports whether a failed attempt may have reached the gateway.
func maybeApplied(err error) bool {
	var e *rperrors.Error
	for errors.As(err, &e) {
		if applied, ok := e.Detail(ports.MaybeAppliedDetail).(bool); ok && applied {
			return true
		}
		err = e.Err
		if err == nil {
			return false
		}
	}
	return false
}
