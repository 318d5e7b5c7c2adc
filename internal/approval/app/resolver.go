// Package app provides the application services of the approval workflow.
package app

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"

	"github.com/jumpwire-ai/jwctl/internal/approval/domain"
	"github.com/jumpwire-ai/jwctl/internal/approval/ports"
	rperrors "github.com/jumpwire-ai/jwctl/internal/errors"
	"github.com/jumpwire-ai/jwctl/internal/resilience"
)

// Resolver turns an approval token into a fresh PendingRequest.
type Resolver struct {
	gateway ports.Gateway
	policy  resilience.Policy
	logger  *log.Logger
}

// NewResolver creates a Resolver.
func NewResolver(gateway ports.Gateway, policy resilience.Policy, logger *log.Logger) *Resolver {
	return &Resolver{
		gateway: gateway,
		policy:  policy,
		logger:  orDiscard(logger),
	}
}

// Resolve fetches the request named by token. Transient failures are retried
// under the policy until ctx ends. A request that is no longer pending, or has
// nothing to decide, is reported as KindExpired.
func (r *Resolver) Resolve(ctx context.Context, token domain.Token) (*domain.PendingRequest, error) {
	const op = "approval.Resolve"

	req, attempts, err := resilience.Do(ctx, r.policy, func(ctx context.Context, attempt int) (*domain.PendingRequest, error) {
		req, err := r.gateway.FetchPending(ctx, token)
		if err != nil {
			r.logger.Debug("fetch failed", "attempt", attempt, "error", rperrors.RedactError(err))
		}
		return req, err
	})
	if err != nil {
		return nil, classifyFailure(ctx, op, err, attempts)
	}

	if !req.Approvable() {
		status := domain.StatusExpired
		if req != nil {
			status = req.Status
		}
		r.logger.Debug("nothing to approve", "status", status)
		return nil, rperrors.Expired(op, "request is no longer pending").WithDetail("status", string(status))
	}

	r.logger.Debug("request resolved", "kind", req.Kind, "candidates", len(req.Candidates), "attempts", attempts)
	return req, nil
}

// classifyFailure converts the last attempt's error into a final error.
// Transient errors that outlived the budget become non-recoverable
// KindNetwork errors; a cancelled context becomes KindCanceled, and a
// deadline that passed before the first attempt becomes KindTimeout.
func classifyFailure(ctx context.Context, op string, err error, attempts int) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !isFinal(err) {
		if errors.Is(ctxErr, context.Canceled) {
			return rperrors.Wrap(err, rperrors.KindCanceled, op, "interrupted")
		}
		if attempts == 0 {
			return rperrors.Timeout(op, "deadline passed before the gateway was contacted")
		}
		return rperrors.Wrap(err, rperrors.KindNetwork, op, "deadline exceeded").WithDetail("attempts", attempts)
	}
	if rperrors.IsRecoverable(err) || rperrors.GetKind(err) == rperrors.KindUnknown {
		return rperrors.Wrapf(err, rperrors.KindNetwork, op, "gateway unreachable after %d attempts", attempts).
			WithDetail("attempts", attempts)
	}
	return err
}

// isFinal reports whether err is a definite answer from the gateway.
func isFinal(err error) bool {
	switch rperrors.GetKind(err) {
	case rperrors.KindNotFound, rperrors.KindExpired, rperrors.KindNotAuthenticated,
		rperrors.KindRejected, rperrors.KindConflict:
		return true
	default:
		return false
	}
}

func orDiscard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(io.Discard)
	}
	return logger
}
