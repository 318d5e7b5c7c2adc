package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/felixgeelhaar/statekit"

	"github.com/jumpwire-ai/jwctl/internal/approval/domain"
	"github.com/jumpwire-ai/jwctl/internal/approval/ports"
	rperrors "github.com/jumpwire-ai/jwctl/internal/errors"
	"github.com/jumpwire-ai/jwctl/internal/resilience"
)

// DefaultTimeout is the overall budget for one approval.
const DefaultTimeout = 60 * time.Second

// Options configures a Workflow.
type Options struct {
	// Timeout bounds the whole workflow, including the operator's decision.
	Timeout time.Duration
	// Policy is the retry policy shared by resolve and commit.
	Policy resilience.Policy
	// ExpectKind, when set, aborts on tokens for another kind of request.
	ExpectKind domain.RequestKind
	Logger     *log.Logger
	Clock      ports.Clock
}

// DefaultOptions returns the default workflow options.
func DefaultOptions() Options {
	return Options{
		Timeout: DefaultTimeout,
		Policy:  resilience.DefaultPolicy(),
		Clock:   ports.RealClock{},
	}
}

// Workflow drives one approval from token to terminal result.
type Workflow struct {
	resolver  *Resolver
	selector  ports.Selector
	committer *Committer
	opts      Options
	logger    *log.Logger
}

// NewWorkflow creates a Workflow.
func NewWorkflow(gateway ports.Gateway, selector ports.Selector, opts Options) *Workflow {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = ports.RealClock{}
	}
	logger := orDiscard(opts.Logger)

	return &Workflow{
		resolver:  NewResolver(gateway, opts.Policy, logger),
		selector:  selector,
		committer: NewCommitter(gateway, opts.Policy, logger),
		opts:      opts,
		logger:    logger,
	}
}

// run holds the mutable state of one Run call.
type run struct {
	machine  *domain.WorkflowMachine
	request  *domain.PendingRequest
	attempts int
}

// Run resolves token, asks the operator for a decision and commits it.
// It always returns a terminal Result; no gateway call is made after it returns.
func (w *Workflow) Run(ctx context.Context, token domain.Token) domain.Result {
	if err := token.Validate(); err != nil {
		return domain.Result{
			State:  domain.TerminalAborted,
			Reason: domain.ReasonNotFound,
			Err:    rperrors.Wrap(err, rperrors.KindValidation, "approval.Run", "invalid token"),
		}
	}

	machine, err := domain.NewWorkflowMachine()
	if err != nil {
		return domain.Result{State: domain.TerminalAborted, Err: rperrors.InternalWrap(err, "approval.Run", "state machine")}
	}
	machine.Start()

	// The context timer runs on real time; Clock only supplies the deadline
	// shown to the operator.
	deadline := w.opts.Clock.Now().Add(w.opts.Timeout)
	ctx, cancel := context.WithTimeout(ctx, w.opts.Timeout)
	defer cancel()

	r := &run{machine: machine}
	w.logger.Debug("approval started", "token", rperrors.RedactToken(token.String()), "deadline", deadline.Format(time.RFC3339))

	for {
		req, err := w.resolver.Resolve(ctx, token)
		if err != nil {
			if machine.Refreshed() && rperrors.IsKind(err, rperrors.KindExpired) {
				err = stale(err, "request expired while refreshing")
			}
			return w.abort(r, reasonFor(err), err)
		}
		r.request = req
		if err := r.fire(domain.EventResolved); err != nil {
			return w.abort(r, domain.ReasonNone, err)
		}

		if w.opts.ExpectKind != "" && req.Kind != w.opts.ExpectKind {
			return w.abort(r, domain.ReasonRejected, rperrors.Validation("approval.Run",
				fmt.Sprintf("token is for a %s request, not %s", req.Kind, w.opts.ExpectKind)))
		}

		decision, err := w.selector.Select(ctx, req, deadline)
		if err != nil {
			return w.abort(r, selectFailureReason(ctx, err), err)
		}
		if decision.IsCancel() {
			w.logger.Debug("selection cancelled", "cause", decision.Cause)
			return w.abort(r, domain.ReasonForCancel(decision.Cause), nil)
		}
		if err := decision.ValidateFor(req); err != nil {
			return w.abort(r, domain.ReasonNone, rperrors.InternalWrap(err, "approval.Run", "selector returned an invalid decision"))
		}
		if err := r.fire(domain.EventDecided); err != nil {
			return w.abort(r, domain.ReasonNone, err)
		}

		report, err := w.committer.Commit(ctx, token, decision)
		r.attempts += report.Attempts
		if err == nil {
			return w.settle(r, report.Outcome, decision)
		}

		reason := reasonFor(err)
		if reason != domain.ReasonRejected && reason != domain.ReasonNotFound {
			return w.abort(r, reason, err)
		}

		if ferr := machine.Fire(domain.EventRefresh); ferr != nil {
			if errors.Is(ferr, domain.ErrInvalidTransition) && machine.Refreshed() {
				err = stale(err, "decision rejected after refresh")
				return w.abort(r, reasonFor(err), err)
			}
			return w.abort(r, domain.ReasonNone, rperrors.InternalWrap(ferr, "approval.Run", "workflow transition"))
		}
		w.logger.Info("decision rejected, refreshed request", "error", rperrors.RedactError(err))
		r.request = nil
	}
}

// settle finishes a workflow after a definite commit answer.
func (w *Workflow) settle(r *run, outcome domain.CommitOutcome, decision domain.Decision) domain.Result {
	result := r.result()

	switch outcome {
	case domain.OutcomeCommitted:
		if err := r.fire(domain.EventCommitted); err != nil {
			return w.abort(r, domain.ReasonNone, err)
		}
		result.State = domain.TerminalCommitted
		if c, ok := r.request.Candidate(decision.CandidateID); ok {
			result.Candidate = &c
		}
		w.logger.Debug("decision committed", "decision", decision, "attempts", r.attempts)
	case domain.OutcomeConflict:
		if err := r.fire(domain.EventConflict); err != nil {
			return w.abort(r, domain.ReasonNone, err)
		}
		result.State = domain.TerminalConflict
		w.logger.Debug("request already resolved", "attempts", r.attempts)
	default:
		return w.abort(r, domain.ReasonUnknown, rperrors.Newf(rperrors.KindIndeterminate, "unexpected commit outcome %q", outcome))
	}
	return result
}

// abort moves the machine to aborted and builds the result.
func (w *Workflow) abort(r *run, reason domain.Reason, err error) domain.Result {
	if !r.machine.IsDone() {
		if ferr := r.fire(domain.EventAbort); ferr != nil {
			w.logger.Warn("state machine refused abort", "error", ferr)
		}
	}

	result := r.result()
	result.State = domain.TerminalAborted
	result.Reason = reason
	result.Err = err

	if err != nil {
		w.logger.Debug("approval aborted", "reason", reason, "error", rperrors.RedactError(err))
	} else {
		w.logger.Debug("approval aborted", "reason", reason)
	}
	return result
}

func (r *run) fire(event statekit.EventType) error {
	if err := r.machine.Fire(event); err != nil {
		return rperrors.InternalWrap(err, "approval.Run", "workflow transition")
	}
	return nil
}

func (r *run) result() domain.Result {
	return domain.Result{
		Request:        r.request,
		CommitAttempts: r.attempts,
		Refreshed:      r.machine.Refreshed(),
	}
}

// stale marks err as a rejection the gateway repeated after the one refresh.
func stale(err error, msg string) error {
	return rperrors.Wrap(err, rperrors.KindStale, "approval.Run", msg)
}

// reasonFor maps a classified error to an abort reason.
func reasonFor(err error) domain.Reason {
	switch rperrors.GetKind(err) {
	case rperrors.KindExpired:
		return domain.ReasonExpired
	case rperrors.KindNotFound:
		return domain.ReasonNotFound
	case rperrors.KindNotAuthenticated:
		return domain.ReasonNotAuthenticated
	case rperrors.KindRejected:
		return domain.ReasonRejected
	case rperrors.KindStale:
		return domain.ReasonStaleRequest
	case rperrors.KindIndeterminate:
		return domain.ReasonUnknown
	case rperrors.KindCanceled:
		return domain.ReasonUserCancelled
	case rperrors.KindTimeout:
		return domain.ReasonTimedOut
	default:
		return domain.ReasonCommunicationError
	}
}

// selectFailureReason maps a selector error. Context ends are cancellations,
// anything else keeps the error as the cause.
func selectFailureReason(ctx context.Context, err error) domain.Reason {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return domain.ReasonTimedOut
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return domain.ReasonUserCancelled
	default:
		return domain.ReasonNone
	}
}
