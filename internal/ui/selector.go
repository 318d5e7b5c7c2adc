package ui

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/jumpwire-ai/jwctl/internal/approval/domain"
	"github.com/jumpwire-ai/jwctl/internal/approval/ports"
	rperrors "github.com/jumpwire-ai/jwctl/internal/errors"
)

// teaProgram is the subset of *tea.Program the selector uses.
type teaProgram interface {
	Run() (tea.Model, error)
	Send(msg tea.Msg)
}

// newApprovalProgram builds the program; tests replace it.
var newApprovalProgram = func(model tea.Model, opts ...tea.ProgramOption) teaProgram {
	return tea.NewProgram(model, opts...)
}

// IsInteractive reports whether both stdin and stdout are terminals.
func IsInteractive() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// TerminalSelector runs the approval prompt on a terminal.
// It implements ports.Selector.
type TerminalSelector struct {
	in          io.Reader
	out         io.Writer
	browser     ports.BrowserLauncher
	interactive func() bool
}

var _ ports.Selector = (*TerminalSelector)(nil)

// SelectorOption configures a TerminalSelector.
type SelectorOption func(*TerminalSelector)

// WithIO sets the terminal streams.
func WithIO(in io.Reader, out io.Writer) SelectorOption {
	return func(s *TerminalSelector) {
		s.in = in
		s.out = out
	}
}

// WithBrowser sets the browser launcher used for SSO logins.
func WithBrowser(b ports.BrowserLauncher) SelectorOption {
	return func(s *TerminalSelector) {
		s.browser = b
	}
}

// WithInteractiveCheck replaces the terminal detection.
func WithInteractiveCheck(fn func() bool) SelectorOption {
	return func(s *TerminalSelector) {
		s.interactive = fn
	}
}

// NewTerminalSelector creates a selector on stdin/stdout.
func NewTerminalSelector(opts ...SelectorOption) *TerminalSelector {
	s := &TerminalSelector{
		in:          os.Stdin,
		out:         os.Stdout,
		browser:     NewBrowser(),
		interactive: IsInteractive,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select implements ports.Selector.
func (s *TerminalSelector) Select(ctx context.Context, req *domain.PendingRequest, deadline time.Time) (domain.Decision, error) {
	const op = "ui.Select"

	if req == nil {
		return domain.Decision{}, rperrors.Internal(op, "no request to present")
	}
	if !s.interactive() {
		return domain.Decision{}, rperrors.Validation(op, "approval requires an interactive terminal")
	}
	if !time.Now().Before(deadline) {
		return domain.Cancel(domain.CauseTimedOut), nil
	}
	if err := ctx.Err(); err != nil {
		return cancelFor(err), nil
	}

	model := NewApprovalModel(req, deadline, s.browser)
	p := newApprovalProgram(model, tea.WithInput(s.in), tea.WithOutput(s.out))

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				p.Send(deadlineMsg{})
			} else {
				p.Send(interruptMsg{})
			}
		case <-done:
		}
	}()

	final, err := p.Run()
	close(done)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cancelFor(ctxErr), nil
		}
		if errors.Is(err, tea.ErrInterrupted) {
			return domain.Cancel(domain.CauseInterrupted), nil
		}
		return domain.Decision{}, rperrors.IOWrap(err, op, "terminal prompt failed")
	}

	m, ok := final.(ApprovalModel)
	if !ok {
		return domain.Decision{}, rperrors.Internal(op, "unexpected model type returned from TUI")
	}
	if d, ok := m.Decision(); ok {
		return d, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return cancelFor(ctxErr), nil
	}
	return domain.Cancel(domain.CauseUserCancelled), nil
}

func cancelFor(ctxErr error) domain.Decision {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return domain.Cancel(domain.CauseTimedOut)
	}
	return domain.Cancel(domain.CauseInterrupted)
}
