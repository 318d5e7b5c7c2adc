// Package ui provides terminal user interface components for jwctl.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jumpwire-ai/jwctl/internal/approval/domain"
	"github.com/jumpwire-ai/jwctl/internal/approval/ports"
)

// tickMsg drives the countdown and the deadline check.
type tickMsg time.Time

// interruptMsg is sent when the caller's context is cancelled.
type interruptMsg struct{}

// deadlineMsg is sent when the caller's context deadline passes.
type deadlineMsg struct{}

// browserOpenedMsg reports the result of launching the browser.
type browserOpenedMsg struct {
	err error
}

// ApprovalModel is the Bubble Tea model for the approval prompt.
type ApprovalModel struct {
	selection   *Selection
	deadline    time.Time
	remaining   time.Duration
	browser     ports.BrowserLauncher
	browserErr  error
	browserDone bool
	width       int
	keymap      approvalKeyMap
	styles      approvalStyles
}

type approvalKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Select  key.Binding
	Confirm key.Binding
	Deny    key.Binding
	Cancel  key.Binding
	Help    key.Binding
}

type approvalStyles struct {
	title     lipgloss.Style
	subtitle  lipgloss.Style
	success   lipgloss.Style
	error     lipgloss.Style
	warning   lipgloss.Style
	subtle    lipgloss.Style
	bold      lipgloss.Style
	cursor    lipgloss.Style
	statusBar lipgloss.Style
}

func defaultKeyMap() approvalKeyMap {
	return approvalKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("k/up", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("j/down", "move down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "confirm"),
		),
		Deny: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "deny"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q/esc", "cancel"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

func defaultStyles() approvalStyles {
	return approvalStyles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Padding(0, 1),
		subtitle: lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
		success:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		subtle:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		bold:     lipgloss.NewStyle().Bold(true),
		cursor:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		statusBar: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1),
	}
}

// NewApprovalModel creates the prompt for req. browser may be nil for
// database connections.
func NewApprovalModel(req *domain.PendingRequest, deadline time.Time, browser ports.BrowserLauncher) ApprovalModel {
	return ApprovalModel{
		selection: NewSelection(req),
		deadline:  deadline,
		remaining: time.Until(deadline),
		browser:   browser,
		keymap:    defaultKeyMap(),
		styles:    defaultStyles(),
	}
}

// Init implements tea.Model. For SSO logins it opens the browser once.
func (m ApprovalModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tick()}
	req := m.selection.Request()
	if req.Kind == domain.KindSSOLogin && req.SSO != nil && m.browser != nil {
		browser, target := m.browser, req.SSO.AuthorizationURL
		cmds = append(cmds, func() tea.Msg {
			return browserOpenedMsg{err: browser.Open(target)}
		})
	}
	return tea.Batch(cmds...)
}

func (m ApprovalModel) tick() tea.Cmd {
	interval := time.Second
	if r := time.Until(m.deadline); r < interval {
		interval = max(r, time.Millisecond)
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m ApprovalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m.handle(EventResize)

	case tickMsg:
		now := time.Time(msg)
		if !now.Before(m.deadline) {
			return m.handle(EventDeadline)
		}
		m.remaining = m.deadline.Sub(now)
		return m, m.tick()

	case deadlineMsg:
		return m.handle(EventDeadline)

	case interruptMsg:
		return m.handle(EventInterrupt)

	case browserOpenedMsg:
		m.browserDone = true
		m.browserErr = msg.err
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Cancel):
			return m.handle(EventCancel)
		case key.Matches(msg, m.keymap.Up):
			return m.handle(EventUp)
		case key.Matches(msg, m.keymap.Down):
			return m.handle(EventDown)
		case key.Matches(msg, m.keymap.Select):
			return m.handle(EventSelect)
		case key.Matches(msg, m.keymap.Confirm):
			return m.handle(EventConfirm)
		case key.Matches(msg, m.keymap.Deny):
			return m.handle(EventDeny)
		case key.Matches(msg, m.keymap.Help):
			return m.handle(EventHelp)
		}
	}

	return m, nil
}

// handle feeds ev to the selection and quits once it is done.
func (m ApprovalModel) handle(ev EventType) (tea.Model, tea.Cmd) {
	if m.selection.Handle(Event{Type: ev}) {
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m ApprovalModel) View() string {
	if m.selection.Done() {
		return ""
	}

	req := m.selection.Request()
	var b strings.Builder

	if req.Kind == domain.KindSSOLogin {
		b.WriteString(m.styles.title.Render("Confirm SSO Login"))
		b.WriteString("\n\n")
		b.WriteString(m.renderSSO())
	} else {
		b.WriteString(m.styles.title.Render("Approve Database Connection"))
		b.WriteString("\n\n")
		b.WriteString(m.renderCandidates())
	}
	b.WriteString("\n")

	if m.selection.ShowHelp() {
		b.WriteString(m.renderHelp())
	} else {
		b.WriteString(m.renderPrompt())
	}

	return b.String()
}

func (m ApprovalModel) renderCandidates() string {
	var b strings.Builder

	b.WriteString(m.styles.subtitle.Render("Select the upstream database for this connection"))
	b.WriteString("\n\n")

	for i, c := range m.selection.Request().Candidates {
		if i == m.selection.Cursor() {
			b.WriteString(m.styles.cursor.Render("> " + c.Label()))
		} else {
			b.WriteString("  " + c.Label())
		}
		if c.DatabaseType != "" {
			b.WriteString(m.styles.subtle.Render(fmt.Sprintf(" (%s)", c.DatabaseType)))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (m ApprovalModel) renderSSO() string {
	var b strings.Builder
	sso := m.selection.Request().SSO

	provider := "single sign-on"
	if sso != nil && sso.ProviderName != "" {
		provider = sso.ProviderName
	}
	b.WriteString(fmt.Sprintf("%s %s\n", m.styles.bold.Render("Provider:"), provider))

	switch {
	case m.browserErr != nil:
		b.WriteString(m.styles.warning.Render("Could not open a browser: " + m.browserErr.Error()))
		b.WriteString("\n")
		b.WriteString("Open this URL to continue:\n")
		if sso != nil {
			b.WriteString(m.styles.subtle.Render(sso.AuthorizationURL))
		}
		b.WriteString("\n")
	case m.browserDone:
		b.WriteString(m.styles.success.Render("Opened the login page in your browser."))
		b.WriteString("\n")
	default:
		b.WriteString(m.styles.subtle.Render("Opening the login page in your browser..."))
		b.WriteString("\n")
	}

	return b.String()
}

func (m ApprovalModel) renderPrompt() string {
	var b strings.Builder

	question := "Approve the highlighted database?"
	var hints []string
	if m.selection.Request().Kind == domain.KindSSOLogin {
		question = "Did you complete the login?"
		hints = []string{
			m.styles.success.Render("[y]es"),
			m.styles.error.Render("[n]o"),
		}
	} else {
		hints = []string{
			m.styles.success.Render("[enter] approve"),
			m.styles.subtle.Render("[j/k] move"),
			m.styles.error.Render("[q] cancel"),
		}
	}
	hints = append(hints, m.styles.subtle.Render("[?]help"))

	b.WriteString(m.styles.statusBar.Render(question))
	b.WriteString("  ")
	b.WriteString(m.renderCountdown())
	b.WriteString("\n\n  ")
	b.WriteString(strings.Join(hints, "  "))
	b.WriteString("\n")

	return b.String()
}

func (m ApprovalModel) renderCountdown() string {
	secs := int(m.remaining.Round(time.Second) / time.Second)
	text := fmt.Sprintf("expires in %ds", max(secs, 0))
	if secs <= 10 {
		return m.styles.warning.Render(text)
	}
	return m.styles.subtle.Render(text)
}

func (m ApprovalModel) renderHelp() string {
	var b strings.Builder

	b.WriteString(m.styles.bold.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")

	shortcuts := []struct {
		key  string
		desc string
	}{
		{"k / Up", "Previous database"},
		{"j / Down", "Next database"},
		{"Enter", "Approve highlighted database"},
		{"?", "Toggle help"},
		{"q / Esc", "Cancel"},
	}
	if m.selection.Request().Kind == domain.KindSSOLogin {
		shortcuts = []struct {
			key  string
			desc string
		}{
			{"y / Enter", "Confirm the login"},
			{"n / Esc", "Deny the login"},
			{"?", "Toggle help"},
			{"q / Ctrl+C", "Cancel"},
		}
	}

	for _, s := range shortcuts {
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			m.styles.success.Render(fmt.Sprintf("%-12s", s.key)),
			m.styles.subtle.Render(s.desc)))
	}

	b.WriteString("\n")
	b.WriteString(m.styles.subtle.Render("Press ? to close help"))
	b.WriteString("\n")

	return b.String()
}

// Decision returns the operator's decision once the prompt has ended.
func (m ApprovalModel) Decision() (domain.Decision, bool) {
	return m.selection.Decision()
}
