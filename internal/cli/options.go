package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles holds the CLI styling configuration.
type Styles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
}

// DefaultStyles returns the default CLI styles.
func DefaultStyles() Styles {
	return Styles{
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// printer writes styled lines to one stream.
type printer struct {
	w      io.Writer
	styles Styles
}

func newPrinter(w io.Writer) printer {
	return printer{w: w, styles: styles}
}

func (p printer) Success(msg string) { p.println(p.styles.Success.Render("✓ " + msg)) }
func (p printer) Error(msg string)   { p.println(p.styles.Error.Render("✗ " + msg)) }

// Outcome prints an approval outcome line exactly as worded, colored by ok.
func (p printer) Outcome(msg string, ok bool) {
	style := p.styles.Error
	if ok {
		style = p.styles.Success
	}
	p.println(style.Render(msg))
}

func (p printer) println(s string) {
	_, _ = fmt.Fprintln(p.w, s)
}
