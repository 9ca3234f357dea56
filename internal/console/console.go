// Package console prints the launcher's operator-facing messages.
//
// All output goes to the writer given to New (stderr in production):
// stdout belongs to the wrapped server's protocol stream and the launcher
// never writes to it. Printer holds no mutable state and is safe to share
// between the resolver, the provisioner, and the supervisor.
package console

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
)

// Printer writes styled, line-oriented messages.
type Printer struct {
	w        io.Writer
	renderer *lipgloss.Renderer
}

// New creates a Printer for w. Colors are emitted only when w is a
// terminal that supports them, as detected by lipgloss.
func New(w io.Writer) *Printer {
	return &Printer{w: w, renderer: lipgloss.NewRenderer(w)}
}

// Discard returns a Printer that writes nothing.
func Discard() *Printer {
	return New(io.Discard)
}

// Error prints a red error line prefixed with "Error: ".
func (p *Printer) Error(format string, args ...any) {
	p.line(errorStyle, "Error: "+fmt.Sprintf(format, args...))
}

// Warn prints a yellow warning line.
func (p *Printer) Warn(format string, args ...any) {
	p.line(warnStyle, fmt.Sprintf(format, args...))
}

// OK prints a green success line.
func (p *Printer) OK(format string, args ...any) {
	p.line(okStyle, fmt.Sprintf(format, args...))
}

// Info prints a blue informational line.
func (p *Printer) Info(format string, args ...any) {
	p.line(infoStyle, fmt.Sprintf(format, args...))
}

// Detail prints an unstyled, indented line, used for remediation steps.
func (p *Printer) Detail(format string, args ...any) {
	fmt.Fprintf(p.w, "  %s\n", fmt.Sprintf(format, args...))
}

// Blank prints an empty line.
func (p *Printer) Blank() {
	fmt.Fprintln(p.w)
}

func (p *Printer) line(style lipgloss.Style, text string) {
	fmt.Fprintln(p.w, style.Renderer(p.renderer).Render(text))
}
