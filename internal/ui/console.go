// Package ui renders user-facing status lines and the progress spinner.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	labelStyle   = lipgloss.NewStyle().Faint(true)
)

// Console prints styled status lines to a writer.
type Console struct {
	w io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Heading(format string, args ...any) {
	fmt.Fprintln(c.w, headingStyle.Render(fmt.Sprintf(format, args...)))
}

func (c *Console) Success(format string, args ...any) {
	fmt.Fprintln(c.w, successStyle.Render("✔ "+fmt.Sprintf(format, args...)))
}

func (c *Console) Error(format string, args ...any) {
	fmt.Fprintln(c.w, errorStyle.Render("✘ "+fmt.Sprintf(format, args...)))
}

// Path prints an indented "label: path" line.
func (c *Console) Path(label, path string) {
	fmt.Fprintf(c.w, "   %s %s\n", labelStyle.Render("- "+label+":"), pathStyle.Render(path))
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
