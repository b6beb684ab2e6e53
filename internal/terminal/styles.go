// Package terminal renders conversation events on a text terminal.
package terminal

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Styles holds the lipgloss styles used for transcript output.
type Styles struct {
	User      lipgloss.Style
	Assistant lipgloss.Style
	Label     lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	SQL       lipgloss.Style
}

// NewStyles builds styles bound to r.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		User:      r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "75"}),
		Assistant: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "235", Dark: "252"}),
		Label:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("135")),
		Muted:     r.NewStyle().Foreground(lipgloss.Color("244")),
		Success:   r.NewStyle().Foreground(lipgloss.Color("35")),
		Error:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("160")),
		SQL:       r.NewStyle().Foreground(lipgloss.Color("108")).PaddingLeft(2),
	}
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// newRenderer returns a lipgloss renderer for w. Colours are stripped when
// noColor is set or w is not a terminal.
func newRenderer(w io.Writer, noColor bool) *lipgloss.Renderer {
	if noColor || !IsTTY(w) {
		return lipgloss.NewRenderer(w, termenv.WithProfile(termenv.Ascii))
	}
	return lipgloss.NewRenderer(w, termenv.WithColorCache(true))
}
