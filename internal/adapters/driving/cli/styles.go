package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// palette is the colour scheme used for terminal output.
var palette = struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Border    lipgloss.Color
}{
	Primary:   lipgloss.Color("#7C3AED"), // Purple
	Secondary: lipgloss.Color("#06B6D4"), // Cyan
	Muted:     lipgloss.Color("#6C7086"), // Medium gray
	Success:   lipgloss.Color("#A6E3A1"), // Green
	Warning:   lipgloss.Color("#F9E2AF"), // Yellow
	Error:     lipgloss.Color("#F38BA8"), // Red
	Border:    lipgloss.Color("#45475A"), // Border gray
}

// styles renders section headings, labels and notices.
type styles struct {
	Title   lipgloss.Style
	Heading lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}

// newStyles returns coloured styles when w is a terminal and plain ones otherwise.
func newStyles(w io.Writer) styles {
	if !isTerminal(w) {
		plain := lipgloss.NewStyle()
		return styles{
			Title: plain, Heading: plain, Label: plain, Muted: plain,
			Success: plain, Warning: plain, Error: plain, Box: plain,
		}
	}

	return styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(palette.Primary),
		Heading: lipgloss.NewStyle().Bold(true).Foreground(palette.Secondary),
		Label:   lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(palette.Muted),
		Success: lipgloss.NewStyle().Foreground(palette.Success),
		Warning: lipgloss.NewStyle().Foreground(palette.Warning),
		Error:   lipgloss.NewStyle().Foreground(palette.Error),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Border).
			Padding(0, 1),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
