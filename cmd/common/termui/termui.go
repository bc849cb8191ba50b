// Package termui holds terminal helpers shared by the TUI and table output.
package termui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// DefaultTerminalWidth is used when the width cannot be determined.
const DefaultTerminalWidth = 80

// TerminalWidth returns the width of stdout, or DefaultTerminalWidth.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	return width
}

// IsTerminal reports whether both stdin and stdout are terminals.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Truncate shortens s to fit maxWidth display cells, ending in "…" when cut.
// Wide characters count as two cells.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}

	var b strings.Builder
	width := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if width+rw > maxWidth-1 {
			break
		}
		b.WriteRune(r)
		width += rw
	}
	return b.String() + "…"
}

// Pad truncates or right-pads s to exactly width cells.
func Pad(s string, width int) string {
	s = Truncate(s, width)
	if w := lipgloss.Width(s); w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

// Bar renders v in [0,1] as a fixed-width meter.
func Bar(v float64, width int) string {
	filled := int(v*float64(width) + 0.5)
	filled = max(min(filled, width), 0)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
