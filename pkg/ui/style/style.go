// Package style holds the terminal styles for typewriter's user-facing
// output lines.
package style

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

var (
	bold = lipgloss.NewStyle().Bold(true)
	dim  = lipgloss.NewStyle().Faint(true)
)

// styled reports whether stdout should receive styled output
func styled() bool {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return false
	}
	return termenv.ColorProfile() != termenv.Ascii
}

// Bold renders s bold when stdout is a capable terminal
func Bold(s string) string {
	if !styled() {
		return s
	}
	return bold.Render(s)
}

// Dim renders s faint when stdout is a capable terminal
func Dim(s string) string {
	if !styled() {
		return s
	}
	return dim.Render(s)
}

// AppliedLine formats the per-file success status line
func AppliedLine(source, destination, origin string) string {
	return fmt.Sprintf("[%s] %s to %s %s",
		Bold("APPLIED"), source, destination, Dim(fmt.Sprintf("[ref: %s]", origin)))
}
