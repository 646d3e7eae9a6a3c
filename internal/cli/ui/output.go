// Package ui renders CLI output.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"resolwe-go/sdk/pkg/models"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	boldColor    = color.New(color.Bold)
)

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...any) {
	successColor.Fprintf(os.Stderr, "✓ %s\n", fmt.Sprintf(format, args...))
}

// PrintError prints an error message
func PrintError(format string, args ...any) {
	errorColor.Fprintf(os.Stderr, "✗ %s\n", fmt.Sprintf(format, args...))
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...any) {
	warningColor.Fprintf(os.Stderr, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...any) {
	infoColor.Fprintf(os.Stderr, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Bold renders s in bold.
func Bold(s string) string {
	return boldColor.Sprint(s)
}

// StatusColor picks the colour for a processing status.
func StatusColor(s models.Status) *color.Color {
	switch s.Phase() {
	case models.PhaseSucceeded:
		return successColor
	case models.PhaseFailed:
		return errorColor
	case models.PhaseRunning, models.PhasePreparing:
		return infoColor
	default:
		return warningColor
	}
}

// Status renders a status code with its phase, e.g. "PR (running)".
func Status(s models.Status) string {
	return StatusColor(s).Sprintf("%s (%s)", s, s.Phase())
}

// Progress renders a progress fraction as a percentage.
func Progress(p float64) string {
	return fmt.Sprintf("%3.0f%%", p*100)
}

// PrintDataLine writes a one-line summary of a snapshot.
func PrintDataLine(w io.Writer, d *models.Data) {
	fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", d.ID, Status(d.Status), Progress(d.Progress), d.Name)
}
