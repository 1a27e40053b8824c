// Package util holds small string helpers shared by the terminal
// surfaces: the port picker and the ports listing both clamp device
// descriptions to the available width.
package util

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// TruncateString truncates a string to maxLen runes, adding "..." if
// truncated. It counts runes, not columns, and does not understand ANSI
// escape codes; for styled terminal output use TruncateANSI.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// TruncateANSI truncates a string to maxWidth visual columns, adding
// "..." if truncated. Escape sequences are preserved and wide
// characters are counted by their column width, so styled picker rows
// stay intact when clamped.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	// ansi.Truncate counts the ellipsis against the final width
	return ansi.Truncate(s, maxWidth, "...")
}
