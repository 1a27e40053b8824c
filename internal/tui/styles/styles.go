// Package styles holds the shared lipgloss palette for espbridge's
// terminal output: the port picker and the styled ports/status listings.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - all meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray

	// Convenience styles for colors
	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)
	Text      = lipgloss.NewStyle().Foreground(TextColor)

	// Base styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	// Help bar
	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	// Picker list items
	PickerItem = lipgloss.NewStyle().
			Foreground(TextColor).
			Padding(0, 1)

	PickerItemSelected = lipgloss.NewStyle().
				Foreground(TextColor).
				Background(PrimaryColor).
				Bold(true).
				Padding(0, 1)

	// Message styles
	ErrorMsg = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	SuccessMsg = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	WarningMsg = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	// Listing styles for ports/status output
	ListHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(MutedColor)

	ListPath = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor)

	ListDetail = lipgloss.NewStyle().
			Foreground(MutedColor)
)

// SessionColor returns the color for a lock/session liveness state.
func SessionColor(state string) lipgloss.Color {
	switch state {
	case "running":
		return SecondaryColor
	case "stale":
		return WarningColor
	case "stopped":
		return MutedColor
	default:
		return MutedColor
	}
}

// SessionIcon returns an icon for a lock/session liveness state.
func SessionIcon(state string) string {
	switch state {
	case "running":
		return "●"
	case "stale":
		return "✗"
	case "stopped":
		return "○"
	default:
		return "○"
	}
}
