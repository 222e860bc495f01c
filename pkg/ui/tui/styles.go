package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent   = lipgloss.Color("#00D7FF")
	magenta  = lipgloss.Color("#D75FD7")
	green    = lipgloss.Color("#5FD75F")
	yellow   = lipgloss.Color("#FFD75F")
	orange   = lipgloss.Color("#FF8700")
	red      = lipgloss.Color("#FF5F5F")
	dimWhite = lipgloss.Color("#B0B0B0")
	darkBg   = lipgloss.Color("#1C1C1C")

	headerStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(magenta).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Background(magenta).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1)

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(yellow)

	lineStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	successStyle = lipgloss.NewStyle().
			Foreground(green).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(red).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(orange).
			Bold(true)

	logTimestampStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 0, 0, 1)
)

// stateStyle colors a session state
func stateStyle(done bool, failed bool, stopping bool) lipgloss.Style {
	switch {
	case failed:
		return errorStyle
	case done:
		return successStyle
	case stopping:
		return warningStyle
	default:
		return statsValueStyle
	}
}
