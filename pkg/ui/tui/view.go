package tui

import (
	"fmt"
	"strings"
	"time"

	"chatscrape/pkg/driver"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	half := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left, m.renderStats(half), m.renderRecent(half))
	right := m.renderLogs(half)

	sections := []string{
		m.renderHeader(),
		lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right),
	}
	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("q stop • ? help"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	title := m.name
	if m.counterpart != "" {
		title = m.counterpart
	}
	if title == "" {
		title = "conversation"
	}

	indicator := m.spinner.View()
	if m.state.Terminal() {
		indicator = "•"
	}
	return headerStyle.Render(fmt.Sprintf("%s chatscrape › %s", indicator, title))
}

func (m *Model) renderStats(width int) string {
	state := string(m.state)
	if m.stopRequested && !m.state.Terminal() {
		state = "stopping"
	}
	style := stateStyle(m.state.Terminal(), m.state == driver.StateFailed, m.stopRequested)

	elapsed := time.Since(m.startTime)
	if m.completion != nil {
		elapsed = m.completion.Duration
	}

	rows := []string{
		stat("State:", style.Render(state)),
		stat("Items:", statsValueStyle.Render(fmt.Sprintf("%d", m.items))),
		stat("Iterations:", statsValueStyle.Render(fmt.Sprintf("%d", m.iterations))),
		stat("Elapsed:", statsValueStyle.Render(formatDuration(elapsed))),
		stat("Status:", lineStyle.Render(m.status)),
		stat("Stall:", m.stall.ViewAs(m.stallRatio())+statsValueStyle.Render(fmt.Sprintf(" %d/%d", m.noProgress, m.threshold))),
	}
	if m.completion != nil && m.completion.Err != nil {
		rows = append(rows, errorStyle.Render(truncate(m.completion.Err.Error(), width-4)))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, append([]string{titleStyle.Render(" SESSION ")}, rows...)...),
	)
}

func (m *Model) renderRecent(width int) string {
	lines := make([]string, 0, len(m.recent))
	for _, l := range m.recent {
		lines = append(lines, lineStyle.Render(truncate(l, width-4)))
	}
	if len(lines) == 0 {
		lines = append(lines, lineStyle.Render("Nothing extracted yet"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, append([]string{titleStyle.Render(" RECENT ")}, lines...)...),
	)
}

func (m *Model) renderLogs(width int) string {
	start := len(m.logMessages) - 15
	if start < 0 {
		start = 0
	}

	var logs []string
	for _, log := range m.logMessages[start:] {
		logs = append(logs, fmt.Sprintf("%s %s %s",
			logTimestampStyle.Render(log.Time.Format("15:04:05")),
			lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level)),
			lineStyle.Render(truncate(log.Message, width-26)),
		))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lineStyle.Render("No logs yet...")
	}

	height := m.height - 6
	if height < 5 {
		height = 5
	}
	return panelStyle.Width(width).Height(height).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(" LOGS "), content),
	)
}

func (m *Model) renderHelp() string {
	return panelStyle.Width(m.width - 2).Render(`  q/esc   stop after the current pass, then quit once finished
  ctrl+c  stop and quit immediately
  ctrl+l  clear logs
  ?       toggle this help`)
}

func stat(label, value string) string {
	return statsLabelStyle.Render(label) + " " + value
}

func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
