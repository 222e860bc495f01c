package tui

import (
	"regexp"
	"strings"
	"time"

	"chatscrape/pkg/driver"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ProgressMsg carries a driver progress report
type ProgressMsg struct{ driver.Progress }

// CompletedMsg carries the session's completion
type CompletedMsg struct{ driver.Completion }

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Init starts the spinner and the refresh tick
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tickCmd()

	case ProgressMsg:
		m.ApplyProgress(msg.Progress)
		return m, nil

	case CompletedMsg:
		m.ApplyCompletion(msg.Completion)
		level := "SUCCESS"
		if msg.Reason == driver.StateFailed {
			level = "ERROR"
		}
		m.AddLogMessage(level, "Session "+string(msg.Reason)+", press q to exit")
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input. q asks the session to stop and,
// once it has finished, leaves the UI.
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "esc":
		if m.Finished() {
			return m, tea.Quit
		}
		if m.RequestStop() {
			m.AddLogMessage("WARN", "Stop requested, finishing current pass")
		}
		return m, nil

	case "ctrl+c":
		m.RequestStop()
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = nil
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

var levelTokens = map[string]string{
	"DEBG": "DEBUG",
	"INFO": "INFO",
	"WARN": "WARN",
	"ERRO": "ERROR",
	"FATL": "FATAL",
}

// parseLogLine turns one console log line into a LogMsg
func parseLogLine(line string) LogMsg {
	fields := strings.Fields(ansiEscape.ReplaceAllString(line, ""))
	for i, f := range fields {
		level, ok := levelTokens[f]
		if !ok {
			continue
		}
		rest := fields[i+1:]
		if len(rest) > 0 && rest[0] == "|" {
			rest = rest[1:]
		}
		return LogMsg{Level: level, Message: strings.Join(rest, " ")}
	}
	return LogMsg{Level: "INFO", Message: strings.Join(fields, " ")}
}
