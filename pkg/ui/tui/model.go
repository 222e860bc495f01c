package tui

import (
	"sync"
	"time"

	"chatscrape/pkg/driver"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

// Model represents the TUI model
type Model struct {
	spinner spinner.Model
	stall   progress.Model

	// Session state
	name        string
	counterpart string
	sessionID   string
	items       int
	iterations  int
	noProgress  int
	threshold   int
	status      string
	state       driver.State
	completion  *driver.Completion
	startTime   time.Time

	recent    []string
	maxRecent int

	// UI state
	width          int
	height         int
	showHelp       bool
	stopRequested  bool
	onStop         func()
	logMessages    []LogMessage
	maxLogMessages int

	mu sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a model for one conversation. threshold is the number
// of unproductive iterations that ends the session; onStop is called once
// when the user asks to stop.
func NewModel(name string, threshold int, onStop func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accent)

	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 30

	return Model{
		spinner:        s,
		stall:          bar,
		name:           name,
		threshold:      threshold,
		state:          driver.StateRunning,
		status:         "starting",
		startTime:      time.Now(),
		maxRecent:      12,
		onStop:         onStop,
		maxLogMessages: 50,
	}
}

// ApplyProgress records a progress report
func (m *Model) ApplyProgress(p driver.Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessionID = p.Session
	m.items = p.ItemsSoFar
	m.iterations = p.Iterations
	m.noProgress = p.NoProgress
	m.status = p.StatusText
	if p.Counterpart != "" {
		m.counterpart = p.Counterpart
	}

	for _, item := range p.NewItems {
		m.recent = append(m.recent, item.Line(true))
	}
	if len(m.recent) > m.maxRecent {
		m.recent = m.recent[len(m.recent)-m.maxRecent:]
	}
}

// ApplyCompletion records the terminal report
func (m *Model) ApplyCompletion(c driver.Completion) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.completion = &c
	m.state = c.Reason
	m.items = c.TotalItems
	m.iterations = c.TotalIterations
}

// RequestStop asks the session to stop. It reports whether this call was
// the one that triggered the stop.
func (m *Model) RequestStop() bool {
	m.mu.Lock()
	if m.stopRequested || m.state.Terminal() {
		m.mu.Unlock()
		return false
	}
	m.stopRequested = true
	onStop := m.onStop
	m.mu.Unlock()

	if onStop != nil {
		onStop()
	}
	return true
}

// Finished reports whether the session reached a terminal state
func (m *Model) Finished() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Terminal()
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := dimWhite
	switch level {
	case "ERROR", "FATAL":
		color = red
	case "WARN":
		color = orange
	case "SUCCESS":
		color = green
	case "INFO":
		color = accent
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// stallRatio is how close the session is to the no-progress threshold
func (m *Model) stallRatio() float64 {
	if m.threshold <= 0 {
		return 0
	}
	r := float64(m.noProgress) / float64(m.threshold)
	if r > 1 {
		r = 1
	}
	return r
}
