package tui

import (
	"bytes"
	"sync"

	"chatscrape/pkg/driver"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI is a full-screen progress view. It implements driver.Reporter, and
// io.Writer so the console logger can be pointed at it.
type TUI struct {
	program *tea.Program
	model   *Model

	mu      sync.Mutex
	partial []byte
}

// NewTUI creates a TUI. onStop is called when the user presses q.
func NewTUI(name string, threshold int, onStop func(), opts ...tea.ProgramOption) *TUI {
	model := NewModel(name, threshold, onStop)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &TUI{
		program: tea.NewProgram(&model, opts...),
		model:   &model,
	}
}

// Run blocks until the user leaves the UI
func (t *TUI) Run() error {
	_, err := t.program.Run()
	return err
}

// Quit leaves the UI
func (t *TUI) Quit() {
	t.program.Quit()
}

// Progress forwards a progress report to the UI
func (t *TUI) Progress(p driver.Progress) {
	t.program.Send(ProgressMsg{p})
}

// Completed forwards the completion to the UI
func (t *TUI) Completed(c driver.Completion) {
	t.program.Send(CompletedMsg{c})
}

// Write splits console log output into lines and shows each as a log entry
func (t *TUI) Write(p []byte) (int, error) {
	t.mu.Lock()
	t.partial = append(t.partial, p...)
	var lines []string
	for {
		i := bytes.IndexByte(t.partial, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(t.partial[:i]))
		t.partial = t.partial[i+1:]
	}
	t.mu.Unlock()

	for _, line := range lines {
		t.program.Send(parseLogLine(line))
	}
	return len(p), nil
}

// Log adds a message to the log panel
func (t *TUI) Log(level, message string) {
	t.program.Send(LogMsg{Level: level, Message: message})
}

// Lines returns the recent lines currently shown
func (t *TUI) Lines() []string {
	t.model.mu.RLock()
	defer t.model.mu.RUnlock()
	return append([]string(nil), t.model.recent...)
}
