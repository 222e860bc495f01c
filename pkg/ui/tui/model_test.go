package tui

import (
	"errors"
	"strings"
	"testing"

	"chatscrape/pkg/driver"
	"chatscrape/pkg/models"

	tea "github.com/charmbracelet/bubbletea"
)

func progressWith(texts ...string) driver.Progress {
	alice := models.Counterpart("Alice")
	p := driver.Progress{Session: "s-1", Counterpart: "Alice", StatusText: "iteration 1: 2 new", Iterations: 1}
	for _, text := range texts {
		p.NewItems = append(p.NewItems, models.Item{Kind: models.KindMessage, Sender: &alice, Content: text})
	}
	p.ItemsSoFar = len(texts)
	return p
}

func TestModelAppliesProgress(t *testing.T) {
	model := NewModel("alice", 3, nil)
	model.maxRecent = 2

	model.Update(ProgressMsg{progressWith("one", "two", "three")})

	if model.items != 3 || model.iterations != 1 {
		t.Errorf("Unexpected counters items=%d iterations=%d", model.items, model.iterations)
	}
	if model.counterpart != "Alice" {
		t.Errorf("Expected counterpart Alice, got %q", model.counterpart)
	}
	if len(model.recent) != 2 || model.recent[1] != "Alice: three" {
		t.Errorf("Expected the two newest lines, got %v", model.recent)
	}
}

func TestQuitKeyRequestsStopOnce(t *testing.T) {
	stops := 0
	model := NewModel("alice", 3, func() { stops++ })
	q := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}

	_, cmd := model.Update(q)
	if cmd != nil {
		t.Error("The first q should not leave the UI while the session runs")
	}
	model.Update(q)

	if stops != 1 {
		t.Errorf("Expected one stop request, got %d", stops)
	}
	if len(model.logMessages) != 1 || model.logMessages[0].Level != "WARN" {
		t.Errorf("Expected a single stop warning, got %+v", model.logMessages)
	}
}

func TestQuitAfterCompletion(t *testing.T) {
	stops := 0
	model := NewModel("alice", 3, func() { stops++ })

	model.Update(CompletedMsg{driver.Completion{Reason: driver.StateFailed, TotalItems: 4, Err: errors.New("boom")}})
	if !model.Finished() {
		t.Fatal("Model should be finished")
	}

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("Expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
	if stops != 0 {
		t.Error("A finished session must not be stopped again")
	}
	if model.logMessages[0].Level != "ERROR" {
		t.Errorf("Expected an error log for a failed session, got %s", model.logMessages[0].Level)
	}
}

func TestViewRendersSession(t *testing.T) {
	model := NewModel("alice", 4, nil)
	model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	model.Update(ProgressMsg{progressWith("see you at 6")})
	model.AddLogMessage("INFO", "Extraction started")

	view := model.View()
	for _, want := range []string{"Alice", "see you at 6", "Extraction started", "SESSION"} {
		if !strings.Contains(view, want) {
			t.Errorf("View should contain %q", want)
		}
	}
}

func TestViewBeforeResize(t *testing.T) {
	model := NewModel("alice", 4, nil)
	if model.View() != "Initializing..." {
		t.Error("Expected placeholder before the first resize")
	}
}

func TestStallRatio(t *testing.T) {
	model := NewModel("alice", 4, nil)
	model.noProgress = 2
	if r := model.stallRatio(); r != 0.5 {
		t.Errorf("Expected 0.5, got %f", r)
	}
	model.noProgress = 9
	if r := model.stallRatio(); r != 1 {
		t.Errorf("Expected the ratio to cap at 1, got %f", r)
	}
}

func TestParseLogLine(t *testing.T) {
	tests := []struct {
		line  string
		level string
		msg   string
	}{
		{"12:00:01 \x1b[33mWARN\x1b[0m | Scroll failed \x1b[36merror\x1b[0m:timeout", "WARN", "Scroll failed error:timeout"},
		{"12:00:01 \x1b[32mINFO\x1b[0m | Extraction started", "INFO", "Extraction started"},
		{"12:00:01 \x1b[31mERRO\x1b[0m | Snapshot failed", "ERROR", "Snapshot failed"},
		{"plain text", "INFO", "plain text"},
	}

	for _, tt := range tests {
		got := parseLogLine(tt.line)
		if got.Level != tt.level || got.Message != tt.msg {
			t.Errorf("parseLogLine(%q) = %+v, want %s %q", tt.line, got, tt.level, tt.msg)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(0); got != "00:00" {
		t.Errorf("Unexpected %s", got)
	}
	if got := formatDuration(3723e9); got != "01:02:03" {
		t.Errorf("Unexpected %s", got)
	}
}
