package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chatscrape/pkg/models"
)

func fixedManager(t *testing.T) *Manager {
	t.Helper()
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	manager.now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }
	return manager
}

func transcriptItems() []models.Item {
	you := models.Viewer()
	alice := models.Counterpart("Alice")
	return []models.Item{
		{Kind: models.KindMessage, Sender: &you, Content: "on my way", Timestamp: "9:01 PM", Sequence: 1},
		{Kind: models.KindMessage, Sender: &alice, Content: "are you coming?", Sequence: 2},
		{Kind: models.KindDateMarker, Content: "Today", Sequence: 3},
	}
}

func TestExportText(t *testing.T) {
	manager := fixedManager(t)

	paths, err := manager.Export(&Transcript{Name: "alice", Items: transcriptItems()}, ExportOptions{
		Order:        OrderChronological,
		IncludeDates: true,
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	want := filepath.Join(manager.GetOutputDir(), "alice-20260314-092653.txt")
	if len(paths) != 1 || paths[0] != want {
		t.Fatalf("Expected [%s], got %v", want, paths)
	}

	content, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("Failed to read transcript: %v", err)
	}
	expected := "--- Today ---\nAlice: are you coming?\nYou: on my way\n"
	if string(content) != expected {
		t.Errorf("Unexpected transcript:\n%s", content)
	}

	if _, err := os.Stat(want + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file should not remain after export")
	}
}

func TestExportDiscoveryOrderWithoutDates(t *testing.T) {
	manager := fixedManager(t)

	paths, err := manager.Export(&Transcript{Name: "alice", Items: transcriptItems()}, ExportOptions{
		IncludeTimestamps: true,
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	content, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("Failed to read transcript: %v", err)
	}
	expected := "You [9:01 PM]: on my way\nAlice: are you coming?\n"
	if string(content) != expected {
		t.Errorf("Unexpected transcript:\n%s", content)
	}
}

func TestExportJSON(t *testing.T) {
	manager := fixedManager(t)

	paths, err := manager.Export(&Transcript{Name: "Alice Smith", SessionID: "s-1", Status: "completed", Items: transcriptItems()}, ExportOptions{
		Order:   OrderDiscovery,
		Formats: []string{FormatText, FormatJSON},
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("Expected two files, got %v", paths)
	}
	if !strings.HasSuffix(paths[1], "Alice-Smith-20260314-092653.json") {
		t.Errorf("Unexpected JSON path %s", paths[1])
	}

	data, err := os.ReadFile(paths[1])
	if err != nil {
		t.Fatalf("Failed to read JSON: %v", err)
	}
	var decoded Transcript
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if decoded.SessionID != "s-1" || decoded.Order != OrderDiscovery || len(decoded.Items) != 3 {
		t.Errorf("Unexpected transcript metadata: %+v", decoded)
	}
	if decoded.Items[0].Sequence != 1 {
		t.Errorf("Expected discovery order, first sequence %d", decoded.Items[0].Sequence)
	}

	if got := manager.Written(); len(got) != 2 {
		t.Errorf("Expected two written paths, got %v", got)
	}
}

func TestExportRejectsUnknownInput(t *testing.T) {
	manager := fixedManager(t)

	if _, err := manager.Export(&Transcript{Name: "x"}, ExportOptions{Order: "random"}); err == nil {
		t.Error("Expected an error for an unknown order")
	}
	if _, err := manager.Export(&Transcript{Name: "x"}, ExportOptions{Formats: []string{"pdf"}}); err == nil {
		t.Error("Expected an error for an unknown format")
	}
}

func TestListAndSafeName(t *testing.T) {
	manager := fixedManager(t)
	if _, err := manager.Export(&Transcript{Name: "../../etc"}, ExportOptions{}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(manager.GetOutputDir(), "notes.md"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	files, err := manager.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "etc-20260314-092653.txt" {
		t.Errorf("Unexpected listing %v", files)
	}

	if safeName("") != "conversation" {
		t.Error("Expected fallback name for an empty name")
	}
}
