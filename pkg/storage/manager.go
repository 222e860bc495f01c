package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"chatscrape/pkg/logger"
	"chatscrape/pkg/models"
)

// Export formats
const (
	FormatText = "txt"
	FormatJSON = "json"
)

// Item orders
const (
	OrderDiscovery     = "discovery"
	OrderChronological = "chronological"
)

const timestampLayout = "20060102-150405"

// Transcript is one finished conversation ready to be written out
type Transcript struct {
	Name        string        `json:"name"`
	URL         string        `json:"url,omitempty"`
	Counterpart string        `json:"counterpart,omitempty"`
	SessionID   string        `json:"session_id,omitempty"`
	Status      string        `json:"status,omitempty"`
	Order       string        `json:"order"`
	ExportedAt  time.Time     `json:"exported_at"`
	Items       []models.Item `json:"items"`
}

// ExportOptions controls what Export writes
type ExportOptions struct {
	Order             string
	Formats           []string
	IncludeDates      bool
	IncludeTimestamps bool
}

// Manager writes transcripts into an output directory
type Manager struct {
	outputDir string
	mu        sync.Mutex
	written   []string
	now       func() time.Time
	logger    logger.Logger
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// NewManager creates a new storage manager
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		outputDir: outputDir,
		now:       time.Now,
		logger:    logger.GetLogger(),
	}, nil
}

// Export writes the transcript in every requested format and returns the
// paths written. Items are ordered per opts.Order before anything is written.
func (m *Manager) Export(t *Transcript, opts ExportOptions) ([]string, error) {
	formats := opts.Formats
	if len(formats) == 0 {
		formats = []string{FormatText}
	}

	order := opts.Order
	if order == "" {
		order = OrderDiscovery
	}
	ordered, err := Order(t.Items, order)
	if err != nil {
		return nil, err
	}

	exportedAt := m.now()
	out := *t
	out.Items = ordered
	out.Order = order
	out.ExportedAt = exportedAt

	base := filepath.Join(m.outputDir, fmt.Sprintf("%s-%s", safeName(t.Name), exportedAt.Format(timestampLayout)))

	var paths []string
	for _, format := range formats {
		path := base + "." + format
		var write func(io.Writer) error
		switch format {
		case FormatText:
			write = func(w io.Writer) error { return writeText(w, ordered, opts) }
		case FormatJSON:
			write = func(w io.Writer) error { return writeJSON(w, &out) }
		default:
			return paths, fmt.Errorf("unsupported export format %q", format)
		}

		if err := writeAtomic(path, write); err != nil {
			return paths, err
		}
		paths = append(paths, path)

		m.logger.InfoWithFields("Transcript written", map[string]interface{}{
			"path":  path,
			"items": len(ordered),
			"order": order,
		})
	}

	m.mu.Lock()
	m.written = append(m.written, paths...)
	m.mu.Unlock()

	return paths, nil
}

// Order returns a copy of items in the requested order
func Order(items []models.Item, order string) ([]models.Item, error) {
	switch order {
	case OrderDiscovery, "":
		out := make([]models.Item, len(items))
		copy(out, items)
		models.SortBySequence(out)
		return out, nil
	case OrderChronological:
		return models.Chronological(items), nil
	default:
		return nil, fmt.Errorf("unknown order %q", order)
	}
}

func writeText(w io.Writer, items []models.Item, opts ExportOptions) error {
	for _, line := range models.Lines(items, opts.IncludeDates, opts.IncludeTimestamps) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, t *Transcript) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(t)
}

// writeAtomic writes through a temporary file and renames it into place
func writeAtomic(path string, write func(io.Writer) error) error {
	tempFile := path + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	err = write(out)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write transcript: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

func safeName(name string) string {
	name = strings.Trim(unsafeNameChars.ReplaceAllString(name, "-"), "-.")
	if name == "" {
		return "conversation"
	}
	return name
}

// List returns the transcripts already present in the output directory
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case "." + FormatText, "." + FormatJSON:
			files = append(files, filepath.Join(m.outputDir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// Written returns every path this manager has exported
func (m *Manager) Written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.written...)
}
