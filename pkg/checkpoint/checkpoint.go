package checkpoint

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"chatscrape/pkg/logger"
	"chatscrape/pkg/models"
)

const currentVersion = 1

// Checkpoint is the journal of one extraction session
type Checkpoint struct {
	Key         string        `json:"key"`
	SessionID   string        `json:"session_id"`
	URL         string        `json:"url"`
	Counterpart string        `json:"counterpart,omitempty"`
	Items       []models.Item `json:"items"`
	Sequence    int64         `json:"sequence"`
	Iterations  int           `json:"iterations"`
	Status      string        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Version     int           `json:"version"`
}

// Manager handles checkpoint operations for one conversation
type Manager struct {
	mu             sync.Mutex
	checkpointPath string
	current        *Checkpoint
	logger         logger.Logger
}

var unsafeKeyChars = regexp.MustCompile(`[^a-z0-9]+`)

// Key derives a file-safe conversation key from a display name or, when the
// name is empty, from the conversation URL's host and path
func Key(name, rawURL string) string {
	source := name
	if source == "" {
		if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
			source = u.Host + u.Path
		} else {
			source = rawURL
		}
	}
	key := strings.Trim(unsafeKeyChars.ReplaceAllString(strings.ToLower(source), "-"), "-")
	if key == "" {
		return "conversation"
	}
	return key
}

// NewManager creates a manager in the default data directory
func NewManager(key string) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}
	return NewManagerInDir(filepath.Join(dataDir, "checkpoints"), key)
}

// NewManagerInDir creates a manager storing its file in dir
func NewManagerInDir(dir, key string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &Manager{
		checkpointPath: filepath.Join(dir, fmt.Sprintf("%s.checkpoint.json", key)),
		logger:         logger.GetLogger(),
	}, nil
}

// SetLogger replaces the manager's logger
func (m *Manager) SetLogger(l logger.Logger) {
	m.logger = l
}

// Path returns the checkpoint file path
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Create starts a new journal and saves it
func (m *Manager) Create(key, conversationURL string) (*Checkpoint, error) {
	now := time.Now()
	cp := &Checkpoint{
		Key:       key,
		URL:       conversationURL,
		Items:     []models.Item{},
		Status:    "running",
		CreatedAt: now,
		UpdatedAt: now,
		Version:   currentVersion,
	}

	if err := m.Save(cp); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.mu.Lock()
	m.current = cp
	m.mu.Unlock()

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"key":  key,
		"path": m.checkpointPath,
	})

	return cp, nil
}

// Load reads an existing checkpoint. It returns nil, nil when none exists.
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var cp Checkpoint
	if err := json.NewDecoder(file).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.Version > currentVersion {
		return nil, fmt.Errorf("checkpoint version %d is newer than supported version %d", cp.Version, currentVersion)
	}
	models.SortBySequence(cp.Items)

	m.mu.Lock()
	m.current = &cp
	m.mu.Unlock()

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"key":        cp.Key,
		"items":      len(cp.Items),
		"iterations": cp.Iterations,
		"status":     cp.Status,
		"updated_at": cp.UpdatedAt,
	})

	return &cp, nil
}

// Save writes the checkpoint to disk atomically
func (m *Manager) Save(cp *Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp.UpdatedAt = time.Now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"key":    cp.Key,
		"items":  len(cp.Items),
		"status": cp.Status,
	})

	return nil
}

// Record updates the current journal with a session's progress and saves it.
// A journal is created on first use.
func (m *Manager) Record(sessionID, counterpart string, items []models.Item, iterations int, status string) error {
	m.mu.Lock()
	cp := m.current
	m.mu.Unlock()

	if cp == nil {
		key := strings.TrimSuffix(filepath.Base(m.checkpointPath), ".checkpoint.json")
		var err error
		if cp, err = m.Create(key, ""); err != nil {
			return err
		}
	}

	cp.SessionID = sessionID
	if counterpart != "" {
		cp.Counterpart = counterpart
	}
	cp.Items = items
	cp.Iterations = iterations
	cp.Status = status
	for _, item := range items {
		if item.Sequence > cp.Sequence {
			cp.Sequence = item.Sequence
		}
	}
	return m.Save(cp)
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// GetCheckpointInfo returns a summary of the checkpoint
func (m *Manager) GetCheckpointInfo() (map[string]interface{}, error) {
	cp, err := m.Load()
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, nil
	}

	return map[string]interface{}{
		"key":         cp.Key,
		"url":         cp.URL,
		"counterpart": cp.Counterpart,
		"items":       len(cp.Items),
		"iterations":  cp.Iterations,
		"status":      cp.Status,
		"created_at":  cp.CreatedAt,
		"updated_at":  cp.UpdatedAt,
		"age":         time.Since(cp.UpdatedAt),
	}, nil
}

// BackupCheckpoint copies the current checkpoint next to it
func (m *Manager) BackupCheckpoint() error {
	if !m.Exists() {
		return nil
	}

	backupPath := m.checkpointPath + ".backup"

	src, err := os.Open(m.checkpointPath)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(backupPath)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy checkpoint to backup: %w", err)
	}

	m.logger.Debug("Checkpoint backed up")
	return nil
}

// List returns the keys of every checkpoint in dir, sorted
func List(dir string) ([]string, error) {
	if dir == "" {
		dataDir, err := getDataDirectory()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(dataDir, "checkpoints")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasSuffix(name, ".checkpoint.json") {
			keys = append(keys, strings.TrimSuffix(name, ".checkpoint.json"))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "chatscrape")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "chatscrape")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "chatscrape")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "chatscrape")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
