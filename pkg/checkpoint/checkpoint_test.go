package checkpoint

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"chatscrape/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItems() []models.Item {
	alice := models.Counterpart("Alice")
	return []models.Item{
		{Kind: models.KindMessage, Sender: &alice, Content: "later", Sequence: 2, IdentityKey: "msg|counterpart|later"},
		{Kind: models.KindDateMarker, Content: "Today", Sequence: 1, IdentityKey: "date|today"},
	}
}

func TestCheckpointManager(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	t.Run("CreateAndLoad", func(t *testing.T) {
		mgr, err := NewManager("alice")
		require.NoError(t, err)

		cp, err := mgr.Create("alice", "https://chat.example.com/t/42")
		require.NoError(t, err)
		assert.Equal(t, "running", cp.Status)
		assert.Equal(t, currentVersion, cp.Version)

		loaded, err := mgr.Load()
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, "https://chat.example.com/t/42", loaded.URL)
		assert.Contains(t, mgr.Path(), filepath.Join("chatscrape", "checkpoints", "alice.checkpoint.json"))
	})

	t.Run("LoadMissing", func(t *testing.T) {
		mgr, err := NewManager("nobody")
		require.NoError(t, err)

		cp, err := mgr.Load()
		assert.NoError(t, err)
		assert.Nil(t, cp)
	})

	t.Run("Delete", func(t *testing.T) {
		mgr, err := NewManager("bob")
		require.NoError(t, err)
		_, err = mgr.Create("bob", "")
		require.NoError(t, err)
		assert.True(t, mgr.Exists())

		require.NoError(t, mgr.Delete())
		assert.False(t, mgr.Exists())
		assert.NoError(t, mgr.Delete(), "deleting twice is fine")
	})
}

func TestRecordCreatesAndUpdatesJournal(t *testing.T) {
	mgr, err := NewManagerInDir(t.TempDir(), "alice")
	require.NoError(t, err)

	require.NoError(t, mgr.Record("session-1", "Alice", sampleItems(), 3, "running"))
	require.NoError(t, mgr.Record("session-1", "", sampleItems(), 5, "completed"))

	loaded, err := mgr.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, "alice", loaded.Key)
	assert.Equal(t, "session-1", loaded.SessionID)
	assert.Equal(t, "Alice", loaded.Counterpart)
	assert.Equal(t, int64(2), loaded.Sequence)
	assert.Equal(t, 5, loaded.Iterations)
	assert.Equal(t, "completed", loaded.Status)
	require.Len(t, loaded.Items, 2)
	assert.Equal(t, int64(1), loaded.Items[0].Sequence, "items come back in sequence order")
	assert.Equal(t, "Alice", loaded.Items[1].Sender.Label())
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManagerInDir(dir, "future")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(mgr.Path(), []byte(`{"key":"future","version":99}`), 0644))

	_, err = mgr.Load()
	assert.Error(t, err)
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	mgr, err := NewManagerInDir(t.TempDir(), "broken")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(mgr.Path(), []byte(`{not json`), 0644))

	_, err = mgr.Load()
	assert.Error(t, err)
}

func TestConcurrentSavesLeaveValidFile(t *testing.T) {
	mgr, err := NewManagerInDir(t.TempDir(), "busy")
	require.NoError(t, err)
	cp, err := mgr.Create("busy", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, mgr.Save(&Checkpoint{Key: cp.Key, Iterations: n, Version: currentVersion}))
		}(i)
	}
	wg.Wait()

	loaded, err := mgr.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "busy", loaded.Key)
}

func TestBackupAndInfo(t *testing.T) {
	mgr, err := NewManagerInDir(t.TempDir(), "alice")
	require.NoError(t, err)
	require.NoError(t, mgr.BackupCheckpoint(), "nothing to back up yet")

	require.NoError(t, mgr.Record("s", "Alice", sampleItems(), 1, "running"))
	require.NoError(t, mgr.BackupCheckpoint())
	_, err = os.Stat(mgr.Path() + ".backup")
	assert.NoError(t, err)

	info, err := mgr.GetCheckpointInfo()
	require.NoError(t, err)
	assert.Equal(t, 2, info["items"])
	assert.Equal(t, "Alice", info["counterpart"])
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	for _, key := range []string{"zed", "alice"} {
		mgr, err := NewManagerInDir(dir, key)
		require.NoError(t, err)
		_, err = mgr.Create(key, "")
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644))

	keys, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "zed"}, keys)

	keys, err = List(filepath.Join(dir, "missing"))
	assert.NoError(t, err)
	assert.Empty(t, keys)
}

func TestKey(t *testing.T) {
	tests := []struct {
		name, display, url, want string
	}{
		{"display name", "Alice Smith", "", "alice-smith"},
		{"url", "", "https://www.messenger.com/t/1234567/", "www-messenger-com-t-1234567"},
		{"unparseable", "", "::", "conversation"},
		{"punctuation only", "!!!", "", "conversation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.display, tt.url))
		})
	}
}

func TestGetDataDirectory(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	dir, err := getDataDirectory()
	require.NoError(t, err)
	assert.NotEmpty(t, dir)
	assert.DirExists(t, dir)
}
