package main

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"chatscrape/pkg/checkpoint"
	"chatscrape/pkg/config"
	"chatscrape/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const replayFrame = `<html><head><title>Alice | Messenger</title></head><body>
<div role="log" data-cs-rect="300,0,700,800">
<div role="row" data-cs-rect="300,50,700,40"><div data-cs-rect="310,50,180,30">hello</div></div>
<div role="row" data-cs-rect="300,100,700,40"><div data-cs-rect="800,100,180,30">hi</div></div>
</div></body></html>`

type lineReceiver struct {
	mu    sync.Mutex
	lines []string
}

func (r *lineReceiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.lines = append(r.lines, string(body))
	r.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (r *lineReceiver) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// writeTestConfig keeps the command away from desktop notifications,
// stdout and the user's data directory
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	cfg := fmt.Sprintf(`notifications:
  enabled: false
sink:
  stdout: false
checkpoint:
  enabled: true
  directory: %s
`, filepath.Join(dir, "checkpoints"))

	path := filepath.Join(dir, "chatscrape.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path
}

func TestExtractReplayDeliversLinesAndWritesTranscript(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	framePath := filepath.Join(dir, "frame.html")
	require.NoError(t, os.WriteFile(framePath, []byte(replayFrame), 0644))

	receiver := &lineReceiver{}
	srv := httptest.NewServer(receiver)
	defer srv.Close()

	outDir := filepath.Join(dir, "out")
	rootCmd.SetArgs([]string{
		"extract",
		"--config", cfgPath,
		"--quiet",
		"--name", "alice",
		"--replay", framePath,
		"--delay-min", "0s",
		"--delay-max", "0s",
		"--no-progress-threshold", "2",
		"--sink-url", srv.URL,
		"--output", outDir,
		"--order", "chronological",
	})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, []string{"You: hi", "Alice: hello"}, receiver.Lines())

	files, err := filepath.Glob(filepath.Join(outDir, "alice-*.txt"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "Alice: hello\nYou: hi\n", string(data))

	keys, err := checkpoint.List(filepath.Join(dir, "checkpoints"))
	require.NoError(t, err)
	assert.Empty(t, keys, "a completed session removes its checkpoint")
}

func TestExportRebuildsTranscriptFromCheckpoint(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	journal, err := checkpoint.NewManagerInDir(filepath.Join(dir, "checkpoints"), "bob")
	require.NoError(t, err)
	bob := models.Counterpart("Bob")
	viewer := models.Viewer()
	require.NoError(t, journal.Record("s-1", "Bob", []models.Item{
		{Kind: models.KindMessage, Sender: &viewer, Content: "later", Sequence: 1, IdentityKey: "k1"},
		{Kind: models.KindMessage, Sender: &bob, Content: "earlier", Sequence: 2, IdentityKey: "k2"},
	}, 4, "stopped"))

	outDir := filepath.Join(dir, "out")
	rootCmd.SetArgs([]string{
		"export", "bob",
		"--config", cfgPath,
		"--quiet",
		"--output", outDir,
		"--order", "chronological",
		"--delete",
	})
	require.NoError(t, rootCmd.Execute())

	files, err := filepath.Glob(filepath.Join(outDir, "bob-*.txt"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "Bob: earlier\nYou: later\n", string(data))
	assert.False(t, journal.Exists())
}

func TestResolveUIMode(t *testing.T) {
	assert.Equal(t, config.UIModeQuiet, resolveUIMode("quiet"))
	assert.Equal(t, config.UIModeTUI, resolveUIMode("TUI"))
	// go test output is not a terminal
	assert.Equal(t, config.UIModePlain, resolveUIMode(config.UIModeAuto))
}

func TestSiteHost(t *testing.T) {
	assert.Equal(t, "www.messenger.com", siteHost("https://www.messenger.com/t/123"))
	assert.Equal(t, "messenger.com", siteHost(" messenger.com "))
}

func TestExtractRequiresTarget(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	t.Setenv("CHATSCRAPE_URL", "")

	replayFrames = nil
	rootCmd.SetArgs([]string{"extract", "--config", cfgPath, "--quiet"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "conversation URL is required"))
}
