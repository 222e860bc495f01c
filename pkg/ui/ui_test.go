package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"chatscrape/pkg/config"
	"chatscrape/pkg/driver"
	"chatscrape/pkg/models"

	"github.com/stretchr/testify/assert"
)

type recordingSender struct {
	titles   []string
	messages []string
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	r.messages = append(r.messages, message)
	return nil
}

func TestProgressDisplayStatusLine(t *testing.T) {
	var buf bytes.Buffer
	display := NewProgressDisplay(&buf, "alice", 4, false)

	you := models.Viewer()
	display.Progress(driver.Progress{
		ItemsSoFar:  7,
		Iterations:  3,
		NoProgress:  2,
		Counterpart: "Alice",
		NewItems:    []models.Item{{Kind: models.KindMessage, Sender: &you, Content: "on my way"}},
	})

	out := buf.String()
	assert.Contains(t, out, "7 items")
	assert.Contains(t, out, "iteration 3")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "You: on my way")
	assert.Contains(t, out, "[━━━━━─────]")
}

func TestProgressDisplayVerbose(t *testing.T) {
	var buf bytes.Buffer
	display := NewProgressDisplay(&buf, "alice", 4, true)

	alice := models.Counterpart("Alice")
	display.Progress(driver.Progress{
		StatusText: "iteration 1: 1 new",
		NewItems:   []models.Item{{Kind: models.KindMessage, Sender: &alice, Content: "hi", Timestamp: "9:00"}},
	})

	assert.Contains(t, buf.String(), "Alice [9:00]: hi")
	assert.Contains(t, buf.String(), "iteration 1: 1 new")
}

func TestProgressDisplayCompleted(t *testing.T) {
	tests := []struct {
		reason driver.State
		err    error
		want   string
	}{
		{driver.StateCompleted, nil, "Extracted 5 items"},
		{driver.StateStopped, nil, "Stopped after 5 items"},
		{driver.StateFailed, errors.New("scanner panicked"), "scanner panicked"},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			var buf bytes.Buffer
			display := NewProgressDisplay(&buf, "alice", 4, false)
			display.Completed(driver.Completion{Reason: tt.reason, TotalItems: 5, TotalIterations: 2, Err: tt.err, Duration: 90 * time.Second})

			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), "1m30s")
		})
	}
}

func TestNotifier(t *testing.T) {
	sender := &recordingSender{}
	cfg := config.NotificationConfig{Enabled: true, OnComplete: true, OnError: true}
	notifier := NewNotifierWithSender(cfg, "alice", sender)

	notifier.Progress(driver.Progress{ItemsSoFar: 1})
	notifier.Completed(driver.Completion{Reason: driver.StateStopped})
	assert.Empty(t, sender.titles, "stopped sessions are not announced")

	notifier.Completed(driver.Completion{Reason: driver.StateCompleted, TotalItems: 12})
	notifier.Completed(driver.Completion{Reason: driver.StateFailed, TotalItems: 3, Err: errors.New("boom")})

	assert.Equal(t, []string{"Extraction complete", "Extraction failed"}, sender.titles)
	assert.Equal(t, "12 items from alice", sender.messages[0])
	assert.True(t, strings.HasSuffix(sender.messages[1], ": boom"))
}

func TestNotifierRespectsConfig(t *testing.T) {
	sender := &recordingSender{}
	notifier := NewNotifierWithSender(config.NotificationConfig{Enabled: true, OnError: true}, "alice", sender)
	notifier.Completed(driver.Completion{Reason: driver.StateCompleted})
	assert.Empty(t, sender.titles)

	disabled := NewNotifierWithSender(config.NotificationConfig{OnComplete: true}, "alice", sender)
	disabled.Completed(driver.Completion{Reason: driver.StateCompleted})
	assert.Empty(t, sender.titles)
}

func TestReportersFanOut(t *testing.T) {
	var a, b bytes.Buffer
	reporters := Reporters{NewProgressDisplay(&a, "x", 1, true), NewProgressDisplay(&b, "x", 1, true)}

	reporters.Progress(driver.Progress{StatusText: "initial pass"})
	reporters.Completed(driver.Completion{Reason: driver.StateCompleted})

	assert.Contains(t, a.String(), "initial pass")
	assert.Contains(t, b.String(), "Extracted 0 items")
}

func TestPrintHelpersWriteToOut(t *testing.T) {
	var buf bytes.Buffer
	old := Out
	Out = &buf
	defer func() { Out = old }()

	PrintInfo("Conversation", "alice")
	PrintWarning("Sink unreachable", "connection refused")
	PrintError("Failed")
	PrintSuccess("Done")

	out := buf.String()
	assert.Contains(t, out, "Conversation")
	assert.Contains(t, out, "Sink unreachable: connection refused")
	assert.Contains(t, out, "Failed")
	assert.Contains(t, out, "Done")
}
