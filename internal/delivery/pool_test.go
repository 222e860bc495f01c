package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"chatscrape/pkg/logger"
	"chatscrape/pkg/sink"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	lines   []string
	fail    map[string]bool
	block   chan struct{}
	entered chan struct{}
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Send(ctx context.Context, line string) error {
	if s.block != nil {
		if s.entered != nil {
			select {
			case s.entered <- struct{}{}:
			default:
			}
		}
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.fail[line] {
		return errors.New("receiver rejected line")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func TestPoolDeliversInOrderWithOneWorker(t *testing.T) {
	s := &recordingSink{}
	p := NewPool(1, 100, s, logger.NewTestLogger())
	p.Start()

	var want []string
	for i := 0; i < 50; i++ {
		line := fmt.Sprintf("You: message %d", i)
		want = append(want, line)
		p.Dispatch(line)
	}

	stats := p.Stop(context.Background())
	assert.Equal(t, want, s.Lines())
	assert.Equal(t, int64(50), stats.Submitted)
	assert.Equal(t, int64(50), stats.Delivered)
	assert.Zero(t, stats.Dropped)
}

func TestPoolSinkFailuresAreCountedNotPropagated(t *testing.T) {
	s := &recordingSink{fail: map[string]bool{"bad": true}}
	log := logger.NewTestLogger()
	p := NewPool(2, 10, s, log)

	var mu sync.Mutex
	var results []Result
	p.OnResult = func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
	}
	p.Start()

	p.Dispatch("good")
	p.Dispatch("bad")
	stats := p.Stop(context.Background())

	assert.Equal(t, int64(1), stats.Delivered)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Len(t, results, 2)
	assert.True(t, log.HasMessage("Line delivery failed"))
}

func TestDispatchDropsWhenQueueIsFull(t *testing.T) {
	s := &recordingSink{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	log := logger.NewTestLogger()
	p := NewPool(1, 1, s, log)
	p.Start()

	p.Dispatch("in flight")
	<-s.entered
	p.Dispatch("queued")

	done := make(chan struct{})
	go func() {
		p.Dispatch("dropped")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked")
	}

	close(s.block)
	stats := p.Stop(context.Background())
	assert.Equal(t, int64(1), stats.Dropped)
	assert.Equal(t, []string{"in flight", "queued"}, s.Lines())
	assert.True(t, log.HasMessage("Line delivery failed"))
}

func TestStopWithExpiredContextAbandonsQueue(t *testing.T) {
	s := &recordingSink{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	p := NewPool(1, 10, s, logger.NewTestLogger())
	p.Start()

	p.Dispatch("stuck")
	<-s.entered
	p.Dispatch("never sent")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	stats := p.Stop(ctx)

	assert.Empty(t, s.Lines())
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Dropped)
}

func TestDispatchAfterStopIsDropped(t *testing.T) {
	s := &recordingSink{}
	p := NewPool(1, 4, s, logger.NewTestLogger())
	p.Start()
	p.Stop(context.Background())

	require.NotPanics(t, func() { p.Dispatch("late") })
	assert.Equal(t, int64(1), p.Stats().Dropped)
	assert.Empty(t, s.Lines())
}

func TestFanoutKeepsHealthySinksFlowingWhileOneStalls(t *testing.T) {
	stalled := &recordingSink{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	healthy := &recordingSink{}
	f := NewFanout(1, 8, []sink.Sink{stalled, nil, healthy}, logger.NewTestLogger())
	require.Equal(t, 2, f.Len())
	f.Start()

	var want []string
	for i := 0; i < 40; i++ {
		line := fmt.Sprintf("Alice: message %d", i)
		want = append(want, line)
		f.Dispatch(line)
		require.Eventually(t, func() bool { return len(healthy.Lines()) == i+1 }, time.Second, time.Millisecond)
	}
	assert.Equal(t, want, healthy.Lines())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	stats := f.Stop(ctx)

	assert.Empty(t, stalled.Lines())
	assert.Equal(t, int64(80), stats.Submitted)
	assert.Equal(t, int64(40), stats.Delivered)
	assert.Positive(t, stats.Dropped)
}
