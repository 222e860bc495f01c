package sink

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// WriterSink writes one line per Send to an io.Writer
type WriterSink struct {
	name string
	mu   sync.Mutex
	w    io.Writer
}

// NewWriterSink wraps w
func NewWriterSink(name string, w io.Writer) *WriterSink {
	return &WriterSink{name: name, w: w}
}

func (s *WriterSink) Name() string { return s.name }

func (s *WriterSink) Send(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintln(s.w, line); err != nil {
		return fmt.Errorf("failed to write line: %w", err)
	}
	return nil
}

func (s *WriterSink) Close() error { return nil }
