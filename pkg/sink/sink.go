package sink

import (
	"context"
	"errors"
	"fmt"
	"io"

	"chatscrape/pkg/config"
	"chatscrape/pkg/logger"
)

// Sink delivers formatted transcript lines
type Sink interface {
	Name() string
	Send(ctx context.Context, line string) error
	Close() error
}

// Multi holds the enabled sinks. Delivery to each one runs on its own
// pool, see internal/delivery.
type Multi struct {
	sinks []Sink
}

// NewMulti combines sinks, skipping nil entries
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len returns the number of sinks
func (m *Multi) Len() int { return len(m.sinks) }

// Sinks returns the combined sinks
func (m *Multi) Sinks() []Sink { return append([]Sink(nil), m.sinks...) }

// Close closes every sink
func (m *Multi) Close() error {
	var failed []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(failed...)
}

// FromConfig builds the sinks enabled in cfg. stdout receives lines when
// cfg.Stdout is set.
func FromConfig(cfg config.SinkConfig, stdout io.Writer, log logger.Logger) (*Multi, error) {
	m := NewMulti()

	if cfg.Stdout && stdout != nil {
		m.sinks = append(m.sinks, NewWriterSink("stdout", stdout))
	}

	if cfg.File.Enabled {
		fs, err := NewFileSink(cfg.File.Path)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.sinks = append(m.sinks, fs)
	}

	if cfg.HTTP.Enabled {
		hs, err := NewHTTPSink(cfg.HTTP, log)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.sinks = append(m.sinks, hs)
	}

	return m, nil
}
