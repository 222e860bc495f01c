package driver

import (
	"sync"
	"sync/atomic"
	"time"

	"chatscrape/pkg/dom"
	"chatscrape/pkg/models"

	"github.com/google/uuid"
)

// State is a session lifecycle state
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateStopped   State = "stopped"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transitions can happen
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateStopped || s == StateFailed
}

// Progress is emitted after every pass
type Progress struct {
	Session     string
	ItemsSoFar  int
	Iterations  int
	NoProgress  int
	StatusText  string
	Counterpart string
	// NewItems are the items discovered by the pass just finished
	NewItems []models.Item
}

// Completion is the single terminal notification of a session
type Completion struct {
	Session         string
	TotalItems      int
	TotalIterations int
	Reason          State
	Err             error
	Duration        time.Duration
}

// Session is one run of the driver from start to a terminal state
type Session struct {
	ID        string
	Options   Options
	StartedAt time.Time

	stop atomic.Bool
	done chan struct{}

	mu          sync.Mutex
	state       State
	items       []models.Item
	iterations  int
	noProgress  int
	counterpart string
	target      dom.ScrollTarget
	completion  Completion
}

func newSession(opts Options) *Session {
	s := &Session{
		ID:          uuid.New().String(),
		Options:     opts,
		StartedAt:   time.Now(),
		done:        make(chan struct{}),
		state:       StateIdle,
		counterpart: opts.Counterpart,
	}
	if len(opts.Seed) > 0 {
		s.items = append([]models.Item(nil), opts.Seed...)
		models.SortBySequence(s.items)
	}
	return s
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Items returns a copy of every item of the session in sequence order
func (s *Session) Items() []models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Item, len(s.items))
	copy(out, s.items)
	return out
}

// Iterations returns the number of finished iterations
func (s *Session) Iterations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iterations
}

// Counterpart returns the resolved name of the other participant
func (s *Session) Counterpart() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counterpart
}

// Stop requests a cooperative stop at the next iteration boundary
func (s *Session) Stop() {
	s.stop.Store(true)
}

func (s *Session) stopRequested() bool {
	return s.stop.Load()
}

// Done is closed once the session reaches a terminal state
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session ends and returns its completion
func (s *Session) Wait() Completion {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completion
}

func (s *Session) setState(state State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	s.state = state
	return prev
}

func (s *Session) snapshotProgress(status string, newItems []models.Item) Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Progress{
		Session:     s.ID,
		ItemsSoFar:  len(s.items),
		Iterations:  s.iterations,
		NoProgress:  s.noProgress,
		StatusText:  status,
		Counterpart: s.counterpart,
		NewItems:    newItems,
	}
}
