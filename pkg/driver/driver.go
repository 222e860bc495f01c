package driver

import (
	"context"
	"fmt"
	"math/rand"
	"runtime/debug"
	"sync"
	"time"

	"chatscrape/pkg/dom"
	errs "chatscrape/pkg/errors"
	"chatscrape/pkg/logger"
	"chatscrape/pkg/models"
	"chatscrape/pkg/retry"
	"chatscrape/pkg/scanner"
)

// Driver orchestrates scroll and scan passes for one conversation
type Driver struct {
	page       Page
	scanner    Scanner
	newState   func() *scanner.State
	dispatcher Dispatcher
	reporter   Reporter
	journal    Journal
	logger     logger.Logger

	wait  func(ctx context.Context, d time.Duration) error
	delay func(lo, hi time.Duration) time.Duration

	mu      sync.Mutex
	current *Session
}

// New creates a Driver over page using sc for every pass
func New(page Page, sc *scanner.Scanner, log logger.Logger) *Driver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Driver{
		page:     page,
		scanner:  sc,
		newState: func() *scanner.State { return scanner.NewState(sc.Rules()) },
		reporter: nopReporter{},
		logger:   log,
		wait:     retry.Wait,
		delay:    jitter,
	}
}

// SetDispatcher sets where formatted lines go
func (d *Driver) SetDispatcher(dispatcher Dispatcher) {
	d.dispatcher = dispatcher
}

// SetReporter sets the progress reporter
func (d *Driver) SetReporter(reporter Reporter) {
	if reporter == nil {
		reporter = nopReporter{}
	}
	d.reporter = reporter
}

// SetJournal sets the checkpoint journal
func (d *Driver) SetJournal(journal Journal) {
	d.journal = journal
}

// Current returns the most recent session, or nil
func (d *Driver) Current() *Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Start begins a session in the background. Starting while a session is
// running returns that session unchanged.
func (d *Driver) Start(ctx context.Context, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil && d.current.State() == StateRunning {
		d.logger.WithError(errs.New(errs.ErrorTypeSessionAlreadyRunning, "start ignored")).
			WithField("session", d.current.ID).
			Info("Extraction already running")
		return d.current, nil
	}

	s := newSession(opts)
	s.setState(StateRunning)
	logger.LogSessionTransition(d.logger, s.ID, string(StateIdle), string(StateRunning))
	d.current = s

	go d.run(ctx, s)
	return s, nil
}

// Run starts a session and waits for it to end
func (d *Driver) Run(ctx context.Context, opts Options) (Completion, error) {
	s, err := d.Start(ctx, opts)
	if err != nil {
		return Completion{}, err
	}
	c := s.Wait()
	return c, c.Err
}

// Stop asks the running session to stop at its next iteration boundary
func (d *Driver) Stop() {
	if s := d.Current(); s != nil {
		s.Stop()
	}
}

func (d *Driver) run(ctx context.Context, s *Session) {
	logger.LogComponentStart(d.logger, "driver", map[string]interface{}{
		"session":               s.ID,
		"delay_min":             s.Options.DelayMin.String(),
		"delay_max":             s.Options.DelayMax.String(),
		"max_iterations":        s.Options.MaxIterations,
		"no_progress_threshold": s.Options.NoProgressThreshold,
		"seeded":                len(s.Options.Seed),
	})

	reason, err := d.loop(ctx, s)
	d.finish(s, reason, err)
}

func (d *Driver) loop(ctx context.Context, s *Session) (State, error) {
	opts := s.Options
	st := d.newState()
	st.Counterpart = opts.Counterpart
	if len(opts.Seed) > 0 {
		st.Seen.Seed(opts.Seed)
	}

	// capture what is already on screen before scrolling can unload it
	if _, err := d.pass(ctx, s, st); err != nil {
		return StateFailed, err
	}
	d.reporter.Progress(s.snapshotProgress("initial pass", nil))

	for i := 1; i <= opts.MaxIterations; i++ {
		if s.stopRequested() || ctx.Err() != nil {
			return StateStopped, nil
		}

		s.mu.Lock()
		target := s.target
		s.mu.Unlock()
		if err := d.page.ScrollToOldest(ctx, target); err != nil {
			d.logger.WithError(err).WithField("iteration", i).Warn("Scroll failed")
		}

		if err := d.wait(ctx, d.delay(opts.DelayMin, opts.DelayMax)); err != nil {
			return StateStopped, nil
		}

		items, err := d.pass(ctx, s, st)
		if err != nil {
			return StateFailed, err
		}

		s.mu.Lock()
		s.iterations = i
		if len(items) > 0 {
			s.noProgress = 0
		} else {
			s.noProgress++
		}
		noProgress := s.noProgress
		s.mu.Unlock()

		if len(items) > 0 {
			d.record(s, StateRunning)
		}

		status := fmt.Sprintf("iteration %d: %d new", i, len(items))
		if noProgress > 0 {
			status = fmt.Sprintf("iteration %d: no new items (%d/%d)", i, noProgress, opts.NoProgressThreshold)
		}
		d.reporter.Progress(s.snapshotProgress(status, items))

		if noProgress >= opts.NoProgressThreshold {
			d.logger.InfoWithFields("No progress threshold reached", map[string]interface{}{
				"session":    s.ID,
				"iterations": i,
				"threshold":  opts.NoProgressThreshold,
			})
			return StateCompleted, nil
		}
	}

	d.logger.WithField("max_iterations", opts.MaxIterations).Info("Iteration cap reached")
	return StateCompleted, nil
}

// pass takes one snapshot, scans it and dispatches what is new. Only a
// fatal scanner failure is returned.
func (d *Driver) pass(ctx context.Context, s *Session, st *scanner.State) ([]models.Item, error) {
	snap, err := d.page.Snapshot(ctx)
	if err != nil {
		d.logger.WithError(err).Warn("Snapshot failed, counting as an empty pass")
		return nil, nil
	}

	res, err := d.scanSafely(snap, st)
	if errs.Is(err, errs.ErrorTypeFatal) {
		return nil, err
	}
	if err != nil {
		d.logger.WithError(err).Debug("Scan produced no container")
	}
	if res == nil {
		return nil, nil
	}

	s.mu.Lock()
	if res.Target.Valid {
		s.target = res.Target
	}
	if res.Counterpart != "" {
		s.counterpart = res.Counterpart
	}
	s.items = append(s.items, res.Items...)
	s.mu.Unlock()

	d.emit(s.Options, res.Items)
	return res.Items, nil
}

func (d *Driver) scanSafely(snap *dom.Snapshot, st *scanner.State) (res *scanner.PassResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.New(errs.ErrorTypeFatal, fmt.Sprintf("scanner panicked: %v\n%s", r, debug.Stack()))
		}
	}()
	return d.scanner.Scan(snap, st)
}

// emit formats items in sequence order and hands them to the dispatcher
func (d *Driver) emit(opts Options, items []models.Item) {
	if d.dispatcher == nil || len(items) == 0 {
		return
	}
	ordered := append([]models.Item(nil), items...)
	models.SortBySequence(ordered)
	for _, line := range models.Lines(ordered, opts.IncludeDates, opts.IncludeTimestamps) {
		d.dispatcher.Dispatch(line)
	}
}

func (d *Driver) record(s *Session, state State) {
	if d.journal == nil {
		return
	}
	s.mu.Lock()
	items := append([]models.Item(nil), s.items...)
	iterations, counterpart := s.iterations, s.counterpart
	s.mu.Unlock()

	if err := d.journal.Record(s.ID, counterpart, items, iterations, string(state)); err != nil {
		d.logger.WithError(err).Warn("Failed to record checkpoint")
	}
}

func (d *Driver) finish(s *Session, reason State, err error) {
	prev := s.setState(reason)
	logger.LogSessionTransition(d.logger, s.ID, string(prev), string(reason))

	s.mu.Lock()
	s.completion = Completion{
		Session:         s.ID,
		TotalItems:      len(s.items),
		TotalIterations: s.iterations,
		Reason:          reason,
		Err:             err,
		Duration:        time.Since(s.StartedAt),
	}
	c := s.completion
	s.mu.Unlock()

	if err != nil {
		d.logger.WithError(err).ErrorWithFields("Extraction failed", map[string]interface{}{
			"session":    s.ID,
			"iterations": c.TotalIterations,
			"items":      c.TotalItems,
		})
	}

	d.record(s, reason)
	d.reporter.Progress(s.snapshotProgress(string(reason), nil))
	d.reporter.Completed(c)
	logger.LogComponentStop(d.logger, "driver", string(reason))
	close(s.done)
}

// jitter picks a uniform delay in [lo, hi]
func jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo+1)))
}
