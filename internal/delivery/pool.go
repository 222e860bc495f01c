package delivery

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	errs "chatscrape/pkg/errors"
	"chatscrape/pkg/logger"
	"chatscrape/pkg/sink"
)

// Job is one line waiting for delivery
type Job struct {
	Line  string
	Index int64
}

// Result is the outcome of one delivery
type Result struct {
	Job      Job
	Success  bool
	Error    error
	Duration time.Duration
}

// Stats summarizes delivery so far
type Stats struct {
	Submitted int64
	Delivered int64
	Failed    int64
	Dropped   int64
	Queued    int
}

// Pool delivers lines to a sink from a bounded queue. Dispatch never blocks:
// when the queue is full the line is dropped and logged. A single worker
// keeps arrival order.
type Pool struct {
	numWorkers int
	jobQueue   chan Job
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	sink       sink.Sink
	logger     logger.Logger

	// OnResult, when set before Start, is called by workers after each delivery
	OnResult func(Result)

	closeMu sync.RWMutex
	closed  bool

	submitted atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewPool creates a pool of numWorkers delivering to s
func NewPool(numWorkers, queueSize int, s sink.Sink, log logger.Logger) *Pool {
	if log == nil {
		log = logger.GetLogger()
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	if queueSize < 1 {
		queueSize = numWorkers * 2
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job, queueSize),
		ctx:        ctx,
		cancel:     cancel,
		sink:       s,
		logger:     log,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	logger.LogComponentStart(p.logger, "delivery", map[string]interface{}{
		"workers":    p.numWorkers,
		"queue_size": cap(p.jobQueue),
		"sink":       p.sink.Name(),
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Dispatch queues line for delivery without blocking
func (p *Pool) Dispatch(line string) {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if p.closed {
		p.drop(line, "pool is stopped")
		return
	}

	job := Job{Line: line, Index: p.submitted.Add(1)}
	select {
	case p.jobQueue <- job:
	default:
		p.drop(line, "queue is full")
	}
}

func (p *Pool) drop(line, reason string) {
	p.dropped.Add(1)
	logger.LogSinkFailure(p.logger, p.sink.Name(), line, errs.New(errs.ErrorTypeSinkDelivery, reason))
}

// Stop stops accepting lines and waits for the queue to drain. When ctx ends
// first, in-flight deliveries are cancelled and the rest of the queue dropped.
func (p *Pool) Stop(ctx context.Context) Stats {
	p.closeMu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobQueue)
	}
	p.closeMu.Unlock()

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		p.logger.Warn("Delivery drain interrupted, dropping queued lines")
		p.cancel()
		<-drained
	}
	p.cancel()

	stats := p.Stats()
	logger.LogComponentStop(p.logger, "delivery", "stopped")
	logger.LogMetrics(p.logger, "delivery", map[string]interface{}{
		"submitted": stats.Submitted,
		"delivered": stats.Delivered,
		"failed":    stats.Failed,
		"dropped":   stats.Dropped,
	})
	return stats
}

// Stats returns delivery counters
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Delivered: p.delivered.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
		Queued:    len(p.jobQueue),
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		if p.ctx.Err() != nil {
			p.dropped.Add(1)
			continue
		}

		result := p.processJob(job)
		if p.OnResult != nil {
			p.OnResult(result)
		}
	}

	p.logger.DebugWithFields("Delivery worker stopping", map[string]interface{}{
		"worker_id": id,
	})
}

func (p *Pool) processJob(job Job) Result {
	start := time.Now()
	err := p.sink.Send(p.ctx, job.Line)
	result := Result{Job: job, Success: err == nil, Error: err, Duration: time.Since(start)}

	if err != nil {
		p.failed.Add(1)
		logger.LogSinkFailure(p.logger, p.sink.Name(), job.Line, err)
		return result
	}
	p.delivered.Add(1)
	return result
}
