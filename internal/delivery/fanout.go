package delivery

import (
	"context"
	"sync"

	"chatscrape/pkg/logger"
	"chatscrape/pkg/sink"
)

// Fanout gives every sink its own pool, so a slow or failing sink only ever
// delays or drops its own lines
type Fanout struct {
	pools []*Pool
}

// NewFanout creates one pool per sink, each with numWorkers and queueSize
func NewFanout(numWorkers, queueSize int, sinks []sink.Sink, log logger.Logger) *Fanout {
	if log == nil {
		log = logger.GetLogger()
	}
	f := &Fanout{}
	for _, s := range sinks {
		if s == nil {
			continue
		}
		f.pools = append(f.pools, NewPool(numWorkers, queueSize, s, log.WithField("sink", s.Name())))
	}
	return f
}

// Len returns the number of pools
func (f *Fanout) Len() int { return len(f.pools) }

// Start launches every pool
func (f *Fanout) Start() {
	for _, p := range f.pools {
		p.Start()
	}
}

// Dispatch queues line on every pool without blocking
func (f *Fanout) Dispatch(line string) {
	for _, p := range f.pools {
		p.Dispatch(line)
	}
}

// Stop drains all pools concurrently under the same deadline and returns
// the summed counters
func (f *Fanout) Stop(ctx context.Context) Stats {
	stats := make([]Stats, len(f.pools))
	var wg sync.WaitGroup
	for i, p := range f.pools {
		wg.Add(1)
		go func(i int, p *Pool) {
			defer wg.Done()
			stats[i] = p.Stop(ctx)
		}(i, p)
	}
	wg.Wait()

	var total Stats
	for _, s := range stats {
		total.Submitted += s.Submitted
		total.Delivered += s.Delivered
		total.Failed += s.Failed
		total.Dropped += s.Dropped
		total.Queued += s.Queued
	}
	return total
}
