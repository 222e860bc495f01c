package driver

import (
	"context"

	"chatscrape/pkg/dom"
	"chatscrape/pkg/models"
	"chatscrape/pkg/scanner"
)

// Page is the live document the driver scrolls and snapshots
type Page interface {
	Snapshot(ctx context.Context) (*dom.Snapshot, error)
	ScrollToOldest(ctx context.Context, target dom.ScrollTarget) error
}

// Scanner turns a snapshot into new items
type Scanner interface {
	Scan(snap *dom.Snapshot, st *scanner.State) (*scanner.PassResult, error)
}

// Dispatcher receives formatted output lines. Dispatch must not block.
type Dispatcher interface {
	Dispatch(line string)
}

// Reporter receives progress and exactly one completion per session
type Reporter interface {
	Progress(p Progress)
	Completed(c Completion)
}

// Journal persists session progress so an interrupted run can resume
type Journal interface {
	Record(sessionID, counterpart string, items []models.Item, iterations int, status string) error
}

// DispatcherFunc adapts a function to Dispatcher
type DispatcherFunc func(line string)

func (f DispatcherFunc) Dispatch(line string) { f(line) }

type nopReporter struct{}

func (nopReporter) Progress(Progress)     {}
func (nopReporter) Completed(Completion) {}
