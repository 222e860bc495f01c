// Package driver runs an extraction session.
//
// A Driver alternates scrolling the page towards older content with scan
// passes until the conversation stops yielding new items. Each session moves
// through idle, running and then one of completed, stopped or failed:
//
//   - completed: the no-progress counter reached its threshold, or the
//     iteration cap was hit
//   - stopped: Stop was called or the context was cancelled; the flag is
//     checked once at the top of every iteration
//   - failed: the scanner panicked outside its per-element guard
//
// A priming pass runs before the first scroll so content already on screen
// is captured. New items are formatted with models.Item.Line and handed to
// the Dispatcher in sequence order; Dispatch must not block. The Reporter
// receives progress after every pass and exactly one Completion.
//
// Usage:
//
//	d := driver.New(page, scanner.New(scanner.DefaultRules(), log), log)
//	d.SetDispatcher(pool)
//	d.SetReporter(display)
//	completion, err := d.Run(ctx, driver.DefaultOptions())
package driver
