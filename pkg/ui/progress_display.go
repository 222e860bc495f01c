package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"chatscrape/pkg/driver"
)

// ProgressDisplay is a single-line console reporter
type ProgressDisplay struct {
	mu        sync.Mutex
	out       io.Writer
	name      string
	threshold int
	verbose   bool
	startTime time.Time
	last      driver.Progress
	newest    string
}

// NewProgressDisplay creates a console reporter. threshold is the number of
// unproductive iterations that ends a session; verbose prints every new
// item on its own line instead of redrawing the status line.
func NewProgressDisplay(out io.Writer, name string, threshold int, verbose bool) *ProgressDisplay {
	if out == nil {
		out = Out
	}
	return &ProgressDisplay{
		out:       out,
		name:      name,
		threshold: threshold,
		verbose:   verbose,
		startTime: time.Now(),
	}
}

// Progress redraws the status line
func (p *ProgressDisplay) Progress(pr driver.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = pr
	if n := len(pr.NewItems); n > 0 {
		p.newest = pr.NewItems[n-1].Line(false)
	}

	if p.verbose {
		for _, item := range pr.NewItems {
			fmt.Fprintf(p.out, "%s %s\n", Green("+"), item.Line(true))
		}
		fmt.Fprintf(p.out, "%s %s\n", Magenta("→"), pr.StatusText)
		return
	}

	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 120), p.statusLine())
}

// Completed prints the session summary
func (p *ProgressDisplay) Completed(c driver.Completion) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mark, verb := Green("✓"), "Extracted"
	switch c.Reason {
	case driver.StateStopped:
		mark, verb = Yellow("■"), "Stopped after"
	case driver.StateFailed:
		mark, verb = Red("✗"), "Failed after"
	}

	fmt.Fprintf(p.out, "\n\n%s %s %d items from %s\n", mark, verb, c.TotalItems, Cyan(p.label()))
	fmt.Fprintf(p.out, "  %s %d iterations in %s\n", Dim("•"), c.TotalIterations, formatDuration(c.Duration))
	if c.Err != nil {
		fmt.Fprintf(p.out, "  %s %v\n", Dim("•"), c.Err)
	}
}

func (p *ProgressDisplay) statusLine() string {
	line := fmt.Sprintf("%s %s %d items • iteration %d • %s",
		Cyan(p.label()),
		p.bar(),
		p.last.ItemsSoFar,
		p.last.Iterations,
		formatDuration(time.Since(p.startTime)),
	)
	if p.newest != "" {
		line += " • " + Dim(truncate(p.newest, 40))
	}
	return line
}

// bar fills as consecutive unproductive iterations approach the threshold
func (p *ProgressDisplay) bar() string {
	const width = 10
	if p.threshold <= 0 {
		return ""
	}
	filled := p.last.NoProgress * width / p.threshold
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("━", filled) + strings.Repeat("─", width-filled) + "]"
}

func (p *ProgressDisplay) label() string {
	if p.last.Counterpart != "" {
		return p.last.Counterpart
	}
	if p.name != "" {
		return p.name
	}
	return "conversation"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// Reporters fans progress out to several reporters
type Reporters []driver.Reporter

// Progress forwards to every reporter
func (rs Reporters) Progress(p driver.Progress) {
	for _, r := range rs {
		r.Progress(p)
	}
}

// Completed forwards to every reporter
func (rs Reporters) Completed(c driver.Completion) {
	for _, r := range rs {
		r.Completed(c)
	}
}
