package dom

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Default viewport for frames that do not declare one
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800
)

// StaticPage replays saved HTML frames. Every scroll advances to the next
// frame and the last frame repeats once reached.
type StaticPage struct {
	mu      sync.Mutex
	frames  []string
	current int
	scrolls int
	targets []ScrollTarget

	Width  float64
	Height float64
	URL    string
}

// NewStaticPage creates a page over in-memory frames
func NewStaticPage(frames ...string) *StaticPage {
	return &StaticPage{
		frames: frames,
		Width:  DefaultViewportWidth,
		Height: DefaultViewportHeight,
		URL:    "replay://frames",
	}
}

// LoadStaticPage reads frames from files, in order
func LoadStaticPage(paths ...string) (*StaticPage, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no replay frames given")
	}
	frames := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read frame %s: %w", p, err)
		}
		frames = append(frames, string(data))
	}
	page := NewStaticPage(frames...)
	page.URL = "file://" + paths[0]
	return page, nil
}

// Snapshot parses the current frame
func (p *StaticPage) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if len(p.frames) == 0 {
		p.mu.Unlock()
		return nil, fmt.Errorf("static page has no frames")
	}
	frame := p.frames[p.current]
	w, h, url := p.Width, p.Height, p.URL
	p.mu.Unlock()

	snap, err := ParseString(frame, w, h)
	if err != nil {
		return nil, err
	}
	snap.URL = url
	return snap, nil
}

// ScrollToOldest advances to the next frame
func (p *StaticPage) ScrollToOldest(ctx context.Context, target ScrollTarget) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolls++
	p.targets = append(p.targets, target)
	if p.current < len(p.frames)-1 {
		p.current++
	}
	return nil
}

// Scrolls returns how many scrolls were requested
func (p *StaticPage) Scrolls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrolls
}

// Targets returns the scroll targets received so far
func (p *StaticPage) Targets() []ScrollTarget {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ScrollTarget, len(p.targets))
	copy(out, p.targets)
	return out
}

// Frame returns the index of the frame currently shown
func (p *StaticPage) Frame() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}
