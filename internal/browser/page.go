package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"chatscrape/pkg/dom"
	"chatscrape/pkg/logger"

	"github.com/go-rod/rod"
)

// Page adapts a live tab to the driver's Page interface
type Page struct {
	page   *rod.Page
	logger logger.Logger
}

type snapshotResult struct {
	HTML   string  `json:"html"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Title  string  `json:"title"`
	URL    string  `json:"url"`
}

type scrollResult struct {
	Scroller string  `json:"scroller"`
	Before   float64 `json:"before"`
}

func newPage(page *rod.Page, log logger.Logger) *Page {
	return &Page{page: page, logger: log}
}

// Snapshot captures the annotated document
func (p *Page) Snapshot(ctx context.Context) (*dom.Snapshot, error) {
	res, err := p.page.Context(ctx).Eval(snapshotJS)
	if err != nil {
		return nil, fmt.Errorf("failed to capture snapshot: %w", err)
	}
	return decodeSnapshot(res.Value.Str())
}

// ScrollToOldest scrolls the conversation region to its top so the site
// loads older history
func (p *Page) ScrollToOldest(ctx context.Context, target dom.ScrollTarget) error {
	r := target.Rect
	res, err := p.page.Context(ctx).Eval(scrollJS, r.X, r.Y, r.W, r.H, target.Valid)
	if err != nil {
		return fmt.Errorf("failed to scroll: %w", err)
	}

	var out scrollResult
	if err := json.Unmarshal([]byte(res.Value.Str()), &out); err == nil {
		p.logger.DebugWithFields("Scrolled to oldest", map[string]interface{}{
			"scroller": out.Scroller,
			"from":     out.Before,
		})
	}
	return nil
}

// URL returns the tab's current URL
func (p *Page) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Close closes the tab
func (p *Page) Close() error {
	return p.page.Close()
}

func decodeSnapshot(raw string) (*dom.Snapshot, error) {
	var res snapshotResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if res.HTML == "" {
		return nil, fmt.Errorf("snapshot returned an empty document")
	}

	snap, err := dom.ParseString(res.HTML, res.Width, res.Height)
	if err != nil {
		return nil, err
	}
	snap.URL = res.URL
	if res.Title != "" {
		snap.Title = res.Title
	}
	return snap, nil
}
