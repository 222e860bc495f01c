package dom

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// RectAttr carries an element's viewport rectangle as "x,y,w,h"
const RectAttr = "data-cs-rect"

// ViewportMeta lets saved frames declare the viewport they were captured in,
// e.g. <meta name="cs-viewport" content="1280x800">
const ViewportMeta = `meta[name="cs-viewport"]`

// Rect is an element's bounding box in CSS pixels relative to the viewport
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Empty reports whether the rect has no area
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

func (r Rect) Right() float64   { return r.X + r.W }
func (r Rect) Bottom() float64  { return r.Y + r.H }
func (r Rect) CenterX() float64 { return r.X + r.W/2 }
func (r Rect) CenterY() float64 { return r.Y + r.H/2 }

func (r Rect) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", r.X, r.Y, r.W, r.H)
}

// ParseRect parses the RectAttr format
func ParseRect(s string) (Rect, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, false
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Rect{}, false
		}
		vals[i] = v
	}
	return Rect{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}, true
}

// RectOf returns the geometry recorded for the first node of sel
func RectOf(sel *goquery.Selection) (Rect, bool) {
	if sel == nil || sel.Length() == 0 {
		return Rect{}, false
	}
	v, ok := sel.First().Attr(RectAttr)
	if !ok {
		return Rect{}, false
	}
	return ParseRect(v)
}

// ScrollTarget tells the page which region to scroll. A zero target means
// the document scroller.
type ScrollTarget struct {
	Rect  Rect `json:"rect"`
	Valid bool `json:"valid"`
}

// Snapshot is a parsed, immutable copy of the page at one instant
type Snapshot struct {
	Doc            *goquery.Document
	ViewportWidth  float64
	ViewportHeight float64
	Title          string
	URL            string
	TakenAt        time.Time

	orderOnce sync.Once
	order     map[*html.Node]int
}

// Parse builds a Snapshot from serialized HTML. A cs-viewport meta tag in the
// document overrides the given viewport size.
func Parse(r io.Reader, viewportWidth, viewportHeight float64) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot html: %w", err)
	}

	if content, ok := doc.Find(ViewportMeta).Attr("content"); ok {
		var w, h float64
		if _, err := fmt.Sscanf(content, "%gx%g", &w, &h); err == nil && w > 0 && h > 0 {
			viewportWidth, viewportHeight = w, h
		}
	}

	return &Snapshot{
		Doc:            doc,
		ViewportWidth:  viewportWidth,
		ViewportHeight: viewportHeight,
		Title:          strings.TrimSpace(doc.Find("title").First().Text()),
		TakenAt:        time.Now(),
	}, nil
}

// ParseString is Parse over a string
func ParseString(s string, viewportWidth, viewportHeight float64) (*Snapshot, error) {
	return Parse(strings.NewReader(s), viewportWidth, viewportHeight)
}

// Body returns the document body
func (s *Snapshot) Body() *goquery.Selection {
	return s.Doc.Find("body").First()
}

// Viewport returns the viewport as a rect at the origin
func (s *Snapshot) Viewport() Rect {
	return Rect{W: s.ViewportWidth, H: s.ViewportHeight}
}

// Order returns the document-order index of n, or -1 if n is not in the snapshot
func (s *Snapshot) Order(n *html.Node) int {
	s.orderOnce.Do(func() {
		s.order = make(map[*html.Node]int)
		i := 0
		var walk func(*html.Node)
		walk = func(node *html.Node) {
			if node.Type == html.ElementNode {
				s.order[node] = i
				i++
			}
			for c := node.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
		for _, root := range s.Doc.Nodes {
			walk(root)
		}
	})
	if idx, ok := s.order[n]; ok {
		return idx
	}
	return -1
}
