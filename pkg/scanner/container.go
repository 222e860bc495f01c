package scanner

import (
	"sort"

	"chatscrape/pkg/config"
	"chatscrape/pkg/dom"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ContainerStrategy proposes conversation containers for a snapshot, best
// first. An empty selection means the strategy has no opinion.
type ContainerStrategy struct {
	Name   string
	Locate func(snap *dom.Snapshot) *goquery.Selection
}

// SelectorStrategy proposes every element matching selectors, in selector order
func SelectorStrategy(name string, selectors []Selector) ContainerStrategy {
	return ContainerStrategy{
		Name: name,
		Locate: func(snap *dom.Snapshot) *goquery.Selection {
			var nodes []*html.Node
			seen := make(map[*html.Node]bool)
			for _, sel := range selectors {
				for _, n := range snap.Doc.FindMatcher(sel.Matcher).Nodes {
					if !seen[n] {
						seen[n] = true
						nodes = append(nodes, n)
					}
				}
			}
			return snap.Doc.FindNodes(nodes...)
		},
	}
}

// LayoutStrategy proposes elements shaped like a conversation pane: width and
// left edge within the configured viewport fractions and tall enough. Deeper
// elements are preferred.
func LayoutStrategy(name string, layout config.LayoutConfig) ContainerStrategy {
	return ContainerStrategy{
		Name: name,
		Locate: func(snap *dom.Snapshot) *goquery.Selection {
			vw, vh := snap.ViewportWidth, snap.ViewportHeight
			if vw <= 0 || vh <= 0 {
				return snap.Doc.FindNodes()
			}

			type match struct {
				node  *html.Node
				depth int
			}
			var matches []match
			snap.Doc.Find("[" + dom.RectAttr + "]").Each(func(_ int, s *goquery.Selection) {
				r, ok := dom.RectOf(s)
				if !ok || r.Empty() {
					return
				}
				width, left, height := r.W/vw, r.X/vw, r.H/vh
				if width < layout.MinWidth || width > layout.MaxWidth {
					return
				}
				if left < layout.MinLeft || left > layout.MaxLeft {
					return
				}
				if height < layout.MinHeight {
					return
				}
				matches = append(matches, match{node: s.Get(0), depth: depth(s.Get(0))})
			})

			sort.SliceStable(matches, func(i, j int) bool {
				return matches[i].depth > matches[j].depth
			})
			nodes := make([]*html.Node, len(matches))
			for i, m := range matches {
				nodes[i] = m.node
			}
			return snap.Doc.FindNodes(nodes...)
		},
	}
}

func depth(n *html.Node) int {
	d := 0
	for p := n.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// located is the container chosen for a pass
type located struct {
	strategy string
	node     *goquery.Selection
	rect     dom.Rect
	hasRect  bool
}

// locateContainer walks the strategy cascade and returns the first proposed
// element holding at least one plausible message, falling back to <body>.
func (s *Scanner) locateContainer(snap *dom.Snapshot) (*located, bool) {
	for _, strategy := range s.rules.Containers {
		proposed := strategy.Locate(snap)
		for i := 0; i < proposed.Length(); i++ {
			el := proposed.Eq(i)
			if s.hasPlausibleMessage(el) {
				return newLocated(strategy.Name, el), true
			}
		}
	}

	body := snap.Body()
	if body.Length() > 0 && s.hasPlausibleMessage(body) {
		return newLocated("body", body), true
	}
	return nil, false
}

func newLocated(name string, el *goquery.Selection) *located {
	r, ok := dom.RectOf(el)
	return &located{strategy: name, node: el, rect: r, hasRect: ok && !r.Empty()}
}

// hasPlausibleMessage reports whether el has a candidate descendant whose
// text could be a message
func (s *Scanner) hasPlausibleMessage(el *goquery.Selection) bool {
	for _, sel := range s.rules.Candidates {
		found := false
		el.FindMatcher(sel.Matcher).EachWithBreak(func(_ int, c *goquery.Selection) bool {
			if r, ok := dom.RectOf(c); ok && r.Empty() {
				return true
			}
			text := dom.Text(c)
			n := runeLen(text)
			if n >= 1 && n <= s.rules.MaxContentLength && !s.rules.IsNoise(text) {
				found = true
				return false
			}
			return true
		})
		if found {
			return true
		}
	}
	return false
}
