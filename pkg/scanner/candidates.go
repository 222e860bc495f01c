package scanner

import (
	"sort"

	"chatscrape/pkg/dom"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// collectCandidates returns every element inside the container matching any
// candidate selector, once each, in document order
func (s *Scanner) collectCandidates(snap *dom.Snapshot, container *goquery.Selection) []*goquery.Selection {
	seen := make(map[*html.Node]bool)
	var nodes []*html.Node
	for _, sel := range s.rules.Candidates {
		for _, n := range container.FindMatcher(sel.Matcher).Nodes {
			if !seen[n] {
				seen[n] = true
				nodes = append(nodes, n)
			}
		}
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		return snap.Order(nodes[i]) < snap.Order(nodes[j])
	})

	out := make([]*goquery.Selection, len(nodes))
	for i, n := range nodes {
		out[i] = container.FindNodes(n)
	}
	return out
}

// passScope tracks how the candidates of one pass nest inside each other
type passScope struct {
	snap       *dom.Snapshot
	container  *html.Node
	candidates map[*html.Node]bool
	// covered marks every ancestor of a handled candidate; such a wrapper
	// would only repeat its children's text as one message
	covered map[*html.Node]bool
}

func newPassScope(snap *dom.Snapshot, container *html.Node, candidates []*goquery.Selection) *passScope {
	scope := &passScope{
		snap:       snap,
		container:  container,
		candidates: make(map[*html.Node]bool, len(candidates)),
		covered:    make(map[*html.Node]bool),
	}
	for _, c := range candidates {
		scope.candidates[c.Get(0)] = true
	}
	return scope
}

// cover marks the ancestors of n up to the container
func (p *passScope) cover(n *html.Node) {
	for a := n.Parent; a != nil && a != p.container; a = a.Parent {
		if p.covered[a] {
			return
		}
		p.covered[a] = true
	}
}

// withinOtherCandidate reports whether n sits in a candidate strictly
// inside wrapper
func (p *passScope) withinOtherCandidate(n, wrapper *html.Node) bool {
	for a := n; a != nil && a != wrapper; a = a.Parent {
		if p.candidates[a] {
			return true
		}
	}
	return false
}

func isAncestor(a, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == a {
			return true
		}
	}
	return false
}

// enclosingLabel finds a sender header for a bubble that carries none of its
// own, such as the name above a group of consecutive messages. Wrapping
// candidates are searched nearest first; a header counts when it precedes the
// bubble and does not belong to another candidate.
func (s *Scanner) enclosingLabel(cand *goquery.Selection, full string, scope *passScope) string {
	node := cand.Get(0)
	at := scope.snap.Order(node)

	for wrapper := node.Parent; wrapper != nil && wrapper != scope.container; wrapper = wrapper.Parent {
		if !scope.candidates[wrapper] {
			continue
		}
		ws := scope.snap.Doc.FindNodes(wrapper)
		for _, sel := range s.rules.Labels {
			var found string
			ws.FindMatcher(sel.Matcher).Each(func(_ int, el *goquery.Selection) {
				n := el.Get(0)
				if scope.snap.Order(n) >= at || isAncestor(n, node) || scope.withinOtherCandidate(n, wrapper) {
					return
				}
				if text := dom.Text(el); s.labelShaped(text, full) {
					found = text
				}
			})
			if found != "" {
				return found
			}
		}
	}
	return ""
}
