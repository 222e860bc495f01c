package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Line is one visual line of an element's text and the element it came from
type Line struct {
	Text  string
	Owner *html.Node
}

// inline formatting elements continue the current line
var inlineAtoms = map[atom.Atom]bool{
	atom.A: true, atom.Abbr: true, atom.B: true, atom.Code: true, atom.Em: true,
	atom.I: true, atom.Mark: true, atom.S: true, atom.Small: true, atom.Strong: true,
	atom.Sub: true, atom.Sup: true, atom.U: true, atom.Img: true, atom.Wbr: true,
}

var skippedAtoms = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true, atom.Template: true,
}

// Lines reads the text of the first node of sel as lines. Text nodes are
// joined within inline formatting and broken at every other element boundary.
// Lines are whitespace-normalized and empty lines are dropped.
func Lines(sel *goquery.Selection) []Line {
	if sel == nil || sel.Length() == 0 {
		return nil
	}

	var (
		lines []Line
		buf   strings.Builder
		owner *html.Node
	)
	flush := func() {
		if text := Normalize(buf.String()); text != "" {
			lines = append(lines, Line{Text: text, Owner: owner})
		}
		buf.Reset()
		owner = nil
	}

	var walk func(n *html.Node, block *html.Node)
	walk = func(n *html.Node, block *html.Node) {
		switch n.Type {
		case html.TextNode:
			if owner == nil {
				owner = block
			}
			buf.WriteString(n.Data)
			return
		case html.ElementNode:
			if skippedAtoms[n.DataAtom] {
				return
			}
			if n.DataAtom == atom.Br {
				flush()
				return
			}
			if !inlineAtoms[n.DataAtom] {
				flush()
				block = n
				defer flush()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, block)
		}
	}

	root := sel.Get(0)
	walk(root, root)
	flush()
	return lines
}

// LineTexts returns only the text of each line
func LineTexts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

// Text is the element text with lines joined by single spaces
func Text(sel *goquery.Selection) string {
	return strings.Join(LineTexts(Lines(sel)), " ")
}

// Normalize collapses runs of whitespace, including non-breaking and
// zero-width spaces, into single spaces and trims the ends
func Normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			return -1
		case '\u00a0', '\u202f':
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
