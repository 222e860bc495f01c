package scanner

import (
	"regexp"
	"strings"

	"chatscrape/pkg/dom"
	"chatscrape/pkg/models"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// senderInput is what detectors see of one message candidate
type senderInput struct {
	label       string
	counterpart string
	left        float64
	hasLeft     bool
	frame       dom.Rect
}

// Detector resolves a sender or reports no opinion
type Detector struct {
	Name   string
	Detect func(r *Rules, in senderInput) (models.Sender, bool)
}

// detectors run in order and the first confident answer wins. A right-side
// bubble is the viewer's whatever its label says; elsewhere an explicit
// label names the sender and left-side placement only fills in for a
// missing one.
var detectors = []Detector{
	{Name: "counterpart-label", Detect: func(r *Rules, in senderInput) (models.Sender, bool) {
		if in.label != "" && in.counterpart != "" && strings.EqualFold(in.label, in.counterpart) {
			return models.Counterpart(in.counterpart), true
		}
		return models.Sender{}, false
	}},
	{Name: "viewer-label", Detect: func(r *Rules, in senderInput) (models.Sender, bool) {
		if in.label != "" && r.isViewerAlias(in.label) {
			return models.Viewer(), true
		}
		return models.Sender{}, false
	}},
	{Name: "viewer-position", Detect: func(r *Rules, in senderInput) (models.Sender, bool) {
		if rel, ok := in.relativeLeft(); ok && rel >= r.ViewerMinX {
			return models.Viewer(), true
		}
		return models.Sender{}, false
	}},
	{Name: "explicit-label", Detect: func(r *Rules, in senderInput) (models.Sender, bool) {
		if in.label != "" {
			return models.Named(in.label), true
		}
		return models.Sender{}, false
	}},
	{Name: "counterpart-position", Detect: func(r *Rules, in senderInput) (models.Sender, bool) {
		if rel, ok := in.relativeLeft(); ok && rel <= r.CounterpartMaxX {
			return models.Counterpart(in.counterpart), true
		}
		return models.Sender{}, false
	}},
}

// relativeLeft is the content's left edge as a fraction of the frame width
func (in senderInput) relativeLeft() (float64, bool) {
	if !in.hasLeft || in.frame.W <= 0 {
		return 0, false
	}
	return (in.left - in.frame.X) / in.frame.W, true
}

// resolveSender runs the detector chain
func (s *Scanner) resolveSender(in senderInput) (models.Sender, string) {
	for _, d := range detectors {
		if sender, ok := d.Detect(s.rules, in); ok {
			return sender, d.Name
		}
	}
	return models.Unknown(), "none"
}

// explicitLabel finds the sender label inside a candidate. Configured label
// selectors are tried first; otherwise the first line qualifies when it is
// the only line of a descendant element and looks like a name. It returns
// the label and the index of its line, or -1.
func (s *Scanner) explicitLabel(cand *goquery.Selection, lines []dom.Line, full string) (string, int) {
	if len(lines) < 2 {
		return "", -1
	}

	for _, sel := range s.rules.Labels {
		labelEl := cand.FindMatcher(sel.Matcher).First()
		if labelEl.Length() == 0 {
			continue
		}
		text := dom.Text(labelEl)
		if !s.labelShaped(text, full) {
			continue
		}
		for i, l := range lines {
			if strings.EqualFold(l.Text, text) {
				return l.Text, i
			}
		}
	}

	first := lines[0]
	if first.Owner == nil || first.Owner == cand.Get(0) || ownsOtherLines(first.Owner, lines[1:]) {
		return "", -1
	}
	if !s.labelShaped(first.Text, full) {
		return "", -1
	}
	for _, rest := range lines[1:] {
		if !s.rules.IsNoise(rest.Text) {
			return first.Text, 0
		}
	}
	return "", -1
}

func (s *Scanner) labelShaped(text, full string) bool {
	return text != "" &&
		runeLen(text) <= s.rules.LabelMaxLength &&
		hasLetter(text) &&
		!strings.EqualFold(text, full) &&
		!s.rules.IsNoise(text) &&
		!s.rules.IsDateMarker(text)
}

func ownsOtherLines(owner *html.Node, lines []dom.Line) bool {
	for _, l := range lines {
		if l.Owner == owner {
			return true
		}
	}
	return false
}

var (
	titleSeparators = regexp.MustCompile(`\s+[|•·–—-]\s+`)
	unreadPrefix    = regexp.MustCompile(`^\(\d+\+?\)\s*`)
	genericTitles   = map[string]bool{
		"messenger": true, "messages": true, "chat": true, "chats": true,
		"inbox": true, "direct": true, "conversation": true, "new message": true,
	}
)

// resolveCounterpart reads the other participant's name from the page
// header, falling back to the document title
func (s *Scanner) resolveCounterpart(snap *dom.Snapshot) string {
	for _, sel := range s.rules.Counterpart {
		var name string
		snap.Doc.FindMatcher(sel.Matcher).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			text := dom.Text(el)
			if s.plausibleName(text) {
				name = text
				return false
			}
			return true
		})
		if name != "" {
			return name
		}
	}

	title := unreadPrefix.ReplaceAllString(strings.TrimSpace(snap.Title), "")
	if title == "" {
		return ""
	}
	first := dom.Normalize(titleSeparators.Split(title, 2)[0])
	if s.plausibleName(first) {
		return first
	}
	return ""
}

func (s *Scanner) plausibleName(text string) bool {
	return text != "" &&
		runeLen(text) <= s.rules.LabelMaxLength &&
		hasLetter(text) &&
		!genericTitles[strings.ToLower(text)] &&
		!s.rules.IsNoise(text)
}
