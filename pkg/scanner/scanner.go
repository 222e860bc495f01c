package scanner

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"chatscrape/pkg/dom"
	errs "chatscrape/pkg/errors"
	"chatscrape/pkg/logger"
	"chatscrape/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

// State is everything a session carries between passes
type State struct {
	Seen         *SeenSet
	Fingerprints *FingerprintSet
	Counterpart  string
	Pass         int
}

// NewState returns an empty session state
func NewState(rules *Rules) *State {
	return &State{
		Seen:         NewSeenSet(),
		Fingerprints: NewFingerprintSet(rules.FingerprintCapacity),
	}
}

// PassResult describes one scan pass
type PassResult struct {
	Pass int
	// Items are the newly emitted items, newest visible first
	Items       []models.Item
	Container   string
	Candidates  int
	Noise       int
	Rejected    int
	Duplicates  int
	Skipped     int
	// Nested counts wrappers dropped because a candidate inside them was
	// already handled
	Nested      int
	Errors      int
	Counterpart string
	Target      dom.ScrollTarget
}

// Scanner turns snapshots into new, deduplicated items
type Scanner struct {
	rules *Rules
	log   logger.Logger
	now   func() time.Time
}

// New creates a Scanner. Selectors that failed to compile are logged once here.
func New(rules *Rules, log logger.Logger) *Scanner {
	if log == nil {
		log = logger.NewNopLogger()
	}
	for _, src := range rules.Invalid {
		log.WithField("selector", src).Warn("Skipping invalid selector")
	}
	return &Scanner{rules: rules, log: log, now: time.Now}
}

// Rules returns the compiled rules in use
func (s *Scanner) Rules() *Rules { return s.rules }

// outcome of classifying one candidate
type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeKnown
	outcomeNoise
	outcomeRejected
	outcomeDuplicate
	outcomeEmitted
)

// Scan runs one pass over snap. When no container can be found the result is
// empty and the error is a container_not_found error.
func (s *Scanner) Scan(snap *dom.Snapshot, st *State) (*PassResult, error) {
	st.Pass++
	res := &PassResult{Pass: st.Pass}

	if st.Counterpart == "" {
		st.Counterpart = s.resolveCounterpart(snap)
		if st.Counterpart != "" {
			s.log.WithField("name", st.Counterpart).Debug("Resolved counterpart name")
		}
	}
	res.Counterpart = st.Counterpart

	container, ok := s.locateContainer(snap)
	if !ok {
		return res, errs.New(errs.ErrorTypeContainerNotFound, "no strategy produced a container with message-shaped content")
	}
	res.Container = container.strategy
	if container.hasRect {
		res.Target = dom.ScrollTarget{Rect: container.rect, Valid: true}
	}

	frame := snap.Viewport()
	if container.hasRect {
		frame = container.rect
	}

	candidates := s.collectCandidates(snap, container.node)
	res.Candidates = len(candidates)
	scope := newPassScope(snap, container.node.Get(0), candidates)

	// bottom-up: the newest visible content is discovered first, and nested
	// candidates before the elements wrapping them
	for i := len(candidates) - 1; i >= 0; i-- {
		node := candidates[i].Get(0)
		if scope.covered[node] {
			res.Nested++
			continue
		}
		item, out, err := s.classifySafely(candidates[i], frame, st, scope)
		if err != nil {
			res.Errors++
			s.log.WithError(err).Debug("Skipping element")
			continue
		}
		if out == outcomeKnown || out == outcomeDuplicate || out == outcomeEmitted {
			scope.cover(node)
		}
		switch out {
		case outcomeSkipped, outcomeKnown:
			res.Skipped++
		case outcomeNoise:
			res.Noise++
		case outcomeRejected:
			res.Rejected++
		case outcomeDuplicate:
			res.Duplicates++
		case outcomeEmitted:
			res.Items = append(res.Items, item)
		}
	}

	logger.LogPass(s.log, res.Pass, res.Container, res.Candidates, len(res.Items), res.Duplicates, res.Noise)
	return res, nil
}

func (s *Scanner) classifySafely(cand *goquery.Selection, frame dom.Rect, st *State, scope *passScope) (item models.Item, out outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.New(errs.ErrorTypeElementClassification, fmt.Sprintf("panic: %v\n%s", r, debug.Stack()))
		}
	}()
	return s.classify(cand, frame, st, scope)
}

func (s *Scanner) classify(cand *goquery.Selection, frame dom.Rect, st *State, scope *passScope) (models.Item, outcome, error) {
	rect, hasRect := dom.RectOf(cand)
	if hasRect && rect.Empty() {
		return models.Item{}, outcomeSkipped, nil
	}

	lines := dom.Lines(cand)
	full := dom.Normalize(joinLines(lines))
	if full == "" {
		return models.Item{}, outcomeSkipped, nil
	}

	fp := Fingerprint(full, rect, hasRect)
	if st.Fingerprints.Has(fp) {
		return models.Item{}, outcomeKnown, nil
	}

	if s.rules.IsNoise(full) {
		st.Fingerprints.Mark(fp)
		return models.Item{}, outcomeNoise, nil
	}

	var item models.Item
	if s.rules.IsDateMarker(full) {
		item = models.Item{Kind: models.KindDateMarker, Content: full}
	} else {
		var ok bool
		item, ok = s.buildMessage(cand, lines, full, frame, st, scope)
		if !ok {
			st.Fingerprints.Mark(fp)
			return models.Item{}, outcomeRejected, nil
		}
	}

	item.IdentityKey = IdentityKey(item.Kind, item.Sender, item.Content)
	item.Pass = st.Pass
	item.DiscoveredAt = s.now()

	added, ok := st.Seen.Add(item)
	st.Fingerprints.Mark(fp)
	if !ok {
		return models.Item{}, outcomeDuplicate, nil
	}
	return added, outcomeEmitted, nil
}

func (s *Scanner) buildMessage(cand *goquery.Selection, lines []dom.Line, full string, frame dom.Rect, st *State, scope *passScope) (models.Item, bool) {
	label, labelIdx := s.explicitLabel(cand, lines, full)
	if label == "" {
		label = s.enclosingLabel(cand, full, scope)
	}

	in := senderInput{label: label, counterpart: st.Counterpart, frame: frame}
	in.left, in.hasLeft = contentLeft(cand, lines, labelIdx)

	sender, detector := s.resolveSender(in)

	content, timestamp := s.messageContent(lines, labelIdx)
	content = s.stripSenderPrefix(content, s.senderNames(sender, label)...)
	if !s.acceptContent(content, sender) {
		return models.Item{}, false
	}

	s.log.DebugWithFields("Classified message", map[string]interface{}{
		"detector": detector,
		"sender":   sender.Label(),
	})

	return models.Item{
		Kind:      models.KindMessage,
		Sender:    &sender,
		Content:   content,
		Timestamp: timestamp,
	}, true
}

// contentLeft is the left edge of the candidate's content: the leftmost
// geometry among the elements owning non-label lines, else the candidate's own
func contentLeft(cand *goquery.Selection, lines []dom.Line, labelIdx int) (float64, bool) {
	left, found := 0.0, false
	for i, l := range lines {
		if i == labelIdx || l.Owner == nil || l.Owner == cand.Get(0) {
			continue
		}
		r, ok := dom.RectOf(cand.FindNodes(l.Owner))
		if !ok || r.Empty() {
			continue
		}
		if !found || r.X < left {
			left, found = r.X, true
		}
	}
	if found {
		return left, true
	}
	if r, ok := dom.RectOf(cand); ok && !r.Empty() {
		return r.X, true
	}
	return 0, false
}

func joinLines(lines []dom.Line) string {
	return strings.Join(dom.LineTexts(lines), " ")
}
