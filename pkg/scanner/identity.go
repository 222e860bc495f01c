package scanner

import (
	"fmt"
	"math"
	"strings"

	"chatscrape/pkg/dom"
	"chatscrape/pkg/models"
)

const (
	identityPrefixRunes    = 100
	fingerprintPrefixRunes = 50
	fingerprintGrid        = 10
)

// IdentityKey returns the deduplication key of an item
func IdentityKey(kind models.Kind, sender *models.Sender, content string) string {
	lower := strings.ToLower(content)
	if kind == models.KindDateMarker {
		return "date|" + lower
	}
	role := models.Unknown().Key()
	if sender != nil {
		role = sender.Key()
	}
	return "msg|" + role + "|" + truncateRunes(lower, identityPrefixRunes)
}

// Fingerprint identifies an element by its leading text and grid-snapped
// position. Elements without geometry share the "?" position.
func Fingerprint(text string, rect dom.Rect, hasRect bool) string {
	prefix := truncateRunes(text, fingerprintPrefixRunes)
	if !hasRect {
		return prefix + "@?"
	}
	snap := func(v float64) int64 {
		return int64(math.Round(v/fingerprintGrid) * fingerprintGrid)
	}
	return fmt.Sprintf("%s@%d,%d", prefix, snap(rect.X), snap(rect.Y))
}

// SeenSet records every item emitted in a session and owns its sequence
type SeenSet struct {
	items map[string]models.Item
	seq   int64
}

// NewSeenSet creates an empty set starting at sequence zero
func NewSeenSet() *SeenSet {
	return &SeenSet{items: make(map[string]models.Item)}
}

// Has reports whether key was already emitted
func (s *SeenSet) Has(key string) bool {
	_, ok := s.items[key]
	return ok
}

// Add records item under its identity key and assigns the next sequence.
// It returns false, leaving the set untouched, when the key is already present.
func (s *SeenSet) Add(item models.Item) (models.Item, bool) {
	if s.Has(item.IdentityKey) {
		return models.Item{}, false
	}
	s.seq++
	item.Sequence = s.seq
	s.items[item.IdentityKey] = item
	return item, true
}

// Seed restores previously emitted items, keeping their sequences
func (s *SeenSet) Seed(items []models.Item) {
	for _, item := range items {
		if item.IdentityKey == "" {
			continue
		}
		s.items[item.IdentityKey] = item
		if item.Sequence > s.seq {
			s.seq = item.Sequence
		}
	}
}

// Len returns the number of distinct items
func (s *SeenSet) Len() int { return len(s.items) }

// Sequence returns the last assigned sequence
func (s *SeenSet) Sequence() int64 { return s.seq }

// Items returns all items in discovery order
func (s *SeenSet) Items() []models.Item {
	out := make([]models.Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	models.SortBySequence(out)
	return out
}

// FingerprintSet remembers elements that already reached a final decision.
// It empties itself once capacity is reached.
type FingerprintSet struct {
	set      map[string]struct{}
	capacity int
	resets   int
}

// NewFingerprintSet creates a set holding at most capacity entries
func NewFingerprintSet(capacity int) *FingerprintSet {
	if capacity <= 0 {
		capacity = 20000
	}
	return &FingerprintSet{set: make(map[string]struct{}), capacity: capacity}
}

// Has reports whether fp was marked
func (f *FingerprintSet) Has(fp string) bool {
	_, ok := f.set[fp]
	return ok
}

// Mark records fp
func (f *FingerprintSet) Mark(fp string) {
	if _, ok := f.set[fp]; ok {
		return
	}
	if len(f.set) >= f.capacity {
		f.Clear()
		f.resets++
	}
	f.set[fp] = struct{}{}
}

// Clear forgets every fingerprint
func (f *FingerprintSet) Clear() {
	f.set = make(map[string]struct{})
}

// Len returns the number of fingerprints held
func (f *FingerprintSet) Len() int { return len(f.set) }

// Resets returns how many times the set emptied itself
func (f *FingerprintSet) Resets() int { return f.resets }
