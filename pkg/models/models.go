package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind distinguishes chat messages from date separators
type Kind string

const (
	KindMessage    Kind = "message"
	KindDateMarker Kind = "date_marker"
)

// SenderRole is the resolved author category of a message
type SenderRole string

const (
	SenderViewer      SenderRole = "viewer"
	SenderCounterpart SenderRole = "counterpart"
	SenderUnknown     SenderRole = "unknown"
	SenderNamed       SenderRole = "named"
)

// Sender identifies who wrote a message
type Sender struct {
	Role SenderRole `json:"role"`
	Name string     `json:"name,omitempty"`
}

// Viewer returns the sender for the logged-in user
func Viewer() Sender { return Sender{Role: SenderViewer} }

// Counterpart returns the sender for the other participant, name may be empty
func Counterpart(name string) Sender { return Sender{Role: SenderCounterpart, Name: name} }

// Unknown returns the sender used when nothing could be inferred
func Unknown() Sender { return Sender{Role: SenderUnknown} }

// Named returns a sender carrying an explicit label found in the DOM
func Named(name string) Sender { return Sender{Role: SenderNamed, Name: name} }

// Label is the display form used in output lines
func (s Sender) Label() string {
	switch s.Role {
	case SenderViewer:
		return "You"
	case SenderCounterpart:
		if s.Name != "" {
			return s.Name
		}
		return "Them"
	case SenderNamed:
		if s.Name != "" {
			return s.Name
		}
	}
	return "Unknown"
}

// Key is the sender component of a message identity key. Only explicit
// names participate, so a counterpart bubble matched with and without its
// label collapses to one identity.
func (s Sender) Key() string {
	if s.Role == SenderNamed {
		return string(s.Role) + ":" + strings.ToLower(s.Name)
	}
	return string(s.Role)
}

// Item is one extracted unit of conversation output
type Item struct {
	Kind         Kind      `json:"kind"`
	Sender       *Sender   `json:"sender,omitempty"`
	Content      string    `json:"content"`
	Timestamp    string    `json:"timestamp,omitempty"`
	Sequence     int64     `json:"sequence"`
	IdentityKey  string    `json:"identity_key"`
	Pass         int       `json:"pass"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// IsMessage reports whether the item is a chat message
func (i Item) IsMessage() bool { return i.Kind == KindMessage }

// Line formats the item the way sinks receive it
func (i Item) Line(includeTimestamp bool) string {
	if i.Kind == KindDateMarker {
		return fmt.Sprintf("--- %s ---", i.Content)
	}

	label := Unknown().Label()
	if i.Sender != nil {
		label = i.Sender.Label()
	}

	if includeTimestamp && i.Timestamp != "" {
		return fmt.Sprintf("%s [%s]: %s", label, i.Timestamp, i.Content)
	}
	return fmt.Sprintf("%s: %s", label, i.Content)
}

// Lines formats a batch of items, optionally leaving out date markers
func Lines(items []Item, includeDates, includeTimestamps bool) []string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		if item.Kind == KindDateMarker && !includeDates {
			continue
		}
		lines = append(lines, item.Line(includeTimestamps))
	}
	return lines
}

// SortBySequence orders items in discovery order
func SortBySequence(items []Item) {
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].Sequence < items[b].Sequence
	})
}

// Chronological returns a best-effort conversation order. Each pass walks
// the visible window bottom-up and every scroll reveals older content, so
// reversing discovery order approximates the on-screen order.
func Chronological(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Sequence > out[b].Sequence
	})
	return out
}
