package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSenderLabel(t *testing.T) {
	tests := []struct {
		name   string
		sender Sender
		want   string
	}{
		{"viewer", Viewer(), "You"},
		{"counterpart with name", Counterpart("Alice"), "Alice"},
		{"counterpart without name", Counterpart(""), "Them"},
		{"named", Named("Bob"), "Bob"},
		{"named without name", Named(""), "Unknown"},
		{"unknown", Unknown(), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sender.Label())
		})
	}
}

func TestSenderKeyIgnoresCounterpartName(t *testing.T) {
	assert.Equal(t, Counterpart("").Key(), Counterpart("Alice").Key())
	assert.NotEqual(t, Named("alice").Key(), Named("bob").Key())
	assert.Equal(t, Named("Alice").Key(), Named("alice").Key())
}

func TestItemLine(t *testing.T) {
	alice := Counterpart("Alice")

	tests := []struct {
		name          string
		item          Item
		withTimestamp bool
		want          string
	}{
		{
			name:          "message with timestamp enabled and present",
			item:          Item{Kind: KindMessage, Sender: &alice, Content: "hello", Timestamp: "10:42 AM"},
			withTimestamp: true,
			want:          "Alice [10:42 AM]: hello",
		},
		{
			name:          "message with timestamp disabled",
			item:          Item{Kind: KindMessage, Sender: &alice, Content: "hello", Timestamp: "10:42 AM"},
			withTimestamp: false,
			want:          "Alice: hello",
		},
		{
			name:          "message with timestamp enabled but absent",
			item:          Item{Kind: KindMessage, Sender: &alice, Content: "hello"},
			withTimestamp: true,
			want:          "Alice: hello",
		},
		{
			name: "message without sender",
			item: Item{Kind: KindMessage, Content: "orphan"},
			want: "Unknown: orphan",
		},
		{
			name:          "date marker",
			item:          Item{Kind: KindDateMarker, Content: "Yesterday at 3:45 PM"},
			withTimestamp: true,
			want:          "--- Yesterday at 3:45 PM ---",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.Line(tt.withTimestamp))
		})
	}
}

func TestLinesSkipsDatesWhenDisabled(t *testing.T) {
	you := Viewer()
	items := []Item{
		{Kind: KindDateMarker, Content: "Today", Sequence: 1},
		{Kind: KindMessage, Sender: &you, Content: "hi", Sequence: 2},
	}

	assert.Equal(t, []string{"--- Today ---", "You: hi"}, Lines(items, true, false))
	assert.Equal(t, []string{"You: hi"}, Lines(items, false, false))
}

func TestChronologicalReversesDiscoveryOrder(t *testing.T) {
	items := []Item{{Sequence: 1}, {Sequence: 2}, {Sequence: 3}}

	chrono := Chronological(items)

	assert.Equal(t, []int64{3, 2, 1}, []int64{chrono[0].Sequence, chrono[1].Sequence, chrono[2].Sequence})
	assert.Equal(t, int64(1), items[0].Sequence, "input must not be reordered")
}

func TestSortBySequence(t *testing.T) {
	items := []Item{{Sequence: 3}, {Sequence: 1}, {Sequence: 2}}
	SortBySequence(items)
	assert.Equal(t, int64(1), items[0].Sequence)
	assert.Equal(t, int64(3), items[2].Sequence)
}
