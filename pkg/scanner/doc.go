// Package scanner extracts chat items from a page snapshot.
//
// A pass locates the conversation container through a cascade of strategies,
// collects message-shaped candidates inside it and walks them bottom-up, so
// the newest visible content is discovered first. Each candidate becomes a
// message, a date marker or noise. Senders are resolved by an ordered chain
// of detectors: an explicit label naming the counterpart, a label naming the
// viewer, horizontal position, any other explicit label, then Unknown.
//
// State carries two sets across passes. SeenSet holds the identity key of
// every emitted item and owns the sequence counter. FingerprintSet remembers
// elements that already reached a decision so unchanged elements are not
// classified again.
//
// Basic usage:
//
//	s := scanner.New(scanner.DefaultRules(), log)
//	st := scanner.NewState(s.Rules())
//	res, err := s.Scan(snap, st)
package scanner
