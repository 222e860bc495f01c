package scanner

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"chatscrape/pkg/dom"
	"chatscrape/pkg/models"
)

// messageContent removes the label line, timestamps and inline UI chrome from
// a candidate's lines. The first timestamp line is returned separately.
func (s *Scanner) messageContent(lines []dom.Line, labelIdx int) (content, timestamp string) {
	kept := make([]string, 0, len(lines))
	for i, l := range lines {
		if i == labelIdx {
			continue
		}
		if IsTimestamp(l.Text) {
			if timestamp == "" {
				timestamp = l.Text
			}
			continue
		}
		if s.rules.IsNoise(l.Text) {
			continue
		}
		kept = append(kept, l.Text)
	}
	return dom.Normalize(strings.Join(kept, " ")), timestamp
}

// stripSenderPrefix drops a leading "Name:" or a leading "Name " from
// content. A bare name is only dropped when something follows it and never
// for viewer aliases, which read as ordinary words.
func (s *Scanner) stripSenderPrefix(content string, names ...string) string {
	for _, name := range names {
		if name == "" || len(content) < len(name) || !strings.EqualFold(content[:len(name)], name) {
			continue
		}
		rest := content[len(name):]
		if strings.HasPrefix(rest, ":") {
			return strings.TrimSpace(rest[1:])
		}
		if s.rules.isViewerAlias(name) {
			continue
		}
		r, _ := utf8.DecodeRuneInString(rest)
		if unicode.IsSpace(r) {
			if trimmed := strings.TrimSpace(rest); trimmed != "" {
				return trimmed
			}
		}
	}
	return content
}

// senderNames lists the names a message from sender might be prefixed with
func (s *Scanner) senderNames(sender models.Sender, label string) []string {
	names := []string{label, sender.Name}
	if sender.Role == models.SenderViewer {
		names = append(names, s.rules.ViewerAliases...)
	}
	return names
}

// acceptContent applies the final content checks
func (s *Scanner) acceptContent(content string, sender models.Sender) bool {
	if content == "" {
		return false
	}
	if strings.EqualFold(content, sender.Label()) {
		return false
	}
	return runeLen(content) <= s.rules.MaxContentLength
}
