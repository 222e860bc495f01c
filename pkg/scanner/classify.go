package scanner

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

var timestampPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\d{1,2}:\d{2}(:\d{2})?(\s?[ap]\.?m\.?)?$`),
	regexp.MustCompile(`(?i)^\d{1,3}\s?(s|sec|m|min|mins|h|hr|hrs|d|w|wk)$`),
	regexp.MustCompile(`(?i)^just now$`),
	regexp.MustCompile(`(?i)^now$`),
}

// IsTimestamp reports whether text is a bare time-of-day or relative age
func IsTimestamp(text string) bool {
	for _, re := range timestampPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

const (
	weekdayPattern = `(monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)\.?`
	monthPattern   = `(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\.?`
	dayPattern     = `\d{1,2}(st|nd|rd|th)?`
	yearPattern    = `\d{4}`
)

var (
	trailingTime = regexp.MustCompile(`(?i)^(.+?),?\s+(at\s+)?\d{1,2}:\d{2}(\s?[ap]\.?m\.?)?$`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(today|yesterday)$`),
		regexp.MustCompile(`(?i)^` + weekdayPattern + `$`),
		regexp.MustCompile(`(?i)^(` + weekdayPattern + `,?\s+)?` + monthPattern + `\s+` + dayPattern + `(,?\s+` + yearPattern + `)?$`),
		regexp.MustCompile(`(?i)^(` + weekdayPattern + `,?\s+)?` + dayPattern + `\s+` + monthPattern + `(,?\s+` + yearPattern + `)?$`),
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/(\d{2}|\d{4})$`),
		regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.(\d{2}|\d{4})$`),
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	}
)

// IsDateMarker reports whether text is a conversation date separator such as
// "Yesterday at 3:45 PM", "Mon", "January 5, 2024" or "2024-01-05"
func (r *Rules) IsDateMarker(text string) bool {
	if text == "" || utf8.RuneCountInString(text) >= r.DateMarkerMaxLength {
		return false
	}

	day := text
	if m := trailingTime.FindStringSubmatch(text); m != nil {
		day = m[1]
	}

	for _, re := range datePatterns {
		if re.MatchString(day) {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// truncateRunes returns at most n runes of s
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
