package med

import (
	"fmt"
	"regexp"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// clockRegex matches a 24-hour HH:mm clock string.
var clockRegex = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

// Normalize normalizes a medication name:
// 1. Trim leading/trailing whitespace
// 2. Lowercase
// 3. Collapse internal whitespace to single spaces
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return s
}

// ParseClock parses an "HH:mm" string into hour and minute components.
func ParseClock(s string) (hour, minute int, err error) {
	m := clockRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, fmt.Errorf("invalid time %q: expected HH:mm", s)
	}
	// Regex guarantees numeric components
	fmt.Sscanf(m[1], "%d", &hour)
	fmt.Sscanf(m[2], "%d", &minute)
	return hour, minute, nil
}

// FormatClock renders hour and minute as a zero-padded "HH:mm" string.
func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
