package nl2sql

import (
	"regexp"
	"strings"
)

var (
	sqlFenceRe    = regexp.MustCompile("(?i)```sql\\n?")
	bareFenceRe   = regexp.MustCompile("```\\n?")
	sqlLabelRe    = regexp.MustCompile(`(?i)^SQL:\s*`)
	firstSelectRe = regexp.MustCompile(`(?i)(SELECT[\s\S]*?);`)
)

const explanationMarker = "Explanation:"

// Clean reduces raw model output to a single SQL statement terminated by
// exactly one semicolon. Applying it to its own output is a no-op.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)

	s = sqlFenceRe.ReplaceAllString(s, "")
	s = bareFenceRe.ReplaceAllString(s, "")
	s = sqlLabelRe.ReplaceAllString(s, "")

	if i := strings.Index(s, explanationMarker); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "\n\n"); i >= 0 {
		s = s[:i]
	}

	// First SELECT up to the first semicolon wins, even inside a literal.
	if m := firstSelectRe.FindStringSubmatch(s); m != nil {
		s = m[1] + ";"
	}

	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, ";") {
		s += ";"
	}
	return s
}
