// Package text holds the string processing used to turn a trip report into
// narration segments.
package text

import (
	"regexp"
	"strings"

	"tripcast/pkg/model"
)

// Pause durations in seconds.
const (
	PauseSentence = 1.0 // after '.', '!' or '?'
	PauseClause   = 0.3 // trailing fragment without a terminator
)

const terminators = ".!?"

var segmentRegex = regexp.MustCompile(`[^.!?]+[.!?]?`)

// Normalize collapses runs of whitespace to a single space and trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Split breaks normalized text into segments, one per sentence-like span.
// A span ends at the first terminator; text after the last terminator is
// still emitted with a shorter pause.
func Split(s string) []model.Segment {
	var segments []model.Segment
	for _, part := range segmentRegex.FindAllString(s, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		pause := PauseClause
		if strings.ContainsRune(terminators, rune(part[len(part)-1])) {
			pause = PauseSentence
		}
		segments = append(segments, model.Segment{Text: part, Pause: pause})
	}
	return segments
}

// SanitizeFilename keeps ASCII letters, digits and "-_.() ", then replaces
// spaces with underscores.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune("-_.() ", r):
			b.WriteRune(r)
		}
	}

	out := strings.ReplaceAll(b.String(), " ", "_")
	if strings.Trim(out, "_.") == "" {
		return "narration"
	}
	return out
}
