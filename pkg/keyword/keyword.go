// Package keyword picks the primary substance a trip report is about.
package keyword

import (
	"log/slog"
	"regexp"
	"strings"
)

// Unknown is returned when no vocabulary word can be found.
const Unknown = "Unknown"

// Vocabulary is the closed set of substances, in tie-break order.
var Vocabulary = []string{
	"LSD",
	"DMT",
	"Salvia",
	"MDMA",
	"Cannabis",
	"Heroin",
}

var (
	wordPatterns = compileWordPatterns(Vocabulary)
	scanPattern  = regexp.MustCompile(`(?i)\b(` + strings.Join(quoteAll(Vocabulary), "|") + `)\b`)
)

func compileWordPatterns(words []string) map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(words))
	for _, w := range words {
		m[w] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return m
}

func quoteAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = regexp.QuoteMeta(w)
	}
	return out
}

// Tally counts case-insensitive whole-word occurrences of each vocabulary
// entry. Entries with zero hits are omitted.
func Tally(text string) map[string]int {
	counts := make(map[string]int)
	for _, w := range Vocabulary {
		if n := len(wordPatterns[w].FindAllStringIndex(text, -1)); n > 0 {
			counts[w] = n
		}
	}
	return counts
}

// DetectByFrequency returns the most frequent vocabulary entry. Ties go to the
// entry declared first. ok is false when nothing matched.
func DetectByFrequency(text string) (best string, ok bool) {
	counts := Tally(text)
	if len(counts) == 0 {
		return "", false
	}
	slog.Info("Substance frequency counts", "counts", counts)

	top := 0
	for _, w := range Vocabulary {
		if counts[w] > top {
			best, top = w, counts[w]
		}
	}
	return best, true
}

// ScanFirst returns the leftmost vocabulary word in text, as written there,
// or Unknown.
func ScanFirst(text string) string {
	if m := scanPattern.FindString(text); m != "" {
		return m
	}
	return Unknown
}

// Resolve picks the final keyword. Precedence is fixed: frequency count over
// the cleaned text, then the advisory guess from the cleanup step, then a
// plain scan of the cleaned text.
func Resolve(cleaned, advisory string) string {
	if best, ok := DetectByFrequency(cleaned); ok {
		return best
	}
	if advisory != "" && advisory != Unknown {
		return advisory
	}
	return ScanFirst(cleaned)
}
