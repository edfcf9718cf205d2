package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Markers that fence the report text inside prompts. The history log
// shortens the lines between them.
const (
	ReportStart = "<start of report>"
	ReportEnd   = "<end of report>"
)

// WordWrap wraps text at the specified width.
func WordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i > 0 {
			result.WriteString("\n")
		}

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		currentLineLength := 0
		for j, word := range words {
			if j > 0 {
				if currentLineLength+len(word)+1 > width {
					result.WriteString("\n")
					currentLineLength = 0
				} else {
					result.WriteString(" ")
					currentLineLength++
				}
			}
			result.WriteString(word)
			currentLineLength += len(word)
		}
	}

	return result.String()
}

// TruncateParagraphs truncates lines inside the report block to maxLen runes
// and drops empty lines there. Everything outside the block is kept as-is.
func TruncateParagraphs(text string, maxLen int) string {
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	var result []string
	inReport := false

	for _, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, ReportStart) {
			inReport = true
			result = append(result, line)
			continue
		}
		if strings.Contains(lower, ReportEnd) {
			inReport = false
			result = append(result, line)
			continue
		}

		if !inReport {
			result = append(result, line)
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		runes := []rune(trimmed)
		if len(runes) > maxLen {
			result = append(result, string(runes[:maxLen])+"...")
		} else {
			result = append(result, trimmed)
		}
	}

	return strings.Join(result, "\n")
}

// CleanJSONBlock removes markdown code blocks from a JSON string if present.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	// Look for ```json start
	start := strings.Index(text, "```json")
	if start != -1 {
		text = text[start+len("```json"):]
		end := strings.LastIndex(text, "```")
		if end != -1 {
			text = text[:end]
		}
		return strings.TrimSpace(text)
	}

	// Look for generic ``` start
	start = strings.Index(text, "```")
	if start != -1 {
		text = text[start+len("```"):]
		end := strings.LastIndex(text, "```")
		if end != -1 {
			text = text[:end]
		}
		return strings.TrimSpace(text)
	}

	return text
}

// History appends prompt/response pairs to a transcript file.
// A zero History (empty Path) discards everything.
type History struct {
	Path string
	mu   sync.Mutex
}

// NewHistory returns a History writing to path, or a discarding one when disabled.
func NewHistory(path string, enabled bool) *History {
	if !enabled {
		return &History{}
	}
	return &History{Path: path}
}

// Log records one exchange. Write errors are ignored; the transcript is best effort.
func (h *History) Log(name, prompt, response string) {
	if h == nil || h.Path == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(h.Path), 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(h.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	entry := fmt.Sprintf("[%s] PROMPT: %s\nPROMPT_TEXT:\n%s\n\nRESPONSE:\n%s\n%s\n",
		timestamp, name, TruncateParagraphs(prompt, 80), WordWrap(response, 80), strings.Repeat("-", 80))

	_, _ = f.WriteString(entry)
}
