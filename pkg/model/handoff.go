package model

import (
	"fmt"
	"strings"
)

// HandoffSeparator separates the fields of a handoff line.
const HandoffSeparator = "|"

// Handoff is the result of the audio stage as consumed by the video and
// upload stages. On the wire it is `audio|subtitles|keyword[|source_url]`.
type Handoff struct {
	AudioPath    string
	SubtitlePath string
	Keyword      string
	SourceURL    string
}

// String encodes the handoff as a single pipe-delimited line.
// The source URL field is omitted when empty, giving 3 fields instead of 4.
func (h Handoff) String() string {
	fields := []string{h.AudioPath, h.SubtitlePath, h.Keyword}
	if h.SourceURL != "" {
		fields = append(fields, h.SourceURL)
	}
	return strings.Join(fields, HandoffSeparator)
}

// ParseHandoff decodes a handoff line. It accepts exactly 3 or 4 fields and
// requires a non-empty audio path.
func ParseHandoff(line string) (Handoff, error) {
	line = strings.TrimSpace(line)
	parts := strings.Split(line, HandoffSeparator)
	if len(parts) != 3 && len(parts) != 4 {
		return Handoff{}, fmt.Errorf("handoff %q: expected 3 or 4 fields, got %d", line, len(parts))
	}

	h := Handoff{
		AudioPath:    strings.TrimSpace(parts[0]),
		SubtitlePath: strings.TrimSpace(parts[1]),
		Keyword:      strings.TrimSpace(parts[2]),
	}
	if len(parts) == 4 {
		h.SourceURL = strings.TrimSpace(parts[3])
	}
	if h.AudioPath == "" {
		return Handoff{}, fmt.Errorf("handoff %q: empty audio path", line)
	}
	return h, nil
}
