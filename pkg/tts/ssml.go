package tts

import (
	"errors"
	"fmt"
	"strings"

	"tripcast/pkg/request"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)

// EscapeXML escapes the five XML special characters.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// VoiceLanguage derives the xml:lang of a neural voice name such as
// "en-GB-RyanNeural". Unknown shapes fall back to en-US.
func VoiceLanguage(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 3 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}

// BuildSSML wraps plain narration text in a single-voice SSML document.
func BuildSSML(voice, text string) string {
	return fmt.Sprintf(
		"<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'><voice name='%s'>%s</voice></speak>",
		VoiceLanguage(voice), EscapeXML(voice), EscapeXML(text),
	)
}

// FromHTTPError converts a request.HTTPError into a FatalError so callers
// can branch on the status code.
func FromHTTPError(engine string, err error) error {
	var he *request.HTTPError
	if errors.As(err, &he) {
		return NewFatalError(he.StatusCode, fmt.Sprintf("%s api error (status %d): %s", engine, he.StatusCode, he.Body))
	}
	return fmt.Errorf("%s request failed: %w", engine, err)
}
