package tts

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

const (
	// MinAudioSize is the minimum size of a synthesized audio file (1KB).
	// Files smaller than this are likely failed synthesis attempts.
	MinAudioSize = 1024
)

// Provider defines the interface for Text-To-Speech engines.
type Provider interface {
	// Synthesize generates audio from text and writes it to outputPath.
	// The engine may append an extension; it returns the audio format ("mp3", "wav").
	Synthesize(ctx context.Context, text, voice, outputPath string) (string, error)
}

// FatalError is an HTTP-level failure reported by a remote engine.
type FatalError struct {
	StatusCode int
	Message    string
}

func (e *FatalError) Error() string {
	return e.Message
}

// NewFatalError creates a new FatalError with the given status code and message.
func NewFatalError(statusCode int, message string) *FatalError {
	return &FatalError{StatusCode: statusCode, Message: message}
}

// IsFatalError reports whether err is (or wraps) a FatalError.
func IsFatalError(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// OutputFile returns outputPath with the extension for format appended
// unless it is already present.
func OutputFile(outputPath, format string) string {
	if strings.EqualFold(filepath.Ext(outputPath), "."+format) {
		return outputPath
	}
	return outputPath + "." + format
}
