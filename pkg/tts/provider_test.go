package tts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsFatalError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "FatalError 429",
			err:      NewFatalError(429, "Too Many Requests"),
			expected: true,
		},
		{
			name:     "Wrapped FatalError",
			err:      fmt.Errorf("segment 3: %w", NewFatalError(500, "Internal Server Error")),
			expected: true,
		},
		{
			name:     "Standard Error",
			err:      errors.New("some regular error"),
			expected: false,
		},
		{
			name:     "Nil Error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatalError(tt.err))
		})
	}
}

func TestOutputFile(t *testing.T) {
	assert.Equal(t, "seg_001.mp3", OutputFile("seg_001", "mp3"))
	assert.Equal(t, "seg_001.mp3", OutputFile("seg_001.mp3", "mp3"))
	assert.Equal(t, "seg_001.MP3", OutputFile("seg_001.MP3", "mp3"))
	assert.Equal(t, "seg_001.mp3.wav", OutputFile("seg_001.mp3", "wav"))
}

func TestLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tts.log")
	t.Cleanup(func() { SetLogPath("logs/tts.log", false) })

	SetLogPath(path, false)
	Log("EDGETTS", "ignored", 200, nil)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "disabled history must not create a file")

	SetLogPath(path, true)
	Log("EDGETTS", "Hello there.", 200, nil)
	Log("FISH", "Second line.", 0, errors.New("boom"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "[EDGETTS] STATUS: 200")
	assert.Contains(t, content, "Hello there.")
	assert.Contains(t, content, "ERROR(boom)")
	assert.Equal(t, 2, strings.Count(content, "PROMPT:"))
}
