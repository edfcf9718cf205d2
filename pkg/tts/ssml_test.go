package tts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"tripcast/pkg/request"
)

func TestBuildSSML(t *testing.T) {
	tests := []struct {
		name     string
		voice    string
		text     string
		expected []string
	}{
		{
			name:     "Normal text",
			voice:    "en-GB-RyanNeural",
			text:     "Hello world",
			expected: []string{"Hello world", "name='en-GB-RyanNeural'", "xml:lang='en-GB'"},
		},
		{
			name:     "Text with ampersand",
			voice:    "en-US-AvaNeural",
			text:     "Ben & Jerry's",
			expected: []string{"Ben &amp; Jerry&apos;s"},
		},
		{
			name:     "Text with tags",
			voice:    "en-US-AvaNeural",
			text:     "<speak>Hello</speak>",
			expected: []string{"&lt;speak&gt;Hello&lt;/speak&gt;"},
		},
		{
			name:     "Text with quotes",
			voice:    "en-US-AvaNeural",
			text:     `She said "Hello"`,
			expected: []string{`She said &quot;Hello&quot;`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildSSML(tt.voice, tt.text)
			for _, exp := range tt.expected {
				assert.Contains(t, got, exp)
			}
		})
	}
}

func TestVoiceLanguage(t *testing.T) {
	assert.Equal(t, "en-GB", VoiceLanguage("en-GB-RyanNeural"))
	assert.Equal(t, "de-DE", VoiceLanguage("de-DE-SeraphinaMultilingualNeural"))
	assert.Equal(t, "en-US", VoiceLanguage("onyx"))
	assert.Equal(t, "en-US", VoiceLanguage(""))
}

func TestFromHTTPError(t *testing.T) {
	err := FromHTTPError("azure speech", &request.HTTPError{StatusCode: 401, Body: "denied"})
	var fe *FatalError
	assert.True(t, errors.As(err, &fe))
	assert.Equal(t, 401, fe.StatusCode)
	assert.Contains(t, fe.Error(), "denied")

	err = FromHTTPError("azure speech", errors.New("dial tcp: refused"))
	assert.False(t, IsFatalError(err))
	assert.Contains(t, err.Error(), "refused")
}
