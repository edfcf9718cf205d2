package llm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWordWrap(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{
			name:  "No wrap needed",
			input: "Hello World",
			width: 20,
			want:  "Hello World",
		},
		{
			name:  "Simple wrap",
			input: "Hello World",
			width: 5,
			want:  "Hello\nWorld",
		},
		{
			name:  "Long word preserved",
			input: "Hello Superextralongword World",
			width: 10,
			want:  "Hello\nSuperextralongword\nWorld",
		},
		{
			name:  "Multiple lines input",
			input: "Line 1\nLine 2 is longer",
			width: 10,
			want:  "Line 1\nLine 2 is\nlonger",
		},
		{
			name:  "Zero width",
			input: "unchanged text",
			width: 0,
			want:  "unchanged text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WordWrap(tt.input, tt.width); got != tt.want {
				t.Errorf("WordWrap() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateParagraphs(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{
			name:   "empty string",
			input:  "",
			maxLen: 10,
			want:   "",
		},
		{
			name:   "no report block keeps every line",
			input:  "Line 1\nLine 2\n\nLine 3",
			maxLen: 5,
			want:   "Line 1\nLine 2\n\nLine 3",
		},
		{
			name: "inside report block truncates and drops empty lines",
			input: `Clean this up.

<start of report>
Short line

This line is definitely way too long for our limit
<end of report>

Return JSON.`,
			maxLen: 10,
			want: `Clean this up.

<start of report>
Short line
This line ...
<end of report>

Return JSON.`,
		},
		{
			name:   "unicode counts runes",
			input:  "<start of report>\naé\nこんにちは\n<end of report>",
			maxLen: 2,
			want:   "<start of report>\naé\nこん...\n<end of report>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateParagraphs(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("TruncateParagraphs() =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "No markdown",
			input: `{"key": "value"}`,
			want:  `{"key": "value"}`,
		},
		{
			name:  "Markdown json block",
			input: "```json\n{\"key\": \"value\"}\n```",
			want:  `{"key": "value"}`,
		},
		{
			name:  "Markdown block no lang",
			input: "```\n{\"key\": \"value\"}\n```",
			want:  `{"key": "value"}`,
		},
		{
			name:  "Surrounding text",
			input: "Here is json:\n```json\n{\"key\": \"value\"}\n```\nThanks",
			want:  `{"key": "value"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanJSONBlock(tt.input); got != tt.want {
				t.Errorf("CleanJSONBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "llm.log")

	h := NewHistory(path, true)
	h.Log("cleanup", "prompt body", "response body")
	h.Log("cleanup", "second", "again")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("history not written: %v", err)
	}
	if got := strings.Count(string(data), "PROMPT: cleanup"); got != 2 {
		t.Errorf("expected 2 entries, got %d", got)
	}

	disabled := NewHistory(filepath.Join(t.TempDir(), "off.log"), false)
	disabled.Log("cleanup", "p", "r")
	if disabled.Path != "" {
		t.Error("disabled history should have no path")
	}

	var nilHistory *History
	nilHistory.Log("x", "y", "z") // must not panic
}
