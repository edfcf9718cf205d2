package pipeline

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripcast/pkg/upload"
)

func TestPromptConfirmer(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"sure\n", false},
		{"y", true},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			c := PromptConfirmer{In: strings.NewReader(tt.input), Out: &out}

			got, err := c.Confirm(context.Background(), upload.Request{Title: "Breakthrough", VideoPath: "b.mp4"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), `"Breakthrough"`)
			assert.Contains(t, out.String(), "[y/N]")
		})
	}
}

func TestPromptConfirmer_Cancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := PromptConfirmer{In: pr}.Confirm(ctx, upload.Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, got)
}

func TestAutoConfirm(t *testing.T) {
	ok, err := AutoConfirm{}.Confirm(context.Background(), upload.Request{})
	require.NoError(t, err)
	assert.True(t, ok)
}
