package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripcast/pkg/config"
	"tripcast/pkg/llm"
	"tripcast/pkg/tracker"
)

// fakeGemini answers generateContent calls with the given text and records the requested model.
func fakeGemini(t *testing.T, reply string, gotModel *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		if gotModel != nil {
			seg := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
			*gotModel = strings.TrimSuffix(seg, ":generateContent")
		}
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"role":  "model",
						"parts": []any{map[string]any{"text": reply}},
					},
					"finishReason": "STOP",
				},
			},
		})
	}))
}

func TestGenerateJSON(t *testing.T) {
	var model string
	srv := fakeGemini(t, "```json\n{\"cleaned_content\":\"A calm trip.\",\"primary_substance\":\"LSD\"}\n```", &model)
	defer srv.Close()

	logPath := filepath.Join(t.TempDir(), "llm.log")
	tr := tracker.New()
	c, err := NewClient(config.LLMConfig{
		Key:      "k",
		BaseURL:  srv.URL,
		Profiles: map[string]string{"cleanup": "gemini-cleanup-model"},
	}, llm.NewHistory(logPath, true), tr)
	require.NoError(t, err)

	var out struct {
		Cleaned   string `json:"cleaned_content"`
		Substance string `json:"primary_substance"`
	}
	require.NoError(t, c.GenerateJSON(context.Background(), "cleanup", "clean it", &out))

	assert.Equal(t, "A calm trip.", out.Cleaned)
	assert.Equal(t, "LSD", out.Substance)
	assert.Equal(t, "gemini-cleanup-model", model, "profile model should be used for the intent")
	assert.Equal(t, int64(1), tr.Snapshot()["gemini"].APISuccess)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "PROMPT: cleanup")
}

func TestGenerateJSON_Malformed(t *testing.T) {
	srv := fakeGemini(t, "not json at all", nil)
	defer srv.Close()

	tr := tracker.New()
	c, err := NewClient(config.LLMConfig{Key: "k", BaseURL: srv.URL}, nil, tr)
	require.NoError(t, err)

	var out map[string]any
	err = c.GenerateJSON(context.Background(), "cleanup", "clean it", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
	assert.Equal(t, int64(1), tr.Snapshot()["gemini"].APIFailures)
}

func TestGenerateText_DefaultModel(t *testing.T) {
	var model string
	srv := fakeGemini(t, "pong", &model)
	defer srv.Close()

	c, err := NewClient(config.LLMConfig{Key: "k", BaseURL: srv.URL}, nil, nil)
	require.NoError(t, err)

	out, err := c.GenerateText(context.Background(), "unknown-intent", "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
	assert.Equal(t, DefaultModel, model)
}

func TestNotConfigured(t *testing.T) {
	c, err := NewClient(config.LLMConfig{}, nil, nil)
	require.NoError(t, err)

	_, err = c.GenerateText(context.Background(), "cleanup", "x")
	assert.Error(t, err)
	assert.Error(t, c.GenerateJSON(context.Background(), "cleanup", "x", &struct{}{}))
	assert.Error(t, c.HealthCheck(context.Background()))
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name      string
		apiKey    string
		wantError bool
	}{
		{name: "No API Key", apiKey: "", wantError: true},
		{name: "With API Key in test mode", apiKey: "dummy_key", wantError: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_MODE", "true")
			c, err := NewClient(config.LLMConfig{Key: tt.apiKey}, nil, nil)
			require.NoError(t, err)

			err = c.HealthCheck(context.Background())
			if (err != nil) != tt.wantError {
				t.Errorf("HealthCheck() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestHasProfile(t *testing.T) {
	c, err := NewClient(config.LLMConfig{Profiles: map[string]string{"cleanup": "m", "empty": ""}}, nil, nil)
	require.NoError(t, err)
	assert.True(t, c.HasProfile("cleanup"))
	assert.False(t, c.HasProfile("empty"))
	assert.False(t, c.HasProfile("missing"))
}
