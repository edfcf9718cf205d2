package fishaudio

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripcast/pkg/config"
	"tripcast/pkg/request"
	"tripcast/pkg/tts"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc, cfg config.FishAudioConfig) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewProvider(cfg, request.New(nil, nil, request.ClientConfig{}))
	p.url = srv.URL
	return p
}

func TestSynthesize(t *testing.T) {
	audio := bytes.Repeat([]byte{0x11}, 4096)
	var got requestBody

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer fish-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write(audio)
	}, config.FishAudioConfig{Key: "fish-key", VoiceID: "default-voice", Model: "s1"})

	out := filepath.Join(t.TempDir(), "seg")
	format, err := p.Synthesize(context.Background(), "I remember the ceiling.", "", out)
	require.NoError(t, err)
	assert.Equal(t, "mp3", format)

	data, err := os.ReadFile(out + ".mp3")
	require.NoError(t, err)
	assert.Equal(t, audio, data)
	assert.Equal(t, "default-voice", got.ReferenceID)
	assert.Equal(t, "s1", got.ModelID)
	assert.Equal(t, "I remember the ceiling.", got.Text)
}

func TestSynthesize_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      []byte
		cfg       config.FishAudioConfig
		wantFatal bool
	}{
		{"Unauthorized", http.StatusUnauthorized, []byte("bad key"), config.FishAudioConfig{Key: "k", VoiceID: "v"}, true},
		{"ServerError", http.StatusInternalServerError, []byte("oops"), config.FishAudioConfig{Key: "k", VoiceID: "v"}, true},
		{"EmptyBody", http.StatusOK, nil, config.FishAudioConfig{Key: "k", VoiceID: "v"}, false},
		{"NoVoice", http.StatusOK, nil, config.FishAudioConfig{Key: "k"}, false},
		{"NoKey", http.StatusOK, nil, config.FishAudioConfig{VoiceID: "v"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write(tt.body)
			}, tt.cfg)

			_, err := p.Synthesize(context.Background(), "text", "", filepath.Join(t.TempDir(), "seg"))
			require.Error(t, err)
			assert.Equal(t, tt.wantFatal, tts.IsFatalError(err))
		})
	}
}
