package main

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripcast/pkg/config"
	"tripcast/pkg/model"
)

const experienceJSON = `{
  "data": {
    "title": "Rooftop Geometry",
    "author": "nightowl",
    "metadata": {"gender": "Female", "age": "31"},
    "content": "<p>I smoked DMT on the roof.</p><p>The DMT hit fast. Later a friend mentioned LSD</p>"
  }
}`

func writeFixtureWAV(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	const rate = 22050
	data := make([]int, rate/4)
	for i := range data {
		data[i] = int(6000 * math.Sin(2*math.Pi*220*float64(i)/rate))
	}
	enc := gowav.NewEncoder(f, rate, 16, 1, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

// writeTestConfig points every path at dir, the content API at apiURL and
// the speech engine at a cp of a fixture file.
func writeTestConfig(t *testing.T, dir, apiURL string) string {
	t.Helper()
	fixture := filepath.Join(dir, "fixture.wav")
	writeFixtureWAV(t, fixture)

	cfg := config.DefaultConfig()
	cfg.Source.RandomURL = apiURL + "/random"
	cfg.Source.ExperienceURL = apiURL + "/experience"
	cfg.TTS.Engine = "command"
	cfg.TTS.Command.Args = []string{"cp", fixture, "{output}"}
	cfg.Audio.OutputDir = filepath.Join(dir, "out")
	cfg.Audio.WorkDir = filepath.Join(dir, "segments")
	cfg.Log.Server.Path = filepath.Join(dir, "logs", "tripcast.log")
	cfg.Log.Requests.Path = filepath.Join(dir, "logs", "requests.log")
	cfg.History.LLM.Path = filepath.Join(dir, "logs", "llm.log")
	cfg.History.TTS.Path = filepath.Join(dir, "logs", "tts.log")
	cfg.DB.Path = filepath.Join(dir, "data", "tripcast.db")
	cfg.Upload.Target = "none"

	path := filepath.Join(dir, "tripcast.yaml")
	require.NoError(t, config.Save(path, cfg))
	return path
}

func newContentAPI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/random":
			_, _ = io.WriteString(w, `{"experience": {"url": "https://www.erowid.org/experiences/exp.php?ID=99"}}`)
		case "/experience":
			_, _ = io.WriteString(w, experienceJSON)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_AudioOnlyThenHistory(t *testing.T) {
	if _, err := os.Stat("/bin/cp"); err != nil {
		t.Skip("cp not available")
	}
	dir := t.TempDir()
	api := newContentAPI(t)
	cfgPath := writeTestConfig(t, dir, api.URL)

	var out bytes.Buffer
	err := run(context.Background(), options{configPath: cfgPath, audioOnly: true}, nil, &out)
	require.NoError(t, err)

	h, err := model.ParseHandoff(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "DMT", h.Keyword)
	assert.Equal(t, "https://www.erowid.org/experiences/exp.php?ID=99", h.SourceURL)
	assert.Equal(t, filepath.Join(dir, "out", "Rooftop_Geometry.wav"), h.AudioPath)
	assert.FileExists(t, h.AudioPath)
	assert.FileExists(t, h.SubtitlePath)

	out.Reset()
	err = run(context.Background(), options{configPath: cfgPath, history: 5}, nil, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "STATUS")
	assert.Contains(t, out.String(), "Rooftop Geometry")
	assert.Contains(t, out.String(), model.RunStatusOK)
}

func TestRun_FetchFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	cfgPath := writeTestConfig(t, dir, srv.URL)

	var out bytes.Buffer
	err := run(context.Background(), options{configPath: cfgPath, audioOnly: true, sourceURL: "https://www.erowid.org/experiences/exp.php?ID=1"}, nil, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch")
	assert.Empty(t, out.String())
}

func TestRun_LLMWithoutKey(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir, "http://127.0.0.1:1")

	err := run(context.Background(), options{configPath: cfgPath, useLLM: true, audioOnly: true}, nil, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm key")
}
