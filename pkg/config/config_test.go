package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearSecretEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "FISH_AUDIO_API_KEY",
		"AZURE_SPEECH_KEY", "AZURE_SPEECH_REGION", "ELEVENLABS_API_KEY",
		"YOUTUBE_PLAYLIST_ID", "S3_BUCKET", "S3_REGION",
	} {
		t.Setenv(k, "")
	}
	old := dotEnvPath
	dotEnvPath = filepath.Join(t.TempDir(), "missing.env")
	t.Cleanup(func() { dotEnvPath = old })
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, path string)
		validate  func(t *testing.T, cfg *Config)
		checkFile func(t *testing.T, path string)
	}{
		{
			name:  "NewFile_Defaults",
			setup: func(t *testing.T, path string) {},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "edge-tts", cfg.TTS.Engine)
				assert.Equal(t, 22050, cfg.Audio.SampleRate)
				assert.Equal(t, 0, cfg.Request.Retries)
				assert.Len(t, cfg.Source.Candidates, 6)
			},
			checkFile: func(t *testing.T, path string) {
				content, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.Contains(t, string(content), "engine: edge-tts")
				assert.Contains(t, string(content), "# Options: youtube, s3, command, none")
			},
		},
		{
			name: "ExistingFile_Override",
			setup: func(t *testing.T, path string) {
				data := "tts:\n  engine: openai\naudio:\n  sample_rate: 24000\nrequest:\n  timeout: 2m\n"
				require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "openai", cfg.TTS.Engine)
				assert.Equal(t, 24000, cfg.Audio.SampleRate)
				assert.Equal(t, 2*time.Minute, time.Duration(cfg.Request.Timeout))
				// untouched sections keep defaults
				assert.Equal(t, "ffmpeg", cfg.Video.Builder)
			},
			checkFile: func(t *testing.T, path string) {
				content, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.NotContains(t, string(content), "# tripcast configuration", "existing files are not rewritten")
			},
		},
		{
			name: "Env_Secrets",
			setup: func(t *testing.T, path string) {
				t.Setenv("GOOGLE_API_KEY", "google_key")
				t.Setenv("YOUTUBE_PLAYLIST_ID", "PL123")
				require.NoError(t, os.WriteFile(path, []byte("llm:\n  key: \"\"\n"), 0o644))
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "google_key", cfg.LLM.Key)
				assert.Equal(t, "PL123", cfg.Upload.YouTube.PlaylistID)
			},
			checkFile: func(t *testing.T, path string) {
				content, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.NotContains(t, string(content), "google_key")
			},
		},
		{
			name: "File_Beats_Env",
			setup: func(t *testing.T, path string) {
				t.Setenv("GEMINI_API_KEY", "env_key")
				require.NoError(t, os.WriteFile(path, []byte("llm:\n  key: file_key\n"), 0o644))
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "file_key", cfg.LLM.Key)
			},
			checkFile: func(t *testing.T, path string) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearSecretEnv(t)
			path := filepath.Join(t.TempDir(), "configs", "tripcast.yaml")
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

			tt.setup(t, path)
			cfg, err := Load(path)
			require.NoError(t, err)

			tt.validate(t, cfg)
			tt.checkFile(t, path)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearSecretEnv(t)
	dir := t.TempDir()
	dotEnvPath = filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotEnvPath, []byte("ELEVENLABS_API_KEY=from_dotenv\n"), 0o644))
	// godotenv sets real process variables; restore afterwards
	t.Cleanup(func() { os.Unsetenv("ELEVENLABS_API_KEY") })
	os.Unsetenv("ELEVENLABS_API_KEY")

	cfg, err := Load(filepath.Join(dir, "tripcast.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from_dotenv", cfg.TTS.ElevenLabs.Key)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		useLLM  bool
		wantErr string
	}{
		{name: "defaults without llm", mutate: func(c *Config) {}},
		{name: "llm without key", mutate: func(c *Config) {}, useLLM: true, wantErr: "llm key"},
		{name: "llm with key", mutate: func(c *Config) { c.LLM.Key = "k" }, useLLM: true},
		{name: "bad sample rate", mutate: func(c *Config) { c.Audio.SampleRate = 0 }, wantErr: "sample_rate"},
		{name: "bad resolution", mutate: func(c *Config) { c.Video.Resolution = "1080p" }, wantErr: "resolution"},
		{name: "unknown target", mutate: func(c *Config) { c.Upload.Target = "vimeo" }, wantErr: "upload.target"},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Upload.Target = "s3" }, wantErr: "bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate(tt.useLLM)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q should mention %q", err, tt.wantErr)
		})
	}
}

func TestGenerateDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "tripcast.yaml")
	require.NoError(t, GenerateDefault(path))
	_, err := os.Stat(path)
	require.NoError(t, err)

	// second call leaves the file alone
	require.NoError(t, os.WriteFile(path, []byte("custom: true\n"), 0o644))
	require.NoError(t, GenerateDefault(path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom: true\n", string(content))
}
