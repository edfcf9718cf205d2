package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// dotEnvPath is the file read by loadDotEnv. Tests point it elsewhere.
var dotEnvPath = ".env"

// loadDotEnv reads the .env file into the process environment.
// Variables that are already set win; a missing file is not an error.
func loadDotEnv() {
	if _, err := os.Stat(dotEnvPath); err != nil {
		return
	}
	if err := godotenv.Load(dotEnvPath); err != nil {
		slog.Warn("Failed to read env file", "path", dotEnvPath, "error", err)
	}
}

// applyEnv fills empty secrets from the environment.
func applyEnv(cfg *Config) {
	if cfg.LLM.Provider == "openai" {
		setFromEnv(&cfg.LLM.Key, "OPENAI_API_KEY")
	} else {
		setFromEnv(&cfg.LLM.Key, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	setFromEnv(&cfg.TTS.EdgeTTS.BaseURL, "EDGE_TTS_BASE_URL")
	setFromEnv(&cfg.TTS.EdgeTTS.Origin, "EDGE_TTS_ORIGIN")
	setFromEnv(&cfg.TTS.EdgeTTS.UserAgent, "EDGE_TTS_USER_AGENT")
	setFromEnv(&cfg.TTS.EdgeTTS.TrustedClientToken, "EDGE_TTS_TRUSTED_CLIENT_TOKEN")
	setFromEnv(&cfg.TTS.EdgeTTS.SecMSGecVersion, "EDGE_TTS_SEC_MS_GEC_VERSION")
	setFromEnv(&cfg.TTS.FishAudio.Key, "FISH_AUDIO_API_KEY")
	setFromEnv(&cfg.TTS.AzureSpeech.Key, "AZURE_SPEECH_KEY")
	setFromEnv(&cfg.TTS.AzureSpeech.Region, "AZURE_SPEECH_REGION")
	setFromEnv(&cfg.TTS.OpenAI.Key, "OPENAI_API_KEY")
	setFromEnv(&cfg.TTS.ElevenLabs.Key, "ELEVENLABS_API_KEY")
	setFromEnv(&cfg.Upload.YouTube.PlaylistID, "YOUTUBE_PLAYLIST_ID")
	setFromEnv(&cfg.Upload.S3.Bucket, "S3_BUCKET")
	setFromEnv(&cfg.Upload.S3.Region, "S3_REGION")
}

// setFromEnv sets *dst to the first non-empty variable when *dst is empty.
func setFromEnv(dst *string, keys ...string) {
	if *dst != "" {
		return
	}
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			*dst = v
			return
		}
	}
}
