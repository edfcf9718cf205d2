package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Request RequestConfig `yaml:"request"`
	Source  SourceConfig  `yaml:"source"`
	LLM     LLMConfig     `yaml:"llm"`
	TTS     TTSConfig     `yaml:"tts"`
	Audio   AudioConfig   `yaml:"audio"`
	Video   VideoConfig   `yaml:"video"`
	Upload  UploadConfig  `yaml:"upload"`
	Prompts PromptsConfig `yaml:"prompts"`
	Log     LogConfig     `yaml:"log"`
	History HistoryConfig `yaml:"history"`
	DB      DBConfig      `yaml:"db"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"` // extra attempts after the first; 0 disables retrying
	Timeout Duration      `yaml:"timeout"` // 0 keeps the transport default (no timeout)
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// SourceConfig holds settings for the experience content API.
type SourceConfig struct {
	RandomURL     string   `yaml:"random_url"`
	ExperienceURL string   `yaml:"experience_url"`
	Candidates    []string `yaml:"candidates"` // substance pages the random pick is drawn from
	Cache         bool     `yaml:"cache"`
}

// LLMConfig holds settings for the Large Language Model provider.
type LLMConfig struct {
	Provider string            `yaml:"provider"` // "gemini", "openai"
	Model    string            `yaml:"model"`
	Key      string            `yaml:"key"`
	BaseURL  string            `yaml:"base_url"` // OpenAI-compatible endpoints only
	Profiles map[string]string `yaml:"profiles"` // Map of intent -> model
}

// EdgeTTSConfig holds settings for Edge TTS. The connection values are
// normally supplied through the EDGE_TTS_* environment variables.
type EdgeTTSConfig struct {
	VoiceID            string `yaml:"voice"` // e.g. "en-GB-RyanNeural"
	BaseURL            string `yaml:"base_url"`
	Origin             string `yaml:"origin"`
	UserAgent          string `yaml:"user_agent"`
	TrustedClientToken string `yaml:"trusted_client_token"`
	SecMSGecVersion    string `yaml:"sec_ms_gec_version"`
}

// FishAudioConfig holds settings for Fish Audio TTS.
type FishAudioConfig struct {
	Key     string `yaml:"key"`
	VoiceID string `yaml:"voice"` // Reference ID
	Model   string `yaml:"model"` // Model ID (e.g. "s1")
}

// AzureSpeechConfig holds settings for Azure Speech TTS.
type AzureSpeechConfig struct {
	Key     string `yaml:"key"`
	Region  string `yaml:"region"` // e.g., "eastus"
	VoiceID string `yaml:"voice"`
}

// OpenAITTSConfig holds settings for the OpenAI speech endpoint.
type OpenAITTSConfig struct {
	Key     string `yaml:"key"`
	Model   string `yaml:"model"` // "tts-1", "tts-1-hd"
	VoiceID string `yaml:"voice"` // "onyx", "alloy", ...
}

// ElevenLabsConfig holds settings for ElevenLabs TTS.
type ElevenLabsConfig struct {
	Key     string `yaml:"key"`
	Model   string `yaml:"model"`
	VoiceID string `yaml:"voice"`
}

// CommandTTSConfig runs a local speech engine. Args may contain the
// placeholders {text}, {voice} and {output}.
type CommandTTSConfig struct {
	Args    []string `yaml:"args"`
	VoiceID string   `yaml:"voice"`
}

// TTSConfig holds Text-To-Speech settings.
type TTSConfig struct {
	Engine      string            `yaml:"engine"`
	EdgeTTS     EdgeTTSConfig     `yaml:"edge_tts"`
	FishAudio   FishAudioConfig   `yaml:"fish_audio"`
	AzureSpeech AzureSpeechConfig `yaml:"azure_speech"`
	OpenAI      OpenAITTSConfig   `yaml:"openai"`
	ElevenLabs  ElevenLabsConfig  `yaml:"elevenlabs"`
	Command     CommandTTSConfig  `yaml:"command"`
}

// AudioConfig holds settings for the narration renderer.
type AudioConfig struct {
	SampleRate   int     `yaml:"sample_rate"`
	OutputDir    string  `yaml:"output_dir"`
	WorkDir      string  `yaml:"work_dir"`      // per-segment synthesis files
	KeepSegments bool    `yaml:"keep_segments"` // keep per-segment files after rendering
	Subtitles    bool    `yaml:"subtitles"`
	Gain         float64 `yaml:"gain"`        // linear, 1.0 leaves the level unchanged
	HighPassHz   float64 `yaml:"highpass_hz"` // 0 disables the rumble filter
}

// VideoConfig holds settings for the video stage.
type VideoConfig struct {
	Builder       string   `yaml:"builder"` // "ffmpeg", "command"
	FFmpegPath    string   `yaml:"ffmpeg_path"`
	Background    string   `yaml:"background"` // image path; empty renders a solid colour
	Color         string   `yaml:"color"`
	Resolution    string   `yaml:"resolution"`
	BurnSubtitles bool     `yaml:"burn_subtitles"`
	OutputDir     string   `yaml:"output_dir"`
	Command       []string `yaml:"command"`
}

// YouTubeConfig holds settings for YouTube uploads.
type YouTubeConfig struct {
	CredentialsPath string `yaml:"credentials_path"` // OAuth client secret JSON
	TokenPath       string `yaml:"token_path"`
	PlaylistID      string `yaml:"playlist_id"`
	PrivacyStatus   string `yaml:"privacy_status"`
	CategoryID      string `yaml:"category_id"`
}

// S3Config holds settings for S3-compatible uploads.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // empty for AWS
	Prefix   string `yaml:"prefix"`
}

// UploadConfig holds settings for the upload stage.
type UploadConfig struct {
	Target  string        `yaml:"target"` // "youtube", "s3", "command", "none"
	YouTube YouTubeConfig `yaml:"youtube"`
	S3      S3Config      `yaml:"s3"`
	Command []string      `yaml:"command"`
}

// PromptsConfig points at an optional directory overriding the built-in templates.
type PromptsConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// HistoryConfig holds settings for the LLM/TTS transcript files.
type HistoryConfig struct {
	LLM HistorySettings `yaml:"llm"`
	TTS HistorySettings `yaml:"tts"`
}

// HistorySettings toggles one transcript file.
type HistorySettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path        string   `yaml:"path"`
	CacheMaxAge Duration `yaml:"cache_max_age"` // cached content API responses are pruned after this
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Request: RequestConfig{
			Retries: 0,
			Timeout: 0,
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(30 * time.Second),
			},
		},
		Source: SourceConfig{
			RandomURL:     "https://lysergic.kaizenklass.xyz/api/v1/erowid/random/experience?size_per_substance=1",
			ExperienceURL: "https://lysergic.kaizenklass.xyz/api/v1/erowid/experience",
			Candidates: []string{
				"https://www.erowid.org/chemicals/dmt/dmt.shtml",
				"https://www.erowid.org/chemicals/lsd/lsd.shtml",
				"https://www.erowid.org/plants/salvia/salvia.shtml",
				"https://www.erowid.org/plants/cannabis/cannabis.shtml",
				"https://www.erowid.org/chemicals/mdma/mdma.shtml",
				"https://www.erowid.org/chemicals/heroin/heroin.shtml",
			},
			Cache: true,
		},
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-flash",
			Profiles: map[string]string{
				"cleanup": "gemini-2.5-flash",
			},
		},
		TTS: TTSConfig{
			Engine: "edge-tts",
			EdgeTTS: EdgeTTSConfig{
				VoiceID: "en-GB-RyanNeural",
			},
			FishAudio: FishAudioConfig{
				VoiceID: "e58b0d7efca34eb38d5c4985e378abcb",
			},
			AzureSpeech: AzureSpeechConfig{
				VoiceID: "en-GB-RyanNeural",
			},
			OpenAI: OpenAITTSConfig{
				Model:   "tts-1",
				VoiceID: "onyx",
			},
			ElevenLabs: ElevenLabsConfig{
				Model:   "eleven_monolingual_v1",
				VoiceID: "BreKkXSwy4hr1vgm7ZqX",
			},
			Command: CommandTTSConfig{
				Args:    []string{"piper", "--model", "{voice}", "--output_file", "{output}"},
				VoiceID: "en_GB-alan-medium.onnx",
			},
		},
		Audio: AudioConfig{
			SampleRate: 22050,
			OutputDir:  ".",
			WorkDir:    "./data/segments",
			Subtitles:  true,
			Gain:       1.0,
		},
		Video: VideoConfig{
			Builder:    "ffmpeg",
			FFmpegPath: "ffmpeg",
			Color:      "black",
			Resolution: "1920x1080",
			OutputDir:  ".",
		},
		Upload: UploadConfig{
			Target: "youtube",
			YouTube: YouTubeConfig{
				CredentialsPath: "secrets/client_secret.json",
				TokenPath:       "secrets/youtube_token.json",
				PrivacyStatus:   "private",
				CategoryID:      "22", // People & Blogs
			},
			S3: S3Config{
				Prefix: "tripcast",
			},
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/tripcast.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		History: HistoryConfig{
			LLM: HistorySettings{Enabled: true, Path: "./logs/llm.log"},
			TTS: HistorySettings{Enabled: false, Path: "./logs/tts.log"},
		},
		DB: DBConfig{
			Path:        "./data/tripcast.db",
			CacheMaxAge: Duration(30 * Day),
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// Secrets are taken from the environment (and a .env file) when the file leaves them empty.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	// Env values are applied after saving so secrets never land on disk.
	loadDotEnv()
	applyEnv(cfg)

	return cfg, nil
}

// Validate checks settings that must be present before the pipeline starts.
func (c *Config) Validate(useLLM bool) error {
	if useLLM && c.LLM.Key == "" {
		return fmt.Errorf("llm key is not set (GEMINI_API_KEY / GOOGLE_API_KEY or llm.key)")
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Gain < 0 {
		return fmt.Errorf("audio.gain must not be negative, got %g", c.Audio.Gain)
	}
	if c.Audio.HighPassHz < 0 || (c.Audio.HighPassHz > 0 && c.Audio.HighPassHz >= float64(c.Audio.SampleRate)/2) {
		return fmt.Errorf("audio.highpass_hz must be between 0 and half the sample rate, got %g", c.Audio.HighPassHz)
	}
	if !isValidResolution(c.Video.Resolution) {
		return fmt.Errorf("invalid video.resolution %q: must be WIDTHxHEIGHT", c.Video.Resolution)
	}
	switch c.Upload.Target {
	case "youtube", "s3", "command", "none", "":
	default:
		return fmt.Errorf("unknown upload.target %q", c.Upload.Target)
	}
	if c.Upload.Target == "s3" && c.Upload.S3.Bucket == "" {
		return fmt.Errorf("upload.s3.bucket is required for the s3 target")
	}
	return nil
}

func isValidResolution(s string) bool {
	matched, _ := regexp.MatchString(`^[1-9][0-9]*x[1-9][0-9]*$`, s)
	return matched
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# tripcast configuration
# ----------------------
# Secrets may be left empty and supplied through the environment or a .env file:
#   GEMINI_API_KEY, OPENAI_API_KEY, FISH_AUDIO_API_KEY, AZURE_SPEECH_KEY,
#   AZURE_SPEECH_REGION, ELEVENLABS_API_KEY, YOUTUBE_PLAYLIST_ID, S3_BUCKET,
#   S3_REGION, EDGE_TTS_BASE_URL, EDGE_TTS_ORIGIN, EDGE_TTS_USER_AGENT,
#   EDGE_TTS_TRUSTED_CLIENT_TOKEN, EDGE_TTS_SEC_MS_GEC_VERSION
# Durations: ns, us, ms, s, m, h, d (day), w (week)

`)
	data = append(header, data...)

	reEngine := regexp.MustCompile(`(?m)^(\s+)engine:`)
	data = reEngine.ReplaceAll(data, []byte("${1}# Options: edge-tts, fish-audio, azure-speech, openai, elevenlabs, command\n${1}engine:"))

	reTarget := regexp.MustCompile(`(?m)^(\s+)target:`)
	data = reTarget.ReplaceAll(data, []byte("${1}# Options: youtube, s3, command, none\n${1}target:"))

	reBuilder := regexp.MustCompile(`(?m)^(\s+)builder:`)
	data = reBuilder.ReplaceAll(data, []byte("${1}# Options: ffmpeg, command\n${1}builder:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
