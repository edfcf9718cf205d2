package pipeline

import (
	"fmt"

	"tripcast/pkg/config"
	"tripcast/pkg/llm"
	"tripcast/pkg/llm/gemini"
	"tripcast/pkg/llm/openai"
	"tripcast/pkg/request"
	"tripcast/pkg/tracker"
	"tripcast/pkg/tts"
	"tripcast/pkg/tts/azure"
	"tripcast/pkg/tts/command"
	"tripcast/pkg/tts/edgetts"
	"tripcast/pkg/tts/elevenlabs"
	"tripcast/pkg/tts/fishaudio"
	ttsopenai "tripcast/pkg/tts/openai"
	"tripcast/pkg/upload"
	"tripcast/pkg/video"
)

// NewLLMProvider returns an LLM provider based on configuration.
func NewLLMProvider(cfg config.LLMConfig, history *llm.History, rc *request.Client, t *tracker.Tracker) (llm.Provider, error) {
	switch cfg.Provider {
	case "gemini", "":
		c, err := gemini.NewClient(cfg, history, t)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "openai":
		c, err := openai.NewClient(cfg, rc, history)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown llm provider type: %s", cfg.Provider)
	}
}

// NewTTSProvider returns a TTS provider and the voice configured for it.
func NewTTSProvider(cfg *config.TTSConfig, rc *request.Client, t *tracker.Tracker) (tts.Provider, string, error) {
	switch cfg.Engine {
	case "edge", "edge-tts", "":
		return edgetts.NewProvider(cfg.EdgeTTS, t), cfg.EdgeTTS.VoiceID, nil
	case "fish-audio", "fishaudio":
		return fishaudio.NewProvider(cfg.FishAudio, rc), cfg.FishAudio.VoiceID, nil
	case "azure", "azure-speech":
		return azure.NewProvider(cfg.AzureSpeech, rc), cfg.AzureSpeech.VoiceID, nil
	case "openai":
		return ttsopenai.NewProvider(cfg.OpenAI, "", t), cfg.OpenAI.VoiceID, nil
	case "elevenlabs":
		return elevenlabs.NewProvider(cfg.ElevenLabs, t), cfg.ElevenLabs.VoiceID, nil
	case "command":
		return command.NewProvider(cfg.Command), cfg.Command.VoiceID, nil
	default:
		return nil, "", fmt.Errorf("unknown tts engine: %s", cfg.Engine)
	}
}

// NewVideoBuilder returns the configured video builder.
func NewVideoBuilder(cfg config.VideoConfig) (video.Builder, error) {
	switch cfg.Builder {
	case "ffmpeg", "":
		return video.NewFFmpegBuilder(cfg), nil
	case "command":
		if len(cfg.Command) == 0 {
			return nil, fmt.Errorf("video.command is required for the command builder")
		}
		return video.NewCommandBuilder(cfg.Command), nil
	default:
		return nil, fmt.Errorf("unknown video builder: %s", cfg.Builder)
	}
}

// NewUploader returns the configured uploader. The "none" target yields a
// nil Uploader, which ends runs after the video stage.
func NewUploader(cfg config.UploadConfig) (upload.Uploader, error) {
	switch cfg.Target {
	case "youtube", "":
		return upload.NewYouTubeUploader(cfg.YouTube), nil
	case "s3":
		return upload.NewS3Uploader(cfg.S3), nil
	case "command":
		if len(cfg.Command) == 0 {
			return nil, fmt.Errorf("upload.command is required for the command target")
		}
		return upload.NewCommandUploader(cfg.Command, cfg.YouTube.PlaylistID), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown upload target: %s", cfg.Target)
	}
}
