package fishaudio

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"tripcast/pkg/config"
	"tripcast/pkg/request"
	"tripcast/pkg/tts"
)

const (
	apiURL = "https://api.fish.audio/v1/tts"
)

// Provider implements tts.Provider for Fish Audio.
type Provider struct {
	apiKey  string
	voiceID string // Default voice ID (reference_id)
	modelID string // Model ID (e.g. "s1")
	url     string
	client  *request.Client
}

// NewProvider creates a new Fish Audio TTS provider.
func NewProvider(cfg config.FishAudioConfig, rc *request.Client) *Provider {
	return &Provider{
		apiKey:  cfg.Key,
		voiceID: cfg.VoiceID,
		modelID: cfg.Model,
		url:     apiURL,
		client:  rc,
	}
}

// requestBody represents the JSON payload for Fish Audio TTS.
type requestBody struct {
	Text        string `json:"text"`
	ReferenceID string `json:"reference_id"`
	ModelID     string `json:"model,omitempty"`
	Format      string `json:"format"`
	Mp3Bitrate  int    `json:"mp3_bitrate,omitempty"`
	Latency     string `json:"latency,omitempty"`
}

// Synthesize generates speech from text using Fish Audio.
func (p *Provider) Synthesize(ctx context.Context, text, voiceID, outputPath string) (string, error) {
	vid := p.voiceID
	if voiceID != "" {
		vid = voiceID
	}
	if vid == "" {
		return "", fmt.Errorf("no voice ID configured for Fish Audio")
	}
	if p.apiKey == "" {
		return "", tts.NewFatalError(401, "fish audio key is not set (FISH_AUDIO_API_KEY)")
	}

	jsonData, err := json.Marshal(requestBody{
		Text:        text,
		ReferenceID: vid,
		ModelID:     p.modelID,
		Format:      "mp3",
		Mp3Bitrate:  128,
		Latency:     "normal",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + p.apiKey,
		"Content-Type":  "application/json",
	}
	body, err := p.client.PostWithHeaders(ctx, p.url, jsonData, headers)
	if err != nil {
		tts.Log("FISH", text, 0, err)
		return "", tts.FromHTTPError("fish audio", err)
	}
	if len(body) == 0 {
		tts.Log("FISH", "Received empty audio file (0 bytes)", 200, nil)
		return "", fmt.Errorf("received empty audio from fish audio")
	}

	filename := tts.OutputFile(outputPath, "mp3")
	if err := os.WriteFile(filename, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audio to file: %w", err)
	}

	tts.Log("FISH", text, 200, nil)
	return "mp3", nil
}
