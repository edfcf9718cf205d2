package azure

import (
	"context"
	"fmt"
	"os"

	"tripcast/pkg/config"
	"tripcast/pkg/request"
	"tripcast/pkg/tts"
)

// Provider implements tts.Provider for Azure Speech.
type Provider struct {
	key     string
	region  string
	voiceID string
	client  *request.Client
	url     string
}

// NewProvider creates a new Azure Speech TTS provider.
func NewProvider(cfg config.AzureSpeechConfig, rc *request.Client) *Provider {
	url := fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", cfg.Region)
	return &Provider{
		key:     cfg.Key,
		region:  cfg.Region,
		voiceID: cfg.VoiceID,
		client:  rc,
		url:     url,
	}
}

// Synthesize generates speech from text using Azure Speech.
func (p *Provider) Synthesize(ctx context.Context, text, voiceID, outputPath string) (string, error) {
	vid := p.voiceID
	if voiceID != "" {
		vid = voiceID
	}
	if vid == "" {
		return "", fmt.Errorf("no voice ID configured for Azure Speech")
	}
	if p.key == "" || p.region == "" {
		return "", tts.NewFatalError(401, "azure speech key or region is not set (AZURE_SPEECH_KEY, AZURE_SPEECH_REGION)")
	}

	ssml := tts.BuildSSML(vid, text)
	headers := map[string]string{
		"Ocp-Apim-Subscription-Key": p.key,
		"Content-Type":              "application/ssml+xml",
		"X-Microsoft-OutputFormat":  "audio-24khz-160kbitrate-mono-mp3",
	}

	body, err := p.client.PostWithHeaders(ctx, p.url, []byte(ssml), headers)
	if err != nil {
		tts.Log("AZURE", ssml, 0, err)
		return "", tts.FromHTTPError("azure speech", err)
	}
	tts.Log("AZURE", ssml, 200, nil)

	filename := tts.OutputFile(outputPath, "mp3")
	if err := os.WriteFile(filename, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audio to file: %w", err)
	}
	return "mp3", nil
}
