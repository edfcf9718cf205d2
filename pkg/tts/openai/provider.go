// Package openai implements tts.Provider on the OpenAI speech endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sashabaranov/go-openai"

	"tripcast/pkg/config"
	"tripcast/pkg/tracker"
	"tripcast/pkg/tts"
)

// Provider implements tts.Provider for OpenAI speech.
type Provider struct {
	client  *openai.Client
	model   string
	voiceID string
	hasKey  bool
	tracker *tracker.Tracker
}

// NewProvider creates a new OpenAI TTS provider. baseURL may be empty.
func NewProvider(cfg config.OpenAITTSConfig, baseURL string, t *tracker.Tracker) *Provider {
	oc := openai.DefaultConfig(cfg.Key)
	if baseURL != "" {
		oc.BaseURL = baseURL
	}
	model := cfg.Model
	if model == "" {
		model = "tts-1"
	}
	return &Provider{
		client:  openai.NewClientWithConfig(oc),
		model:   model,
		voiceID: cfg.VoiceID,
		hasKey:  cfg.Key != "",
		tracker: t,
	}
}

// Synthesize generates an .mp3 file through the speech endpoint.
func (p *Provider) Synthesize(ctx context.Context, text, voice, outputPath string) (string, error) {
	if voice == "" {
		voice = p.voiceID
	}
	if voice == "" {
		return "", fmt.Errorf("no voice configured for OpenAI speech")
	}
	if !p.hasKey {
		return "", tts.NewFatalError(401, "openai key is not set (OPENAI_API_KEY)")
	}

	rc, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(p.model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		tts.Log("OPENAI", text, 0, err)
		p.track(false)
		return "", toFatal(err)
	}
	defer rc.Close()

	f, err := os.Create(tts.OutputFile(outputPath, "mp3"))
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		p.track(false)
		return "", fmt.Errorf("failed to write audio to file: %w", err)
	}

	tts.Log("OPENAI", text, 200, nil)
	p.track(true)
	return "mp3", nil
}

func (p *Provider) track(ok bool) {
	if p.tracker == nil {
		return
	}
	if ok {
		p.tracker.TrackAPISuccess("openai-tts")
	} else {
		p.tracker.TrackAPIFailure("openai-tts")
	}
}

func toFatal(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return tts.NewFatalError(apiErr.HTTPStatusCode, fmt.Sprintf("openai speech error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return tts.NewFatalError(reqErr.HTTPStatusCode, fmt.Sprintf("openai speech error (status %d): %v", reqErr.HTTPStatusCode, reqErr.Err))
	}
	return fmt.Errorf("openai speech request failed: %w", err)
}
