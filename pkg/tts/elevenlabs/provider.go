// Package elevenlabs implements tts.Provider on the ElevenLabs API.
package elevenlabs

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/haguro/elevenlabs-go"

	"tripcast/pkg/config"
	"tripcast/pkg/tracker"
	"tripcast/pkg/tts"
)

const requestTimeout = 30 * time.Second

type speakFunc func(ctx context.Context, key, voice string, req elevenlabs.TextToSpeechRequest) ([]byte, error)

// Provider implements tts.Provider for ElevenLabs.
type Provider struct {
	key     string
	model   string
	voiceID string
	tracker *tracker.Tracker
	speak   speakFunc
}

// NewProvider creates a new ElevenLabs TTS provider.
func NewProvider(cfg config.ElevenLabsConfig, t *tracker.Tracker) *Provider {
	return &Provider{
		key:     cfg.Key,
		model:   cfg.Model,
		voiceID: cfg.VoiceID,
		tracker: t,
		speak:   speak,
	}
}

func speak(ctx context.Context, key, voice string, req elevenlabs.TextToSpeechRequest) ([]byte, error) {
	client := elevenlabs.NewClient(ctx, key, requestTimeout)
	return client.TextToSpeech(voice, req)
}

// Synthesize generates an .mp3 file with the configured voice.
func (p *Provider) Synthesize(ctx context.Context, text, voice, outputPath string) (string, error) {
	if voice == "" {
		voice = p.voiceID
	}
	if voice == "" {
		return "", fmt.Errorf("no voice configured for ElevenLabs")
	}
	if p.key == "" {
		return "", tts.NewFatalError(401, "elevenlabs key is not set (ELEVENLABS_API_KEY)")
	}

	audio, err := p.speak(ctx, p.key, voice, elevenlabs.TextToSpeechRequest{
		Text:    text,
		ModelID: p.model,
	})
	if err != nil {
		tts.Log("ELEVENLABS", text, 0, err)
		p.track(false)
		return "", fmt.Errorf("elevenlabs request failed: %w", err)
	}
	if len(audio) == 0 {
		p.track(false)
		return "", fmt.Errorf("received empty audio from elevenlabs")
	}

	if err := os.WriteFile(tts.OutputFile(outputPath, "mp3"), audio, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audio to file: %w", err)
	}

	tts.Log("ELEVENLABS", text, 200, nil)
	p.track(true)
	return "mp3", nil
}

func (p *Provider) track(ok bool) {
	if p.tracker == nil {
		return
	}
	if ok {
		p.tracker.TrackAPISuccess("elevenlabs")
	} else {
		p.tracker.TrackAPIFailure("elevenlabs")
	}
}
