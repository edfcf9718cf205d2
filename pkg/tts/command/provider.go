// Package command implements tts.Provider by running a local speech engine
// such as piper or espeak-ng.
package command

import (
	"context"
	"fmt"
	"io"
	"strings"

	"tripcast/pkg/config"
	"tripcast/pkg/stage"
	"tripcast/pkg/tts"
)

// Provider runs the configured argv once per segment. The engine must write
// a WAV file to {output}. When no argument mentions {text} the text is fed
// on stdin.
type Provider struct {
	args    []string
	voiceID string
}

// NewProvider creates a new command TTS provider.
func NewProvider(cfg config.CommandTTSConfig) *Provider {
	return &Provider{args: cfg.Args, voiceID: cfg.VoiceID}
}

// Synthesize runs the engine and returns "wav".
func (p *Provider) Synthesize(ctx context.Context, text, voice, outputPath string) (string, error) {
	if len(p.args) == 0 {
		return "", fmt.Errorf("tts.command.args is empty")
	}
	if !stage.HasPlaceholder(p.args, "output") {
		return "", fmt.Errorf("tts.command.args must contain {output}")
	}
	if voice == "" {
		voice = p.voiceID
	}

	out := tts.OutputFile(outputPath, "wav")
	argv := stage.Expand(p.args, map[string]string{
		"text":   text,
		"voice":  voice,
		"output": out,
	})

	var stdin io.Reader
	if !stage.HasPlaceholder(p.args, "text") {
		stdin = strings.NewReader(text + "\n")
	}

	if _, err := stage.Exec(ctx, "tts", argv, stdin); err != nil {
		tts.Log("COMMAND", text, 0, err)
		return "", fmt.Errorf("speech engine %s failed: %w", argv[0], err)
	}

	tts.Log("COMMAND", text, 0, nil)
	return "wav", nil
}
