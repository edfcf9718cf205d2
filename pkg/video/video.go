// Package video turns a narration handoff into an MP4.
package video

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tripcast/pkg/config"
	"tripcast/pkg/model"
	"tripcast/pkg/stage"
)

// Builder produces a video file from the audio stage output and returns its path.
type Builder interface {
	Build(ctx context.Context, h model.Handoff) (string, error)
}

type execFunc func(ctx context.Context, name string, argv []string, in io.Reader) (string, error)

// FFmpegBuilder renders a still background (image or solid colour) under the
// narration audio, optionally with burned-in subtitles.
type FFmpegBuilder struct {
	cfg  config.VideoConfig
	exec execFunc
}

// NewFFmpegBuilder creates a builder invoking cfg.FFmpegPath.
func NewFFmpegBuilder(cfg config.VideoConfig) *FFmpegBuilder {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.Resolution == "" {
		cfg.Resolution = "1920x1080"
	}
	if cfg.Color == "" {
		cfg.Color = "black"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	return &FFmpegBuilder{cfg: cfg, exec: stage.Exec}
}

// Build writes <OutputDir>/<audio base>.mp4.
func (b *FFmpegBuilder) Build(ctx context.Context, h model.Handoff) (string, error) {
	if _, err := os.Stat(h.AudioPath); err != nil {
		return "", fmt.Errorf("audio file not found: %w", err)
	}
	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	out := OutputPath(b.cfg.OutputDir, h.AudioPath)
	argv := b.Args(h, out)

	slog.Info("Building video", "audio", h.AudioPath, "output", out)
	if _, err := b.exec(ctx, "video", argv, nil); err != nil {
		return "", err
	}
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("ffmpeg produced no output: %w", err)
	}
	return out, nil
}

// Args returns the full ffmpeg argv for one build.
func (b *FFmpegBuilder) Args(h model.Handoff, out string) []string {
	size := strings.Replace(b.cfg.Resolution, "x", ":", 1)

	argv := []string{b.cfg.FFmpegPath, "-y", "-hide_banner", "-loglevel", "error"}
	var filters []string
	if b.cfg.Background != "" {
		argv = append(argv, "-loop", "1", "-i", b.cfg.Background)
		filters = append(filters,
			"scale="+size+":force_original_aspect_ratio=decrease",
			"pad="+size+":(ow-iw)/2:(oh-ih)/2")
	} else {
		argv = append(argv, "-f", "lavfi", "-i", fmt.Sprintf("color=c=%s:s=%s:r=25", b.cfg.Color, b.cfg.Resolution))
	}
	argv = append(argv, "-i", h.AudioPath)

	if b.cfg.BurnSubtitles && h.SubtitlePath != "" {
		filters = append(filters, "subtitles="+escapeFilterPath(h.SubtitlePath))
	}
	if len(filters) > 0 {
		argv = append(argv, "-vf", strings.Join(filters, ","))
	}

	return append(argv,
		"-c:v", "libx264", "-tune", "stillimage",
		"-c:a", "aac", "-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-shortest",
		out,
	)
}

// OutputPath is <dir>/<audio base without extension>.mp4. A relative result
// starting with "-" gets a "./" prefix so ffmpeg reads it as a file name.
func OutputPath(dir, audioPath string) string {
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	out := filepath.Join(dir, base+".mp4")
	if strings.HasPrefix(out, "-") {
		out = "." + string(filepath.Separator) + out
	}
	return out
}

// escapeFilterPath quotes a path for use inside an ffmpeg filter argument.
func escapeFilterPath(p string) string {
	r := strings.NewReplacer(`\`, `\\\\`, `:`, `\\:`, `'`, `\\\'`)
	return r.Replace(p)
}

// CommandBuilder hands the handoff line to an external program as its single
// argument; the program prints the video path as its last stdout line.
type CommandBuilder struct {
	argv []string
	run  func(ctx context.Context, name string, argv []string) (string, error)
}

// NewCommandBuilder creates a builder running argv (program plus fixed args).
func NewCommandBuilder(argv []string) *CommandBuilder {
	return &CommandBuilder{argv: argv, run: stage.Run}
}

// Build runs the program and returns the path it reports.
func (b *CommandBuilder) Build(ctx context.Context, h model.Handoff) (string, error) {
	if len(b.argv) == 0 {
		return "", fmt.Errorf("video.command is empty")
	}
	argv := append(append([]string{}, b.argv...), h.String())
	path, err := b.run(ctx, "video", argv)
	if err != nil {
		return "", err
	}
	return path, nil
}
