package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"

	"tripcast/pkg/config"
	"tripcast/pkg/model"
	"tripcast/pkg/text"
	"tripcast/pkg/tts"
)

// DefaultSampleRate is used when Options.SampleRate is unset.
const DefaultSampleRate = 22050

// Options configures a Renderer.
type Options struct {
	Voice        string
	SampleRate   int
	WorkDir      string
	OutputDir    string
	KeepSegments bool
	Subtitles    bool
	Gain         float64
	HighPassHz   float64
}

// OptionsFromConfig maps the audio section of the config onto Options.
func OptionsFromConfig(cfg config.AudioConfig, voice string) Options {
	return Options{
		Voice:        voice,
		SampleRate:   cfg.SampleRate,
		WorkDir:      cfg.WorkDir,
		OutputDir:    cfg.OutputDir,
		KeepSegments: cfg.KeepSegments,
		Subtitles:    cfg.Subtitles,
		Gain:         cfg.Gain,
		HighPassHz:   cfg.HighPassHz,
	}
}

// Rendering describes the written narration.
type Rendering struct {
	AudioPath    string
	SubtitlePath string // empty when subtitles are disabled
	Duration     time.Duration
	Spoken       int
	Skipped      int
}

// Renderer synthesizes segments one by one and concatenates them with
// the pause of each segment as trailing silence.
type Renderer struct {
	provider tts.Provider
	opts     Options
}

// NewRenderer creates a Renderer. Zero values in opts take defaults.
func NewRenderer(p tts.Provider, opts Options) *Renderer {
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	if opts.Gain == 0 {
		opts.Gain = 1.0
	}
	return &Renderer{provider: p, opts: opts}
}

// Render writes <OutputDir>/<sanitized title>.wav. A segment whose
// normalized text equals the last spoken one is skipped without updating
// that marker. Any synthesis or decode failure aborts the render.
func (r *Renderer) Render(ctx context.Context, title string, segments []model.Segment) (*Rendering, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments to render")
	}
	if err := os.MkdirAll(r.opts.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	if err := os.MkdirAll(r.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	prefix := uuid.NewString()[:8]
	var segFiles []string
	defer func() {
		if r.opts.KeepSegments {
			return
		}
		for _, f := range segFiles {
			_ = os.Remove(f)
		}
	}()

	buf := NewBuffer(r.opts.SampleRate)
	var cues []Cue
	var last string
	haveLast := false
	res := &Rendering{}

	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		normalized := strings.ToLower(text.Normalize(seg.Text))
		if haveLast && normalized == last {
			slog.Warn("Skipping duplicate segment", "index", i, "text", truncate(seg.Text, 60))
			res.Skipped++
			continue
		}

		slog.Info("Synthesizing", "index", i, "text", truncate(seg.Text, 40))
		base := filepath.Join(r.opts.WorkDir, fmt.Sprintf("%s_seg_%03d", prefix, i))
		format, err := r.provider.Synthesize(ctx, seg.Text, r.opts.Voice, base)
		if err != nil {
			if tts.IsFatalError(err) {
				return nil, fmt.Errorf("engine rejected segment %d: %w", i, err)
			}
			return nil, fmt.Errorf("synthesis failed for segment %d: %w", i, err)
		}
		path := tts.OutputFile(base, format)
		segFiles = append(segFiles, path)

		start := buf.Duration()
		if err := r.appendFile(buf, path); err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		cues = append(cues, Cue{Start: start, End: buf.Duration(), Text: seg.Text})
		buf.AppendSilence(seg.Pause)

		last, haveLast = normalized, true
		res.Spoken++
	}

	name := text.SanitizeFilename(title)
	res.AudioPath = filepath.Join(r.opts.OutputDir, name+".wav")
	if err := buf.WriteWAV(res.AudioPath); err != nil {
		return nil, err
	}
	d, err := GetDuration(res.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("written narration is unreadable: %w", err)
	}
	res.Duration = d

	if r.opts.Subtitles {
		res.SubtitlePath = filepath.Join(r.opts.OutputDir, name+".srt")
		if err := WriteSRT(res.SubtitlePath, cues); err != nil {
			return nil, err
		}
	}

	slog.Info("Saved audio", "path", res.AudioPath, "duration", res.Duration.Round(time.Millisecond),
		"spoken", res.Spoken, "skipped", res.Skipped)
	return res, nil
}

func (r *Renderer) appendFile(buf *Buffer, path string) error {
	if err := tts.VerifyAudioFile(path); err != nil {
		return err
	}
	streamer, format, err := DecodeFile(path)
	if err != nil {
		return err
	}
	defer streamer.Close()

	var s beep.Streamer = streamer
	if r.opts.HighPassHz > 0 {
		s = NewRumbleFilter(s, float64(format.SampleRate), r.opts.HighPassHz)
	}
	s = WithGain(s, r.opts.Gain)

	if _, err := buf.AppendStream(s, format); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
