// Package upload publishes a finished video.
package upload

import (
	"context"
	"fmt"
	"strings"

	"tripcast/pkg/source"
	"tripcast/pkg/stage"
)

// Request describes one video to publish.
type Request struct {
	VideoPath   string
	Title       string
	Description string
	Keyword     string
	SourceURL   string
}

// Result identifies the published video.
type Result struct {
	ID  string
	URL string
}

// Uploader publishes a video.
type Uploader interface {
	Upload(ctx context.Context, req Request) (*Result, error)
}

// Describe builds the default description for a narrated report.
func Describe(title, keyword, sourceURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nA narrated experience report from Erowid.", title)
	if keyword != "" {
		fmt.Fprintf(&b, "\nSubstance: %s", keyword)
	}
	if id := source.ExperienceID(sourceURL); id != "" {
		fmt.Fprintf(&b, "\nErowid experience #%s", id)
	}
	if sourceURL != "" {
		fmt.Fprintf(&b, "\nOriginal report: %s", sourceURL)
	}
	return b.String()
}

// CommandUploader runs an external program with `video_path playlist_id`.
// Its last stdout line, if any, is reported as the result URL.
type CommandUploader struct {
	argv       []string
	playlistID string
}

// NewCommandUploader creates an uploader running argv (program plus fixed args).
func NewCommandUploader(argv []string, playlistID string) *CommandUploader {
	return &CommandUploader{argv: argv, playlistID: playlistID}
}

// Upload runs the program.
func (u *CommandUploader) Upload(ctx context.Context, req Request) (*Result, error) {
	if len(u.argv) == 0 {
		return nil, fmt.Errorf("upload.command is empty")
	}
	argv := append(append([]string{}, u.argv...), req.VideoPath, u.playlistID)
	out, err := stage.Exec(ctx, "upload", argv, nil)
	if err != nil {
		return nil, err
	}
	return &Result{URL: stage.LastLine(out)}, nil
}
