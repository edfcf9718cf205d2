package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"tripcast/pkg/upload"
)

// Confirmer decides whether a built video is uploaded.
type Confirmer interface {
	Confirm(ctx context.Context, req upload.Request) (bool, error)
}

// AutoConfirm approves every upload.
type AutoConfirm struct{}

func (AutoConfirm) Confirm(ctx context.Context, req upload.Request) (bool, error) {
	return true, nil
}

// PromptConfirmer asks on Out and reads the answer from In. Only "y" or
// "yes" approve; an empty answer or end of input declines.
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (p PromptConfirmer) Confirm(ctx context.Context, req upload.Request) (bool, error) {
	if p.Out != nil {
		fmt.Fprintf(p.Out, "Upload %q (%s)? [y/N]: ", req.Title, req.VideoPath)
	}

	answer := make(chan string, 1)
	errc := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		if err != nil && err != io.EOF {
			errc <- err
			return
		}
		answer <- line
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errc:
		return false, fmt.Errorf("read confirmation: %w", err)
	case line := <-answer:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}
