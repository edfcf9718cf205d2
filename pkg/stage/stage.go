// Package stage runs external programs that follow the handoff contract:
// the result is the last non-empty line the program prints to stdout.
package stage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Error is returned when a stage program cannot start or exits non-zero.
type Error struct {
	Stage    string
	ExitCode int // -1 when the program did not start or was killed
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("stage %s exited with code %d", e.Stage, e.ExitCode)
	}
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Run executes argv and returns its last non-empty stdout line.
func Run(ctx context.Context, name string, argv []string) (string, error) {
	return RunInput(ctx, name, argv, nil)
}

// RunInput is Run with stdin fed from in (nil for no input).
func RunInput(ctx context.Context, name string, argv []string, in io.Reader) (string, error) {
	out, err := Exec(ctx, name, argv, in)
	if err != nil {
		return "", err
	}
	line := LastLine(out)
	if line == "" {
		return "", &Error{Stage: name, ExitCode: 0, Err: errors.New("no output on stdout")}
	}
	return line, nil
}

// Exec executes argv and returns the complete stdout.
func Exec(ctx context.Context, name string, argv []string, in io.Reader) (string, error) {
	if len(argv) == 0 || argv[0] == "" {
		return "", &Error{Stage: name, ExitCode: -1, Err: errors.New("empty command")}
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if in != nil {
		cmd.Stdin = in
	}

	start := time.Now()
	slog.Debug("Running stage", "stage", name, "program", argv[0], "args", len(argv)-1)
	err := cmd.Run()
	if err != nil {
		se := &Error{Stage: name, ExitCode: -1, Stderr: strings.TrimSpace(stderr.String()), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			se.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			se.Err = ctx.Err()
		}
		return "", se
	}

	slog.Debug("Stage finished", "stage", name, "duration", time.Since(start).Round(time.Millisecond))
	return stdout.String(), nil
}

// LastLine returns the last non-empty, trimmed line of s.
func LastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

// Expand replaces {key} placeholders in every argument.
func Expand(args []string, vars map[string]string) []string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)

	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}

// HasPlaceholder reports whether any argument mentions {key}.
func HasPlaceholder(args []string, key string) bool {
	for _, a := range args {
		if strings.Contains(a, "{"+key+"}") {
			return true
		}
	}
	return false
}
