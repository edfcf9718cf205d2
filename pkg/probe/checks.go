package probe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Validator is anything that can check its own settings without network access.
type Validator interface {
	Validate() error
}

// Binary checks that an executable is on PATH (or at the given path).
func Binary(name string) CheckFunc {
	return func(ctx context.Context) error {
		if name == "" {
			return fmt.Errorf("no executable configured")
		}
		if _, err := exec.LookPath(name); err != nil {
			return fmt.Errorf("%s not found: %w", name, err)
		}
		return nil
	}
}

// File checks that a regular file exists.
func File(path string) CheckFunc {
	return func(ctx context.Context) error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
		return nil
	}
}

// Settings wraps a Validator. Values that do not implement it always pass.
func Settings(v any) CheckFunc {
	return func(ctx context.Context) error {
		if val, ok := v.(Validator); ok {
			return val.Validate()
		}
		return nil
	}
}
