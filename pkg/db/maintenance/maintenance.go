package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tripcast/pkg/db"
)

// Options controls what a maintenance pass cleans up.
type Options struct {
	CacheMaxAge   time.Duration // cached API responses older than this are dropped
	WorkDir       string        // per-segment synthesis files left behind by interrupted runs
	SegmentMaxAge time.Duration
}

// DefaultOptions prunes month-old cache rows and day-old segment files.
func DefaultOptions(workDir string) Options {
	return Options{
		CacheMaxAge:   30 * 24 * time.Hour,
		WorkDir:       workDir,
		SegmentMaxAge: 24 * time.Hour,
	}
}

// Run executes all maintenance tasks. Failures are logged, never fatal.
// It blocks until completion.
func Run(ctx context.Context, d *db.DB, opts Options) {
	slog.Debug("Starting maintenance")

	if n, err := d.PruneCache(opts.CacheMaxAge); err != nil {
		slog.Error("Cache pruning failed", "error", err)
	} else if n > 0 {
		slog.Info("Cache pruning completed", "removed", n)
	}

	if ctx.Err() != nil {
		return
	}

	if n, err := pruneSegments(opts.WorkDir, opts.SegmentMaxAge); err != nil {
		slog.Error("Segment cleanup failed", "dir", opts.WorkDir, "error", err)
	} else if n > 0 {
		slog.Info("Removed stale segment files", "dir", opts.WorkDir, "count", n)
	}
}

// pruneSegments deletes regular files in dir whose mtime is older than maxAge.
// A missing dir is not an error.
func pruneSegments(dir string, maxAge time.Duration) (int, error) {
	if dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read work dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
