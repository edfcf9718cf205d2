package maintenance

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tripcast/pkg/db"
)

func TestMaintenance(t *testing.T) {
	tempDir := t.TempDir()
	d, err := db.Init(filepath.Join(tempDir, "maint_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	// Insert old entry (40 days old) and a fresh one
	old := time.Now().Add(-40 * 24 * time.Hour).UTC()
	if _, err := d.Exec("INSERT INTO cache (key, value, created_at) VALUES (?, ?, ?)", "experience:old", []byte("x"), old); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Exec("INSERT INTO cache (key, value, created_at) VALUES (?, ?, ?)", "experience:new", []byte("y"), time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	workDir := filepath.Join(tempDir, "segments")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(workDir, "seg_0001.mp3")
	fresh := filepath.Join(workDir, "seg_0002.mp3")
	for _, p := range []string{stale, fresh} {
		if err := os.WriteFile(p, []byte("audio"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, past, past); err != nil {
		t.Fatal(err)
	}

	Run(context.Background(), d, DefaultOptions(workDir))

	var keys []string
	rows, err := d.Query("SELECT key FROM cache")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			t.Fatal(err)
		}
		keys = append(keys, k)
	}
	if len(keys) != 1 || keys[0] != "experience:new" {
		t.Errorf("Expected only the fresh cache row, got %v", keys)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("Expected stale segment to be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("Expected fresh segment to be kept")
	}
}

func TestPruneSegments_MissingDir(t *testing.T) {
	n, err := pruneSegments(filepath.Join(t.TempDir(), "nope"), time.Hour)
	if err != nil || n != 0 {
		t.Errorf("Expected (0, nil), got (%d, %v)", n, err)
	}
}
