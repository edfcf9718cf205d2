package store

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripcast/pkg/db"
	"tripcast/pkg/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return NewSQLiteStore(d)
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	testCache(t, ctx, store)
	testRuns(t, ctx, store)
}

func testCache(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("Cache", func(t *testing.T) {
		payload := bytes.Repeat([]byte(`{"title":"A Trip"}`), 50)
		require.NoError(t, store.SetCache(ctx, "experience:https://e/1", payload))

		got, hit := store.GetCache(ctx, "experience:https://e/1")
		assert.True(t, hit)
		assert.Equal(t, payload, got, "compression must be transparent")

		has, err := store.HasCache(ctx, "experience:https://e/1")
		require.NoError(t, err)
		assert.True(t, has)

		_, hit = store.GetCache(ctx, "missing")
		assert.False(t, hit)
		has, err = store.HasCache(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, has)

		require.NoError(t, store.SetCache(ctx, "other:1", []byte("x")))
		keys, err := store.ListCacheKeys(ctx, "experience:")
		require.NoError(t, err)
		assert.Equal(t, []string{"experience:https://e/1"}, keys)
	})
}

func testRuns(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("Runs", func(t *testing.T) {
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			r := &model.Run{
				ID:        fmt.Sprintf("run-%d", i),
				SourceURL: "https://erowid.org/exp.php?ID=" + fmt.Sprint(i),
				Title:     fmt.Sprintf("Trip %d", i),
				Keyword:   "LSD",
				AudioPath: fmt.Sprintf("Trip_%d.wav", i),
				Status:    model.RunStatusOK,
				StartedAt: base.Add(time.Duration(i) * time.Hour),
			}
			require.NoError(t, store.SaveRun(ctx, r))
		}

		// Update in place
		r, err := store.GetRun(ctx, "run-1")
		require.NoError(t, err)
		require.NotNil(t, r)
		assert.True(t, r.FinishedAt.IsZero())
		r.Status = model.RunStatusFailedPrefix + "video"
		r.Degraded = true
		r.FinishedAt = base.Add(90 * time.Minute)
		require.NoError(t, store.SaveRun(ctx, r))

		got, err := store.GetRun(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, "failed:video", got.Status)
		assert.True(t, got.Degraded)
		assert.True(t, got.FinishedAt.Equal(base.Add(90*time.Minute)))

		recent, err := store.RecentRuns(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "run-2", recent[0].ID)
		assert.Equal(t, "run-1", recent[1].ID)

		missing, err := store.GetRun(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}
