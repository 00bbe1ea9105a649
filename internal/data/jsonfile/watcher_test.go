package jsonfile

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/colonyops/lens/internal/core/review"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReportsSaves(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.json")

	w, err := NewWatcher(path, zerolog.New(io.Discard))
	require.NoError(t, err)
	defer w.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changes := w.Changes(ctx)

	store := NewHistoryStore(path, zerolog.New(io.Discard))
	require.NoError(t, store.SaveAll(ctx, []review.Session{sampleSession("a", "x=1")}))

	select {
	case ts := <-changes:
		require.False(t, ts.IsZero())
	case <-ctx.Done():
		t.Fatal("timeout waiting for change")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := NewWatcher(filepath.Join(dir, "history.json"), zerolog.New(io.Discard))
	require.NoError(t, err)
	defer w.Close() //nolint:errcheck

	changes := w.Changes(context.Background())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644))

	select {
	case <-changes:
		t.Fatal("unexpected change for unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_CloseClosesChannels(t *testing.T) {
	t.Parallel()

	w, err := NewWatcher(filepath.Join(t.TempDir(), "history.json"), zerolog.New(io.Discard))
	require.NoError(t, err)

	changes := w.Changes(context.Background())
	require.NoError(t, w.Close())

	select {
	case _, ok := <-changes:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestWatcher_UnsubscribeOnCancel(t *testing.T) {
	t.Parallel()

	w, err := NewWatcher(filepath.Join(t.TempDir(), "history.json"), zerolog.New(io.Discard))
	require.NoError(t, err)
	defer w.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	changes := w.Changes(ctx)
	cancel()

	select {
	case _, ok := <-changes:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
