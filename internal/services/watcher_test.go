package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presentat/internal/eventloop"
	"presentat/internal/logger"
)

func TestFileWatcherReportsWritesToTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "slides.md")
	other := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(target, []byte("a"), 0o644))

	q := eventloop.NewQueue(16)
	var changed []string
	fw, err := NewFileWatcher(q, logger.Nop(), func(path string) {
		changed = append(changed, path)
	})
	require.NoError(t, err)
	defer fw.Shutdown()

	require.NoError(t, fw.Watch(target))

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("b"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.True(t, q.RunOne(ctx), "expected a change notification")
	assert.Equal(t, []string{filepath.Clean(target)}, changed)
}

func TestFileWatcherStopsWatching(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "slides.md")
	require.NoError(t, os.WriteFile(target, []byte("a"), 0o644))

	q := eventloop.NewQueue(16)
	fw, err := NewFileWatcher(q, logger.Nop(), func(string) {
		t.Error("no notification expected after Watch(\"\")")
	})
	require.NoError(t, err)
	defer fw.Shutdown()

	require.NoError(t, fw.Watch(target))
	require.NoError(t, fw.Watch(""))
	require.NoError(t, os.WriteFile(target, []byte("b"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()
	assert.False(t, q.RunOne(ctx))
}

func TestFileWatcherShutdownIsIdempotent(t *testing.T) {
	fw, err := NewFileWatcher(eventloop.NewQueue(1), logger.Nop(), func(string) {})
	require.NoError(t, err)
	fw.Shutdown()
	fw.Shutdown()
}
