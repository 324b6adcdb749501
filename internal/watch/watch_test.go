package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertOp(t *testing.T) {
	assert.Equal(t, OpCreate|OpWrite, convertOp(fsnotify.Create|fsnotify.Write))
	assert.Equal(t, OpRemove, convertOp(fsnotify.Remove))
	assert.Equal(t, OpRename|OpChmod, convertOp(fsnotify.Rename|fsnotify.Chmod))
	assert.Equal(t, Op(0), convertOp(0))
}

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "graph.yaml")
	other := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(target, []byte("a"), 0o644))

	w, err := New([]string{target}, 150*time.Millisecond, nil)
	if err != nil {
		t.Skip("fsnotify not supported: ", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(target, []byte{byte('a' + i)}, 0o644))
	}
	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))

	select {
	case ev := <-w.Events():
		abs, _ := filepath.Abs(target)
		assert.Equal(t, abs, ev.Path)
		assert.NotZero(t, ev.Op&OpWrite)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change event")
	}

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected second event %+v", ev)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcherStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{filepath.Join(dir, "graph.yaml")}, 0, nil)
	if err != nil {
		t.Skip("fsnotify not supported: ", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	_, open := <-w.Events()
	assert.False(t, open)
}

func TestNewMissingDirectory(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "nope", "graph.yaml")}, 0, nil)
	assert.Error(t, err)
}
