package preview

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/rebuild"
)

type countingRebuilder struct {
	mu       sync.Mutex
	triggers []string
}

func (c *countingRebuilder) Rebuild(_ context.Context, trigger string) rebuild.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.triggers = append(c.triggers, trigger)
	return rebuild.Result{Trigger: trigger}
}

func (c *countingRebuilder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.triggers)
}

func TestShouldIgnoreEvent(t *testing.T) {
	require.True(t, shouldIgnoreEvent("/tmp/.hidden.md"))
	require.True(t, shouldIgnoreEvent("/tmp/#foo#"))
	require.True(t, shouldIgnoreEvent("/tmp/foo.swp"))
	require.True(t, shouldIgnoreEvent("/tmp/foo.md~"))
	require.True(t, shouldIgnoreEvent("/tmp/.DS_Store"))
	require.True(t, shouldIgnoreEvent("/tmp/Thumbs.db"))
	require.False(t, shouldIgnoreEvent("/tmp/visible.md"))
}

func TestUnderOutput(t *testing.T) {
	base := t.TempDir()
	w := NewWatcher(filepath.Join(base, "content"), filepath.Join(base, "public"))

	assert.True(t, w.underOutput(filepath.Join(base, "public")))
	assert.True(t, w.underOutput(filepath.Join(base, "public", "a.html")))
	assert.True(t, w.underOutput(filepath.Join(base, "public.staging-123", "a.html")))
	assert.True(t, w.underOutput(filepath.Join(base, "public.old-123")))
	assert.False(t, w.underOutput(filepath.Join(base, "publicity", "a.md")))
	assert.False(t, w.underOutput(filepath.Join(base, "content", "a.md")))
}

func TestRun_MissingSourceIsWatcherError(t *testing.T) {
	base := t.TempDir()
	w := NewWatcher(filepath.Join(base, "missing"), filepath.Join(base, "public"))
	err := w.Run(context.Background(), &countingRebuilder{})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryWatcher))
}

func TestRun_DebouncesChangesIntoRebuilds(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "content")
	require.NoError(t, os.MkdirAll(src, 0o755))

	rb := &countingRebuilder{}
	w := NewWatcher(src, filepath.Join(base, "public"), WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx, rb) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	for i := range 5 {
		require.NoError(t, os.WriteFile(filepath.Join(src, "a.md"), []byte{byte('a' + i)}, 0o644))
	}

	require.Eventually(t, func() bool { return rb.count() >= 1 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, rb.count(), "a burst of writes yields one rebuild")
	assert.Equal(t, rebuild.TriggerWatch, rb.triggers[0])

	// a directory created after startup is watched too
	sub := filepath.Join(src, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.Eventually(t, func() bool { return rb.count() >= 2 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	before := rb.count()
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.md"), []byte("b"), 0o644))
	require.Eventually(t, func() bool { return rb.count() > before }, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRun_IgnoresHiddenAndOutputChanges(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "content")
	out := filepath.Join(src, "public")
	require.NoError(t, os.MkdirAll(out, 0o755))

	rb := &countingRebuilder{}
	w := NewWatcher(src, out, WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx, rb) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(src, ".draft.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.md.swp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(out, "a.html"), []byte("x"), 0o644))

	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, rb.count())
}
