package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_RecordAndRecent(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, store.Record(ctx, Record{ID: "b1", Trigger: "startup", StartedAt: base, Duration: 12 * time.Millisecond, Success: true, Pages: 3, Directories: 1, Assets: 2, Revision: "main@abcdef12"}))
	require.NoError(t, store.Record(ctx, Record{ID: "b2", Trigger: "watch", StartedAt: base.Add(time.Minute), Duration: time.Millisecond, Error: "read content file"}))

	recs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "b2", recs[0].ID)
	assert.False(t, recs[0].Success)
	assert.Equal(t, "read content file", recs[0].Error)
	assert.Empty(t, recs[0].Revision)

	assert.Equal(t, "b1", recs[1].ID)
	assert.True(t, recs[1].Success)
	assert.Equal(t, 3, recs[1].Pages)
	assert.Equal(t, 2, recs[1].Assets)
	assert.Equal(t, 12*time.Millisecond, recs[1].Duration)
	assert.True(t, base.Equal(recs[1].StartedAt))
	assert.Equal(t, "main@abcdef12", recs[1].Revision)
}

func TestSQLiteStore_RecentLimit(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Record(ctx, Record{ID: id, Trigger: "manual", StartedAt: time.Now(), Success: true}))
	}
	recs, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c", recs[0].ID)
	assert.Equal(t, "b", recs[1].ID)
}

func TestSQLiteStore_DuplicateID(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	require.NoError(t, store.Record(ctx, Record{ID: "same", Trigger: "manual", StartedAt: time.Now()}))
	require.Error(t, store.Record(ctx, Record{ID: "same", Trigger: "manual", StartedAt: time.Now()}))
}

func TestSQLiteStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, Record{ID: "kept", Trigger: "manual", StartedAt: time.Now(), Success: true}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	recs, err := reopened.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "kept", recs[0].ID)
}
