package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smallnest/agentpatterns/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestFileStoreSaveLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cp := &store.Checkpoint{
		ID:        "cp-1",
		ThreadID:  "thread-1",
		NodeName:  "generate",
		State:     map[string]any{"draft": "v1"},
		CreatedAt: time.Now().UTC(),
		Version:   1,
	}

	require.NoError(t, s.Save(ctx, cp))

	loaded, err := s.Load(ctx, "cp-1")
	require.NoError(t, err)
	assert.Equal(t, cp.ID, loaded.ID)
	assert.Equal(t, cp.ThreadID, loaded.ThreadID)

	state, ok := loaded.State.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "v1", state["draft"])
}

func TestFileStoreLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), &store.Checkpoint{
		ID:       "cp-1",
		ThreadID: "thread-1",
		Version:  1,
	}))

	// One directory per thread, one JSON file per checkpoint.
	_, err = os.Stat(filepath.Join(dir, "thread-1", "cp-1.json"))
	assert.NoError(t, err)
}

func TestFileStoreUnassignedThread(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), &store.Checkpoint{ID: "cp-1", Version: 1}))

	_, err = os.Stat(filepath.Join(dir, "_unassigned", "cp-1.json"))
	assert.NoError(t, err)
}

func TestFileStoreLoadMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load(context.Background(), "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestFileStoreListOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, cp := range []*store.Checkpoint{
		{ID: "cp-b", ThreadID: "t", Version: 2},
		{ID: "cp-a", ThreadID: "t", Version: 1},
		{ID: "cp-c", ThreadID: "t", Version: 3},
	} {
		require.NoError(t, s.Save(ctx, cp))
	}

	list, err := s.List(ctx, "t")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, cp := range list {
		assert.Equal(t, i+1, cp.Version)
	}
}

func TestFileStoreListMissingThread(t *testing.T) {
	s := newTestStore(t)

	list, err := s.List(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFileStoreLatest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "cp-1", ThreadID: "t", Version: 1}))
	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "cp-2", ThreadID: "t", Version: 2}))

	latest, err := s.Latest(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "cp-2", latest.ID)
}

func TestFileStoreDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "cp-1", ThreadID: "t", Version: 1}))
	require.NoError(t, s.Delete(ctx, "cp-1"))

	_, err := s.Load(ctx, "cp-1")
	assert.Error(t, err)
}

func TestFileStoreClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "cp-1", ThreadID: "t", Version: 1}))
	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "cp-2", ThreadID: "t", Version: 2}))

	require.NoError(t, s.Clear(ctx, "t"))

	list, err := s.List(ctx, "t")
	require.NoError(t, err)
	assert.Empty(t, list)
}
