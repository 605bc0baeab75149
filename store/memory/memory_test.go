package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/smallnest/agentpatterns/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSaveLoad(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	cp := &store.Checkpoint{
		ID:        "cp-1",
		ThreadID:  "thread-1",
		NodeName:  "generate",
		State:     map[string]any{"draft": "v1"},
		CreatedAt: time.Now(),
		Version:   1,
	}

	require.NoError(t, s.Save(ctx, cp))

	loaded, err := s.Load(ctx, "cp-1")
	require.NoError(t, err)
	assert.Equal(t, cp.ID, loaded.ID)
	assert.Equal(t, cp.NodeName, loaded.NodeName)
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Load(context.Background(), "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestMemoryStoreLoadReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "cp-1", ThreadID: "t", NodeName: "a", Version: 1}))

	loaded, err := s.Load(ctx, "cp-1")
	require.NoError(t, err)
	loaded.NodeName = "mutated"

	again, err := s.Load(ctx, "cp-1")
	require.NoError(t, err)
	assert.Equal(t, "a", again.NodeName)
}

func TestMemoryStoreListOrdered(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, v := range []int{2, 3, 1} {
		require.NoError(t, s.Save(ctx, &store.Checkpoint{
			ID:       fmt.Sprintf("cp-%d", v),
			ThreadID: "t",
			Version:  v,
		}))
	}

	list, err := s.List(ctx, "t")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, cp := range list {
		assert.Equal(t, i+1, cp.Version)
	}
}

func TestMemoryStoreLatest(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "cp-1", ThreadID: "t", Version: 1}))
	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "cp-2", ThreadID: "t", Version: 2}))

	latest, err := s.Latest(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "cp-2", latest.ID)

	_, err = s.Latest(ctx, "empty")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "cp-1", ThreadID: "t", Version: 1}))
	require.NoError(t, s.Delete(ctx, "cp-1"))

	_, err := s.Load(ctx, "cp-1")
	assert.Error(t, err)

	list, err := s.List(ctx, "t")
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Error(t, s.Delete(ctx, "cp-1"))
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "cp-1", ThreadID: "t", Version: 1}))
	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "cp-2", ThreadID: "t", Version: 2}))
	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "cp-3", ThreadID: "other", Version: 1}))

	require.NoError(t, s.Clear(ctx, "t"))

	list, err := s.List(ctx, "t")
	require.NoError(t, err)
	assert.Empty(t, list)

	other, err := s.List(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestMemoryStoreSaveOverwrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "cp-1", ThreadID: "t", NodeName: "a", Version: 1}))
	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "cp-1", ThreadID: "t", NodeName: "b", Version: 2}))

	loaded, err := s.Load(ctx, "cp-1")
	require.NoError(t, err)
	assert.Equal(t, "b", loaded.NodeName)

	// The thread index must not grow on overwrite.
	list, err := s.List(ctx, "t")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
