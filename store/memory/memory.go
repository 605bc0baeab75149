// Package memory provides an in-memory checkpoint store for tests and
// single-process use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/smallnest/agentpatterns/store"
)

// MemoryStore keeps checkpoints in process memory, guarded by a mutex.
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*store.Checkpoint
	threads     map[string][]string
}

var _ store.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		checkpoints: make(map[string]*store.Checkpoint),
		threads:     make(map[string][]string),
	}
}

// Save stores a checkpoint.
func (s *MemoryStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.checkpoints[checkpoint.ID]; !exists && checkpoint.ThreadID != "" {
		s.threads[checkpoint.ThreadID] = append(s.threads[checkpoint.ThreadID], checkpoint.ID)
	}
	cp := *checkpoint
	s.checkpoints[checkpoint.ID] = &cp
	return nil
}

// Load retrieves a checkpoint by ID.
func (s *MemoryStore) Load(ctx context.Context, checkpointID string) (*store.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.checkpoints[checkpointID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, checkpointID)
	}
	out := *cp
	return &out, nil
}

// List returns all checkpoints for a thread, oldest first.
func (s *MemoryStore) List(ctx context.Context, threadID string) ([]*store.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.threads[threadID]
	checkpoints := make([]*store.Checkpoint, 0, len(ids))
	for _, id := range ids {
		if cp, ok := s.checkpoints[id]; ok {
			out := *cp
			checkpoints = append(checkpoints, &out)
		}
	}
	sort.Slice(checkpoints, func(i, j int) bool {
		return checkpoints[i].Version < checkpoints[j].Version
	})
	return checkpoints, nil
}

// Latest returns the most recent checkpoint for a thread.
func (s *MemoryStore) Latest(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	checkpoints, err := s.List(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return store.LatestOf(checkpoints)
}

// Delete removes a checkpoint.
func (s *MemoryStore) Delete(ctx context.Context, checkpointID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp, ok := s.checkpoints[checkpointID]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, checkpointID)
	}
	delete(s.checkpoints, checkpointID)

	ids := s.threads[cp.ThreadID]
	for i, id := range ids {
		if id == checkpointID {
			s.threads[cp.ThreadID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// Clear removes all checkpoints for a thread.
func (s *MemoryStore) Clear(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.threads[threadID] {
		delete(s.checkpoints, id)
	}
	delete(s.threads, threadID)
	return nil
}
