// Package file persists checkpoints as JSON files under a root directory,
// one subdirectory per thread. The layout mirrors a ./threads/<thread-id>/
// directory of JSON snapshots.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/smallnest/agentpatterns/store"
)

// FileStore writes each checkpoint to <root>/<thread-id>/<checkpoint-id>.json.
type FileStore struct {
	root string
}

var _ store.Store = (*FileStore)(nil)

// NewFileStore creates a file-backed store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &FileStore{root: dir}, nil
}

func (s *FileStore) threadDir(threadID string) string {
	if threadID == "" {
		threadID = "_unassigned"
	}
	return filepath.Join(s.root, threadID)
}

func (s *FileStore) checkpointPath(threadID, checkpointID string) string {
	return filepath.Join(s.threadDir(threadID), checkpointID+".json")
}

// Save stores a checkpoint.
func (s *FileStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	dir := s.threadDir(checkpoint.ThreadID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create thread directory: %w", err)
	}

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	path := s.checkpointPath(checkpoint.ThreadID, checkpoint.ID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint by ID, scanning thread directories.
func (s *FileStore) Load(ctx context.Context, checkpointID string) (*store.Checkpoint, error) {
	threads, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint root: %w", err)
	}

	for _, t := range threads {
		if !t.IsDir() {
			continue
		}
		path := filepath.Join(s.root, t.Name(), checkpointID+".json")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return s.readCheckpoint(path)
	}
	return nil, fmt.Errorf("%w: %s", store.ErrNotFound, checkpointID)
}

// List returns all checkpoints for a thread, oldest first.
func (s *FileStore) List(ctx context.Context, threadID string) ([]*store.Checkpoint, error) {
	dir := s.threadDir(threadID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*store.Checkpoint{}, nil
		}
		return nil, fmt.Errorf("failed to read thread directory: %w", err)
	}

	var checkpoints []*store.Checkpoint
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		cp, err := s.readCheckpoint(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		checkpoints = append(checkpoints, cp)
	}

	sort.Slice(checkpoints, func(i, j int) bool {
		return checkpoints[i].Version < checkpoints[j].Version
	})
	return checkpoints, nil
}

// Latest returns the most recent checkpoint for a thread.
func (s *FileStore) Latest(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	checkpoints, err := s.List(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return store.LatestOf(checkpoints)
}

// Delete removes a checkpoint.
func (s *FileStore) Delete(ctx context.Context, checkpointID string) error {
	cp, err := s.Load(ctx, checkpointID)
	if err != nil {
		return err
	}
	if err := os.Remove(s.checkpointPath(cp.ThreadID, checkpointID)); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Clear removes all checkpoints for a thread.
func (s *FileStore) Clear(ctx context.Context, threadID string) error {
	dir := s.threadDir(threadID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear thread: %w", err)
	}
	return nil
}

func (s *FileStore) readCheckpoint(path string) (*store.Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	var cp store.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}
