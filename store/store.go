// Package store persists conversation thread checkpoints so an agent run can
// be resumed under the same thread ID. Backends: memory, file, sqlite, redis
// and postgres.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a checkpoint or thread does not exist.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is a saved state snapshot taken after a graph step.
type Checkpoint struct {
	ID        string         `json:"id"`
	ThreadID  string         `json:"thread_id"`
	NodeName  string         `json:"node_name"`
	State     any            `json:"state"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Version   int            `json:"version"`
}

// Store is the checkpoint persistence interface.
type Store interface {
	// Save stores a checkpoint.
	Save(ctx context.Context, checkpoint *Checkpoint) error

	// Load retrieves a checkpoint by ID.
	Load(ctx context.Context, checkpointID string) (*Checkpoint, error)

	// List returns all checkpoints for a thread, oldest first.
	List(ctx context.Context, threadID string) ([]*Checkpoint, error)

	// Latest returns the most recent checkpoint for a thread.
	Latest(ctx context.Context, threadID string) (*Checkpoint, error)

	// Delete removes a checkpoint.
	Delete(ctx context.Context, checkpointID string) error

	// Clear removes all checkpoints for a thread.
	Clear(ctx context.Context, threadID string) error
}

// LatestOf picks the highest-version checkpoint from a list. Shared by
// backends whose List does not guarantee ordering.
func LatestOf(checkpoints []*Checkpoint) (*Checkpoint, error) {
	if len(checkpoints) == 0 {
		return nil, ErrNotFound
	}
	latest := checkpoints[0]
	for _, cp := range checkpoints[1:] {
		if cp.Version > latest.Version {
			latest = cp
		}
	}
	return latest, nil
}
