package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smallnest/agentpatterns/store"
)

// CheckpointSaver is a StepListener that snapshots the state into a
// checkpoint store after every step, so a thread can be resumed later.
type CheckpointSaver struct {
	Store    store.Store
	ThreadID string

	version int
}

var _ StepListener = (*CheckpointSaver)(nil)

// NewCheckpointSaver creates a saver bound to a store and thread. The version
// counter continues from the latest existing checkpoint for the thread.
func NewCheckpointSaver(ctx context.Context, st store.Store, threadID string) *CheckpointSaver {
	saver := &CheckpointSaver{Store: st, ThreadID: threadID}
	if latest, err := st.Latest(ctx, threadID); err == nil {
		saver.version = latest.Version
	}
	return saver
}

// OnStep saves a checkpoint for the just-completed node. Save failures are
// swallowed: checkpointing never aborts a run.
func (s *CheckpointSaver) OnStep(ctx context.Context, node string, state any) {
	s.version++
	_ = s.Store.Save(ctx, &store.Checkpoint{
		ID:        fmt.Sprintf("checkpoint_%s", uuid.New().String()),
		ThreadID:  s.ThreadID,
		NodeName:  node,
		State:     state,
		CreatedAt: time.Now(),
		Version:   s.version,
	})
}

// LatestState loads the most recent saved state and the node it was taken
// after. Callers cast the state back to their graph's state type; states that
// round-tripped through JSON come back as map[string]any.
func LatestState(ctx context.Context, st store.Store, threadID string) (any, string, error) {
	checkpoint, err := st.Latest(ctx, threadID)
	if err != nil {
		return nil, "", err
	}
	return checkpoint.State, checkpoint.NodeName, nil
}
