package graph

import (
	"context"
	"errors"
)

// END is the sentinel node name that terminates execution.
const END = "END"

var (
	// ErrEntryPointNotSet is returned by Compile when no entry point was set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when an edge or entry point references an unknown node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when execution reaches a node with no way forward.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrAmbiguousEdge is returned by Compile when a node has more than one
	// static outgoing edge. Execution is strictly sequential, so fan-out is
	// rejected at compile time; use a conditional edge to branch.
	ErrAmbiguousEdge = errors.New("node has multiple outgoing edges")

	// ErrStepLimit is returned when Config.MaxSteps is exceeded.
	ErrStepLimit = errors.New("step limit exceeded")
)

// Node is a named unit of work in the graph.
type Node[S any] struct {
	// Name is the unique identifier for the node.
	Name string

	// Description describes what the node does. The planning agent feeds
	// descriptions to the model when it drafts a plan.
	Description string

	// Run takes the current state and returns a state update. With a schema
	// installed the update is merged into the state; without one it replaces
	// the state wholesale.
	Run func(ctx context.Context, state S) (S, error)
}

// Edge is a static transition between two nodes.
type Edge struct {
	From string
	To   string
}

// Condition picks the next node name at runtime based on the merged state.
type Condition[S any] func(ctx context.Context, state S) string

// StepListener is notified after each node has run and its update has been
// merged. The checkpoint saver is implemented as a step listener.
type StepListener interface {
	OnStep(ctx context.Context, node string, state any)
}

// StepListenerFunc adapts a function to the StepListener interface.
type StepListenerFunc func(ctx context.Context, node string, state any)

// OnStep calls f.
func (f StepListenerFunc) OnStep(ctx context.Context, node string, state any) {
	f(ctx, node, state)
}

// Config carries per-invocation settings.
type Config struct {
	// ThreadID identifies the conversation thread for checkpoint persistence.
	ThreadID string

	// ResumeFrom overrides the entry point, continuing from a saved node.
	ResumeFrom string

	// MaxSteps bounds the total number of node executions. Zero means no limit.
	MaxSteps int

	// Listeners are notified after every step.
	Listeners []StepListener
}

// WithThreadID builds a Config carrying only a thread ID.
func WithThreadID(threadID string) *Config {
	return &Config{ThreadID: threadID}
}
