package graph

import (
	"context"
	"fmt"
)

// StateGraph is a builder for a sequential state machine. Nodes receive the
// current state and return an update; edges (static or conditional) pick the
// single next node. Exactly one node runs per step.
type StateGraph[S any] struct {
	nodes            map[string]Node[S]
	edges            []Edge
	conditionalEdges map[string]Condition[S]
	entryPoint       string
	retryPolicy      *RetryPolicy
	schema           Schema[S]
}

// NewStateGraph creates an empty graph.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]Node[S]),
		conditionalEdges: make(map[string]Condition[S]),
	}
}

// AddNode registers a node under a unique name.
func (g *StateGraph[S]) AddNode(name, description string, fn func(ctx context.Context, state S) (S, error)) {
	g.nodes[name] = Node[S]{Name: name, Description: description, Run: fn}
}

// AddEdge adds a static transition from one node to another (or to END).
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{From: from, To: to})
}

// AddConditionalEdge adds a transition whose target is chosen at runtime.
// A conditional edge takes precedence over static edges from the same node.
func (g *StateGraph[S]) AddConditionalEdge(from string, condition Condition[S]) {
	g.conditionalEdges[from] = condition
}

// SetEntryPoint names the node execution starts from.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetSchema installs the state merge logic.
func (g *StateGraph[S]) SetSchema(schema Schema[S]) {
	g.schema = schema
}

// SetRetryPolicy enables retries for failing nodes. Without a policy, node
// errors propagate to the caller unchanged.
func (g *StateGraph[S]) SetRetryPolicy(policy *RetryPolicy) {
	g.retryPolicy = policy
}

// Nodes returns the registered nodes. Used by the planning agent to describe
// the available steps to the model.
func (g *StateGraph[S]) Nodes() []Node[S] {
	nodes := make([]Node[S], 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	return nodes
}

// Compile validates the graph and returns a Runnable.
func (g *StateGraph[S]) Compile() (*Runnable[S], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: entry point %s", ErrNodeNotFound, g.entryPoint)
	}

	outgoing := make(map[string]int)
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return nil, fmt.Errorf("%w: edge source %s", ErrNodeNotFound, e.From)
		}
		if e.To != END {
			if _, ok := g.nodes[e.To]; !ok {
				return nil, fmt.Errorf("%w: edge target %s", ErrNodeNotFound, e.To)
			}
		}
		outgoing[e.From]++
		if outgoing[e.From] > 1 {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguousEdge, e.From)
		}
	}

	return &Runnable[S]{graph: g}, nil
}

// Runnable is a compiled graph ready for invocation.
type Runnable[S any] struct {
	graph *StateGraph[S]
}

// Invoke runs the graph to completion starting from the entry point.
func (r *Runnable[S]) Invoke(ctx context.Context, initial S) (S, error) {
	return r.InvokeWithConfig(ctx, initial, nil)
}

// InvokeWithConfig runs the graph with per-invocation settings. Execution is
// strictly sequential: one node at a time, each call blocking until its
// result returns.
func (r *Runnable[S]) InvokeWithConfig(ctx context.Context, initial S, config *Config) (S, error) {
	state := initial

	current := r.graph.entryPoint
	if config != nil && config.ResumeFrom != "" {
		current = config.ResumeFrom
	}

	steps := 0
	for current != END {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		node, ok := r.graph.nodes[current]
		if !ok {
			return state, fmt.Errorf("%w: %s", ErrNodeNotFound, current)
		}

		update, err := r.runNode(ctx, node, state)
		if err != nil {
			return state, fmt.Errorf("error in node %s: %w", current, err)
		}

		if r.graph.schema != nil {
			state, err = r.graph.schema.Update(state, update)
			if err != nil {
				return state, fmt.Errorf("schema update failed for node %s: %w", current, err)
			}
		} else {
			state = update
		}

		if config != nil {
			for _, l := range config.Listeners {
				l.OnStep(ctx, current, state)
			}
		}

		steps++
		next, err := r.nextNode(ctx, current, state)
		if err != nil {
			return state, err
		}
		if next != END && config != nil && config.MaxSteps > 0 && steps >= config.MaxSteps {
			return state, fmt.Errorf("%w: %d steps", ErrStepLimit, steps)
		}
		current = next
	}

	return state, nil
}

// runNode executes a node, honoring the retry policy if one is set.
func (r *Runnable[S]) runNode(ctx context.Context, node Node[S], state S) (S, error) {
	policy := r.graph.retryPolicy
	if policy == nil {
		return node.Run(ctx, state)
	}

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		update, err := node.Run(ctx, state)
		if err == nil {
			return update, nil
		}
		lastErr = err

		if attempt == policy.MaxRetries || !policy.retryable(err) {
			break
		}
		if err := sleep(ctx, policy.delay(attempt)); err != nil {
			var zero S
			return zero, err
		}
	}

	var zero S
	return zero, lastErr
}

// nextNode resolves the transition out of a node: the conditional edge if one
// exists, otherwise the single static edge.
func (r *Runnable[S]) nextNode(ctx context.Context, from string, state S) (string, error) {
	if condition, ok := r.graph.conditionalEdges[from]; ok {
		next := condition(ctx, state)
		if next == "" {
			return "", fmt.Errorf("conditional edge returned empty next node from %s", from)
		}
		return next, nil
	}

	for _, edge := range r.graph.edges {
		if edge.From == from {
			return edge.To, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, from)
}
