package graph

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestSequentialInvoke(t *testing.T) {
	g := NewStateGraph[[]string]()

	for _, name := range []string{"a", "b", "c"} {
		name := name
		g.AddNode(name, "", func(ctx context.Context, state []string) ([]string, error) {
			return append(state, name), nil
		})
	}

	g.SetEntryPoint("a")
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", END)

	runnable, err := g.Compile()
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	result, err := runnable.Invoke(context.Background(), nil)
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}

	want := []string{"a", "b", "c"}
	if len(result) != len(want) {
		t.Fatalf("expected %v, got %v", want, result)
	}
	for i := range want {
		if result[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, result)
		}
	}
}

func TestConditionalEdgeLoop(t *testing.T) {
	g := NewStateGraph[int]()

	g.AddNode("inc", "", func(ctx context.Context, state int) (int, error) {
		return state + 1, nil
	})
	g.SetEntryPoint("inc")
	g.AddConditionalEdge("inc", func(ctx context.Context, state int) string {
		if state >= 3 {
			return END
		}
		return "inc"
	})

	runnable, err := g.Compile()
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	result, err := runnable.Invoke(context.Background(), 0)
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if result != 3 {
		t.Fatalf("expected 3, got %d", result)
	}
}

func TestConditionalEdgePrecedence(t *testing.T) {
	g := NewStateGraph[string]()

	g.AddNode("start", "", func(ctx context.Context, state string) (string, error) {
		return "ran", nil
	})
	g.AddNode("unreachable", "", func(ctx context.Context, state string) (string, error) {
		return "wrong", nil
	})
	g.SetEntryPoint("start")
	// Static edge points at the wrong node; the conditional must win.
	g.AddEdge("start", "unreachable")
	g.AddConditionalEdge("start", func(ctx context.Context, state string) string {
		return END
	})

	runnable, err := g.Compile()
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	result, err := runnable.Invoke(context.Background(), "")
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if result != "ran" {
		t.Fatalf("expected conditional edge to end the run, got state %q", result)
	}
}

func TestCompileValidation(t *testing.T) {
	t.Run("no entry point", func(t *testing.T) {
		g := NewStateGraph[int]()
		g.AddNode("a", "", func(ctx context.Context, s int) (int, error) { return s, nil })
		if _, err := g.Compile(); !errors.Is(err, ErrEntryPointNotSet) {
			t.Fatalf("expected ErrEntryPointNotSet, got %v", err)
		}
	})

	t.Run("unknown entry point", func(t *testing.T) {
		g := NewStateGraph[int]()
		g.AddNode("a", "", func(ctx context.Context, s int) (int, error) { return s, nil })
		g.SetEntryPoint("missing")
		if _, err := g.Compile(); !errors.Is(err, ErrNodeNotFound) {
			t.Fatalf("expected ErrNodeNotFound, got %v", err)
		}
	})

	t.Run("unknown edge target", func(t *testing.T) {
		g := NewStateGraph[int]()
		g.AddNode("a", "", func(ctx context.Context, s int) (int, error) { return s, nil })
		g.SetEntryPoint("a")
		g.AddEdge("a", "missing")
		if _, err := g.Compile(); !errors.Is(err, ErrNodeNotFound) {
			t.Fatalf("expected ErrNodeNotFound, got %v", err)
		}
	})

	t.Run("static fan-out rejected", func(t *testing.T) {
		g := NewStateGraph[int]()
		for _, n := range []string{"a", "b", "c"} {
			g.AddNode(n, "", func(ctx context.Context, s int) (int, error) { return s, nil })
		}
		g.SetEntryPoint("a")
		g.AddEdge("a", "b")
		g.AddEdge("a", "c")
		if _, err := g.Compile(); !errors.Is(err, ErrAmbiguousEdge) {
			t.Fatalf("expected ErrAmbiguousEdge, got %v", err)
		}
	})
}

func TestNoOutgoingEdge(t *testing.T) {
	g := NewStateGraph[int]()
	g.AddNode("a", "", func(ctx context.Context, s int) (int, error) { return s, nil })
	g.SetEntryPoint("a")

	runnable, err := g.Compile()
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	if _, err := runnable.Invoke(context.Background(), 0); !errors.Is(err, ErrNoOutgoingEdge) {
		t.Fatalf("expected ErrNoOutgoingEdge, got %v", err)
	}
}

func TestStepLimit(t *testing.T) {
	g := NewStateGraph[int]()
	g.AddNode("loop", "", func(ctx context.Context, s int) (int, error) { return s + 1, nil })
	g.SetEntryPoint("loop")
	g.AddConditionalEdge("loop", func(ctx context.Context, s int) string { return "loop" })

	runnable, err := g.Compile()
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	state, err := runnable.InvokeWithConfig(context.Background(), 0, &Config{MaxSteps: 5})
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("expected ErrStepLimit, got %v", err)
	}
	if state != 5 {
		t.Fatalf("expected 5 completed steps, got %d", state)
	}
}

func TestStepLimitNotHitWhenFinishing(t *testing.T) {
	g := NewStateGraph[int]()
	g.AddNode("once", "", func(ctx context.Context, s int) (int, error) { return s + 1, nil })
	g.SetEntryPoint("once")
	g.AddEdge("once", END)

	runnable, err := g.Compile()
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	// The step count equals the limit, but the run is about to end.
	if _, err := runnable.InvokeWithConfig(context.Background(), 0, &Config{MaxSteps: 1}); err != nil {
		t.Fatalf("expected clean finish, got %v", err)
	}
}

func TestNodeErrorPropagates(t *testing.T) {
	boom := errors.New("boom")

	g := NewStateGraph[int]()
	g.AddNode("bad", "", func(ctx context.Context, s int) (int, error) {
		return 0, boom
	})
	g.SetEntryPoint("bad")
	g.AddEdge("bad", END)

	runnable, err := g.Compile()
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	_, err = runnable.Invoke(context.Background(), 0)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped node error, got %v", err)
	}
}

func TestContextCancellation(t *testing.T) {
	g := NewStateGraph[int]()
	g.AddNode("loop", "", func(ctx context.Context, s int) (int, error) { return s + 1, nil })
	g.SetEntryPoint("loop")

	cancelAt := 3
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g.AddConditionalEdge("loop", func(_ context.Context, s int) string {
		if s >= cancelAt {
			cancel()
		}
		return "loop"
	})

	runnable, err := g.Compile()
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	if _, err := runnable.Invoke(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStepListeners(t *testing.T) {
	g := NewStateGraph[int]()
	g.AddNode("a", "", func(ctx context.Context, s int) (int, error) { return s + 1, nil })
	g.AddNode("b", "", func(ctx context.Context, s int) (int, error) { return s + 10, nil })
	g.SetEntryPoint("a")
	g.AddEdge("a", "b")
	g.AddEdge("b", END)

	runnable, err := g.Compile()
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	var visited []string
	config := &Config{
		Listeners: []StepListener{
			StepListenerFunc(func(ctx context.Context, node string, state any) {
				visited = append(visited, fmt.Sprintf("%s=%v", node, state))
			}),
		},
	}

	if _, err := runnable.InvokeWithConfig(context.Background(), 0, config); err != nil {
		t.Fatalf("invoke failed: %v", err)
	}

	want := []string{"a=1", "b=11"}
	if len(visited) != len(want) {
		t.Fatalf("expected %v, got %v", want, visited)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, visited)
		}
	}
}

func TestResumeFrom(t *testing.T) {
	g := NewStateGraph[[]string]()
	for _, name := range []string{"a", "b", "c"} {
		name := name
		g.AddNode(name, "", func(ctx context.Context, state []string) ([]string, error) {
			return append(state, name), nil
		})
	}
	g.SetEntryPoint("a")
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", END)

	runnable, err := g.Compile()
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	result, err := runnable.InvokeWithConfig(context.Background(), nil, &Config{ResumeFrom: "b"})
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}

	want := []string{"b", "c"}
	if len(result) != len(want) || result[0] != "b" || result[1] != "c" {
		t.Fatalf("expected %v, got %v", want, result)
	}
}

func TestSchemaMergesUpdates(t *testing.T) {
	g := NewStateGraph[map[string]any]()

	schema := NewMapSchema()
	schema.RegisterReducer("log", AppendReducer)
	g.SetSchema(schema)

	g.AddNode("first", "", func(ctx context.Context, state map[string]any) (map[string]any, error) {
		return map[string]any{"log": []string{"first"}, "count": 1}, nil
	})
	g.AddNode("second", "", func(ctx context.Context, state map[string]any) (map[string]any, error) {
		return map[string]any{"log": []string{"second"}, "count": 2}, nil
	})
	g.SetEntryPoint("first")
	g.AddEdge("first", "second")
	g.AddEdge("second", END)

	runnable, err := g.Compile()
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	result, err := runnable.Invoke(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}

	logs, ok := result["log"].([]string)
	if !ok || len(logs) != 2 || logs[0] != "first" || logs[1] != "second" {
		t.Fatalf("expected appended log entries, got %v", result["log"])
	}
	if result["count"] != 2 {
		t.Fatalf("expected count overwritten to 2, got %v", result["count"])
	}
}
