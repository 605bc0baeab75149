package agents

import (
	"context"
	"fmt"

	"github.com/smallnest/agentpatterns/graph"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

// NewToolUseAgent builds the tool-use pattern: the model reasons over the
// conversation and either answers or calls a tool; tool results are fed back
// until it answers or the iteration budget runs out.
//
// State is a map with a "messages" key holding []llms.MessageContent.
func NewToolUseAgent(model llms.Model, inputTools []tools.Tool, maxIterations int) (*graph.Runnable[map[string]any], error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if maxIterations <= 0 {
		maxIterations = 20
	}

	executor := NewToolExecutor(inputTools)
	toolDefs := toolDefinitions(inputTools)

	workflow := graph.NewStateGraph[map[string]any]()

	schema := graph.NewMapSchema()
	schema.RegisterReducer("messages", graph.AppendReducer)
	schema.RegisterReducer("iteration_count", graph.OverwriteReducer)
	workflow.SetSchema(schema)

	workflow.AddNode("agent", "Decide on a tool call or a final answer", func(ctx context.Context, state map[string]any) (map[string]any, error) {
		messages, ok := state["messages"].([]llms.MessageContent)
		if !ok {
			return nil, fmt.Errorf("messages key not found or invalid type")
		}

		iteration, _ := state["iteration_count"].(int)
		if iteration >= maxIterations {
			return map[string]any{
				"messages": []llms.MessageContent{
					llms.TextParts(llms.ChatMessageTypeAI, "Maximum iterations reached. Please try a simpler query."),
				},
				"iteration_count": iteration,
			}, nil
		}

		var opts []llms.CallOption
		if len(toolDefs) > 0 {
			opts = append(opts, llms.WithTools(toolDefs))
		}

		resp, err := model.GenerateContent(ctx, messages, opts...)
		if err != nil {
			return nil, err
		}
		choice := resp.Choices[0]

		aiMsg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			aiMsg.Parts = append(aiMsg.Parts, llms.TextPart(choice.Content))
		}
		for _, tc := range choice.ToolCalls {
			aiMsg.Parts = append(aiMsg.Parts, tc)
		}

		return map[string]any{
			"messages":        []llms.MessageContent{aiMsg},
			"iteration_count": iteration + 1,
		}, nil
	})

	workflow.AddNode("tools", "Execute the requested tool calls", func(ctx context.Context, state map[string]any) (map[string]any, error) {
		messages := state["messages"].([]llms.MessageContent)
		lastMsg := messages[len(messages)-1]

		if lastMsg.Role != llms.ChatMessageTypeAI {
			return nil, fmt.Errorf("last message is not an AI message")
		}

		return map[string]any{
			"messages": executeToolCalls(ctx, executor, lastMsg),
		}, nil
	})

	workflow.SetEntryPoint("agent")

	workflow.AddConditionalEdge("agent", func(ctx context.Context, state map[string]any) string {
		messages := state["messages"].([]llms.MessageContent)
		if hasToolCalls(messages[len(messages)-1]) {
			return "tools"
		}
		return graph.END
	})

	workflow.AddEdge("tools", "agent")

	return workflow.Compile()
}
