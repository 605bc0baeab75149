package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

// ToolInvocation names a tool and its input string.
type ToolInvocation struct {
	Tool  string
	Input string
}

// ToolExecutor dispatches invocations to registered tools by name.
type ToolExecutor struct {
	tools map[string]tools.Tool
}

// NewToolExecutor indexes the given tools by name.
func NewToolExecutor(inputTools []tools.Tool) *ToolExecutor {
	indexed := make(map[string]tools.Tool, len(inputTools))
	for _, t := range inputTools {
		indexed[t.Name()] = t
	}
	return &ToolExecutor{tools: indexed}
}

// Execute runs a single tool invocation.
func (e *ToolExecutor) Execute(ctx context.Context, invocation ToolInvocation) (string, error) {
	t, ok := e.tools[invocation.Tool]
	if !ok {
		return "", fmt.Errorf("tool %s not found", invocation.Tool)
	}
	return t.Call(ctx, invocation.Input)
}

// toolDefinitions converts tools into model-facing function definitions with
// a single "input" string parameter.
func toolDefinitions(inputTools []tools.Tool) []llms.Tool {
	defs := make([]llms.Tool, 0, len(inputTools))
	for _, t := range inputTools {
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"input": map[string]any{
							"type":        "string",
							"description": "The input query for the tool",
						},
					},
					"required":             []string{"input"},
					"additionalProperties": false,
				},
			},
		})
	}
	return defs
}

// toolInput extracts the "input" argument from a tool call, falling back to
// the raw argument string when it does not parse.
func toolInput(tc llms.ToolCall) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &args); err == nil {
		if val, ok := args["input"].(string); ok {
			return val
		}
	}
	return tc.FunctionCall.Arguments
}

// executeToolCalls runs every tool call in an AI message and returns the
// tool-response messages. Tool errors are reported back to the model as
// content rather than aborting the loop.
func executeToolCalls(ctx context.Context, executor *ToolExecutor, msg llms.MessageContent) []llms.MessageContent {
	var responses []llms.MessageContent
	for _, part := range msg.Parts {
		tc, ok := part.(llms.ToolCall)
		if !ok || tc.FunctionCall == nil {
			continue
		}

		result, err := executor.Execute(ctx, ToolInvocation{
			Tool:  tc.FunctionCall.Name,
			Input: toolInput(tc),
		})
		if err != nil {
			result = fmt.Sprintf("Error: %v", err)
		}

		responses = append(responses, llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{
				llms.ToolCallResponse{
					ToolCallID: tc.ID,
					Name:       tc.FunctionCall.Name,
					Content:    result,
				},
			},
		})
	}
	return responses
}

// hasToolCalls reports whether an AI message contains at least one tool call.
func hasToolCalls(msg llms.MessageContent) bool {
	for _, part := range msg.Parts {
		if _, ok := part.(llms.ToolCall); ok {
			return true
		}
	}
	return false
}
