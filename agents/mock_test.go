package agents

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// stepModel replays canned content choices in order, recording each request.
type stepModel struct {
	choices  []*llms.ContentChoice
	calls    int
	requests [][]llms.MessageContent
}

func (m *stepModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.calls >= len(m.choices) {
		return nil, fmt.Errorf("unexpected model call %d", m.calls+1)
	}
	m.requests = append(m.requests, messages)
	choice := m.choices[m.calls]
	m.calls++
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{choice}}, nil
}

func (m *stepModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func textChoice(content string) *llms.ContentChoice {
	return &llms.ContentChoice{Content: content}
}

func toolCallChoice(id, name, arguments string) *llms.ContentChoice {
	return &llms.ContentChoice{
		ToolCalls: []llms.ToolCall{
			{
				ID:   id,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      name,
					Arguments: arguments,
				},
			},
		},
	}
}

// echoTool returns its input prefixed with "echo: ".
type echoTool struct {
	calls  int
	inputs []string
}

func (t *echoTool) Name() string        { return "echo" }
func (t *echoTool) Description() string { return "Echoes the input back." }

func (t *echoTool) Call(ctx context.Context, input string) (string, error) {
	t.calls++
	t.inputs = append(t.inputs, input)
	return "echo: " + input, nil
}

// failingTool always errors.
type failingTool struct{}

func (t *failingTool) Name() string        { return "broken" }
func (t *failingTool) Description() string { return "Always fails." }

func (t *failingTool) Call(ctx context.Context, input string) (string, error) {
	return "", fmt.Errorf("tool exploded")
}
