// Package llm provides model clients for the agents. The OpenAI client
// implements tmc/langchaingo's llms.Model over sashabaranov/go-openai, so the
// same agent code runs against OpenAI, compatible gateways, or a test stub.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
)

// ErrMissingAPIKey is returned by FromEnv when OPENAI_API_KEY is unset.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY not set")

// OpenAI is an llms.Model backed by the OpenAI chat completions API.
type OpenAI struct {
	client *openai.Client
	model  string
}

var _ llms.Model = (*OpenAI)(nil)

// Option configures the OpenAI client.
type Option func(*settings)

type settings struct {
	baseURL string
	model   string
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(s *settings) { s.baseURL = baseURL }
}

// WithModel sets the default model name.
func WithModel(model string) Option {
	return func(s *settings) { s.model = model }
}

// New creates an OpenAI client with the given API key.
func New(apiKey string, opts ...Option) *OpenAI {
	s := settings{model: openai.GPT4o}
	for _, opt := range opts {
		opt(&s)
	}

	config := openai.DefaultConfig(apiKey)
	if s.baseURL != "" {
		config.BaseURL = s.baseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  s.model,
	}
}

// FromEnv creates a client from OPENAI_API_KEY, with OPENAI_API_BASE and
// OPENAI_MODEL as optional overrides.
func FromEnv() (*OpenAI, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	var opts []Option
	if base := os.Getenv("OPENAI_API_BASE"); base != "" {
		opts = append(opts, WithBaseURL(base))
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		opts = append(opts, WithModel(model))
	}
	return New(apiKey, opts...), nil
}

// GenerateContent sends the messages to the chat completions API.
// API errors are returned to the caller unchanged.
func (o *OpenAI) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
		Stop:        opts.StopWords,
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}

	for _, msg := range messages {
		converted, err := toOpenAIMessages(msg)
		if err != nil {
			return nil, err
		}
		req.Messages = append(req.Messages, converted...)
	}

	for _, t := range opts.Tools {
		if t.Function == nil {
			continue
		}
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}

	if opts.ToolChoice != nil {
		switch tc := opts.ToolChoice.(type) {
		case string:
			req.ToolChoice = tc
		case llms.ToolChoice:
			if tc.Function != nil {
				req.ToolChoice = openai.ToolChoice{
					Type:     openai.ToolTypeFunction,
					Function: openai.ToolFunction{Name: tc.Function.Name},
				}
			}
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in completion response")
	}

	out := &llms.ContentResponse{}
	for _, choice := range resp.Choices {
		contentChoice := &llms.ContentChoice{
			Content:    choice.Message.Content,
			StopReason: string(choice.FinishReason),
		}
		for _, tc := range choice.Message.ToolCalls {
			contentChoice.ToolCalls = append(contentChoice.ToolCalls, llms.ToolCall{
				ID:   tc.ID,
				Type: string(tc.Type),
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		out.Choices = append(out.Choices, contentChoice)
	}
	return out, nil
}

// Call sends a single-prompt completion request.
func (o *OpenAI) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := o.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

// toOpenAIMessages converts one langchaingo message into its OpenAI wire
// form. Tool responses expand to one message per response part.
func toOpenAIMessages(msg llms.MessageContent) ([]openai.ChatCompletionMessage, error) {
	role, err := toOpenAIRole(msg.Role)
	if err != nil {
		return nil, err
	}

	var out []openai.ChatCompletionMessage
	main := openai.ChatCompletionMessage{Role: role}
	hasMain := false

	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			main.Content += p.Text
			hasMain = true
		case llms.ToolCall:
			if p.FunctionCall == nil {
				continue
			}
			main.ToolCalls = append(main.ToolCalls, openai.ToolCall{
				ID:   p.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      p.FunctionCall.Name,
					Arguments: p.FunctionCall.Arguments,
				},
			})
			hasMain = true
		case llms.ToolCallResponse:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    p.Content,
				Name:       p.Name,
				ToolCallID: p.ToolCallID,
			})
		default:
			return nil, fmt.Errorf("unsupported content part %T", part)
		}
	}

	if hasMain {
		out = append([]openai.ChatCompletionMessage{main}, out...)
	}
	return out, nil
}

func toOpenAIRole(role llms.ChatMessageType) (string, error) {
	switch role {
	case llms.ChatMessageTypeSystem:
		return openai.ChatMessageRoleSystem, nil
	case llms.ChatMessageTypeHuman, llms.ChatMessageTypeGeneric:
		return openai.ChatMessageRoleUser, nil
	case llms.ChatMessageTypeAI:
		return openai.ChatMessageRoleAssistant, nil
	case llms.ChatMessageTypeTool:
		return openai.ChatMessageRoleTool, nil
	default:
		return "", fmt.Errorf("unsupported message role %q", role)
	}
}
