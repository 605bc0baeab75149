package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/smallnest/agentpatterns/graph"
	"github.com/smallnest/agentpatterns/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

// Plan is the model-produced list of steps to execute in order.
type Plan struct {
	Steps []string `json:"steps"`
}

// PlanState carries one planning run through the graph.
type PlanState struct {
	// Messages is the conversation record of the run.
	Messages []llms.MessageContent

	// Plan is the parsed step plan.
	Plan *Plan

	// CurrentStep indexes the next step to execute.
	CurrentStep int

	// StepResults collects one result per executed step.
	StepResults []string

	// Answer is the synthesized final answer.
	Answer string
}

// PlanningConfig configures a planning agent.
type PlanningConfig struct {
	// Model plans, executes steps and synthesizes the answer.
	Model llms.Model

	// Tools are available during step execution.
	Tools []tools.Tool

	// MaxSteps caps the plan length. Longer plans are truncated. Defaults to 10.
	MaxSteps int

	// Verbose logs plan and step progress through the log package.
	Verbose bool
}

// NewPlanningAgent builds the planning pattern: one planning call produces a
// step list, the steps execute in order (each step may call a tool), and a
// final call synthesizes the answer from the step results.
func NewPlanningAgent(config PlanningConfig) (*graph.Runnable[PlanState], error) {
	if config.Model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if config.MaxSteps <= 0 {
		config.MaxSteps = 10
	}

	executor := NewToolExecutor(config.Tools)
	toolDefs := toolDefinitions(config.Tools)

	workflow := graph.NewStateGraph[PlanState]()

	schema := graph.NewStructSchema(PlanState{}, func(current, incoming PlanState) (PlanState, error) {
		current.Messages = append(current.Messages, incoming.Messages...)
		current.StepResults = append(current.StepResults, incoming.StepResults...)
		current.CurrentStep = incoming.CurrentStep
		if incoming.Plan != nil {
			current.Plan = incoming.Plan
		}
		if incoming.Answer != "" {
			current.Answer = incoming.Answer
		}
		return current, nil
	})
	workflow.SetSchema(schema)

	workflow.AddNode("planner", "Draft a step plan for the request", func(ctx context.Context, state PlanState) (PlanState, error) {
		if len(state.Messages) == 0 {
			return PlanState{}, fmt.Errorf("no messages in state")
		}

		prompt := []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, planningPrompt(config.Tools)),
		}
		prompt = append(prompt, state.Messages...)

		resp, err := config.Model.GenerateContent(ctx, prompt)
		if err != nil {
			return PlanState{}, fmt.Errorf("failed to generate plan: %w", err)
		}

		plan, err := parsePlan(resp.Choices[0].Content)
		if err != nil {
			return PlanState{}, err
		}
		if len(plan.Steps) > config.MaxSteps {
			plan.Steps = plan.Steps[:config.MaxSteps]
		}

		if config.Verbose {
			log.Info("planning: %d steps planned", len(plan.Steps))
		}

		return PlanState{
			Messages: []llms.MessageContent{
				llms.TextParts(llms.ChatMessageTypeAI, fmt.Sprintf("Plan created with %d steps", len(plan.Steps))),
			},
			Plan:        plan,
			CurrentStep: 0,
		}, nil
	})

	workflow.AddNode("execute", "Execute the current plan step", func(ctx context.Context, state PlanState) (PlanState, error) {
		if state.Plan == nil || state.CurrentStep >= len(state.Plan.Steps) {
			return PlanState{}, fmt.Errorf("no step to execute")
		}

		step := state.Plan.Steps[state.CurrentStep]
		if config.Verbose {
			log.Info("planning: executing step %d/%d: %s", state.CurrentStep+1, len(state.Plan.Steps), step)
		}

		result, msgs, err := executeStep(ctx, config.Model, executor, toolDefs, step, state.StepResults)
		if err != nil {
			return PlanState{}, fmt.Errorf("step %d failed: %w", state.CurrentStep+1, err)
		}

		return PlanState{
			Messages:    msgs,
			StepResults: []string{result},
			CurrentStep: state.CurrentStep + 1,
		}, nil
	})

	workflow.AddNode("synthesize", "Combine step results into the final answer", func(ctx context.Context, state PlanState) (PlanState, error) {
		var sb strings.Builder
		for i, result := range state.StepResults {
			fmt.Fprintf(&sb, "Step %d (%s):\n%s\n\n", i+1, state.Plan.Steps[i], result)
		}

		prompt := []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, "You combine step results into a single answer to the original request. Be concise and do not mention the steps."),
			llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf("Original request:\n%s\n\nStep results:\n%s", firstHumanText(state.Messages), sb.String())),
		}

		resp, err := config.Model.GenerateContent(ctx, prompt)
		if err != nil {
			return PlanState{}, fmt.Errorf("failed to synthesize answer: %w", err)
		}

		answer := resp.Choices[0].Content
		return PlanState{
			Messages: []llms.MessageContent{
				llms.TextParts(llms.ChatMessageTypeAI, answer),
			},
			CurrentStep: state.CurrentStep,
			Answer:      answer,
		}, nil
	})

	workflow.SetEntryPoint("planner")
	workflow.AddEdge("planner", "execute")

	workflow.AddConditionalEdge("execute", func(ctx context.Context, state PlanState) string {
		if state.Plan != nil && state.CurrentStep < len(state.Plan.Steps) {
			return "execute"
		}
		return "synthesize"
	})

	workflow.AddEdge("synthesize", graph.END)

	return workflow.Compile()
}

// executeStep runs one plan step. The model sees the step and prior results
// and may call a single tool; the tool result (or the model's text) becomes
// the step result.
func executeStep(ctx context.Context, model llms.Model, executor *ToolExecutor, toolDefs []llms.Tool, step string, priorResults []string) (string, []llms.MessageContent, error) {
	var contextBlock string
	if len(priorResults) > 0 {
		contextBlock = fmt.Sprintf("\n\nResults from earlier steps:\n%s", strings.Join(priorResults, "\n"))
	}

	prompt := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, "You execute one step of a plan. Use a tool if one fits the step, otherwise answer directly."),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf("Step: %s%s", step, contextBlock)),
	}

	var opts []llms.CallOption
	if len(toolDefs) > 0 {
		opts = append(opts, llms.WithTools(toolDefs))
	}

	resp, err := model.GenerateContent(ctx, prompt, opts...)
	if err != nil {
		return "", nil, err
	}
	choice := resp.Choices[0]

	if len(choice.ToolCalls) == 0 {
		msg := llms.TextParts(llms.ChatMessageTypeAI, choice.Content)
		return choice.Content, []llms.MessageContent{msg}, nil
	}

	aiMsg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
	for _, tc := range choice.ToolCalls {
		aiMsg.Parts = append(aiMsg.Parts, tc)
	}

	responses := executeToolCalls(ctx, executor, aiMsg)
	var results []string
	for _, r := range responses {
		for _, part := range r.Parts {
			if tr, ok := part.(llms.ToolCallResponse); ok {
				results = append(results, tr.Content)
			}
		}
	}

	msgs := append([]llms.MessageContent{aiMsg}, responses...)
	return strings.Join(results, "\n"), msgs, nil
}

// planningPrompt builds the system prompt for the planner from the tool list.
func planningPrompt(inputTools []tools.Tool) string {
	var sb strings.Builder
	sb.WriteString(`You are a planning assistant. Break the user's request into a short ordered
list of concrete steps. Respond with ONLY a JSON object in this form:

{"steps": ["first step", "second step"]}

Keep the plan as short as possible.`)

	if len(inputTools) > 0 {
		sb.WriteString("\n\nTools available during execution:\n")
		for i, t := range inputTools {
			fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, t.Name(), t.Description())
		}
	}
	return sb.String()
}

// parsePlan extracts the JSON plan from the model output, tolerating
// markdown code fences.
func parsePlan(text string) (*Plan, error) {
	jsonText := extractJSON(text)

	var plan Plan
	if err := json.Unmarshal([]byte(jsonText), &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("plan has no steps")
	}
	return &plan, nil
}

var (
	codeBlockRegexp  = regexp.MustCompile("(?s)```(?:json)?\\s*({.*?})\\s*```")
	jsonObjectRegexp = regexp.MustCompile(`(?s){.*}`)
)

// extractJSON pulls a JSON object out of text that may wrap it in a markdown
// code block.
func extractJSON(text string) string {
	if matches := codeBlockRegexp.FindStringSubmatch(text); len(matches) > 1 {
		return matches[1]
	}
	if match := jsonObjectRegexp.FindString(text); match != "" {
		return match
	}
	return text
}

// firstHumanText returns the first human message text, the original request.
func firstHumanText(messages []llms.MessageContent) string {
	for _, msg := range messages {
		if msg.Role == llms.ChatMessageTypeHuman {
			for _, part := range msg.Parts {
				if text, ok := part.(llms.TextContent); ok {
					return text.Text
				}
			}
		}
	}
	return ""
}
