package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smallnest/agentpatterns/graph"
	"github.com/smallnest/agentpatterns/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

// PipelineStage is one fixed stage of a sequential pipeline. Each stage
// receives the previous stage's output as its input.
type PipelineStage struct {
	// Name identifies the stage in logs and errors.
	Name string

	// SystemPrompt frames the stage's job for the model.
	SystemPrompt string

	// Model handles this stage. Falls back to the pipeline model when nil.
	Model llms.Model
}

// RunPipeline passes input through the stages in order. Stage i's output is
// stage i+1's input, and the last stage's output is returned.
func RunPipeline(ctx context.Context, model llms.Model, stages []PipelineStage, input string) (string, error) {
	if len(stages) == 0 {
		return "", fmt.Errorf("pipeline has no stages")
	}

	current := input
	for i, stage := range stages {
		stageModel := stage.Model
		if stageModel == nil {
			stageModel = model
		}
		if stageModel == nil {
			return "", fmt.Errorf("stage %s has no model", stage.Name)
		}

		prompt := []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, stage.SystemPrompt),
			llms.TextParts(llms.ChatMessageTypeHuman, current),
		}

		resp, err := stageModel.GenerateContent(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("stage %s (%d/%d) failed: %w", stage.Name, i+1, len(stages), err)
		}
		current = resp.Choices[0].Content
	}

	return current, nil
}

// NewSupervisor builds a supervisor graph over the member runnables. The
// supervisor picks the next member through a forced "route" tool call and
// members report back to the supervisor until it answers FINISH.
//
// Members share the map state convention of NewToolUseAgent: conversation
// under "messages".
func NewSupervisor(model llms.Model, members map[string]*graph.Runnable[map[string]any]) (*graph.Runnable[map[string]any], error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("no members")
	}

	workflow := graph.NewStateGraph[map[string]any]()

	schema := graph.NewMapSchema()
	schema.RegisterReducer("messages", graph.AppendReducer)
	workflow.SetSchema(schema)

	var memberNames []string
	for name := range members {
		memberNames = append(memberNames, name)
	}

	options := append(append([]string{}, memberNames...), "FINISH")
	routeTool := llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        "route",
			Description: "Select the next role.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"next": map[string]any{
						"type": "string",
						"enum": options,
					},
				},
				"required": []string{"next"},
			},
		},
	}

	systemPrompt := fmt.Sprintf(
		"You are a supervisor managing a conversation between these workers: %s. "+
			"Given the user request, respond with the worker to act next. Each worker "+
			"performs a task and responds with its result. When the request is fully "+
			"handled, respond with FINISH. You MUST use the 'route' tool.",
		strings.Join(memberNames, ", "),
	)

	workflow.AddNode("supervisor", "Route the conversation to the next worker", func(ctx context.Context, state map[string]any) (map[string]any, error) {
		messages, ok := state["messages"].([]llms.MessageContent)
		if !ok {
			return nil, fmt.Errorf("messages key not found or invalid type")
		}

		prompt := []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		}
		prompt = append(prompt, messages...)

		resp, err := model.GenerateContent(ctx, prompt,
			llms.WithTools([]llms.Tool{routeTool}),
			llms.WithToolChoice(llms.ToolChoice{
				Type:     "function",
				Function: &llms.FunctionReference{Name: "route"},
			}),
		)
		if err != nil {
			return nil, err
		}

		choice := resp.Choices[0]
		if len(choice.ToolCalls) == 0 {
			return nil, fmt.Errorf("supervisor did not select a next worker")
		}

		var args struct {
			Next string `json:"next"`
		}
		if err := json.Unmarshal([]byte(choice.ToolCalls[0].FunctionCall.Arguments), &args); err != nil {
			return nil, fmt.Errorf("failed to parse route arguments: %w", err)
		}

		log.Debug("supervisor: next = %s", args.Next)
		return map[string]any{"next": args.Next}, nil
	})

	for name, member := range members {
		memberName := name
		memberRunnable := member

		workflow.AddNode(memberName, "Worker: "+memberName, func(ctx context.Context, state map[string]any) (map[string]any, error) {
			before := 0
			if msgs, ok := state["messages"].([]llms.MessageContent); ok {
				before = len(msgs)
			}

			res, err := memberRunnable.Invoke(ctx, state)
			if err != nil {
				return nil, fmt.Errorf("worker %s failed: %w", memberName, err)
			}

			// Members return their full conversation; merge only what they added.
			after, ok := res["messages"].([]llms.MessageContent)
			if !ok || len(after) <= before {
				return map[string]any{}, nil
			}
			return map[string]any{"messages": after[before:]}, nil
		})
	}

	workflow.SetEntryPoint("supervisor")

	workflow.AddConditionalEdge("supervisor", func(ctx context.Context, state map[string]any) string {
		next, ok := state["next"].(string)
		if !ok || next == "FINISH" {
			return graph.END
		}
		return next
	})

	for _, name := range memberNames {
		workflow.AddEdge(name, "supervisor")
	}

	return workflow.Compile()
}

// HandoffAgent is one peer in a handoff team.
type HandoffAgent struct {
	// Name identifies the agent and is the handoff target other agents use.
	Name string

	// Instructions is the agent's system prompt.
	Instructions string

	// Tools are the agent's own tools, on top of the generated handoff tools.
	Tools []tools.Tool
}

// HandoffConfig configures a handoff team.
type HandoffConfig struct {
	// Model is shared by all agents.
	Model llms.Model

	// Agents are the team members. The first agent receives the request.
	Agents []HandoffAgent

	// MaxToolRounds caps tool-call rounds inside one agent turn. Defaults to 5.
	MaxToolRounds int
}

const handoffToolPrefix = "transfer_to_"

// NewHandoffTeam builds a peer handoff graph: each agent can answer directly
// or transfer the conversation to another agent through a generated
// transfer_to_<name> tool. The run ends when an agent answers without
// transferring.
func NewHandoffTeam(config HandoffConfig) (*graph.Runnable[map[string]any], error) {
	if config.Model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if len(config.Agents) == 0 {
		return nil, fmt.Errorf("no agents")
	}
	if config.MaxToolRounds <= 0 {
		config.MaxToolRounds = 5
	}

	names := make([]string, len(config.Agents))
	for i, a := range config.Agents {
		names[i] = a.Name
	}

	workflow := graph.NewStateGraph[map[string]any]()

	schema := graph.NewMapSchema()
	schema.RegisterReducer("messages", graph.AppendReducer)
	workflow.SetSchema(schema)

	for _, agent := range config.Agents {
		agent := agent
		executor := NewToolExecutor(agent.Tools)
		defs := toolDefinitions(agent.Tools)
		for _, peer := range config.Agents {
			if peer.Name == agent.Name {
				continue
			}
			defs = append(defs, handoffToolDefinition(peer.Name))
		}

		workflow.AddNode(agent.Name, "Agent: "+agent.Name, func(ctx context.Context, state map[string]any) (map[string]any, error) {
			return runHandoffTurn(ctx, config.Model, agent, executor, defs, state, config.MaxToolRounds)
		})

		workflow.AddConditionalEdge(agent.Name, func(ctx context.Context, state map[string]any) string {
			next, ok := state["handoff"].(string)
			if !ok || next == "" {
				return graph.END
			}
			return next
		})
	}

	workflow.SetEntryPoint(config.Agents[0].Name)

	return workflow.Compile()
}

// runHandoffTurn runs one agent's turn: the model may call its tools any
// number of rounds, hand the conversation to a peer, or answer and end the
// run.
func runHandoffTurn(ctx context.Context, model llms.Model, agent HandoffAgent, executor *ToolExecutor, defs []llms.Tool, state map[string]any, maxRounds int) (map[string]any, error) {
	messages, ok := state["messages"].([]llms.MessageContent)
	if !ok {
		return nil, fmt.Errorf("messages key not found or invalid type")
	}

	conversation := append([]llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, agent.Instructions),
	}, messages...)

	var newMessages []llms.MessageContent

	for round := 0; round < maxRounds; round++ {
		resp, err := model.GenerateContent(ctx, conversation, llms.WithTools(defs))
		if err != nil {
			return nil, fmt.Errorf("agent %s failed: %w", agent.Name, err)
		}
		choice := resp.Choices[0]

		if len(choice.ToolCalls) == 0 {
			final := llms.TextParts(llms.ChatMessageTypeAI, choice.Content)
			newMessages = append(newMessages, final)
			return map[string]any{"messages": newMessages, "handoff": ""}, nil
		}

		// A transfer ends the turn; ignore other calls in the same response.
		for _, tc := range choice.ToolCalls {
			if target, ok := handoffTarget(tc.FunctionCall.Name); ok {
				log.Debug("handoff: %s -> %s", agent.Name, target)
				note := llms.TextParts(llms.ChatMessageTypeAI,
					fmt.Sprintf("Transferring to %s.", target))
				newMessages = append(newMessages, note)
				return map[string]any{"messages": newMessages, "handoff": target}, nil
			}
		}

		aiMsg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		for _, tc := range choice.ToolCalls {
			aiMsg.Parts = append(aiMsg.Parts, tc)
		}
		responses := executeToolCalls(ctx, executor, aiMsg)

		newMessages = append(newMessages, aiMsg)
		newMessages = append(newMessages, responses...)
		conversation = append(conversation, aiMsg)
		conversation = append(conversation, responses...)
	}

	return nil, fmt.Errorf("agent %s exceeded %d tool rounds", agent.Name, maxRounds)
}

// handoffToolDefinition builds the transfer tool exposed for one peer.
func handoffToolDefinition(target string) llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        handoffToolPrefix + target,
			Description: fmt.Sprintf("Transfer the conversation to %s.", target),
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

// handoffTarget reports whether a tool call is a transfer and to whom.
func handoffTarget(toolName string) (string, bool) {
	if strings.HasPrefix(toolName, handoffToolPrefix) {
		return strings.TrimPrefix(toolName, handoffToolPrefix), true
	}
	return "", false
}
