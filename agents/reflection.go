package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallnest/agentpatterns/graph"
	"github.com/smallnest/agentpatterns/log"
	"github.com/tmc/langchaingo/llms"
)

// defaultCritiqueSentinel is the phrase the default critique prompt asks the
// critic to emit when no revision is needed.
const defaultCritiqueSentinel = "no further changes"

// ReflectionState carries one reflection run through the graph.
type ReflectionState struct {
	// Task is the original request.
	Task string

	// Draft is the current artifact, always the most recent revision.
	Draft string

	// Critique is the latest feedback on the draft.
	Critique string

	// Satisfied reports whether the latest critique signalled acceptance.
	Satisfied bool

	// Revisions counts revise calls. Bounded by MaxIterations.
	Revisions int

	// History is the append-only conversation record of the run.
	History []llms.MessageContent
}

// ReflectorConfig configures a reflection loop.
type ReflectorConfig struct {
	// Model generates and revises drafts.
	Model llms.Model

	// CritiqueModel critiques drafts. Defaults to Model.
	CritiqueModel llms.Model

	// MaxIterations bounds the number of revisions. Defaults to 3.
	MaxIterations int

	// SystemPrompt is the system message for generation and revision.
	SystemPrompt string

	// CritiquePrompt is the system message for the critique step.
	CritiquePrompt string

	// Satisfier decides from the critique text whether the draft is accepted.
	// Defaults to CritiqueSatisfied.
	Satisfier func(critique string) bool

	// Verbose logs each step through the log package.
	Verbose bool
}

// ReflectionResult is the outcome of a reflection run.
type ReflectionResult struct {
	// Artifact is the final draft, always the most recent revision.
	Artifact string

	// Critique is the last critique produced, if any.
	Critique string

	// Satisfied reports whether the loop ended on an accepted critique
	// rather than by exhausting the iteration budget.
	Satisfied bool

	// Revisions is the number of revise calls that occurred.
	Revisions int

	// History is the full conversation record of the run.
	History []llms.MessageContent
}

// Reflector runs the reflection pattern: generate, critique, revise. The
// loop stops as soon as a critique signals satisfaction, or after
// MaxIterations revisions, whichever comes first. Model errors propagate to
// the caller unchanged.
type Reflector struct {
	config   ReflectorConfig
	runnable *graph.Runnable[ReflectionState]
}

// NewReflector builds the two-node reflection graph.
func NewReflector(config ReflectorConfig) (*Reflector, error) {
	if config.Model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = 3
	}
	if config.CritiqueModel == nil {
		config.CritiqueModel = config.Model
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = "You are a helpful assistant. Produce the highest quality response you can to the user's request."
	}
	if config.CritiquePrompt == "" {
		config.CritiquePrompt = defaultCritiquePrompt()
	}
	if config.Satisfier == nil {
		config.Satisfier = CritiqueSatisfied
	}

	workflow := graph.NewStateGraph[ReflectionState]()

	workflow.AddNode("generate", "Generate the initial draft or revise it using the latest critique", func(ctx context.Context, state ReflectionState) (ReflectionState, error) {
		return generateOrRevise(ctx, state, config)
	})

	workflow.AddNode("critique", "Critique the current draft and decide whether it is acceptable", func(ctx context.Context, state ReflectionState) (ReflectionState, error) {
		return critiqueDraft(ctx, state, config)
	})

	workflow.SetEntryPoint("generate")

	workflow.AddConditionalEdge("generate", func(ctx context.Context, state ReflectionState) string {
		if state.Revisions >= config.MaxIterations {
			if config.Verbose {
				log.Info("reflection: iteration budget spent after %d revisions", state.Revisions)
			}
			return graph.END
		}
		return "critique"
	})

	workflow.AddConditionalEdge("critique", func(ctx context.Context, state ReflectionState) string {
		if state.Satisfied {
			if config.Verbose {
				log.Info("reflection: critique accepted the draft")
			}
			return graph.END
		}
		return "generate"
	})

	runnable, err := workflow.Compile()
	if err != nil {
		return nil, err
	}
	return &Reflector{config: config, runnable: runnable}, nil
}

// Run executes the loop for a task and returns the final artifact.
func (r *Reflector) Run(ctx context.Context, task string) (*ReflectionResult, error) {
	return r.RunWithConfig(ctx, task, nil)
}

// RunWithConfig executes the loop with per-invocation graph settings, for
// example a checkpoint-saving listener.
func (r *Reflector) RunWithConfig(ctx context.Context, task string, config *graph.Config) (*ReflectionResult, error) {
	initial := ReflectionState{
		Task:    task,
		History: []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, task)},
	}

	final, err := r.runnable.InvokeWithConfig(ctx, initial, config)
	if err != nil {
		return nil, err
	}

	return &ReflectionResult{
		Artifact:  final.Draft,
		Critique:  final.Critique,
		Satisfied: final.Satisfied,
		Revisions: final.Revisions,
		History:   final.History,
	}, nil
}

// Runnable exposes the compiled graph, for callers composing the reflector
// into a larger workflow.
func (r *Reflector) Runnable() *graph.Runnable[ReflectionState] {
	return r.runnable
}

// generateOrRevise produces the initial draft on the first visit and a
// revision incorporating the critique on every later visit.
func generateOrRevise(ctx context.Context, state ReflectionState, config ReflectorConfig) (ReflectionState, error) {
	var prompt []llms.MessageContent

	if state.Draft == "" {
		if config.Verbose {
			log.Info("reflection: generating initial draft")
		}
		prompt = []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, config.SystemPrompt),
			llms.TextParts(llms.ChatMessageTypeHuman, state.Task),
		}
	} else {
		if state.Critique == "" {
			return state, fmt.Errorf("no critique available for revision")
		}
		if config.Verbose {
			log.Info("reflection: revising draft (revision %d)", state.Revisions+1)
		}
		revision := fmt.Sprintf(`You are revising your previous response based on critique.

Original request:
%s

Previous draft:
%s

Critique:
%s

Produce an improved response that addresses the critique.`, state.Task, state.Draft, state.Critique)

		prompt = []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, config.SystemPrompt),
			llms.TextParts(llms.ChatMessageTypeHuman, revision),
		}
		state.Revisions++
	}

	resp, err := config.Model.GenerateContent(ctx, prompt)
	if err != nil {
		return state, err
	}

	state.Draft = resp.Choices[0].Content
	state.History = append(state.History, llms.TextParts(llms.ChatMessageTypeAI, state.Draft))
	return state, nil
}

// critiqueDraft asks the critique model for feedback and derives the stop signal.
func critiqueDraft(ctx context.Context, state ReflectionState, config ReflectorConfig) (ReflectionState, error) {
	if state.Draft == "" {
		return state, fmt.Errorf("no draft to critique")
	}

	if config.Verbose {
		log.Info("reflection: critiquing draft")
	}

	prompt := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, config.CritiquePrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(`Original request:
%s

Draft response:
%s

Provide your critique.`, state.Task, state.Draft)),
	}

	resp, err := config.CritiqueModel.GenerateContent(ctx, prompt)
	if err != nil {
		return state, err
	}

	state.Critique = resp.Choices[0].Content
	state.Satisfied = config.Satisfier(state.Critique)
	state.History = append(state.History, llms.TextParts(llms.ChatMessageTypeGeneric, state.Critique))
	return state, nil
}

// CritiqueSatisfied is the default stop-signal heuristic. The sentinel phrase
// from the default critique prompt wins outright; otherwise acceptance and
// issue keywords are weighed against each other, and ties keep revising.
func CritiqueSatisfied(critique string) bool {
	lower := strings.ToLower(critique)

	if strings.Contains(lower, defaultCritiqueSentinel) {
		return true
	}

	acceptKeywords := []string{
		"no major issues",
		"no significant issues",
		"no improvements needed",
		"meets all requirements",
		"satisfactory",
		"excellent",
	}
	issueKeywords := []string{
		"missing",
		"incomplete",
		"unclear",
		"should include",
		"could be improved",
		"lacks",
		"needs to",
		"incorrect",
		"inaccurate",
	}

	accepts := 0
	for _, kw := range acceptKeywords {
		if strings.Contains(lower, kw) {
			accepts++
		}
	}
	issues := 0
	for _, kw := range issueKeywords {
		if strings.Contains(lower, kw) {
			issues++
		}
	}

	return accepts > 0 && issues == 0
}

func defaultCritiquePrompt() string {
	return `You are a critical reviewer of AI-generated responses.

Evaluate the draft for accuracy, completeness, clarity and relevance to the
original request. List concrete weaknesses and actionable suggestions.

If the draft needs no revision, reply with exactly: "No further changes."`
}
