// Package tools provides ready-made tools for the agent patterns. Each tool
// implements the langchaingo tools.Tool interface and can be handed to
// agents.NewToolUseAgent, the planning agent, or a handoff team.
package tools
