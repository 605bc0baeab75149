// Package agents implements the four classic agent design patterns on top of
// the graph runner:
//
//   - Reflection: generate a draft, critique it, revise until the critique is
//     satisfied or the iteration budget is spent (Reflector).
//   - Planning: ask the model for a step plan, then execute the steps in
//     order and synthesize an answer (NewPlanningAgent).
//   - Tool use: let the model call registered tools in a reason/act loop
//     until it produces a final answer (NewToolUseAgent).
//   - Multi-agent collaboration: a fixed-order pipeline (RunPipeline), a
//     supervisor that routes between member agents (NewSupervisor), and a
//     handoff team where agents transfer control to one another
//     (NewHandoffTeam).
//
// Every pattern takes an llms.Model, so tests run against stubs with no
// network access.
package agents
