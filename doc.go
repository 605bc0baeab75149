// Agent Patterns - Agent design patterns for Go
//
// agentpatterns implements the four classic agent design patterns -
// reflection, planning, tool use and multi-agent collaboration - on top of
// a small sequential state-machine runner. Every pattern takes an injected
// model (tmc/langchaingo llms.Model), so loops run against a live API in
// production and against stubs in tests.
//
// # Quick Start
//
// Install the package:
//
//	go get github.com/smallnest/agentpatterns
//
// Run a reflection loop (generate, critique, revise until the critique is
// satisfied or the iteration budget is spent):
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//
//		"github.com/smallnest/agentpatterns/agents"
//		"github.com/smallnest/agentpatterns/llm"
//	)
//
//	func main() {
//		model, err := llm.FromEnv() // OPENAI_API_KEY
//		if err != nil {
//			panic(err)
//		}
//
//		reflector, _ := agents.NewReflector(agents.ReflectorConfig{
//			Model:         model,
//			MaxIterations: 3,
//		})
//
//		result, err := reflector.Run(context.Background(), "Write a short essay on generics in Go")
//		if err != nil {
//			panic(err)
//		}
//		fmt.Println(result.Artifact)
//	}
//
// # Packages
//
//   - graph: sequential state graph runner shared by all patterns
//   - agents: reflection, planning, tool-use and collaboration agents
//   - tools: built-in skills (SQL query, data analysis, web page fetch)
//   - llm: OpenAI-compatible client and env-based construction
//   - memory: append-only conversation history
//   - store: thread checkpoint persistence (memory, file, sqlite, redis, postgres)
//   - log: leveled logging with an optional golog backend
package agentpatterns
