// Package agent contains the agent runtime: the graph strategy engine that
// drives execution, the lifecycle event pipeline features hook into, the tool
// execution environment, and the lock-guarded LLM context shared by graph
// nodes.
//
// An agent is assembled from four parts:
//
//   - a Strategy: a named directed graph of nodes and edges built with
//     NewStrategy. Walking starts at the start node, each node's function
//     transforms its input, and the first edge whose condition accepts the
//     output selects the next node. Execution ends at the finish node.
//   - an llm.Executor plus llm.Model driving generation, wrapped in an
//     LLMContext whose read/write sessions serialize prompt access.
//   - an Environment executing tool calls requested by the model,
//     sequentially or in bounded parallel batches.
//   - a Pipeline dispatching starting/completed/failed lifecycle events for
//     the agent, strategy, subgraphs, nodes, LLM calls and tool calls to
//     installed features (tracing, telemetry, event handlers, memory).
//
// Minimal usage:
//
//	a, _ := agent.New(executor, llm.OpenAIGPT4oMini, agent.SingleRunStrategy(),
//	    agent.WithSystemPrompt("You are terse."),
//	    agent.WithTools(registry),
//	)
//	answer, err := a.Run(ctx, "What is the capital of France?")
package agent
