// Package skein provides a high-level façade over the agent runtime and its
// services (tools, features, checkpoints & logging) enabling rapid
// construction of tool-calling LLM agents. Most applications interact with
// this package by:
//  1. Creating a Skein via New() with an executor and model
//  2. Registering tools and features through the options
//  3. Running prompts synchronously (Run) or serving them over a2a
//
// The façade delegates orchestration to agent.Agent while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a Redis-backed task store
// and a structured logger.
package skein

import (
	"context"

	"github.com/skein-ai/skein/agent"
	"github.com/skein-ai/skein/llm"
	"github.com/skein-ai/skein/logging"
	"github.com/skein-ai/skein/tool"
)

// Options configure the Skein instance.
type Options struct {
	// SystemPrompt seeds every conversation.
	SystemPrompt string

	// Strategy is the graph driving each run. Defaults to the tool loop when
	// tools are registered and to a single model turn otherwise.
	Strategy *agent.Strategy

	// Tools offered to the model.
	Tools []tool.Tool

	// Features observe the run pipeline.
	Features []agent.Feature

	// MaxIterations bounds strategy steps per run; 0 means unlimited.
	MaxIterations int

	// MaxLLMCalls bounds model calls over the agent's lifetime; 0 means
	// unlimited.
	MaxLLMCalls int

	// Checkpoints enables per-node snapshots when non-nil.
	Checkpoints agent.CheckpointStore

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Skein is the high-level façade aggregating the underlying agent runtime.
type Skein struct {
	agent *agent.Agent
}

// New creates a Skein instance with optional overrides.
func New(executor llm.Executor, model llm.Model, optFns ...func(o *Options)) (*Skein, error) {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	registry, err := tool.NewRegistry(opts.Tools...)
	if err != nil {
		return nil, err
	}

	strategy := opts.Strategy
	if strategy == nil {
		if len(opts.Tools) > 0 {
			strategy = agent.ToolLoopStrategy()
		} else {
			strategy = agent.SingleRunStrategy()
		}
	}

	a, err := agent.New(executor, model, strategy,
		agent.WithSystemPrompt(opts.SystemPrompt),
		agent.WithTools(registry),
		agent.WithFeatures(opts.Features...),
		agent.WithMaxIterations(opts.MaxIterations),
		agent.WithMaxLLMCalls(opts.MaxLLMCalls),
		agent.WithCheckpoints(opts.Checkpoints),
		agent.WithLogger(opts.Logger),
	)
	if err != nil {
		return nil, err
	}

	return &Skein{agent: a}, nil
}

// Agent exposes the underlying runtime for advanced wiring, e.g. the a2a
// server bridge.
func (s *Skein) Agent() *agent.Agent { return s.agent }

// Run executes one prompt and returns the text answer.
func (s *Skein) Run(ctx context.Context, input string) (string, error) {
	return s.agent.Run(ctx, input)
}
