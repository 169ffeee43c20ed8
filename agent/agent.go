package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/skein-ai/skein/llm"
	"github.com/skein-ai/skein/logging"
	"github.com/skein-ai/skein/tool"
)

// ErrNoCheckpoint is returned by Resume when the store holds no checkpoint
// for the agent.
var ErrNoCheckpoint = errors.New("agent: no checkpoint to resume from")

// Options configure a new Agent.
type Options struct {
	// ID identifies the agent. Defaults to a random UUID.
	ID string
	// Logger for run diagnostics. Defaults to NoOp.
	Logger logging.Logger
	// Features are installed into the run pipeline in order.
	Features []Feature
	// Tools offered to the model and executed by the environment.
	Tools *tool.Registry
	// SystemPrompt seeds the conversation.
	SystemPrompt string
	// Params are the default sampling parameters.
	Params llm.Params
	// MaxIterations bounds strategy steps per run; 0 means unlimited.
	MaxIterations int
	// MaxLLMCalls bounds model calls over the agent's lifetime; 0 means
	// unlimited.
	MaxLLMCalls int
	// Environment overrides the default tool environment.
	Environment Environment
	// Checkpoints enables per-node state snapshots when non-nil.
	Checkpoints CheckpointStore
}

// WithID sets the agent id.
func WithID(id string) func(o *Options) {
	return func(o *Options) {
		o.ID = id
	}
}

// WithLogger sets the run logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithFeatures installs pipeline features.
func WithFeatures(features ...Feature) func(o *Options) {
	return func(o *Options) {
		o.Features = append(o.Features, features...)
	}
}

// WithTools sets the tool registry.
func WithTools(registry *tool.Registry) func(o *Options) {
	return func(o *Options) {
		o.Tools = registry
	}
}

// WithSystemPrompt seeds the conversation with a system message.
func WithSystemPrompt(text string) func(o *Options) {
	return func(o *Options) {
		o.SystemPrompt = text
	}
}

// WithParams sets the default sampling parameters.
func WithParams(params llm.Params) func(o *Options) {
	return func(o *Options) {
		o.Params = params
	}
}

// WithMaxIterations bounds strategy steps per run.
func WithMaxIterations(max int) func(o *Options) {
	return func(o *Options) {
		o.MaxIterations = max
	}
}

// WithMaxLLMCalls bounds model calls over the agent's lifetime.
func WithMaxLLMCalls(max int) func(o *Options) {
	return func(o *Options) {
		o.MaxLLMCalls = max
	}
}

// WithEnvironment overrides the default tool environment.
func WithEnvironment(env Environment) func(o *Options) {
	return func(o *Options) {
		o.Environment = env
	}
}

// WithCheckpoints enables state snapshots before every node execution.
func WithCheckpoints(store CheckpointStore) func(o *Options) {
	return func(o *Options) {
		o.Checkpoints = store
	}
}

// Agent drives a strategy graph over a shared conversation. An agent keeps
// one conversation across runs; each Run appends to it.
type Agent struct {
	id            string
	strategy      *Strategy
	llm           *LLMContext
	registry      *tool.Registry
	environment   Environment
	pipeline      *Pipeline
	logger        logging.Logger
	maxIterations int
	checkpoints   CheckpointStore
}

// New assembles an agent around an executor, a model and a strategy.
func New(executor llm.Executor, model llm.Model, strategy *Strategy, optFns ...func(o *Options)) (*Agent, error) {
	if executor == nil {
		return nil, fmt.Errorf("agent: executor must not be nil")
	}
	if strategy == nil {
		return nil, fmt.Errorf("agent: strategy must not be nil")
	}

	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Tools == nil {
		opts.Tools = tool.MustRegistry()
	}

	pipeline := NewPipeline()

	var messages []llm.Message
	if opts.SystemPrompt != "" {
		messages = append(messages, llm.SystemMessage{Content: opts.SystemPrompt})
	}

	prompt := llm.NewPrompt(opts.ID, messages...).WithParams(opts.Params)

	llmCtx := NewLLMContext(executor, model, prompt, func(o *LLMContextOptions) {
		o.Tools = opts.Tools
		o.Pipeline = pipeline
		o.MaxLLMCalls = opts.MaxLLMCalls
		o.Logger = opts.Logger
	})

	environment := opts.Environment
	if environment == nil {
		environment = NewEnvironment(opts.Tools, func(o *EnvironmentOptions) {
			o.Logger = opts.Logger
			o.Pipeline = pipeline
		})
	}

	a := &Agent{
		id:            opts.ID,
		strategy:      strategy,
		llm:           llmCtx,
		registry:      opts.Tools,
		environment:   environment,
		pipeline:      pipeline,
		logger:        opts.Logger,
		maxIterations: opts.MaxIterations,
		checkpoints:   opts.Checkpoints,
	}

	if a.checkpoints != nil {
		pipeline.Install(&checkpointFeature{agent: a})
	}
	for _, f := range opts.Features {
		pipeline.Install(f)
	}

	return a, nil
}

// ID returns the agent id.
func (a *Agent) ID() string { return a.id }

// LLM exposes the shared conversation state, for inspection through read
// sessions.
func (a *Agent) LLM() *LLMContext { return a.llm }

// Pipeline returns the run pipeline.
func (a *Agent) Pipeline() *Pipeline { return a.pipeline }

// Run executes the strategy on a text input and returns the text output.
// Non-string outputs are rendered with fmt.
func (a *Agent) Run(ctx context.Context, input string) (string, error) {
	out, err := a.RunWith(ctx, input)
	if err != nil {
		return "", err
	}

	if text, ok := out.(string); ok {
		return text, nil
	}

	return fmt.Sprint(out), nil
}

// RunWith executes the strategy on an arbitrary input value.
func (a *Agent) RunWith(ctx context.Context, input any) (any, error) {
	return a.run(ctx, StartNode, input)
}

// Resume restores the most recent checkpoint and re-enters the strategy at
// the node the checkpoint was taken for.
func (a *Agent) Resume(ctx context.Context) (any, error) {
	if a.checkpoints == nil {
		return nil, fmt.Errorf("agent: no checkpoint store configured")
	}

	cp, ok, err := a.checkpoints.Latest(ctx, a.id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoCheckpoint
	}

	return a.ResumeFrom(ctx, cp)
}

// ResumeFrom restores a specific checkpoint. The conversation is rolled back
// to the checkpoint's prompt snapshot before the walk re-enters the graph.
func (a *Agent) ResumeFrom(ctx context.Context, cp Checkpoint) (any, error) {
	err := a.llm.Write(ctx, func(s *WriteSession) error {
		return s.RewritePrompt(func(llm.Prompt) llm.Prompt {
			return cp.Prompt
		})
	})
	if err != nil {
		return nil, err
	}

	return a.run(ctx, cp.Node, cp.Input)
}

// run wraps a graph walk in agent and strategy lifecycle events.
func (a *Agent) run(ctx context.Context, startAt string, input any) (any, error) {
	exec := NewExecution()
	ctx = WithExecution(ctx, exec)

	limiter := NewCallLimiter(a.maxIterations)
	ctx = withSubgraphLimiter(ctx, limiter)

	if err := a.pipeline.onAgentStarting(ctx, AgentStartingEvent{
		Execution: exec,
		AgentID:   a.id,
		Input:     input,
	}); err != nil {
		return nil, err
	}

	a.logger.Info("agent.run.starting", "agent_id", a.id, "strategy", a.strategy.Name())

	output, err := a.walkStrategy(ctx, exec, startAt, input, limiter)
	if err != nil {
		a.logger.Error("agent.run.failed", "agent_id", a.id, "error", err.Error())

		if emitErr := a.pipeline.onAgentFailed(ctx, AgentFailedEvent{
			Execution: exec,
			AgentID:   a.id,
			Err:       err,
		}); emitErr != nil {
			return nil, emitErr
		}

		return nil, err
	}

	a.logger.Info("agent.run.completed", "agent_id", a.id)

	if err := a.pipeline.onAgentCompleted(ctx, AgentCompletedEvent{
		Execution: exec,
		AgentID:   a.id,
		Result:    output,
	}); err != nil {
		return nil, err
	}

	return output, nil
}

func (a *Agent) walkStrategy(ctx context.Context, parent ExecutionInfo, startAt string, input any, limiter *CallLimiter) (any, error) {
	exec := parent.Child()
	ctx = WithExecution(ctx, exec)

	if err := a.pipeline.onStrategyStarting(ctx, StrategyStartingEvent{
		Execution: exec,
		Strategy:  a.strategy.Name(),
	}); err != nil {
		return nil, err
	}

	nc := &NodeContext{
		ctx:         ctx,
		llm:         a.llm,
		environment: a.environment,
		pipeline:    a.pipeline,
		logger:      a.logger,
		registry:    a.registry,
	}

	output, err := a.strategy.walkFrom(nc, startAt, input, limiter)
	if err != nil {
		if emitErr := a.pipeline.onStrategyFailed(ctx, StrategyFailedEvent{
			Execution: exec,
			Strategy:  a.strategy.Name(),
			Err:       err,
		}); emitErr != nil {
			return nil, emitErr
		}

		return nil, err
	}

	if err := a.pipeline.onStrategyCompleted(ctx, StrategyCompletedEvent{
		Execution: exec,
		Strategy:  a.strategy.Name(),
		Result:    output,
	}); err != nil {
		return nil, err
	}

	return output, nil
}

// checkpointFeature snapshots the conversation and node input before every
// node execution.
type checkpointFeature struct {
	agent *Agent
}

func (f *checkpointFeature) Name() string { return "checkpoints" }

func (f *checkpointFeature) Install(i *Interceptors) {
	i.InterceptNodeStarting(func(ctx context.Context, ev NodeStartingEvent) error {
		var prompt llm.Prompt

		err := f.agent.llm.Read(ctx, func(s *ReadSession) error {
			prompt = s.Prompt()
			return nil
		})
		if err != nil {
			return err
		}

		return f.agent.checkpoints.Save(ctx, newCheckpoint(f.agent.id, ev.Node, prompt, ev.Input))
	})
}
