package agent

import (
	"context"
	"errors"

	"github.com/skein-ai/skein/internal/rwlock"
	"github.com/skein-ai/skein/llm"
	"github.com/skein-ai/skein/logging"
	"github.com/skein-ai/skein/tool"
)

// ErrSessionClosed is returned when a session is used after its scope exited.
var ErrSessionClosed = errors.New("agent: llm session is no longer valid")

// compressionRequest is the instruction used by CompressHistory to fold the
// conversation into a short summary.
const compressionRequest = "Summarize all the main achievements, facts and " +
	"decisions from the conversation above in a concise TLDR. Keep concrete " +
	"values, identifiers and conclusions; drop pleasantries."

// LLMContext wraps the evolving prompt, the active model and the executor
// behind a reentrant read/write lock. All access goes through Read/Write
// sessions: read sessions may run concurrently and see a consistent prompt
// snapshot; write sessions are exclusive and may mutate the prompt and model.
//
// A write session may open a nested read session, and sessions of either kind
// may nest within themselves. Opening a write session from within a read
// session fails with rwlock.ErrWriteInRead.
type LLMContext struct {
	lock *rwlock.Lock

	prompt   llm.Prompt
	model    llm.Model
	executor llm.Executor

	registry *tool.Registry
	pipeline *Pipeline
	limiter  *CallLimiter
	logger   logging.Logger
}

// LLMContextOptions configure NewLLMContext.
type LLMContextOptions struct {
	// Tools used by RequestLLMWithTools. Nil means no tools are offered.
	Tools *tool.Registry
	// Pipeline receiving LLM-call lifecycle events. Defaults to an empty one.
	Pipeline *Pipeline
	// MaxLLMCalls bounds model calls through this context; 0 means unlimited.
	MaxLLMCalls int
	// Logger for request diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// NewLLMContext builds a context around an initial prompt.
func NewLLMContext(executor llm.Executor, model llm.Model, prompt llm.Prompt, optFns ...func(o *LLMContextOptions)) *LLMContext {
	opts := LLMContextOptions{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Pipeline == nil {
		opts.Pipeline = NewPipeline()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &LLMContext{
		lock:     rwlock.New(),
		prompt:   prompt,
		model:    model,
		executor: executor,
		registry: opts.Tools,
		pipeline: opts.Pipeline,
		limiter:  NewCallLimiter(opts.MaxLLMCalls),
		logger:   opts.Logger,
	}
}

// Read runs fn with a read session under the shared read lock. The session
// is invalidated when fn returns; retaining it past that point yields
// ErrSessionClosed.
func (c *LLMContext) Read(ctx context.Context, fn func(s *ReadSession) error) error {
	return c.lock.WithReadLock(ctx, func(ctx context.Context) error {
		s := &ReadSession{ctx: ctx, c: c}
		defer s.invalidate()

		return fn(s)
	})
}

// Write runs fn with an exclusive write session. The session is invalidated
// when fn returns.
func (c *LLMContext) Write(ctx context.Context, fn func(s *WriteSession) error) error {
	return c.lock.WithWriteLock(ctx, func(ctx context.Context) error {
		s := &WriteSession{ReadSession: ReadSession{ctx: ctx, c: c}}
		defer s.invalidate()

		return fn(s)
	})
}

// ReadSession exposes a consistent view of the prompt and model. It is only
// valid inside the Read (or Write) callback that created it.
type ReadSession struct {
	ctx    context.Context
	c      *LLMContext
	closed bool
}

func (s *ReadSession) invalidate() { s.closed = true }

// Context returns the session-scoped context carrying the lock owner token.
func (s *ReadSession) Context() context.Context { return s.ctx }

// Prompt returns the current prompt snapshot.
func (s *ReadSession) Prompt() llm.Prompt { return s.c.prompt }

// Model returns the active model.
func (s *ReadSession) Model() llm.Model { return s.c.model }

// Tools returns the tool definitions offered on RequestLLMWithTools.
func (s *ReadSession) Tools() []llm.ToolDefinition {
	if s.c.registry == nil {
		return nil
	}

	return s.c.registry.Definitions()
}

// WriteSession extends ReadSession with prompt/model mutation and model
// request operations. The prompt is updated copy-on-write; readers that took
// a snapshot before this session keep their view.
type WriteSession struct {
	ReadSession
}

// RewritePrompt replaces the prompt with fn's result.
func (s *WriteSession) RewritePrompt(fn func(p llm.Prompt) llm.Prompt) error {
	if s.closed {
		return ErrSessionClosed
	}

	s.c.prompt = fn(s.c.prompt)

	return nil
}

// AppendUserMessage appends a user message to the prompt.
func (s *WriteSession) AppendUserMessage(text string) error {
	return s.RewritePrompt(func(p llm.Prompt) llm.Prompt {
		return p.Append(llm.UserMessage{Content: text})
	})
}

// AppendMessages appends arbitrary messages to the prompt.
func (s *WriteSession) AppendMessages(messages ...llm.Message) error {
	return s.RewritePrompt(func(p llm.Prompt) llm.Prompt {
		return p.Append(messages...)
	})
}

// SetModel switches the active model for subsequent requests.
func (s *WriteSession) SetModel(model llm.Model) error {
	if s.closed {
		return ErrSessionClosed
	}

	s.c.model = model

	return nil
}

// RequestLLM performs one model turn without tools. The reply messages are
// appended to the prompt and returned.
func (s *WriteSession) RequestLLM() ([]llm.Message, error) {
	return s.request(nil)
}

// RequestLLMWithTools performs one model turn offering the configured tools.
// The model may reply with tool call messages.
func (s *WriteSession) RequestLLMWithTools() ([]llm.Message, error) {
	return s.request(s.Tools())
}

func (s *WriteSession) request(tools []llm.ToolDefinition) ([]llm.Message, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}

	responses, err := s.execute(s.c.prompt, tools)
	if err != nil {
		return nil, err
	}

	s.c.prompt = s.c.prompt.Append(responses...)

	return responses, nil
}

// CompressHistory folds the conversation so far into a single summary
// message, keeping system instructions. The model call counts against the
// context's call limit like any other request.
func (s *WriteSession) CompressHistory() error {
	if s.closed {
		return ErrSessionClosed
	}

	summaryPrompt := s.c.prompt.
		Append(llm.UserMessage{Content: compressionRequest}).
		WithParams(llm.Params{})

	reply, err := s.execute(summaryPrompt, nil)
	if err != nil {
		return err
	}

	var summary string
	for _, m := range reply {
		summary += llm.TextOf(m)
	}

	s.c.prompt = s.c.prompt.WithMessages(func(messages []llm.Message) []llm.Message {
		var kept []llm.Message
		for _, m := range messages {
			if m.Role() == llm.RoleSystem {
				kept = append(kept, m)
			}
		}

		return append(kept, llm.UserMessage{Content: "Summary of the conversation so far: " + summary})
	})

	return nil
}

// execute performs the model call with lifecycle event emission. The prompt
// argument may differ from the context prompt (history compression).
func (s *WriteSession) execute(prompt llm.Prompt, tools []llm.ToolDefinition) ([]llm.Message, error) {
	c := s.c

	if err := c.limiter.Increment(); err != nil {
		return nil, err
	}

	exec := ExecutionFrom(s.ctx).Child()
	ctx := WithExecution(s.ctx, exec)

	if err := c.pipeline.onLLMCallStarting(ctx, LLMCallStartingEvent{
		Execution: exec,
		Prompt:    prompt,
		Model:     c.model,
		Tools:     tools,
	}); err != nil {
		return nil, err
	}

	responses, err := c.executor.Execute(ctx, prompt, c.model, tools)
	if err != nil {
		c.logger.Error("llm.request.failed", "model", c.model.ID, "error", err.Error())

		if emitErr := c.pipeline.onLLMCallFailed(ctx, LLMCallFailedEvent{
			Execution: exec,
			Prompt:    prompt,
			Model:     c.model,
			Err:       err,
		}); emitErr != nil {
			return nil, emitErr
		}

		return nil, err
	}

	c.logger.Debug("llm.request.completed", "model", c.model.ID, "responses", len(responses))

	if err := c.pipeline.onLLMCallCompleted(ctx, LLMCallCompletedEvent{
		Execution: exec,
		Prompt:    prompt,
		Model:     c.model,
		Responses: responses,
	}); err != nil {
		return nil, err
	}

	return responses, nil
}
