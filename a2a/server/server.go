// Package server exposes an agent over the a2a JSON-RPC protocol: one POST
// endpoint dispatching the protocol methods, an SSE stream for
// message/stream and the well-known agent card document.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/skein-ai/skein/a2a"
	"github.com/skein-ai/skein/logging"
)

// WellKnownCardPath serves the agent card for discovery.
const WellKnownCardPath = "/.well-known/agent.json"

// Executor produces the agent's reply for an incoming message. The task
// carries the accumulated history including the new message.
type Executor interface {
	Execute(ctx context.Context, task a2a.Task, message a2a.Message) (a2a.Message, error)
}

// StreamingExecutor is optionally implemented by executors that can produce
// incremental text chunks.
type StreamingExecutor interface {
	ExecuteStreaming(ctx context.Context, task a2a.Task, message a2a.Message) (<-chan string, <-chan error)
}

// Options configure NewServer.
type Options struct {
	// Store persists tasks. Defaults to in-memory.
	Store a2a.TaskStore
	// Logger for request diagnostics. Defaults to NoOp.
	Logger logging.Logger
	// HTTPClient delivers push notifications. Defaults to http.DefaultClient.
	HTTPClient *http.Client
	// HistoryLimit caps stored task history; 0 keeps everything.
	HistoryLimit int
}

// WithStore overrides the task store.
func WithStore(store a2a.TaskStore) func(o *Options) {
	return func(o *Options) {
		o.Store = store
	}
}

// WithLogger sets the server logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithHistoryLimit caps stored task history.
func WithHistoryLimit(limit int) func(o *Options) {
	return func(o *Options) {
		o.HistoryLimit = limit
	}
}

// Server hosts one agent behind the protocol.
type Server struct {
	card     a2a.AgentCard
	executor Executor
	store    a2a.TaskStore
	logger   logging.Logger
	http     *http.Client
	history  int
	router   chi.Router
}

// NewServer wires an executor behind the protocol surface.
func NewServer(card a2a.AgentCard, executor Executor, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		opts.Store = a2a.NewInMemoryTaskStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	s := &Server{
		card:     card,
		executor: executor,
		store:    opts.Store,
		logger:   opts.Logger,
		http:     opts.HTTPClient,
		history:  opts.HistoryLimit,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/", s.handleRPC)
	r.Get(WellKnownCardPath, s.handleCard)
	s.router = r

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.card)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req a2a.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, a2a.NewErrorResponse(nil, a2a.ErrParse))
		return
	}

	if !req.Valid() {
		s.writeResponse(w, a2a.NewErrorResponse(req.ID, a2a.ErrInvalidRequest))
		return
	}

	s.logger.Debug("a2a.request", "method", req.Method)

	if req.Method == a2a.MethodMessageStream {
		s.handleStream(w, r, req)
		return
	}

	result, err := s.dispatch(r.Context(), req)
	if err != nil {
		s.logger.Error("a2a.request.failed", "method", req.Method, "error", err.Error())
		s.writeResponse(w, a2a.NewErrorResponse(req.ID, err))
		return
	}

	resp, err := a2a.NewResponse(req.ID, result)
	if err != nil {
		s.writeResponse(w, a2a.NewErrorResponse(req.ID, a2a.ErrInternal))
		return
	}

	s.writeResponse(w, resp)
}

func (s *Server) writeResponse(w http.ResponseWriter, resp a2a.Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("a2a.response.write_failed", "error", err.Error())
	}
}

func (s *Server) dispatch(ctx context.Context, req a2a.Request) (any, error) {
	switch req.Method {
	case a2a.MethodMessageSend:
		var params a2a.MessageSendParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, a2a.ErrInvalidParams
		}
		return s.sendMessage(ctx, params)

	case a2a.MethodTasksGet:
		var params a2a.TaskQueryParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, a2a.ErrInvalidParams
		}
		return s.getTask(ctx, params)

	case a2a.MethodTasksCancel:
		var params a2a.TaskIDParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, a2a.ErrInvalidParams
		}
		return s.cancelTask(ctx, params)

	case a2a.MethodPushConfigSet:
		var params a2a.TaskPushNotificationConfig
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, a2a.ErrInvalidParams
		}
		return s.setPushConfig(ctx, params)

	case a2a.MethodAgentCard:
		return s.card, nil

	default:
		return nil, a2a.ErrMethodNotFound
	}
}

// prepareTask loads or creates the task for an incoming message and records
// the message in its history.
func (s *Server) prepareTask(ctx context.Context, message a2a.Message) (a2a.Task, error) {
	if len(message.Parts) == 0 {
		return a2a.Task{}, a2a.Errorf(a2a.CodeInvalidParams, "message has no parts")
	}

	var task a2a.Task
	if message.TaskID != "" {
		loaded, err := s.store.Task(ctx, message.TaskID)
		if err != nil {
			return a2a.Task{}, err
		}
		if loaded.Status.State.Terminal() {
			return a2a.Task{}, a2a.Errorf(a2a.CodeInvalidParams, "task %s is already %s", loaded.ID, loaded.Status.State)
		}
		task = loaded
	} else {
		task = a2a.Task{
			ID:        uuid.NewString(),
			ContextID: message.ContextID,
		}
		if task.ContextID == "" {
			task.ContextID = uuid.NewString()
		}
	}

	message.TaskID = task.ID
	message.ContextID = task.ContextID
	task.History = append(task.History, message)
	task.Status = a2a.TaskStatus{State: a2a.TaskWorking, Timestamp: time.Now().UTC()}

	s.trimHistory(&task)

	return task, s.store.SaveTask(ctx, task)
}

func (s *Server) trimHistory(task *a2a.Task) {
	if s.history > 0 && len(task.History) > s.history {
		task.History = task.History[len(task.History)-s.history:]
	}
}

// complete records the reply and moves the task to its terminal state.
func (s *Server) complete(ctx context.Context, task a2a.Task, reply a2a.Message, execErr error) (a2a.Task, error) {
	now := time.Now().UTC()

	if execErr != nil {
		task.Status = a2a.TaskStatus{State: a2a.TaskFailed, Timestamp: now}
		task.Status.Message = &a2a.Message{
			MessageID: uuid.NewString(),
			Role:      a2a.RoleAgent,
			Parts:     []a2a.Part{a2a.TextPart{Text: execErr.Error()}},
			TaskID:    task.ID,
			ContextID: task.ContextID,
		}
	} else {
		reply.TaskID = task.ID
		reply.ContextID = task.ContextID
		task.History = append(task.History, reply)
		task.Artifacts = append(task.Artifacts, a2a.Artifact{
			ArtifactID: uuid.NewString(),
			Name:       "response",
			Parts:      reply.Parts,
		})
		task.Status = a2a.TaskStatus{State: a2a.TaskCompleted, Timestamp: now}
	}

	s.trimHistory(&task)

	if err := s.store.SaveTask(ctx, task); err != nil {
		return a2a.Task{}, err
	}

	s.notify(ctx, task)

	return task, nil
}

func (s *Server) sendMessage(ctx context.Context, params a2a.MessageSendParams) (a2a.Task, error) {
	task, err := s.prepareTask(ctx, params.Message)
	if err != nil {
		return a2a.Task{}, err
	}

	reply, execErr := s.executor.Execute(ctx, task, params.Message)

	task, err = s.complete(ctx, task, reply, execErr)
	if err != nil {
		return a2a.Task{}, err
	}

	return task, nil
}

func (s *Server) getTask(ctx context.Context, params a2a.TaskQueryParams) (a2a.Task, error) {
	task, err := s.store.Task(ctx, params.ID)
	if err != nil {
		return a2a.Task{}, err
	}

	if params.HistoryLength > 0 && len(task.History) > params.HistoryLength {
		task.History = task.History[len(task.History)-params.HistoryLength:]
	}

	return task, nil
}

func (s *Server) cancelTask(ctx context.Context, params a2a.TaskIDParams) (a2a.Task, error) {
	task, err := s.store.Task(ctx, params.ID)
	if err != nil {
		return a2a.Task{}, err
	}

	if task.Status.State.Terminal() {
		return a2a.Task{}, a2a.Errorf(a2a.CodeTaskNotCancelable, "task %s is already %s", task.ID, task.Status.State)
	}

	task.Status = a2a.TaskStatus{State: a2a.TaskCanceled, Timestamp: time.Now().UTC()}

	if err := s.store.SaveTask(ctx, task); err != nil {
		return a2a.Task{}, err
	}

	s.notify(ctx, task)

	return task, nil
}

func (s *Server) setPushConfig(ctx context.Context, params a2a.TaskPushNotificationConfig) (a2a.TaskPushNotificationConfig, error) {
	if !s.card.Capabilities.PushNotifications {
		return a2a.TaskPushNotificationConfig{}, a2a.ErrPushUnsupported
	}
	if params.Config.URL == "" {
		return a2a.TaskPushNotificationConfig{}, a2a.Errorf(a2a.CodeInvalidParams, "push config has no url")
	}

	if err := s.store.SavePushConfig(ctx, params); err != nil {
		return a2a.TaskPushNotificationConfig{}, err
	}

	return params, nil
}

// notify delivers the task snapshot to a registered webhook. Delivery is best
// effort; failures are logged, not surfaced.
func (s *Server) notify(ctx context.Context, task a2a.Task) {
	cfg, ok, err := s.store.PushConfig(ctx, task.ID)
	if err != nil || !ok {
		return
	}

	raw, err := json.Marshal(task)
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(raw))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Token != "" {
		req.Header.Set("X-A2A-Notification-Token", cfg.Token)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.Warn("a2a.push.failed", "task_id", task.ID, "error", err.Error())
		return
	}
	resp.Body.Close()
}

// handleStream serves message/stream as server-sent events. Each event is a
// JSON-RPC response whose result is a StreamEvent; the last one has Final
// set.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, req a2a.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeResponse(w, a2a.NewErrorResponse(req.ID, a2a.ErrUnsupportedOp))
		return
	}

	var params a2a.MessageSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeResponse(w, a2a.NewErrorResponse(req.ID, a2a.ErrInvalidParams))
		return
	}

	ctx := r.Context()

	task, err := s.prepareTask(ctx, params.Message)
	if err != nil {
		s.writeResponse(w, a2a.NewErrorResponse(req.ID, err))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	send := func(ev a2a.StreamEvent) {
		resp, err := a2a.NewResponse(req.ID, ev)
		if err != nil {
			return
		}
		raw, err := json.Marshal(resp)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", raw)
		flusher.Flush()
	}

	working := task
	send(a2a.StreamEvent{Task: &working})

	reply, execErr := s.executeStream(ctx, task, params.Message, send)

	task, err = s.complete(ctx, task, reply, execErr)
	if err != nil {
		task = working
		task.Status = a2a.TaskStatus{State: a2a.TaskFailed, Timestamp: time.Now().UTC()}
	}

	send(a2a.StreamEvent{Task: &task, Final: true})
}

// executeStream prefers the streaming executor, forwarding chunks as agent
// messages, and falls back to the blocking one.
func (s *Server) executeStream(ctx context.Context, task a2a.Task, message a2a.Message, send func(a2a.StreamEvent)) (a2a.Message, error) {
	streamer, ok := s.executor.(StreamingExecutor)
	if !ok {
		return s.executor.Execute(ctx, task, message)
	}

	chunks, errs := streamer.ExecuteStreaming(ctx, task, message)

	var full string
	for chunk := range chunks {
		full += chunk

		msg := a2a.Message{
			MessageID: uuid.NewString(),
			Role:      a2a.RoleAgent,
			Parts:     []a2a.Part{a2a.TextPart{Text: chunk}},
			TaskID:    task.ID,
			ContextID: task.ContextID,
		}
		send(a2a.StreamEvent{Message: &msg})
	}

	if err := <-errs; err != nil {
		return a2a.Message{}, err
	}

	return a2a.Message{
		MessageID: uuid.NewString(),
		Role:      a2a.RoleAgent,
		Parts:     []a2a.Part{a2a.TextPart{Text: full}},
	}, nil
}
