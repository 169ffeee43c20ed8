package a2a

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// StreamEvent is one element of a message/stream response. Exactly one of
// Task and Message is set; Final marks the last event of the stream.
type StreamEvent struct {
	Task    *Task    `json:"task,omitempty"`
	Message *Message `json:"message,omitempty"`
	Final   bool     `json:"final,omitempty"`
}

// ClientOptions configure NewClient.
type ClientOptions struct {
	// HTTPClient overrides the default http.Client.
	HTTPClient *http.Client
	// Headers are added to every request, e.g. authorization.
	Headers map[string]string
}

// WithHTTPClient overrides the transport client.
func WithHTTPClient(c *http.Client) func(o *ClientOptions) {
	return func(o *ClientOptions) {
		o.HTTPClient = c
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) func(o *ClientOptions) {
	return func(o *ClientOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers[key] = value
	}
}

// Client talks JSON-RPC to one remote agent endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	headers  map[string]string
}

// NewClient creates a client for an agent endpoint URL.
func NewClient(endpoint string, optFns ...func(o *ClientOptions)) *Client {
	var opts ClientOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     opts.HTTPClient,
		headers:  opts.Headers,
	}
}

// call posts one JSON-RPC request and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	req, err := NewRequest(uuid.NewString(), method, params)
	if err != nil {
		return fmt.Errorf("a2a: encode request: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("a2a: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setHeaders(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("a2a: transport: %w", err)
	}
	defer resp.Body.Close()

	var envelope Response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return Errorf(CodeParseError, "malformed response: %v", err)
	}

	return envelope.DecodeResult(out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
}

// SendMessage delivers a message and returns the resulting task snapshot.
func (c *Client) SendMessage(ctx context.Context, params MessageSendParams) (Task, error) {
	var task Task
	if err := c.call(ctx, MethodMessageSend, params, &task); err != nil {
		return Task{}, err
	}

	return task, nil
}

// GetTask fetches a task by id.
func (c *Client) GetTask(ctx context.Context, params TaskQueryParams) (Task, error) {
	var task Task
	if err := c.call(ctx, MethodTasksGet, params, &task); err != nil {
		return Task{}, err
	}

	return task, nil
}

// CancelTask requests cancellation and returns the updated task.
func (c *Client) CancelTask(ctx context.Context, id string) (Task, error) {
	var task Task
	if err := c.call(ctx, MethodTasksCancel, TaskIDParams{ID: id}, &task); err != nil {
		return Task{}, err
	}

	return task, nil
}

// SetPushConfig registers a webhook for task updates.
func (c *Client) SetPushConfig(ctx context.Context, cfg TaskPushNotificationConfig) (TaskPushNotificationConfig, error) {
	var out TaskPushNotificationConfig
	if err := c.call(ctx, MethodPushConfigSet, cfg, &out); err != nil {
		return TaskPushNotificationConfig{}, err
	}

	return out, nil
}

// AgentCard fetches the remote agent's self-description.
func (c *Client) AgentCard(ctx context.Context) (AgentCard, error) {
	var card AgentCard
	if err := c.call(ctx, MethodAgentCard, nil, &card); err != nil {
		return AgentCard{}, err
	}

	return card, nil
}

// StreamMessage delivers a message and consumes the server-sent event stream.
// Events arrive on the first channel; a terminal error, when any, on the
// second. Both channels close when the stream ends.
func (c *Client) StreamMessage(ctx context.Context, params MessageSendParams) (<-chan StreamEvent, <-chan error) {
	events := make(chan StreamEvent)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		req, err := NewRequest(uuid.NewString(), MethodMessageStream, params)
		if err != nil {
			errs <- fmt.Errorf("a2a: encode request: %w", err)
			return
		}

		body, err := json.Marshal(req)
		if err != nil {
			errs <- fmt.Errorf("a2a: encode request: %w", err)
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			errs <- err
			return
		}
		c.setHeaders(httpReq)
		httpReq.Header.Set("Accept", "text/event-stream")

		resp, err := c.http.Do(httpReq)
		if err != nil {
			errs <- fmt.Errorf("a2a: transport: %w", err)
			return
		}
		defer resp.Body.Close()

		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
			// Non-streaming responses carry a regular JSON-RPC error.
			var envelope Response
			if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
				errs <- Errorf(CodeParseError, "malformed response: %v", err)
				return
			}
			if envelope.Err != nil {
				errs <- envelope.Err
				return
			}
			errs <- Errorf(CodeInvalidResponse, "expected event stream, got %s", ct)
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}

			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" {
				continue
			}

			var envelope Response
			if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
				errs <- Errorf(CodeParseError, "malformed stream event: %v", err)
				return
			}

			var ev StreamEvent
			if err := envelope.DecodeResult(&ev); err != nil {
				errs <- err
				return
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}

			if ev.Final {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			errs <- fmt.Errorf("a2a: read stream: %w", err)
		}
	}()

	return events, errs
}
