// Package a2a implements the agent-to-agent JSON-RPC protocol: task and
// message types, the closed error code table, the request envelope and an
// HTTP client. The server side lives in a2a/server.
package a2a

import (
	"encoding/json"
	"fmt"
	"time"
)

// Protocol method names.
const (
	MethodMessageSend   = "message/send"
	MethodMessageStream = "message/stream"
	MethodTasksGet      = "tasks/get"
	MethodTasksCancel   = "tasks/cancel"
	MethodPushConfigSet = "tasks/pushNotificationConfig/set"
	MethodAgentCard     = "agent/card"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleUser marks messages from the calling agent or end user.
	RoleUser Role = "user"
	// RoleAgent marks messages from the serving agent.
	RoleAgent Role = "agent"
)

// TaskState is the lifecycle state of a task.
type TaskState string

const (
	// TaskSubmitted means the task is accepted but not yet running.
	TaskSubmitted TaskState = "submitted"
	// TaskWorking means the agent is processing the task.
	TaskWorking TaskState = "working"
	// TaskInputRequired means the agent is waiting for more input.
	TaskInputRequired TaskState = "input-required"
	// TaskCompleted is a terminal success state.
	TaskCompleted TaskState = "completed"
	// TaskFailed is a terminal error state.
	TaskFailed TaskState = "failed"
	// TaskCanceled is the terminal state after a cancel request.
	TaskCanceled TaskState = "canceled"
)

// Terminal reports whether no further state transitions are allowed.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCanceled:
		return true
	default:
		return false
	}
}

// Part is a polymorphic content segment. Concrete part types implement the
// unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (TextPart) isPart() {}

// DataPart is a structured data segment.
type DataPart struct {
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (DataPart) isPart() {}

// FileContent describes a file either inlined as base64 bytes or referenced
// by URI. Exactly one of Bytes and URI should be set.
type FileContent struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Bytes    string `json:"bytes,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// FilePart is a file attachment segment.
type FilePart struct {
	File     FileContent    `json:"file"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (FilePart) isPart() {}

// partEnvelope is the wire form of a Part, discriminated by kind.
type partEnvelope struct {
	Kind     string         `json:"kind"`
	Text     string         `json:"text,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	File     *FileContent   `json:"file,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func marshalParts(parts []Part) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(parts))
	for _, p := range parts {
		var env partEnvelope

		switch v := p.(type) {
		case TextPart:
			env = partEnvelope{Kind: "text", Text: v.Text, Metadata: v.Metadata}
		case DataPart:
			env = partEnvelope{Kind: "data", Data: v.Data, Metadata: v.Metadata}
		case FilePart:
			file := v.File
			env = partEnvelope{Kind: "file", File: &file, Metadata: v.Metadata}
		default:
			return nil, fmt.Errorf("a2a: unknown part type %T", p)
		}

		raw, err := json.Marshal(env)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}

	return out, nil
}

func unmarshalParts(raw []json.RawMessage) ([]Part, error) {
	out := make([]Part, 0, len(raw))
	for _, r := range raw {
		var env partEnvelope
		if err := json.Unmarshal(r, &env); err != nil {
			return nil, err
		}

		switch env.Kind {
		case "text":
			out = append(out, TextPart{Text: env.Text, Metadata: env.Metadata})
		case "data":
			out = append(out, DataPart{Data: env.Data, Metadata: env.Metadata})
		case "file":
			var file FileContent
			if env.File != nil {
				file = *env.File
			}
			out = append(out, FilePart{File: file, Metadata: env.Metadata})
		default:
			return nil, fmt.Errorf("a2a: unknown part kind %q", env.Kind)
		}
	}

	return out, nil
}

// Message is one conversational turn carried over the protocol.
type Message struct {
	// MessageID uniquely identifies the message.
	MessageID string `json:"messageId"`
	// Role is the author side.
	Role Role `json:"role"`
	// Parts is the ordered heterogeneous content.
	Parts []Part `json:"-"`
	// TaskID associates the message with a task, when known.
	TaskID string `json:"taskId,omitempty"`
	// ContextID groups messages belonging to one conversation.
	ContextID string `json:"contextId,omitempty"`
	// Metadata carries producer-defined extras.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// messageWire mirrors Message with serialized parts.
type messageWire struct {
	MessageID string            `json:"messageId"`
	Role      Role              `json:"role"`
	Parts     []json.RawMessage `json:"parts"`
	TaskID    string            `json:"taskId,omitempty"`
	ContextID string            `json:"contextId,omitempty"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (m Message) MarshalJSON() ([]byte, error) {
	parts, err := marshalParts(m.Parts)
	if err != nil {
		return nil, err
	}

	return json.Marshal(messageWire{
		MessageID: m.MessageID,
		Role:      m.Role,
		Parts:     parts,
		TaskID:    m.TaskID,
		ContextID: m.ContextID,
		Metadata:  m.Metadata,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire messageWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	parts, err := unmarshalParts(wire.Parts)
	if err != nil {
		return err
	}

	*m = Message{
		MessageID: wire.MessageID,
		Role:      wire.Role,
		Parts:     parts,
		TaskID:    wire.TaskID,
		ContextID: wire.ContextID,
		Metadata:  wire.Metadata,
	}

	return nil
}

// Text concatenates the message's text parts.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			out += tp.Text
		}
	}

	return out
}

// Artifact is a produced output attached to a task.
type Artifact struct {
	// ArtifactID uniquely identifies the artifact within its task.
	ArtifactID string `json:"artifactId"`
	// Name is a human-readable label.
	Name string `json:"name,omitempty"`
	// Parts is the artifact content.
	Parts []Part `json:"-"`
	// Metadata carries producer-defined extras.
	Metadata map[string]any `json:"metadata,omitempty"`
}

type artifactWire struct {
	ArtifactID string            `json:"artifactId"`
	Name       string            `json:"name,omitempty"`
	Parts      []json.RawMessage `json:"parts"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (a Artifact) MarshalJSON() ([]byte, error) {
	parts, err := marshalParts(a.Parts)
	if err != nil {
		return nil, err
	}

	return json.Marshal(artifactWire{
		ArtifactID: a.ArtifactID,
		Name:       a.Name,
		Parts:      parts,
		Metadata:   a.Metadata,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Artifact) UnmarshalJSON(data []byte) error {
	var wire artifactWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	parts, err := unmarshalParts(wire.Parts)
	if err != nil {
		return err
	}

	*a = Artifact{
		ArtifactID: wire.ArtifactID,
		Name:       wire.Name,
		Parts:      parts,
		Metadata:   wire.Metadata,
	}

	return nil
}

// TaskStatus is the current state of a task with an optional agent message.
type TaskStatus struct {
	State TaskState `json:"state"`
	// Message optionally explains the state, e.g. the question behind
	// input-required.
	Message *Message `json:"message,omitempty"`
	// Timestamp records when the state was entered, RFC 3339 UTC.
	Timestamp time.Time `json:"timestamp"`
}

// Task is the unit of work tracked by the protocol.
type Task struct {
	// ID uniquely identifies the task.
	ID string `json:"id"`
	// ContextID groups tasks of one conversation.
	ContextID string `json:"contextId"`
	// Status is the current state.
	Status TaskStatus `json:"status"`
	// Artifacts are the produced outputs.
	Artifacts []Artifact `json:"artifacts,omitempty"`
	// History holds the exchanged messages, oldest first.
	History []Message `json:"history,omitempty"`
	// Metadata carries producer-defined extras.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// PushNotificationConfig tells the server where to deliver task updates out
// of band.
type PushNotificationConfig struct {
	// URL is the webhook endpoint.
	URL string `json:"url"`
	// Token is echoed back on deliveries for validation.
	Token string `json:"token,omitempty"`
}

// TaskPushNotificationConfig binds a push config to a task.
type TaskPushNotificationConfig struct {
	TaskID string                 `json:"taskId"`
	Config PushNotificationConfig `json:"pushNotificationConfig"`
}

// AgentSkill advertises one capability on the agent card.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// AgentCapabilities flags optional protocol features.
type AgentCapabilities struct {
	Streaming         bool `json:"streaming"`
	PushNotifications bool `json:"pushNotifications"`
}

// AgentCard is the public self-description served at the well-known path and
// over the agent/card method.
type AgentCard struct {
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	URL          string            `json:"url"`
	Version      string            `json:"version"`
	Capabilities AgentCapabilities `json:"capabilities"`
	Skills       []AgentSkill      `json:"skills,omitempty"`
}

// NewTextMessage builds a user message with one text part.
func NewTextMessage(messageID, text string) Message {
	return Message{
		MessageID: messageID,
		Role:      RoleUser,
		Parts:     []Part{TextPart{Text: text}},
	}
}

// MessageSendParams is the payload of message/send and message/stream.
type MessageSendParams struct {
	Message Message `json:"message"`
	// Metadata carries caller-defined extras.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskQueryParams is the payload of tasks/get.
type TaskQueryParams struct {
	ID string `json:"id"`
	// HistoryLength truncates the returned history; 0 returns everything.
	HistoryLength int `json:"historyLength,omitempty"`
}

// TaskIDParams is the payload of tasks/cancel.
type TaskIDParams struct {
	ID string `json:"id"`
}
