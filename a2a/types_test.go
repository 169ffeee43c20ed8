package a2a

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagePartsWireFormat(t *testing.T) {
	msg := Message{
		MessageID: "m1",
		Role:      RoleUser,
		TaskID:    "t1",
		ContextID: "c1",
		Parts: []Part{
			TextPart{Text: "hello"},
			DataPart{Data: map[string]any{"limit": float64(3)}},
			FilePart{File: FileContent{Name: "report.pdf", MimeType: "application/pdf", URI: "https://example.com/report.pdf"}},
		},
	}

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	// Parts are discriminated by kind on the wire.
	assert.Contains(t, string(raw), `"kind":"text"`)
	assert.Contains(t, string(raw), `"kind":"data"`)
	assert.Contains(t, string(raw), `"kind":"file"`)

	var decoded Message
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, msg, decoded)
}

func TestMessageUnknownPartKind(t *testing.T) {
	var msg Message
	err := json.Unmarshal([]byte(`{"messageId":"m1","role":"user","parts":[{"kind":"video"}]}`), &msg)
	assert.ErrorContains(t, err, "unknown part kind")
}

func TestMessageText(t *testing.T) {
	msg := Message{Parts: []Part{
		TextPart{Text: "a"},
		DataPart{Data: map[string]any{}},
		TextPart{Text: "b"},
	}}

	assert.Equal(t, "ab", msg.Text())
}

func TestTaskStateTerminal(t *testing.T) {
	assert.True(t, TaskCompleted.Terminal())
	assert.True(t, TaskFailed.Terminal())
	assert.True(t, TaskCanceled.Terminal())
	assert.False(t, TaskSubmitted.Terminal())
	assert.False(t, TaskWorking.Terminal())
	assert.False(t, TaskInputRequired.Terminal())
}

func TestRequestEnvelope(t *testing.T) {
	req, err := NewRequest("req-1", MethodTasksGet, TaskQueryParams{ID: "t1"})
	require.NoError(t, err)
	assert.True(t, req.Valid())

	raw, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded Request
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, MethodTasksGet, decoded.Method)
	assert.JSONEq(t, `"req-1"`, string(decoded.ID))

	var params TaskQueryParams
	require.NoError(t, json.Unmarshal(decoded.Params, &params))
	assert.Equal(t, "t1", params.ID)
}

func TestRequestValidation(t *testing.T) {
	assert.False(t, Request{JSONRPC: "1.0", Method: "x"}.Valid())
	assert.False(t, Request{JSONRPC: Version}.Valid())
	assert.True(t, Request{JSONRPC: Version, Method: "x"}.Valid())
}
