package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skein-ai/skein/a2a"
	"github.com/skein-ai/skein/agent"
	"github.com/skein-ai/skein/llm"
)

// echoExecutor replies with the incoming text, uppercased marker included.
type echoExecutor struct{}

func (echoExecutor) Execute(ctx context.Context, task a2a.Task, message a2a.Message) (a2a.Message, error) {
	return a2a.Message{
		MessageID: uuid.NewString(),
		Role:      a2a.RoleAgent,
		Parts:     []a2a.Part{a2a.TextPart{Text: "echo: " + message.Text()}},
	}, nil
}

func testCard() a2a.AgentCard {
	return a2a.AgentCard{
		Name:    "echo-agent",
		URL:     "http://localhost",
		Version: "1.0.0",
		Capabilities: a2a.AgentCapabilities{
			Streaming:         true,
			PushNotifications: true,
		},
	}
}

func newTestServer(t *testing.T, executor Executor, optFns ...func(o *Options)) (*httptest.Server, *a2a.Client) {
	t.Helper()

	srv := NewServer(testCard(), executor, optFns...)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return ts, a2a.NewClient(ts.URL)
}

func TestServerMessageSend(t *testing.T) {
	_, client := newTestServer(t, echoExecutor{})

	task, err := client.SendMessage(context.Background(), a2a.MessageSendParams{
		Message: a2a.NewTextMessage("m1", "hello"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.NotEmpty(t, task.ContextID)
	assert.Equal(t, a2a.TaskCompleted, task.Status.State)

	// History holds the request and the reply.
	require.Len(t, task.History, 2)
	assert.Equal(t, a2a.RoleUser, task.History[0].Role)
	assert.Equal(t, a2a.RoleAgent, task.History[1].Role)
	assert.Equal(t, "echo: hello", task.History[1].Text())

	// The reply is also published as an artifact.
	require.Len(t, task.Artifacts, 1)
	assert.Equal(t, "echo: hello", a2a.Message{Parts: task.Artifacts[0].Parts}.Text())
}

func TestServerTaskContinuation(t *testing.T) {
	_, client := newTestServer(t, echoExecutor{})

	first, err := client.SendMessage(context.Background(), a2a.MessageSendParams{
		Message: a2a.NewTextMessage("m1", "one"),
	})
	require.NoError(t, err)

	followUp := a2a.NewTextMessage("m2", "two")
	followUp.TaskID = first.ID

	_, err = client.SendMessage(context.Background(), a2a.MessageSendParams{Message: followUp})

	// Completed tasks do not accept further messages.
	assert.ErrorIs(t, err, a2a.ErrInvalidParams)
}

func TestServerTasksGet(t *testing.T) {
	_, client := newTestServer(t, echoExecutor{})

	sent, err := client.SendMessage(context.Background(), a2a.MessageSendParams{
		Message: a2a.NewTextMessage("m1", "hello"),
	})
	require.NoError(t, err)

	t.Run("full history", func(t *testing.T) {
		task, err := client.GetTask(context.Background(), a2a.TaskQueryParams{ID: sent.ID})
		require.NoError(t, err)
		assert.Len(t, task.History, 2)
	})

	t.Run("truncated history", func(t *testing.T) {
		task, err := client.GetTask(context.Background(), a2a.TaskQueryParams{ID: sent.ID, HistoryLength: 1})
		require.NoError(t, err)
		require.Len(t, task.History, 1)
		assert.Equal(t, a2a.RoleAgent, task.History[0].Role)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := client.GetTask(context.Background(), a2a.TaskQueryParams{ID: "ghost"})
		assert.ErrorIs(t, err, a2a.ErrTaskNotFound)
	})
}

func TestServerTasksCancel(t *testing.T) {
	store := a2a.NewInMemoryTaskStore()
	_, client := newTestServer(t, echoExecutor{}, WithStore(store))

	t.Run("working task cancels", func(t *testing.T) {
		require.NoError(t, store.SaveTask(context.Background(), a2a.Task{
			ID:        "t-working",
			ContextID: "c1",
			Status:    a2a.TaskStatus{State: a2a.TaskWorking, Timestamp: time.Now().UTC()},
		}))

		task, err := client.CancelTask(context.Background(), "t-working")
		require.NoError(t, err)
		assert.Equal(t, a2a.TaskCanceled, task.Status.State)
	})

	t.Run("terminal task is not cancelable", func(t *testing.T) {
		sent, err := client.SendMessage(context.Background(), a2a.MessageSendParams{
			Message: a2a.NewTextMessage("m1", "hi"),
		})
		require.NoError(t, err)

		_, err = client.CancelTask(context.Background(), sent.ID)
		assert.ErrorIs(t, err, a2a.ErrTaskNotCancelable)
	})
}

func TestServerPushNotifications(t *testing.T) {
	received := make(chan a2a.Task, 2)

	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-A2A-Notification-Token"))

		var task a2a.Task
		require.NoError(t, json.NewDecoder(r.Body).Decode(&task))
		received <- task
	}))
	t.Cleanup(hook.Close)

	store := a2a.NewInMemoryTaskStore()
	_, client := newTestServer(t, echoExecutor{}, WithStore(store))

	require.NoError(t, store.SaveTask(context.Background(), a2a.Task{
		ID:        "t1",
		ContextID: "c1",
		Status:    a2a.TaskStatus{State: a2a.TaskWorking, Timestamp: time.Now().UTC()},
	}))

	cfg, err := client.SetPushConfig(context.Background(), a2a.TaskPushNotificationConfig{
		TaskID: "t1",
		Config: a2a.PushNotificationConfig{URL: hook.URL, Token: "secret"},
	})
	require.NoError(t, err)
	assert.Equal(t, hook.URL, cfg.Config.URL)

	_, err = client.CancelTask(context.Background(), "t1")
	require.NoError(t, err)

	select {
	case task := <-received:
		assert.Equal(t, a2a.TaskCanceled, task.Status.State)
	case <-time.After(2 * time.Second):
		t.Fatal("push notification not delivered")
	}
}

func TestServerAgentCard(t *testing.T) {
	ts, client := newTestServer(t, echoExecutor{})

	t.Run("rpc method", func(t *testing.T) {
		card, err := client.AgentCard(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "echo-agent", card.Name)
		assert.True(t, card.Capabilities.Streaming)
	})

	t.Run("well-known document", func(t *testing.T) {
		resp, err := http.Get(ts.URL + WellKnownCardPath)
		require.NoError(t, err)
		defer resp.Body.Close()

		var card a2a.AgentCard
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&card))
		assert.Equal(t, "echo-agent", card.Name)
	})
}

func TestServerMethodNotFound(t *testing.T) {
	ts, _ := newTestServer(t, echoExecutor{})

	req, err := a2a.NewRequest("r1", "bogus/method", nil)
	require.NoError(t, err)
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL, "application/json", strings.NewReader(string(raw)))
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope a2a.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.NotNil(t, envelope.Err)
	assert.ErrorIs(t, envelope.Err, a2a.ErrMethodNotFound)
}

func TestServerParseError(t *testing.T) {
	ts, _ := newTestServer(t, echoExecutor{})

	resp, err := http.Post(ts.URL, "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope a2a.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.NotNil(t, envelope.Err)
	assert.ErrorIs(t, envelope.Err, a2a.ErrParse)
}

func TestServerStreaming(t *testing.T) {
	_, client := newTestServer(t, echoExecutor{})

	events, errs := client.StreamMessage(context.Background(), a2a.MessageSendParams{
		Message: a2a.NewTextMessage("m1", "hello"),
	})

	var collected []a2a.StreamEvent
	for ev := range events {
		collected = append(collected, ev)
	}
	require.NoError(t, <-errs)

	require.Len(t, collected, 2)

	require.NotNil(t, collected[0].Task)
	assert.Equal(t, a2a.TaskWorking, collected[0].Task.Status.State)
	assert.False(t, collected[0].Final)

	require.NotNil(t, collected[1].Task)
	assert.Equal(t, a2a.TaskCompleted, collected[1].Task.Status.State)
	assert.True(t, collected[1].Final)
	assert.Equal(t, "echo: hello", collected[1].Task.History[1].Text())
}

func TestServerAgentExecutor(t *testing.T) {
	executor := llm.NewMockExecutor()
	executor.AddResponse("what is up", "not much")

	a, err := agent.New(executor, llm.MockModel, agent.SingleRunStrategy())
	require.NoError(t, err)

	_, client := newTestServer(t, NewAgentExecutor(a))

	task, err := client.SendMessage(context.Background(), a2a.MessageSendParams{
		Message: a2a.NewTextMessage("m1", "what is up"),
	})
	require.NoError(t, err)

	assert.Equal(t, a2a.TaskCompleted, task.Status.State)
	assert.Equal(t, "not much", task.History[1].Text())
}

func TestServerAgentExecutorFailure(t *testing.T) {
	executor := llm.NewMockExecutor()

	a, err := agent.New(executor, llm.MockModel, agent.SingleRunStrategy(), agent.WithMaxLLMCalls(0))
	require.NoError(t, err)

	_, client := newTestServer(t, NewAgentExecutor(a))

	// A message with no text parts cannot be handed to the agent.
	task, err := client.SendMessage(context.Background(), a2a.MessageSendParams{
		Message: a2a.Message{
			MessageID: "m1",
			Role:      a2a.RoleUser,
			Parts:     []a2a.Part{a2a.DataPart{Data: map[string]any{"x": float64(1)}}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, a2a.TaskFailed, task.Status.State)
	require.NotNil(t, task.Status.Message)
	assert.Contains(t, task.Status.Message.Text(), "no text parts")
}
