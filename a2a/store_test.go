package a2a

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTaskStores(t *testing.T) map[string]TaskStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]TaskStore{
		"in_memory": NewInMemoryTaskStore(),
		"redis":     NewRedisTaskStore(client),
	}
}

func TestTaskStores(t *testing.T) {
	for name, store := range testTaskStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			task := Task{
				ID:        "t1",
				ContextID: "c1",
				Status:    TaskStatus{State: TaskSubmitted, Timestamp: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)},
				History: []Message{
					NewTextMessage("m1", "hello"),
				},
			}

			t.Run("save and load", func(t *testing.T) {
				require.NoError(t, store.SaveTask(ctx, task))

				loaded, err := store.Task(ctx, "t1")
				require.NoError(t, err)
				assert.Equal(t, task.ID, loaded.ID)
				assert.Equal(t, TaskSubmitted, loaded.Status.State)
				require.Len(t, loaded.History, 1)
				assert.Equal(t, "hello", loaded.History[0].Text())
			})

			t.Run("save replaces", func(t *testing.T) {
				updated := task
				updated.Status.State = TaskCompleted
				require.NoError(t, store.SaveTask(ctx, updated))

				loaded, err := store.Task(ctx, "t1")
				require.NoError(t, err)
				assert.Equal(t, TaskCompleted, loaded.Status.State)
			})

			t.Run("missing task maps to the protocol error", func(t *testing.T) {
				_, err := store.Task(ctx, "ghost")
				assert.ErrorIs(t, err, ErrTaskNotFound)
			})

			t.Run("task without id is rejected", func(t *testing.T) {
				err := store.SaveTask(ctx, Task{})
				assert.ErrorIs(t, err, ErrInvalidParams)
			})

			t.Run("push config requires the task", func(t *testing.T) {
				err := store.SavePushConfig(ctx, TaskPushNotificationConfig{
					TaskID: "ghost",
					Config: PushNotificationConfig{URL: "https://example.com/hook"},
				})
				assert.ErrorIs(t, err, ErrTaskNotFound)
			})

			t.Run("push config round trip", func(t *testing.T) {
				cfg := TaskPushNotificationConfig{
					TaskID: "t1",
					Config: PushNotificationConfig{URL: "https://example.com/hook", Token: "secret"},
				}
				require.NoError(t, store.SavePushConfig(ctx, cfg))

				loaded, ok, err := store.PushConfig(ctx, "t1")
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, cfg.Config, loaded)
			})

			t.Run("absent push config reports false", func(t *testing.T) {
				_, ok, err := store.PushConfig(ctx, "other")
				require.NoError(t, err)
				assert.False(t, ok)
			})
		})
	}
}
