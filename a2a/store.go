package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TaskStore persists tasks and their push notification configs.
type TaskStore interface {
	// SaveTask writes or replaces a task.
	SaveTask(ctx context.Context, task Task) error

	// Task loads a task by id; the error is ErrTaskNotFound for unknown ids.
	Task(ctx context.Context, id string) (Task, error)

	// SavePushConfig binds a push notification config to a task.
	SavePushConfig(ctx context.Context, cfg TaskPushNotificationConfig) error

	// PushConfig loads a task's push config, reporting presence separately.
	PushConfig(ctx context.Context, taskID string) (PushNotificationConfig, bool, error)
}

// InMemoryTaskStore keeps tasks in process memory. Safe for concurrent use.
type InMemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]Task
	push  map[string]PushNotificationConfig
}

// NewInMemoryTaskStore creates an empty store.
func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		tasks: make(map[string]Task),
		push:  make(map[string]PushNotificationConfig),
	}
}

// SaveTask implements TaskStore.
func (s *InMemoryTaskStore) SaveTask(ctx context.Context, task Task) error {
	if task.ID == "" {
		return Errorf(CodeInvalidParams, "task has no id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[task.ID] = task

	return nil
}

// Task implements TaskStore.
func (s *InMemoryTaskStore) Task(ctx context.Context, id string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return Task{}, Errorf(CodeTaskNotFound, "task %s not found", id)
	}

	return task, nil
}

// SavePushConfig implements TaskStore.
func (s *InMemoryTaskStore) SavePushConfig(ctx context.Context, cfg TaskPushNotificationConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[cfg.TaskID]; !ok {
		return Errorf(CodeTaskNotFound, "task %s not found", cfg.TaskID)
	}

	s.push[cfg.TaskID] = cfg.Config

	return nil
}

// PushConfig implements TaskStore.
func (s *InMemoryTaskStore) PushConfig(ctx context.Context, taskID string) (PushNotificationConfig, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.push[taskID]

	return cfg, ok, nil
}

// RedisTaskStoreOptions configure NewRedisTaskStore.
type RedisTaskStoreOptions struct {
	// KeyPrefix namespaces the task keys.
	KeyPrefix string
	// TTL expires tasks after inactivity; 0 keeps them forever.
	TTL time.Duration
}

// RedisTaskStore persists tasks as JSON values in Redis, one key per task.
type RedisTaskStore struct {
	client redis.UniversalClient
	opts   RedisTaskStoreOptions
}

// NewRedisTaskStore creates a store over an existing Redis client.
func NewRedisTaskStore(client redis.UniversalClient, optFns ...func(o *RedisTaskStoreOptions)) *RedisTaskStore {
	opts := RedisTaskStoreOptions{KeyPrefix: "skein:a2a:"}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "skein:a2a:"
	}

	return &RedisTaskStore{client: client, opts: opts}
}

func (s *RedisTaskStore) taskKey(id string) string { return s.opts.KeyPrefix + "task:" + id }
func (s *RedisTaskStore) pushKey(id string) string { return s.opts.KeyPrefix + "push:" + id }

// SaveTask implements TaskStore.
func (s *RedisTaskStore) SaveTask(ctx context.Context, task Task) error {
	if task.ID == "" {
		return Errorf(CodeInvalidParams, "task has no id")
	}

	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("a2a: encode task: %w", err)
	}

	if err := s.client.Set(ctx, s.taskKey(task.ID), raw, s.opts.TTL).Err(); err != nil {
		return fmt.Errorf("a2a: save task: %w", err)
	}

	return nil
}

// Task implements TaskStore.
func (s *RedisTaskStore) Task(ctx context.Context, id string) (Task, error) {
	raw, err := s.client.Get(ctx, s.taskKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Task{}, Errorf(CodeTaskNotFound, "task %s not found", id)
	}
	if err != nil {
		return Task{}, fmt.Errorf("a2a: load task: %w", err)
	}

	var task Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return Task{}, fmt.Errorf("a2a: decode task: %w", err)
	}

	return task, nil
}

// SavePushConfig implements TaskStore.
func (s *RedisTaskStore) SavePushConfig(ctx context.Context, cfg TaskPushNotificationConfig) error {
	if _, err := s.Task(ctx, cfg.TaskID); err != nil {
		return err
	}

	raw, err := json.Marshal(cfg.Config)
	if err != nil {
		return fmt.Errorf("a2a: encode push config: %w", err)
	}

	if err := s.client.Set(ctx, s.pushKey(cfg.TaskID), raw, s.opts.TTL).Err(); err != nil {
		return fmt.Errorf("a2a: save push config: %w", err)
	}

	return nil
}

// PushConfig implements TaskStore.
func (s *RedisTaskStore) PushConfig(ctx context.Context, taskID string) (PushNotificationConfig, bool, error) {
	raw, err := s.client.Get(ctx, s.pushKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return PushNotificationConfig{}, false, nil
	}
	if err != nil {
		return PushNotificationConfig{}, false, fmt.Errorf("a2a: load push config: %w", err)
	}

	var cfg PushNotificationConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return PushNotificationConfig{}, false, fmt.Errorf("a2a: decode push config: %w", err)
	}

	return cfg, true, nil
}
