package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skein-ai/skein/llm"
)

// Checkpoint captures the state needed to resume a run at a node boundary:
// the prompt as of that moment plus the value about to enter the node.
type Checkpoint struct {
	// ID uniquely identifies the checkpoint.
	ID string `json:"id"`
	// AgentID is the run owner.
	AgentID string `json:"agent_id"`
	// CreatedAt records when the checkpoint was taken.
	CreatedAt time.Time `json:"created_at"`
	// Node is the node the run was about to execute.
	Node string `json:"node"`
	// Prompt is the conversation snapshot.
	Prompt llm.Prompt `json:"prompt"`
	// Input is the value entering the node.
	Input any `json:"input"`
}

// CheckpointStore persists checkpoints per agent.
type CheckpointStore interface {
	// Save persists a checkpoint.
	Save(ctx context.Context, cp Checkpoint) error

	// Latest returns the most recent checkpoint for an agent, or false when
	// none exists.
	Latest(ctx context.Context, agentID string) (Checkpoint, bool, error)

	// List returns all checkpoints for an agent ordered oldest first.
	List(ctx context.Context, agentID string) ([]Checkpoint, error)

	// Clear removes all checkpoints for an agent.
	Clear(ctx context.Context, agentID string) error
}

// InMemoryCheckpointStore keeps checkpoints in process memory. Safe for
// concurrent use.
type InMemoryCheckpointStore struct {
	mu          sync.RWMutex
	checkpoints map[string][]Checkpoint
}

// NewInMemoryCheckpointStore creates an empty store.
func NewInMemoryCheckpointStore() *InMemoryCheckpointStore {
	return &InMemoryCheckpointStore{checkpoints: make(map[string][]Checkpoint)}
}

// Save implements CheckpointStore.
func (s *InMemoryCheckpointStore) Save(ctx context.Context, cp Checkpoint) error {
	if cp.AgentID == "" {
		return fmt.Errorf("checkpoint has no agent id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkpoints[cp.AgentID] = append(s.checkpoints[cp.AgentID], cp)

	return nil
}

// Latest implements CheckpointStore.
func (s *InMemoryCheckpointStore) Latest(ctx context.Context, agentID string) (Checkpoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.checkpoints[agentID]
	if len(list) == 0 {
		return Checkpoint{}, false, nil
	}

	return list[len(list)-1], true, nil
}

// List implements CheckpointStore.
func (s *InMemoryCheckpointStore) List(ctx context.Context, agentID string) ([]Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.checkpoints[agentID]
	out := make([]Checkpoint, len(list))
	copy(out, list)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

// Clear implements CheckpointStore.
func (s *InMemoryCheckpointStore) Clear(ctx context.Context, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.checkpoints, agentID)

	return nil
}

// newCheckpoint snapshots the state entering a node.
func newCheckpoint(agentID, node string, prompt llm.Prompt, input any) Checkpoint {
	return Checkpoint{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		CreatedAt: time.Now().UTC(),
		Node:      node,
		Prompt:    prompt,
		Input:     input,
	}
}
