// Package memory gives agents a fact store that survives individual runs.
// Facts are keyed by subject (typically the user or the agent id) and
// concept; the package ships tools the model can call to save and recall
// facts, plus a node that preloads a subject's facts into the conversation.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Fact is one remembered statement about a subject.
type Fact struct {
	// Subject groups facts, e.g. a user id.
	Subject string `json:"subject"`
	// Concept names what the fact is about, unique per subject.
	Concept string `json:"concept"`
	// Value is the fact body.
	Value string `json:"value"`
	// CreatedAt records when the fact was last written.
	CreatedAt time.Time `json:"created_at"`
}

// Store persists facts. Writing an existing subject/concept pair replaces the
// previous value.
type Store interface {
	// SaveFact writes or replaces a fact.
	SaveFact(ctx context.Context, fact Fact) error

	// Facts returns a subject's facts ordered oldest first.
	Facts(ctx context.Context, subject string) ([]Fact, error)

	// Clear removes all facts for a subject.
	Clear(ctx context.Context, subject string) error
}

// InMemoryStore keeps facts in process memory. Safe for concurrent use.
type InMemoryStore struct {
	mu    sync.RWMutex
	facts map[string]map[string]Fact
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{facts: make(map[string]map[string]Fact)}
}

// SaveFact implements Store.
func (s *InMemoryStore) SaveFact(ctx context.Context, fact Fact) error {
	if fact.Subject == "" || fact.Concept == "" {
		return fmt.Errorf("memory: fact needs a subject and a concept")
	}

	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.facts[fact.Subject] == nil {
		s.facts[fact.Subject] = make(map[string]Fact)
	}
	s.facts[fact.Subject][fact.Concept] = fact

	return nil
}

// Facts implements Store.
func (s *InMemoryStore) Facts(ctx context.Context, subject string) ([]Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Fact, 0, len(s.facts[subject]))
	for _, f := range s.facts[subject] {
		out = append(out, f)
	}

	sortFacts(out)

	return out, nil
}

// Clear implements Store.
func (s *InMemoryStore) Clear(ctx context.Context, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.facts, subject)

	return nil
}

// sortFacts orders oldest first, with the concept as tiebreaker so equal
// timestamps still give a stable order.
func sortFacts(facts []Fact) {
	sort.SliceStable(facts, func(i, j int) bool {
		if facts[i].CreatedAt.Equal(facts[j].CreatedAt) {
			return facts[i].Concept < facts[j].Concept
		}
		return facts[i].CreatedAt.Before(facts[j].CreatedAt)
	})
}

// RenderFacts formats facts as a bullet list for prompt injection.
func RenderFacts(facts []Fact) string {
	var b strings.Builder
	for _, f := range facts {
		fmt.Fprintf(&b, "- %s: %s\n", f.Concept, f.Value)
	}

	return strings.TrimRight(b.String(), "\n")
}
