package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skein-ai/skein/agent"
	"github.com/skein-ai/skein/llm"
	"github.com/skein-ai/skein/tool"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Store{
		"in_memory": NewInMemoryStore(),
		"redis":     NewRedisStore(client),
	}
}

func TestStores(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("save and list", func(t *testing.T) {
				base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

				require.NoError(t, store.SaveFact(ctx, Fact{
					Subject: "user-1", Concept: "name", Value: "Ada", CreatedAt: base,
				}))
				require.NoError(t, store.SaveFact(ctx, Fact{
					Subject: "user-1", Concept: "language", Value: "Go", CreatedAt: base.Add(time.Minute),
				}))

				facts, err := store.Facts(ctx, "user-1")
				require.NoError(t, err)
				require.Len(t, facts, 2)
				assert.Equal(t, "name", facts[0].Concept)
				assert.Equal(t, "language", facts[1].Concept)
			})

			t.Run("same concept replaces", func(t *testing.T) {
				require.NoError(t, store.SaveFact(ctx, Fact{
					Subject: "user-1", Concept: "language", Value: "Rust",
				}))

				facts, err := store.Facts(ctx, "user-1")
				require.NoError(t, err)
				require.Len(t, facts, 2)

				var value string
				for _, f := range facts {
					if f.Concept == "language" {
						value = f.Value
					}
				}
				assert.Equal(t, "Rust", value)
			})

			t.Run("subjects are isolated", func(t *testing.T) {
				facts, err := store.Facts(ctx, "user-2")
				require.NoError(t, err)
				assert.Empty(t, facts)
			})

			t.Run("missing subject or concept is rejected", func(t *testing.T) {
				assert.Error(t, store.SaveFact(ctx, Fact{Concept: "x", Value: "y"}))
				assert.Error(t, store.SaveFact(ctx, Fact{Subject: "s", Value: "y"}))
			})

			t.Run("clear removes the subject", func(t *testing.T) {
				require.NoError(t, store.Clear(ctx, "user-1"))

				facts, err := store.Facts(ctx, "user-1")
				require.NoError(t, err)
				assert.Empty(t, facts)
			})
		})
	}
}

func TestMemoryTools(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	save := NewSaveFactTool(store, "user-1")
	recall := NewRecallTool(store, "user-1")

	t.Run("save writes a fact", func(t *testing.T) {
		out, err := save.Call(ctx, map[string]any{"concept": "pet", "value": "a cat named Mu"})
		require.NoError(t, err)
		assert.Equal(t, "remembered pet", out)

		facts, err := store.Facts(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, facts, 1)
		assert.Equal(t, "a cat named Mu", facts[0].Value)
	})

	t.Run("recall renders the facts", func(t *testing.T) {
		out, err := recall.Call(ctx, map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "- pet: a cat named Mu", out)
	})

	t.Run("recall with no facts says so", func(t *testing.T) {
		empty := NewRecallTool(store, "user-9")

		out, err := empty.Call(ctx, map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "no facts remembered yet", out)
	})

	t.Run("save validates required arguments", func(t *testing.T) {
		_, err := save.Call(ctx, map[string]any{"concept": "x"})

		var toolErr *tool.ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.True(t, toolErr.IsValidation())
	})
}

func TestLoadFactsNode(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.SaveFact(context.Background(), Fact{
		Subject: "user-1", Concept: "style", Value: "short answers",
	}))

	executor := llm.NewMockExecutor()
	executor.AddResponse("hi", "hello")

	strategy := agent.NewStrategy("with_memory").
		Node("load", LoadFactsNode(store, "user-1")).
		Node("request", agent.RequestLLMNode).
		Edge(agent.StartNode, "load").
		Edge("load", "request").
		Edge("request", agent.FinishNode, agent.WithTransform(agent.ExtractText)).
		MustBuild()

	a, err := agent.New(executor, llm.MockModel, strategy)
	require.NoError(t, err)

	out, err := a.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	err = a.LLM().Read(context.Background(), func(s *agent.ReadSession) error {
		assert.Contains(t, s.Prompt().System(), "short answers")
		return nil
	})
	require.NoError(t, err)
}
