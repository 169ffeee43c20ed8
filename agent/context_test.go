package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skein-ai/skein/internal/rwlock"
	"github.com/skein-ai/skein/llm"
)

func newTestLLMContext(t *testing.T, executor llm.Executor, optFns ...func(o *LLMContextOptions)) *LLMContext {
	t.Helper()

	prompt := llm.NewPrompt("conv", llm.SystemMessage{Content: "You are terse."})

	return NewLLMContext(executor, llm.MockModel, prompt, optFns...)
}

func TestLLMContextSessions(t *testing.T) {
	t.Run("read sees the prompt snapshot", func(t *testing.T) {
		c := newTestLLMContext(t, llm.NewMockExecutor())

		err := c.Read(context.Background(), func(s *ReadSession) error {
			assert.Len(t, s.Prompt().Messages, 1)
			assert.Equal(t, llm.MockModel, s.Model())
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("write mutates the prompt", func(t *testing.T) {
		c := newTestLLMContext(t, llm.NewMockExecutor())

		err := c.Write(context.Background(), func(s *WriteSession) error {
			return s.AppendUserMessage("hello")
		})
		require.NoError(t, err)

		err = c.Read(context.Background(), func(s *ReadSession) error {
			assert.Len(t, s.Prompt().Messages, 2)
			assert.Equal(t, "hello", llm.TextOf(s.Prompt().LastMessage()))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("write inside read is rejected", func(t *testing.T) {
		c := newTestLLMContext(t, llm.NewMockExecutor())

		err := c.Read(context.Background(), func(s *ReadSession) error {
			return c.Write(s.Context(), func(ws *WriteSession) error {
				return nil
			})
		})

		assert.ErrorIs(t, err, rwlock.ErrWriteInRead)
	})

	t.Run("read inside write is allowed", func(t *testing.T) {
		c := newTestLLMContext(t, llm.NewMockExecutor())

		err := c.Write(context.Background(), func(ws *WriteSession) error {
			return c.Read(ws.Context(), func(rs *ReadSession) error {
				assert.Len(t, rs.Prompt().Messages, 1)
				return nil
			})
		})
		require.NoError(t, err)
	})

	t.Run("session is invalid after its scope", func(t *testing.T) {
		c := newTestLLMContext(t, llm.NewMockExecutor())

		var leaked *WriteSession
		err := c.Write(context.Background(), func(s *WriteSession) error {
			leaked = s
			return nil
		})
		require.NoError(t, err)

		assert.ErrorIs(t, leaked.AppendUserMessage("late"), ErrSessionClosed)
		assert.ErrorIs(t, leaked.SetModel(llm.MockModel), ErrSessionClosed)

		_, err = leaked.RequestLLM()
		assert.ErrorIs(t, err, ErrSessionClosed)
	})
}

func TestWriteSessionRequestLLM(t *testing.T) {
	t.Run("reply is appended to the prompt", func(t *testing.T) {
		executor := llm.NewMockExecutor()
		executor.AddResponse("hello", "hi there")

		c := newTestLLMContext(t, executor)

		err := c.Write(context.Background(), func(s *WriteSession) error {
			require.NoError(t, s.AppendUserMessage("hello"))

			replies, err := s.RequestLLM()
			require.NoError(t, err)
			require.Len(t, replies, 1)
			assert.Equal(t, "hi there", llm.TextOf(replies[0]))

			return nil
		})
		require.NoError(t, err)

		err = c.Read(context.Background(), func(s *ReadSession) error {
			assert.Len(t, s.Prompt().Messages, 3)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("call limit is enforced", func(t *testing.T) {
		c := newTestLLMContext(t, llm.NewMockExecutor(), func(o *LLMContextOptions) {
			o.MaxLLMCalls = 1
		})

		err := c.Write(context.Background(), func(s *WriteSession) error {
			require.NoError(t, s.AppendUserMessage("one"))
			if _, err := s.RequestLLM(); err != nil {
				return err
			}

			_, err := s.RequestLLM()
			return err
		})

		assert.ErrorContains(t, err, "exceeded max operations")
	})

	t.Run("llm call events are emitted", func(t *testing.T) {
		pipeline := NewPipeline()

		var phases []string
		pipeline.Install(featureFunc{
			name: "recorder",
			install: func(i *Interceptors) {
				i.InterceptLLMCallStarting(func(ctx context.Context, ev LLMCallStartingEvent) error {
					phases = append(phases, "starting")
					return nil
				})
				i.InterceptLLMCallCompleted(func(ctx context.Context, ev LLMCallCompletedEvent) error {
					phases = append(phases, "completed")
					return nil
				})
			},
		})

		c := newTestLLMContext(t, llm.NewMockExecutor(), func(o *LLMContextOptions) {
			o.Pipeline = pipeline
		})

		err := c.Write(context.Background(), func(s *WriteSession) error {
			require.NoError(t, s.AppendUserMessage("ping"))
			_, err := s.RequestLLM()
			return err
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"starting", "completed"}, phases)
	})
}

func TestWriteSessionCompressHistory(t *testing.T) {
	executor := llm.NewMockExecutor()
	executor.AddResponse("one", "first answer")
	executor.AddResponse("two", "second answer")

	c := newTestLLMContext(t, executor)

	err := c.Write(context.Background(), func(s *WriteSession) error {
		require.NoError(t, s.AppendUserMessage("one"))
		_, err := s.RequestLLM()
		require.NoError(t, err)

		require.NoError(t, s.AppendUserMessage("two"))
		_, err = s.RequestLLM()
		require.NoError(t, err)

		return s.CompressHistory()
	})
	require.NoError(t, err)

	err = c.Read(context.Background(), func(s *ReadSession) error {
		messages := s.Prompt().Messages

		// System instruction plus one summary message.
		require.Len(t, messages, 2)
		assert.Equal(t, llm.RoleSystem, messages[0].Role())
		assert.Equal(t, llm.RoleUser, messages[1].Role())
		assert.Contains(t, llm.TextOf(messages[1]), "Summary of the conversation")

		return nil
	})
	require.NoError(t, err)
}

func TestWriteSessionRewritePrompt(t *testing.T) {
	c := newTestLLMContext(t, llm.NewMockExecutor())

	err := c.Write(context.Background(), func(s *WriteSession) error {
		return s.RewritePrompt(func(p llm.Prompt) llm.Prompt {
			return p.WithMessages(func(messages []llm.Message) []llm.Message {
				return append(messages, llm.UserMessage{Content: "rewritten"})
			})
		})
	})
	require.NoError(t, err)

	err = c.Read(context.Background(), func(s *ReadSession) error {
		assert.Equal(t, "rewritten", llm.TextOf(s.Prompt().LastMessage()))
		return nil
	})
	require.NoError(t, err)
}
