package memory

import (
	"context"
	"fmt"

	"github.com/skein-ai/skein/agent"
	"github.com/skein-ai/skein/llm"
	"github.com/skein-ai/skein/tool"
)

// NewSaveFactTool builds a tool the model can call to remember a fact about
// the subject.
func NewSaveFactTool(store Store, subject string) tool.Tool {
	return tool.NewFunctionTool(
		"memory_save",
		"Saves a fact for later conversations. Use a short concept name and a concise value.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"concept": map[string]any{
					"type":        "string",
					"description": "Short name for what the fact is about, e.g. 'favorite_color'.",
				},
				"value": map[string]any{
					"type":        "string",
					"description": "The fact itself.",
				},
			},
			"required": []string{"concept", "value"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			concept, _ := args["concept"].(string)
			value, _ := args["value"].(string)

			err := store.SaveFact(ctx, Fact{
				Subject: subject,
				Concept: concept,
				Value:   value,
			})
			if err != nil {
				return nil, err
			}

			return fmt.Sprintf("remembered %s", concept), nil
		},
	)
}

// NewRecallTool builds a tool the model can call to list the subject's known
// facts.
func NewRecallTool(store Store, subject string) tool.Tool {
	return tool.NewFunctionTool(
		"memory_recall",
		"Recalls all facts remembered about the current subject.",
		map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			facts, err := store.Facts(ctx, subject)
			if err != nil {
				return nil, err
			}

			if len(facts) == 0 {
				return "no facts remembered yet", nil
			}

			return RenderFacts(facts), nil
		},
	)
}

// LoadFactsNode returns a node that injects the subject's facts into the
// conversation before the model is asked. The node input passes through
// unchanged.
func LoadFactsNode(store Store, subject string) agent.NodeFunc {
	return func(nc *agent.NodeContext, input any) (any, error) {
		facts, err := store.Facts(nc.Context(), subject)
		if err != nil {
			return nil, err
		}

		if len(facts) == 0 {
			return input, nil
		}

		err = nc.LLM().Write(nc.Context(), func(s *agent.WriteSession) error {
			return s.AppendMessages(llm.SystemMessage{
				Content: "Known facts about the subject:\n" + RenderFacts(facts),
			})
		})
		if err != nil {
			return nil, err
		}

		return input, nil
	}
}
