package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchArgs struct {
	Query string `json:"query" description:"Search query"`
	Limit *int   `json:"limit,omitempty" description:"Max results"`
	Lang  string `json:"lang,omitempty" enum:"en,de,fr"`
}

func TestFromStruct(t *testing.T) {
	sch := FromStruct(searchArgs{})

	assert.Equal(t, "object", sch["type"])

	props, ok := sch["properties"].(map[string]any)
	require.True(t, ok)

	query, ok := props["query"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, "Search query", query["description"])

	limit, ok := props["limit"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "integer", limit["type"])

	lang, ok := props["lang"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"en", "de", "fr"}, lang["enum"])

	assert.Equal(t, []string{"query"}, sch["required"])
}

func TestFromStruct_NonStruct(t *testing.T) {
	sch := FromStruct(42)
	assert.Equal(t, "object", sch["type"])
	assert.Empty(t, sch["properties"])
}

func TestValidate(t *testing.T) {
	sch := FromStruct(searchArgs{})

	t.Run("valid", func(t *testing.T) {
		err := Validate(map[string]any{"query": "golang", "limit": float64(3)}, sch)
		assert.NoError(t, err)
	})

	t.Run("missing required", func(t *testing.T) {
		err := Validate(map[string]any{"limit": float64(3)}, sch)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "query", verr.Field)
	})

	t.Run("wrong type", func(t *testing.T) {
		err := Validate(map[string]any{"query": 7}, sch)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "query", verr.Field)
	})

	t.Run("non-integral number for integer", func(t *testing.T) {
		err := Validate(map[string]any{"query": "x", "limit": 1.5}, sch)
		assert.Error(t, err)
	})

	t.Run("enum violation", func(t *testing.T) {
		err := Validate(map[string]any{"query": "x", "lang": "es"}, sch)
		assert.Error(t, err)
	})

	t.Run("extra fields allowed", func(t *testing.T) {
		err := Validate(map[string]any{"query": "x", "unknown": true}, sch)
		assert.NoError(t, err)
	})
}
