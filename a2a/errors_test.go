package a2a

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	cases := []struct {
		sentinel *Error
		code     int
	}{
		{ErrParse, -32700},
		{ErrInvalidRequest, -32600},
		{ErrMethodNotFound, -32601},
		{ErrInvalidParams, -32602},
		{ErrInternal, -32603},
		{ErrTaskNotFound, -32001},
		{ErrTaskNotCancelable, -32002},
		{ErrPushUnsupported, -32003},
		{ErrUnsupportedOp, -32004},
		{ErrContentType, -32005},
		{ErrInvalidResponse, -32006},
		{ErrExtendedCard, -32007},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.sentinel.Code)
		assert.NotEmpty(t, tc.sentinel.Message)
	}
}

func TestErrorRoundTrip(t *testing.T) {
	sentinels := []*Error{
		ErrParse, ErrInvalidRequest, ErrMethodNotFound, ErrInvalidParams,
		ErrInternal, ErrTaskNotFound, ErrTaskNotCancelable, ErrPushUnsupported,
		ErrUnsupportedOp, ErrContentType, ErrInvalidResponse, ErrExtendedCard,
	}

	for _, sentinel := range sentinels {
		resp := NewErrorResponse(nil, Errorf(sentinel.Code, "context: %s", "details"))

		raw, err := json.Marshal(resp)
		require.NoError(t, err)

		var decoded Response
		require.NoError(t, json.Unmarshal(raw, &decoded))
		require.NotNil(t, decoded.Err)

		assert.Equal(t, sentinel.Code, decoded.Err.Code)
		assert.ErrorIs(t, decoded.Err, sentinel)
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := Errorf(CodeTaskNotFound, "task abc not found")

	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.NotErrorIs(t, err, ErrTaskNotCancelable)
	assert.NotErrorIs(t, err, errors.New("task abc not found"))
}

func TestAsError(t *testing.T) {
	t.Run("protocol errors pass through", func(t *testing.T) {
		assert.Same(t, ErrTaskNotFound, AsError(ErrTaskNotFound))
	})

	t.Run("plain errors wrap as internal", func(t *testing.T) {
		wrapped := AsError(errors.New("boom"))
		assert.Equal(t, CodeInternalError, wrapped.Code)
		assert.Equal(t, "boom", wrapped.Message)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, AsError(nil))
	})
}
