package a2a

import (
	"encoding/json"
)

// Version is the JSON-RPC protocol version carried in every envelope.
const Version = "2.0"

// Request is the JSON-RPC request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NewRequest builds a request with a string id and marshaled params.
func NewRequest(id, method string, params any) (Request, error) {
	rawID, err := json.Marshal(id)
	if err != nil {
		return Request{}, err
	}

	var rawParams json.RawMessage
	if params != nil {
		rawParams, err = json.Marshal(params)
		if err != nil {
			return Request{}, err
		}
	}

	return Request{
		JSONRPC: Version,
		ID:      rawID,
		Method:  method,
		Params:  rawParams,
	}, nil
}

// Valid reports whether the envelope is a well-formed JSON-RPC 2.0 request.
func (r Request) Valid() bool {
	return r.JSONRPC == Version && r.Method != ""
}

// Response is the JSON-RPC response envelope. Exactly one of Result and Err
// is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Err     *Error          `json:"error,omitempty"`
}

// NewResponse builds a success response with a marshaled result.
func NewResponse(id json.RawMessage, result any) (Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{}, err
	}

	return Response{JSONRPC: Version, ID: id, Result: raw}, nil
}

// NewErrorResponse builds an error response.
func NewErrorResponse(id json.RawMessage, err error) Response {
	return Response{JSONRPC: Version, ID: id, Err: AsError(err)}
}

// DecodeResult unmarshals the result payload into v, or returns the carried
// protocol error.
func (r Response) DecodeResult(v any) error {
	if r.Err != nil {
		return r.Err
	}

	return json.Unmarshal(r.Result, v)
}
