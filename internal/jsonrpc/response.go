package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotBatch is returned by ParseBatchResponse when the payload is a single
// object instead of an array
var ErrNotBatch = errors.New("response is not a batch")

// Response represents a JSON-RPC response
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      ID              `json:"id"`
}

// HasError returns true if the response contains an error
func (r *Response) HasError() bool {
	return r.Error != nil
}

// Validate checks the structural shape of a response envelope:
// it needs an ID and exactly one of result or error.
func (r *Response) Validate() error {
	if r.ID.IsNull() {
		return fmt.Errorf("response id is missing")
	}
	if r.Error == nil && r.Result == nil {
		return fmt.Errorf("response %s carries neither result nor error", r.ID)
	}
	if r.Error != nil && r.Result != nil && !bytes.Equal(r.Result, []byte("null")) {
		return fmt.Errorf("response %s carries both result and error", r.ID)
	}
	return nil
}

// DecodeResponse splits a response into its success payload or its error.
// Exactly one of the returned values is non-nil.
func DecodeResponse(r *Response) (json.RawMessage, *Error) {
	if r.Error != nil {
		return nil, r.Error
	}
	if r.Result == nil {
		return json.RawMessage("null"), nil
	}
	return r.Result, nil
}

// NewResponse creates a successful response
func NewResponse(id ID, result interface{}) (*Response, error) {
	resp := &Response{
		JSONRPC: Version,
		ID:      id,
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	resp.Result = resultBytes

	return resp, nil
}

// NewResponseRaw creates a response with raw JSON result
func NewResponseRaw(id ID, result json.RawMessage) *Response {
	return &Response{
		JSONRPC: Version,
		Result:  result,
		ID:      id,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(id ID, err *Error) *Response {
	return &Response{
		JSONRPC: Version,
		Error:   err,
		ID:      id,
	}
}

// ParseResponse parses a JSON-RPC response from bytes
func ParseResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ParseBatchResponse parses a batch of JSON-RPC responses.
// A single object is still parsed and returned, together with ErrNotBatch,
// so callers can surface the server's error (servers answer an unparseable
// batch with one error object).
func ParseBatchResponse(data []byte) ([]*Response, error) {
	data = bytes.TrimLeft(data, " \t\r\n")
	if len(data) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	if data[0] == '[' {
		var responses []*Response
		if err := json.Unmarshal(data, &responses); err != nil {
			return nil, err
		}
		return responses, nil
	}

	resp, err := ParseResponse(data)
	if err != nil {
		return nil, err
	}
	return []*Response{resp}, ErrNotBatch
}

// Bytes returns the response as JSON bytes
func (r *Response) Bytes() ([]byte, error) {
	return json.Marshal(r)
}
