package batcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cgiclient/internal/jsonrpc"
)

// DefaultSize is the number of envelopes posted per HTTP request
const DefaultSize = 10

// reservedID is taken at construction and never sent
const reservedID int64 = 1

// Protocol faults
var (
	ErrUnknownResponseID = errors.New("response id does not match any pending call")
	ErrMissingResponse   = errors.New("no response for pending call")
	ErrMalformedResponse = errors.New("malformed response")
)

// Executor posts one group of envelopes and returns the parsed reply array
type Executor interface {
	ExecuteBatch(ctx context.Context, requests []*jsonrpc.Request) ([]*jsonrpc.Response, error)
}

// Decoder converts the raw JSON result of one call into a typed value
type Decoder func(raw json.RawMessage) (interface{}, error)

// Call is a single logical RPC waiting to be flushed
type Call struct {
	ID     int64
	Method string
	Params []interface{}
	Decode Decoder
}

// State of a Batch
type State int

const (
	StateIdle State = iota
	StateAccumulating
	StateFlushing
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	case StateFlushing:
		return "flushing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CallError is a remote application error, attributed to the call whose id
// matched the error response
type CallError struct {
	Method  string
	ID      int64
	Code    int
	Message string
	Data    json.RawMessage
}

// NewCallError wraps the error object of a response for the given call
func NewCallError(method string, id int64, rpcErr *jsonrpc.Error) *CallError {
	return &CallError{
		Method:  method,
		ID:      id,
		Code:    rpcErr.Code,
		Message: rpcErr.Message,
		Data:    rpcErr.Data,
	}
}

// Error implements the error interface
func (e *CallError) Error() string {
	if len(e.Data) > 0 && string(e.Data) != "null" {
		return fmt.Sprintf("%s: %d: %s - %s", e.Method, e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("%s: %d: %s", e.Method, e.Code, e.Message)
}

// Unwrap exposes the underlying JSON-RPC error object
func (e *CallError) Unwrap() error {
	return &jsonrpc.Error{Code: e.Code, Message: e.Message, Data: e.Data}
}

// DataAs unmarshals the auxiliary error data into v
func (e *CallError) DataAs(v interface{}) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// IsCallError reports whether err is a remote error, optionally with the given code.
// A zero code matches any remote error.
func IsCallError(err error, code int) bool {
	var ce *CallError
	if !errors.As(err, &ce) {
		return false
	}
	return code == 0 || ce.Code == code
}
