package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Request is an outgoing call envelope with positional params
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	ID      ID              `json:"id"`
	Params  json.RawMessage `json:"params"`
}

// EncodeRequest builds a request envelope for a positional-params call.
// A nil params list is sent as an empty array. Params are marshalled here,
// so an unserializable value fails now rather than on the wire.
func EncodeRequest(method string, id int64, params []interface{}) (*Request, error) {
	if params == nil {
		params = []interface{}{}
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}

	return &Request{
		JSONRPC: Version,
		Method:  method,
		ID:      NewIDInt(id),
		Params:  raw,
	}, nil
}

// Bytes returns the request as JSON bytes
func (r *Request) Bytes() ([]byte, error) {
	return json.Marshal(r)
}

// MarshalBatchRequest marshals multiple requests as a JSON array
func MarshalBatchRequest(requests []*Request) ([]byte, error) {
	return json.Marshal(requests)
}
