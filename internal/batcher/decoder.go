package batcher

import (
	"bytes"
	"encoding/json"
)

// Raw returns the result payload untouched
func Raw() Decoder {
	return func(raw json.RawMessage) (interface{}, error) {
		return raw, nil
	}
}

// As decodes the result into a value of type T
func As[T any]() Decoder {
	return func(raw json.RawMessage) (interface{}, error) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Slice decodes a JSON array into []T. A null result yields an empty slice.
func Slice[T any]() Decoder {
	return func(raw json.RawMessage) (interface{}, error) {
		v := []T{}
		if isNull(raw) {
			return v, nil
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		if v == nil {
			v = []T{}
		}
		return v, nil
	}
}

// Bytes decodes a base64 string into raw bytes. Null and "" yield empty bytes.
func Bytes() Decoder {
	return func(raw json.RawMessage) (interface{}, error) {
		v := []byte{}
		if isNull(raw) {
			return v, nil
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		if v == nil {
			v = []byte{}
		}
		return v, nil
	}
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
