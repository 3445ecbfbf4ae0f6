package rpcclient

import (
	"context"
	"fmt"

	"cgiclient/internal/batcher"
)

// Method describes one remote method and how its result is decoded
type Method[T any] struct {
	Name   string
	Decode batcher.Decoder
}

// NewMethod declares a method whose result decodes into T
func NewMethod[T any](name string) Method[T] {
	return Method[T]{Name: name, Decode: batcher.As[T]()}
}

// SliceMethod declares a method returning a list. A null result yields an empty slice.
func SliceMethod[T any](name string) Method[[]T] {
	return Method[[]T]{Name: name, Decode: batcher.Slice[T]()}
}

// BytesMethod declares a method returning base64 encoded binary content
func BytesMethod(name string) Method[[]byte] {
	return Method[[]byte]{Name: name, Decode: batcher.Bytes()}
}

// Call invokes the method as a single request
func (m Method[T]) Call(ctx context.Context, c *Client, params ...interface{}) (T, error) {
	var zero T
	v, err := c.Call(ctx, m.Name, params, m.Decode)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("decode %s result: unexpected type %T", m.Name, v)
	}
	return out, nil
}

// Enqueue adds the method to a batch and returns the call id
func (m Method[T]) Enqueue(b *batcher.Batch, params ...interface{}) int64 {
	return b.Enqueue(m.Name, params, m.Decode)
}
