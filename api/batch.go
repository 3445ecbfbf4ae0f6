package api

import (
	"context"
	"fmt"

	"cgiclient/internal/batcher"
)

// Batch accumulates calls to any service and sends them on Flush.
// Results come back in the order the server lists its responses.
type Batch struct {
	*batcher.Batch

	User     UserBatch
	Project  ProjectBatch
	Lambda   LambdaBatch
	Policies PoliciesBatch
	Queues   QueuesBatch
}

func wrapBatch(b *batcher.Batch) *Batch {
	return &Batch{
		Batch:    b,
		User:     UserBatch{b: b},
		Project:  ProjectBatch{b: b},
		Lambda:   LambdaBatch{b: b},
		Policies: PoliciesBatch{b: b},
		Queues:   QueuesBatch{b: b},
	}
}

// Do drops stale calls, runs fn and flushes whatever fn enqueued, even if fn failed
func (b *Batch) Do(ctx context.Context, fn func(b *Batch) error) ([]interface{}, error) {
	return b.Batch.Do(ctx, func(*batcher.Batch) error {
		return fn(b)
	})
}

// Decoder turns a raw result into a value; pass one to Batch.Enqueue for
// methods without a typed wrapper
type Decoder = batcher.Decoder

// As decodes a result into T
func As[T any]() Decoder {
	return batcher.As[T]()
}

// Slice decodes a list result into []T. A null result yields an empty slice.
func Slice[T any]() Decoder {
	return batcher.Slice[T]()
}

// Bytes decodes a base64 result. Null and "" yield empty bytes.
func Bytes() Decoder {
	return batcher.Bytes()
}

// Raw keeps the result as json.RawMessage
func Raw() Decoder {
	return batcher.Raw()
}

// Result returns results[i] as T
func Result[T any](results []interface{}, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(results) {
		return zero, fmt.Errorf("result %d out of range (%d results)", i, len(results))
	}
	v, ok := results[i].(T)
	if !ok {
		return zero, fmt.Errorf("result %d is %T, not %T", i, results[i], zero)
	}
	return v, nil
}
