package batcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"cgiclient/internal/jsonrpc"
)

// Batch accumulates calls and flushes them as size-bounded JSON-RPC batches
type Batch struct {
	executor Executor
	size     int
	lastID   int64
	calls    []*Call
	flushing bool
	logger   zerolog.Logger
}

// New creates a batch over the executor. A size below 1 falls back to DefaultSize.
func New(executor Executor, size int, logger zerolog.Logger) *Batch {
	if size < 1 {
		size = DefaultSize
	}
	return &Batch{
		executor: executor,
		size:     size,
		lastID:   reservedID,
		logger:   logger.With().Str("component", "batcher").Logger(),
	}
}

// Size returns the maximum number of envelopes per HTTP request
func (b *Batch) Size() int {
	return b.size
}

// Len returns the number of pending calls
func (b *Batch) Len() int {
	return len(b.calls)
}

// State returns the current state of the batch
func (b *Batch) State() State {
	switch {
	case b.flushing:
		return StateFlushing
	case len(b.calls) > 0:
		return StateAccumulating
	default:
		return StateIdle
	}
}

// Calls returns a copy of the pending calls in enqueue order
func (b *Batch) Calls() []Call {
	out := make([]Call, len(b.calls))
	for i, c := range b.calls {
		out[i] = *c
	}
	return out
}

// Enqueue adds a call and returns its id. It performs no I/O and no validation;
// params are serialized at flush time.
func (b *Batch) Enqueue(method string, params []interface{}, decode Decoder) int64 {
	if decode == nil {
		decode = Raw()
	}
	b.lastID++
	b.calls = append(b.calls, &Call{
		ID:     b.lastID,
		Method: method,
		Params: params,
		Decode: decode,
	})
	return b.lastID
}

// Reset drops pending calls without sending them. The id sequence continues.
func (b *Batch) Reset() {
	b.calls = nil
	b.flushing = false
}

// Flush sends every pending call and returns the decoded results.
//
// Groups are posted sequentially. Within a group, results are appended in the
// order the server lists the responses, which may differ from enqueue order.
// Any error aborts the flush and discards all results, including those of
// groups that were already sent. Pending state is cleared either way.
func (b *Batch) Flush(ctx context.Context) ([]interface{}, error) {
	calls := b.calls
	b.flushing = true
	defer b.Reset()

	results := make([]interface{}, 0, len(calls))
	for offset := 0; offset < len(calls); offset += b.size {
		end := offset + b.size
		if end > len(calls) {
			end = len(calls)
		}

		out, err := b.flushGroup(ctx, calls[offset:end])
		if err != nil {
			return nil, err
		}
		results = append(results, out...)
	}

	return results, nil
}

// Do runs fn inside a batch scope: stale pending calls are dropped first and
// everything fn enqueued is flushed when fn returns, whether or not it failed.
// When both fn and the flush fail, the returned error joins both.
// If fn panics, the calls it enqueued are flushed before the panic resumes.
func (b *Batch) Do(ctx context.Context, fn func(b *Batch) error) ([]interface{}, error) {
	b.Reset()

	defer func() {
		if r := recover(); r != nil {
			if _, err := b.Flush(ctx); err != nil {
				b.logger.Error().Err(err).Msg("flush after panic failed")
			}
			panic(r)
		}
	}()

	fnErr := fn(b)
	results, flushErr := b.Flush(ctx)

	switch {
	case fnErr != nil && flushErr != nil:
		return nil, errors.Join(fnErr, flushErr)
	case fnErr != nil:
		return results, fnErr
	case flushErr != nil:
		return nil, flushErr
	}
	return results, nil
}

// flushGroup posts one group and correlates its responses
func (b *Batch) flushGroup(ctx context.Context, group []*Call) ([]interface{}, error) {
	requests := make([]*jsonrpc.Request, len(group))
	waiting := make(map[int64]*Call, len(group))
	for i, call := range group {
		req, err := jsonrpc.EncodeRequest(call.Method, call.ID, call.Params)
		if err != nil {
			return nil, fmt.Errorf("encode %s (id %d): %w", call.Method, call.ID, err)
		}
		requests[i] = req
		waiting[call.ID] = call
	}

	b.logger.Debug().
		Int("items", len(group)).
		Int64("firstId", group[0].ID).
		Msg("executing batch")

	responses, err := b.executor.ExecuteBatch(ctx, requests)
	if errors.Is(err, jsonrpc.ErrNotBatch) {
		if len(responses) == 1 && responses[0].HasError() {
			return nil, fmt.Errorf("%w: server replied with a single error object: %v", ErrMalformedResponse, responses[0].Error)
		}
		return nil, fmt.Errorf("%w: server replied with a single object to a batch", ErrMalformedResponse)
	}
	if err != nil {
		return nil, err
	}

	results := make([]interface{}, 0, len(responses))
	for _, resp := range responses {
		if resp == nil {
			return nil, fmt.Errorf("%w: null entry in response array", ErrMalformedResponse)
		}
		if err := resp.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}

		id, ok := resp.ID.Int()
		if !ok {
			return nil, fmt.Errorf("%w: non-integer id %s", ErrMalformedResponse, resp.ID)
		}

		call, ok := waiting[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownResponseID, id)
		}
		delete(waiting, id)

		raw, rpcErr := jsonrpc.DecodeResponse(resp)
		if rpcErr != nil {
			return nil, NewCallError(call.Method, call.ID, rpcErr)
		}

		value, err := call.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s result (id %d): %w", call.Method, call.ID, err)
		}
		results = append(results, value)
	}

	if len(waiting) > 0 {
		for _, call := range group {
			if _, missing := waiting[call.ID]; missing {
				return nil, fmt.Errorf("%w: %s (id %d)", ErrMissingResponse, call.Method, call.ID)
			}
		}
	}

	b.logger.Debug().
		Int("items", len(group)).
		Msg("batch completed")

	return results, nil
}
