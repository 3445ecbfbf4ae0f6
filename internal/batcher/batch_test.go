package batcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cgiclient/internal/jsonrpc"
	"cgiclient/internal/transport"
)

// mockExecutor records every posted group and answers with reply
type mockExecutor struct {
	groups [][]*jsonrpc.Request
	reply  func(group []*jsonrpc.Request) ([]*jsonrpc.Response, error)
}

func (m *mockExecutor) ExecuteBatch(ctx context.Context, requests []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
	m.groups = append(m.groups, requests)
	if m.reply != nil {
		return m.reply(requests)
	}
	return echoMethods(requests), nil
}

// echoMethods answers each request with its own method name
func echoMethods(group []*jsonrpc.Request) []*jsonrpc.Response {
	out := make([]*jsonrpc.Response, len(group))
	for i, req := range group {
		out[i], _ = jsonrpc.NewResponse(req.ID, req.Method)
	}
	return out
}

func groupIDs(t *testing.T, group []*jsonrpc.Request) []int64 {
	t.Helper()
	ids := make([]int64, len(group))
	for i, req := range group {
		id, ok := req.ID.Int()
		require.True(t, ok)
		ids[i] = id
	}
	return ids
}

func TestBatch_TwentyFiveCallsInThreeRequests(t *testing.T) {
	exec := &mockExecutor{}
	b := New(exec, 10, zerolog.Nop())

	for i := 0; i < 25; i++ {
		b.Enqueue(fmt.Sprintf("Test.M%d", i), []interface{}{i}, As[string]())
	}
	assert.Equal(t, StateAccumulating, b.State())

	results, err := b.Flush(context.Background())
	require.NoError(t, err)

	require.Len(t, exec.groups, 3)
	assert.Len(t, exec.groups[0], 10)
	assert.Len(t, exec.groups[1], 10)
	assert.Len(t, exec.groups[2], 5)

	var ids []int64
	for _, g := range exec.groups {
		ids = append(ids, groupIDs(t, g)...)
	}
	for i, id := range ids {
		assert.Equal(t, int64(i+2), id, "ids start after the reserved id and follow enqueue order")
	}

	require.Len(t, results, 25)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("Test.M%d", i), r)
	}
	assert.Equal(t, StateIdle, b.State())
}

func TestBatch_RequestCountIsCeilNOverB(t *testing.T) {
	for _, size := range []int{1, 2, 3, 7, 10} {
		for _, n := range []int{0, 1, 5, 10, 11, 23} {
			t.Run(fmt.Sprintf("B=%d/N=%d", size, n), func(t *testing.T) {
				exec := &mockExecutor{}
				b := New(exec, size, zerolog.Nop())
				for i := 0; i < n; i++ {
					b.Enqueue("Test.Call", []interface{}{i}, Raw())
				}

				results, err := b.Flush(context.Background())
				require.NoError(t, err)
				assert.Len(t, results, n)

				assert.Len(t, exec.groups, (n+size-1)/size)
				seen := make(map[int64]bool)
				for _, g := range exec.groups {
					assert.LessOrEqual(t, len(g), size)
					for _, id := range groupIDs(t, g) {
						assert.False(t, seen[id], "duplicate id %d", id)
						seen[id] = true
					}
				}
				assert.Len(t, seen, n)
			})
		}
	}
}

func TestBatch_DefaultSize(t *testing.T) {
	b := New(&mockExecutor{}, 0, zerolog.Nop())
	assert.Equal(t, DefaultSize, b.Size())
}

func TestBatch_RemoteErrorCarriesMethodName(t *testing.T) {
	exec := &mockExecutor{reply: func(group []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
		return []*jsonrpc.Response{
			jsonrpc.NewResponseRaw(group[0].ID, json.RawMessage(`true`)),
			jsonrpc.NewErrorResponse(group[1].ID, jsonrpc.NewError(404, "not found")),
		}, nil
	}}
	b := New(exec, 10, zerolog.Nop())
	b.Enqueue("LambdaAPI.Remove", []interface{}{"t", "a"}, As[bool]())
	b.Enqueue("LambdaAPI.Info", []interface{}{"t", "b"}, Raw())

	results, err := b.Flush(context.Background())
	assert.Nil(t, results)
	require.Error(t, err)

	var ce *CallError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "LambdaAPI.Info", ce.Method)
	assert.Equal(t, int64(3), ce.ID)
	assert.Equal(t, 404, ce.Code)
	assert.Equal(t, "not found", ce.Message)
	assert.True(t, IsCallError(err, 404))

	var rpcErr *jsonrpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, 404, rpcErr.Code)

	assert.Equal(t, 0, b.Len())
	assert.Equal(t, StateIdle, b.State())
}

func TestBatch_ErrorMatchesResponseIDNotPosition(t *testing.T) {
	// error for the first call is listed last
	exec := &mockExecutor{reply: func(group []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
		ok, _ := jsonrpc.NewResponse(group[1].ID, true)
		return []*jsonrpc.Response{
			ok,
			jsonrpc.NewErrorResponse(group[0].ID, jsonrpc.NewErrorWithData(500, "boom", map[string]string{"uid": "a"})),
		}, nil
	}}
	b := New(exec, 10, zerolog.Nop())
	b.Enqueue("PoliciesAPI.Apply", nil, Raw())
	b.Enqueue("PoliciesAPI.Clear", nil, Raw())

	_, err := b.Flush(context.Background())
	var ce *CallError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "PoliciesAPI.Apply", ce.Method)

	var data map[string]string
	require.NoError(t, ce.DataAs(&data))
	assert.Equal(t, "a", data["uid"])
}

func TestBatch_UnknownResponseID(t *testing.T) {
	exec := &mockExecutor{reply: func(group []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
		resp, _ := jsonrpc.NewResponse(jsonrpc.NewIDInt(999), true)
		return []*jsonrpc.Response{resp}, nil
	}}
	b := New(exec, 10, zerolog.Nop())
	b.Enqueue("Test.Call", nil, Raw())

	_, err := b.Flush(context.Background())
	assert.True(t, errors.Is(err, ErrUnknownResponseID))
	assert.Equal(t, 0, b.Len())
}

func TestBatch_StringResponseIDIsMalformed(t *testing.T) {
	exec := &mockExecutor{reply: func(group []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
		var resp jsonrpc.Response
		require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":"2","result":"ok"}`), &resp))
		return []*jsonrpc.Response{&resp}, nil
	}}
	b := New(exec, 10, zerolog.Nop())
	assert.Equal(t, int64(2), b.Enqueue("Test.Call", nil, As[string]()))

	results, err := b.Flush(context.Background())
	assert.Nil(t, results)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Contains(t, err.Error(), `"2"`)
}

func TestBatch_DuplicateResponseIDIsUnknown(t *testing.T) {
	exec := &mockExecutor{reply: func(group []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
		a, _ := jsonrpc.NewResponse(group[0].ID, 1)
		b, _ := jsonrpc.NewResponse(group[0].ID, 2)
		return []*jsonrpc.Response{a, b}, nil
	}}
	b := New(exec, 10, zerolog.Nop())
	b.Enqueue("Test.Call", nil, Raw())

	_, err := b.Flush(context.Background())
	assert.True(t, errors.Is(err, ErrUnknownResponseID))
}

func TestBatch_MissingResponse(t *testing.T) {
	exec := &mockExecutor{reply: func(group []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
		return echoMethods(group[:1]), nil
	}}
	b := New(exec, 10, zerolog.Nop())
	b.Enqueue("Test.First", nil, Raw())
	b.Enqueue("Test.Second", nil, Raw())

	_, err := b.Flush(context.Background())
	require.True(t, errors.Is(err, ErrMissingResponse))
	assert.Contains(t, err.Error(), "Test.Second")
}

func TestBatch_MalformedEnvelope(t *testing.T) {
	exec := &mockExecutor{reply: func(group []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
		return []*jsonrpc.Response{{JSONRPC: jsonrpc.Version, ID: group[0].ID}}, nil
	}}
	b := New(exec, 10, zerolog.Nop())
	b.Enqueue("Test.Call", nil, Raw())

	_, err := b.Flush(context.Background())
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestBatch_SingleObjectReplyIsMalformed(t *testing.T) {
	exec := &mockExecutor{reply: func(group []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
		return []*jsonrpc.Response{jsonrpc.NewErrorResponse(jsonrpc.ID{}, jsonrpc.NewError(-32600, "Invalid Request"))}, jsonrpc.ErrNotBatch
	}}
	b := New(exec, 10, zerolog.Nop())
	b.Enqueue("Test.Call", nil, Raw())

	_, err := b.Flush(context.Background())
	require.True(t, errors.Is(err, ErrMalformedResponse))
	assert.Contains(t, err.Error(), "Invalid Request")
}

// Results follow the order of the response array, not enqueue order.
func TestBatch_OutOfOrderResponsesFollowResponseOrder(t *testing.T) {
	exec := &mockExecutor{reply: func(group []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
		resp := echoMethods(group)
		resp[0], resp[2] = resp[2], resp[0]
		return resp, nil
	}}
	b := New(exec, 10, zerolog.Nop())
	b.Enqueue("Test.A", nil, As[string]())
	b.Enqueue("Test.B", nil, As[string]())
	b.Enqueue("Test.C", nil, As[string]())

	results, err := b.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Test.C", "Test.B", "Test.A"}, results)
}

func TestBatch_IDSequenceContinuesAfterFlush(t *testing.T) {
	exec := &mockExecutor{}
	b := New(exec, 10, zerolog.Nop())

	assert.Equal(t, int64(2), b.Enqueue("Test.A", nil, Raw()))
	assert.Equal(t, int64(3), b.Enqueue("Test.B", nil, Raw()))
	_, err := b.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, b.Len())

	assert.Equal(t, int64(4), b.Enqueue("Test.C", nil, Raw()))
	b.Reset()
	assert.Equal(t, int64(5), b.Enqueue("Test.D", nil, Raw()))
}

func TestBatch_IDSequenceContinuesAfterError(t *testing.T) {
	exec := &mockExecutor{reply: func(group []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
		return nil, &transport.StatusError{StatusCode: 500, Status: "500 Internal Server Error"}
	}}
	b := New(exec, 10, zerolog.Nop())
	b.Enqueue("Test.A", nil, Raw())
	_, err := b.Flush(context.Background())
	require.Error(t, err)

	assert.Equal(t, 0, b.Len())
	assert.Equal(t, int64(3), b.Enqueue("Test.B", nil, Raw()))
}

func TestBatch_TransportFaultInLaterGroupDiscardsEarlierResults(t *testing.T) {
	exec := &mockExecutor{}
	exec.reply = func(group []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
		if len(exec.groups) == 2 {
			return nil, &transport.StatusError{StatusCode: 502, Status: "502 Bad Gateway"}
		}
		return echoMethods(group), nil
	}
	b := New(exec, 2, zerolog.Nop())
	for i := 0; i < 6; i++ {
		b.Enqueue("Test.Call", nil, Raw())
	}

	results, err := b.Flush(context.Background())
	assert.Nil(t, results)
	assert.True(t, transport.IsStatusError(err))
	assert.Len(t, exec.groups, 2, "flush stops at the failing group")
	assert.Equal(t, 0, b.Len())
}

func TestBatch_DecoderFault(t *testing.T) {
	exec := &mockExecutor{}
	b := New(exec, 10, zerolog.Nop())
	b.Enqueue("Test.Call", nil, As[int]())

	_, err := b.Flush(context.Background())
	require.Error(t, err)
	assert.False(t, IsCallError(err, 0))
	assert.Contains(t, err.Error(), "decode Test.Call")
}

func TestBatch_EncodeFaultAtFlush(t *testing.T) {
	exec := &mockExecutor{}
	b := New(exec, 10, zerolog.Nop())
	id := b.Enqueue("Test.Call", []interface{}{func() {}}, Raw())
	assert.Equal(t, int64(2), id, "enqueue never fails")

	_, err := b.Flush(context.Background())
	require.Error(t, err)
	assert.Empty(t, exec.groups)
}

func TestBatch_EmptyFlushSendsNothing(t *testing.T) {
	exec := &mockExecutor{}
	b := New(exec, 10, zerolog.Nop())

	results, err := b.Flush(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, exec.groups)
}

func TestBatch_RoundTrip(t *testing.T) {
	type file struct {
		Name string `json:"name"`
		Dir  bool   `json:"is_dir"`
	}
	payload := json.RawMessage(`[{"name":"main.py","is_dir":false},{"name":"lib","is_dir":true}]`)
	exec := &mockExecutor{reply: func(group []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
		return []*jsonrpc.Response{jsonrpc.NewResponseRaw(group[0].ID, payload)}, nil
	}}
	decode := Slice[file]()
	b := New(exec, 10, zerolog.Nop())
	b.Enqueue("LambdaAPI.Files", []interface{}{"t", "uid", "/"}, decode)

	results, err := b.Flush(context.Background())
	require.NoError(t, err)

	want, err := decode(payload)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, want, results[0])
}

func TestBatch_CallsSnapshot(t *testing.T) {
	b := New(&mockExecutor{}, 10, zerolog.Nop())
	b.Enqueue("Test.A", []interface{}{1}, nil)
	calls := b.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Test.A", calls[0].Method)
	assert.NotNil(t, calls[0].Decode)
}

func TestBatch_DoResetsAndFlushes(t *testing.T) {
	exec := &mockExecutor{}
	b := New(exec, 10, zerolog.Nop())
	b.Enqueue("Test.Stale", nil, Raw())

	results, err := b.Do(context.Background(), func(b *Batch) error {
		b.Enqueue("Test.Fresh", nil, As[string]())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Test.Fresh"}, results)
	require.Len(t, exec.groups, 1)
	assert.Len(t, exec.groups[0], 1)
}

func TestBatch_DoFlushesWhenBodyFails(t *testing.T) {
	exec := &mockExecutor{}
	b := New(exec, 10, zerolog.Nop())
	bodyErr := errors.New("body failed")

	results, err := b.Do(context.Background(), func(b *Batch) error {
		b.Enqueue("Test.Sent", nil, As[string]())
		return bodyErr
	})
	assert.ErrorIs(t, err, bodyErr)
	assert.Equal(t, []interface{}{"Test.Sent"}, results)
	assert.Len(t, exec.groups, 1)
}

func TestBatch_DoFlushesWhenBodyPanics(t *testing.T) {
	exec := &mockExecutor{}
	b := New(exec, 10, zerolog.Nop())

	assert.PanicsWithValue(t, "boom", func() {
		_, _ = b.Do(context.Background(), func(b *Batch) error {
			b.Enqueue("Test.Sent", nil, As[string]())
			panic("boom")
		})
	})

	require.Len(t, exec.groups, 1)
	assert.Equal(t, "Test.Sent", exec.groups[0][0].Method)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, StateIdle, b.State())

	// the batch stays usable and the id sequence continues
	assert.Equal(t, int64(3), b.Enqueue("Test.Next", nil, Raw()))
}

func TestBatch_DoJoinsBodyAndFlushErrors(t *testing.T) {
	exec := &mockExecutor{reply: func(group []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
		return nil, &transport.StatusError{StatusCode: 503, Status: "503 Service Unavailable"}
	}}
	b := New(exec, 10, zerolog.Nop())
	bodyErr := errors.New("body failed")

	_, err := b.Do(context.Background(), func(b *Batch) error {
		b.Enqueue("Test.Call", nil, Raw())
		return bodyErr
	})
	assert.ErrorIs(t, err, bodyErr)
	assert.True(t, transport.IsStatusError(err))
}

func TestBatch_BinaryPayloadOverHTTP(t *testing.T) {
	var received []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var reqs []*jsonrpc.Request
		if !assert.NoError(t, json.Unmarshal(body, &reqs)) || !assert.Len(t, reqs, 2) {
			return
		}

		var params []json.RawMessage
		if !assert.NoError(t, json.Unmarshal(reqs[0].Params, &params)) {
			return
		}
		assert.NoError(t, json.Unmarshal(params[3], &received))

		pushed, _ := jsonrpc.NewResponse(reqs[0].ID, true)
		pulled, _ := jsonrpc.NewResponse(reqs[1].ID, received)
		data, _ := json.Marshal([]*jsonrpc.Response{pushed, pulled})
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	tr := transport.New(transport.Config{URL: srv.URL, RequestTimeout: 5 * time.Second, Logger: zerolog.Nop()})
	b := New(tr, 10, zerolog.Nop())
	b.Enqueue("LambdaAPI.Push", []interface{}{"t", "uid", "data.bin", []byte("abc")}, As[bool]())
	b.Enqueue("LambdaAPI.Pull", []interface{}{"t", "uid", "data.bin"}, Bytes())

	results, err := b.Flush(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []byte("abc"), received)
	assert.Equal(t, []interface{}{true, []byte("abc")}, results)
	assert.Equal(t, uint64(1), tr.RequestCount())
}

func TestBatch_TransportNon2xxOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tr := transport.New(transport.Config{URL: srv.URL, Logger: zerolog.Nop()})
	b := New(tr, 10, zerolog.Nop())
	b.Enqueue("ProjectAPI.List", []interface{}{"t"}, Raw())

	_, err := b.Flush(context.Background())
	var se *transport.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
}
