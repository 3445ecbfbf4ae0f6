package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cgiclient/internal/batcher"
	"cgiclient/internal/cache"
	"cgiclient/internal/config"
	"cgiclient/internal/jsonrpc"
	"cgiclient/internal/transport"
)

const codeServerError = -32000

// singleServer answers every single request with handle(req)
func singleServer(t *testing.T, hits *atomic.Int32, handle func(req *jsonrpc.Request) *jsonrpc.Response) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		body, _ := io.ReadAll(r.Body)
		var req jsonrpc.Request
		if !assert.NoError(t, json.Unmarshal(body, &req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := handle(&req).Bytes()
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func newClient(url string) *Client {
	return New(Options{Endpoint: url, RequestTimeout: 5 * time.Second, Logger: zerolog.Nop()})
}

func TestCall_Success(t *testing.T) {
	var gotID atomic.Int64
	url := singleServer(t, nil, func(req *jsonrpc.Request) *jsonrpc.Response {
		id, _ := req.ID.Int()
		gotID.Store(id)
		resp, _ := jsonrpc.NewResponse(req.ID, "token-1")
		return resp
	})
	c := newClient(url)
	defer c.Close()

	token, err := NewMethod[string]("UserAPI.Login").Call(context.Background(), c, "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)
	assert.Equal(t, int64(2), gotID.Load(), "first id follows the reserved one")

	_, err = NewMethod[string]("UserAPI.Login").Call(context.Background(), c, "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(3), gotID.Load())
}

func TestCall_RemoteError(t *testing.T) {
	url := singleServer(t, nil, func(req *jsonrpc.Request) *jsonrpc.Response {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(codeServerError, "access denied"))
	})
	c := newClient(url)
	defer c.Close()

	_, err := NewMethod[bool]("UserAPI.ChangePassword").Call(context.Background(), c, "tok", "pwd")
	require.Error(t, err)

	var ce *batcher.CallError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "UserAPI.ChangePassword", ce.Method)
	assert.Equal(t, "access denied", ce.Message)
	assert.True(t, batcher.IsCallError(err, codeServerError))
}

func TestCall_IDMismatch(t *testing.T) {
	url := singleServer(t, nil, func(req *jsonrpc.Request) *jsonrpc.Response {
		resp, _ := jsonrpc.NewResponse(jsonrpc.NewIDInt(99), true)
		return resp
	})
	c := newClient(url)
	defer c.Close()

	_, err := NewMethod[bool]("LambdaAPI.Remove").Call(context.Background(), c, "tok", "uid")
	assert.ErrorIs(t, err, batcher.ErrUnknownResponseID)
}

func TestCall_DecodeError(t *testing.T) {
	url := singleServer(t, nil, func(req *jsonrpc.Request) *jsonrpc.Response {
		resp, _ := jsonrpc.NewResponse(req.ID, "not a bool")
		return resp
	})
	c := newClient(url)
	defer c.Close()

	_, err := NewMethod[bool]("LambdaAPI.Remove").Call(context.Background(), c, "tok", "uid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode LambdaAPI.Remove result")
}

func TestCall_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	defer c.Close()

	_, err := NewMethod[bool]("LambdaAPI.Remove").Call(context.Background(), c, "tok", "uid")
	assert.True(t, transport.IsStatusError(err))
}

func TestCall_BytesMethod(t *testing.T) {
	url := singleServer(t, nil, func(req *jsonrpc.Request) *jsonrpc.Response {
		resp, _ := jsonrpc.NewResponse(req.ID, []byte("archive"))
		return resp
	})
	c := newClient(url)
	defer c.Close()

	data, err := BytesMethod("LambdaAPI.Download").Call(context.Background(), c, "tok", "uid")
	require.NoError(t, err)
	assert.Equal(t, []byte("archive"), data)
}

func TestCall_Cached(t *testing.T) {
	var hits atomic.Int32
	url := singleServer(t, &hits, func(req *jsonrpc.Request) *jsonrpc.Response {
		resp, _ := jsonrpc.NewResponse(req.ID, []string{"hello-world"})
		return resp
	})

	mc, err := cache.NewMemoryCache(16, time.Minute)
	require.NoError(t, err)

	c := New(Options{
		Endpoint:    url,
		Cache:       mc,
		CachePolicy: cache.NewPolicy([]string{"ProjectAPI.Templates"}),
		Logger:      zerolog.Nop(),
	})
	defer c.Close()

	templates := SliceMethod[string]("ProjectAPI.Templates")
	for i := 0; i < 3; i++ {
		names, err := templates.Call(context.Background(), c, "tok")
		require.NoError(t, err)
		assert.Equal(t, []string{"hello-world"}, names)
	}
	assert.Equal(t, int32(1), hits.Load())

	// other params are a different key
	_, err = templates.Call(context.Background(), c, "other")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())

	// methods outside the policy always hit the server
	_, err = SliceMethod[string]("ProjectAPI.List").Call(context.Background(), c, "tok")
	require.NoError(t, err)
	_, err = SliceMethod[string]("ProjectAPI.List").Call(context.Background(), c, "tok")
	require.NoError(t, err)
	assert.Equal(t, int32(4), hits.Load())
}

func TestNewBatch_SharesTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var reqs []*jsonrpc.Request
		if !assert.NoError(t, json.Unmarshal(body, &reqs)) {
			return
		}
		out := make([]*jsonrpc.Response, len(reqs))
		for i, req := range reqs {
			out[i], _ = jsonrpc.NewResponse(req.ID, req.Method)
		}
		data, _ := json.Marshal(out)
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	c := New(Options{Endpoint: srv.URL, BatchSize: 2, Logger: zerolog.Nop()})
	defer c.Close()

	b := c.NewBatch()
	assert.Equal(t, 2, b.Size())

	method := NewMethod[string]("ProjectAPI.Config")
	for i := 0; i < 3; i++ {
		method.Enqueue(b, "tok")
	}
	results, err := b.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"ProjectAPI.Config", "ProjectAPI.Config", "ProjectAPI.Config"}, results)
	assert.Equal(t, uint64(2), c.Transport().RequestCount())
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Cache = &config.CacheConfig{Enabled: true, TTL: 10, Size: 8, Methods: []string{"ProjectAPI.Templates"}}

	c, err := NewFromConfig(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, config.DefaultEndpoint, c.Transport().URL())
	assert.True(t, c.policy.IsCacheable("ProjectAPI.Templates"))
	_, isMemory := c.cache.(*cache.MemoryCache)
	assert.True(t, isMemory)
}

func TestMethod_RawDefault(t *testing.T) {
	url := singleServer(t, nil, func(req *jsonrpc.Request) *jsonrpc.Response {
		resp, _ := jsonrpc.NewResponse(req.ID, map[string]int{"a": 1})
		return resp
	})
	c := newClient(url)
	defer c.Close()

	v, err := c.Call(context.Background(), "Test.Raw", nil, nil)
	require.NoError(t, err)
	raw, ok := v.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(raw))
}

func TestCall_CachedResultIsNotShared(t *testing.T) {
	var hits atomic.Int32
	url := singleServer(t, &hits, func(req *jsonrpc.Request) *jsonrpc.Response {
		resp, _ := jsonrpc.NewResponse(req.ID, "abc")
		return resp
	})

	mc, err := cache.NewMemoryCache(16, time.Minute)
	require.NoError(t, err)

	c := New(Options{
		Endpoint:    url,
		Cache:       mc,
		CachePolicy: cache.NewPolicy([]string{"ProjectAPI.Config"}),
		Logger:      zerolog.Nop(),
	})
	defer c.Close()

	for i := 0; i < 2; i++ {
		v, err := c.Call(context.Background(), "ProjectAPI.Config", []interface{}{"tok"}, nil)
		require.NoError(t, err)
		raw := v.(json.RawMessage)
		assert.Equal(t, `"abc"`, string(raw))
		raw[1] = 'Z'
	}
	assert.Equal(t, int32(1), hits.Load())
}
