package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"cgiclient/internal/batcher"
	"cgiclient/internal/cache"
	"cgiclient/internal/config"
	"cgiclient/internal/jsonrpc"
	"cgiclient/internal/transport"
)

// Options for creating a new Client
type Options struct {
	Endpoint       string
	BatchSize      int
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	// Cache holds results of methods allowed by CachePolicy. Nil disables caching.
	Cache       cache.Cache
	CachePolicy *cache.Policy
	Logger      zerolog.Logger
}

// Client performs single JSON-RPC calls and creates batches over one shared transport
type Client struct {
	transport *transport.HTTP
	batchSize int
	sequence  atomic.Int64

	cache  cache.Cache
	policy *cache.Policy
	flight singleflight.Group

	logger zerolog.Logger
}

// New creates a new Client
func New(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = config.DefaultEndpoint
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = batcher.DefaultSize
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNoopCache()
	}

	c := &Client{
		transport: transport.New(transport.Config{
			URL:            opts.Endpoint,
			RequestTimeout: opts.RequestTimeout,
			Client:         opts.HTTPClient,
			Logger:         opts.Logger,
		}),
		batchSize: opts.BatchSize,
		cache:     opts.Cache,
		policy:    opts.CachePolicy,
		logger:    opts.Logger.With().Str("component", "rpcclient").Logger(),
	}
	// id 1 is reserved
	c.sequence.Store(1)
	return c
}

// NewFromConfig creates a Client from loaded configuration
func NewFromConfig(cfg *config.Config, logger zerolog.Logger) (*Client, error) {
	opts := Options{
		Endpoint:       cfg.Endpoint,
		BatchSize:      cfg.BatchSize,
		RequestTimeout: cfg.GetRequestTimeoutDuration(),
		Logger:         logger,
	}

	if cfg.IsCacheEnabled() {
		mc, err := cache.NewMemoryCache(cfg.Cache.Size, cfg.Cache.GetTTLDuration())
		if err != nil {
			return nil, fmt.Errorf("failed to create cache: %w", err)
		}
		opts.Cache = mc
		opts.CachePolicy = cache.NewPolicy(cfg.Cache.Methods)
	}

	return New(opts), nil
}

// Transport returns the shared HTTP transport
func (c *Client) Transport() *transport.HTTP {
	return c.transport
}

// NewBatch creates an empty batch over the shared transport
func (c *Client) NewBatch() *batcher.Batch {
	return batcher.New(c.transport, c.batchSize, c.logger)
}

// Call performs one non-batched call and decodes its result.
// A remote error is returned as *batcher.CallError.
func (c *Client) Call(ctx context.Context, method string, params []interface{}, decode batcher.Decoder) (interface{}, error) {
	if decode == nil {
		decode = batcher.Raw()
	}

	id := c.sequence.Add(1)
	req, err := jsonrpc.EncodeRequest(method, id, params)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}

	var raw json.RawMessage
	if c.policy.IsCacheable(method) {
		raw, err = c.cachedExecute(ctx, req, id)
	} else {
		raw, err = c.execute(ctx, req, id)
	}
	if err != nil {
		return nil, err
	}

	value, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s result (id %d): %w", method, id, err)
	}
	return value, nil
}

// cachedExecute serves cacheable calls from the cache and collapses
// concurrent identical calls into a single request
func (c *Client) cachedExecute(ctx context.Context, req *jsonrpc.Request, id int64) (json.RawMessage, error) {
	key := cache.GenerateCacheKey(req.Method, req.Params)
	if data, ok := c.cache.Get(key); ok {
		c.logger.Debug().Str("method", req.Method).Msg("cache hit")
		return data, nil
	}

	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		raw, err := c.execute(ctx, req, id)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, raw)
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	// every waiter gets its own copy
	return bytes.Clone(v.(json.RawMessage)), nil
}

func (c *Client) execute(ctx context.Context, req *jsonrpc.Request, id int64) (json.RawMessage, error) {
	c.logger.Debug().
		Str("method", req.Method).
		Int64("id", id).
		Msg("call")

	resp, err := c.transport.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", batcher.ErrMalformedResponse, err)
	}
	if got, ok := resp.ID.Int(); !ok || got != id {
		return nil, fmt.Errorf("%w: got %s, want %d", batcher.ErrUnknownResponseID, resp.ID, id)
	}

	raw, rpcErr := jsonrpc.DecodeResponse(resp)
	if rpcErr != nil {
		return nil, batcher.NewCallError(req.Method, id, rpcErr)
	}
	return raw, nil
}

// Close releases the cache and idle connections
func (c *Client) Close() {
	c.cache.Close()
	c.transport.Close()
}
