// Package transport posts JSON-RPC envelopes to the platform endpoint.
//
// One HTTP instance is shared by every single-call client and batch built on
// top of it; it holds no per-call state beyond a request counter. Requests
// that have already been written to the wire are not retractable: cancelling
// the context only stops waiting for the reply.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cgiclient/internal/jsonrpc"
)

// RequestIDHeader carries a per-POST identifier for server-side log correlation
const RequestIDHeader = "X-Request-Id"

// StatusError is returned when the endpoint answers with a non-2xx status.
// The body is not parsed.
type StatusError struct {
	StatusCode int
	Status     string
}

// Error implements the error interface
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Status)
}

// IsStatusError reports whether err is (or wraps) a non-2xx transport failure
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// Config for creating a new HTTP transport
type Config struct {
	URL            string
	RequestTimeout time.Duration
	// Client overrides the default pooled client when set
	Client *http.Client
	Logger zerolog.Logger
}

// HTTP sends JSON-RPC payloads via HTTP POST to a single endpoint
type HTTP struct {
	url        string
	httpClient *http.Client
	logger     zerolog.Logger

	requests atomic.Uint64
}

// New creates a new HTTP transport
func New(cfg Config) *HTTP {
	httpClient := cfg.Client
	if httpClient == nil {
		transport := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		}
		httpClient = &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		}
	}

	return &HTTP{
		url:        cfg.URL,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("component", "transport").Logger(),
	}
}

// URL returns the endpoint URL
func (t *HTTP) URL() string {
	return t.url
}

// RequestCount returns the number of POSTs that reached the server
func (t *HTTP) RequestCount() uint64 {
	return t.requests.Load()
}

// Execute sends a single JSON-RPC request
func (t *HTTP) Execute(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	reqBytes, err := req.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := t.post(ctx, reqBytes)
	if err != nil {
		return nil, err
	}

	rpcResp, err := jsonrpc.ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return rpcResp, nil
}

// ExecuteBatch sends a batch of JSON-RPC requests as one JSON array.
// A single-object reply is returned together with jsonrpc.ErrNotBatch.
func (t *HTTP) ExecuteBatch(ctx context.Context, requests []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
	reqBytes, err := jsonrpc.MarshalBatchRequest(requests)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch request: %w", err)
	}

	body, err := t.post(ctx, reqBytes)
	if err != nil {
		return nil, err
	}

	responses, err := jsonrpc.ParseBatchResponse(body)
	if err != nil && !errors.Is(err, jsonrpc.ErrNotBatch) {
		return nil, fmt.Errorf("failed to parse batch response: %w", err)
	}

	return responses, err
}

func (t *HTTP) post(ctx context.Context, payload []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	t.requests.Add(1)

	t.logger.Debug().
		Str("requestId", requestID).
		Int("status", resp.StatusCode).
		Int("bytes", len(payload)).
		Msg("posted")

	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}

// Close releases idle connections
func (t *HTTP) Close() {
	t.httpClient.CloseIdleConnections()
}
