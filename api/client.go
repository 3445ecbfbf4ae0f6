// Package api is a typed client for the function platform admin API.
//
// Each service exposes single calls on the Client and enqueue methods on a Batch:
//
//	c := api.New(api.Options{Endpoint: "https://127.0.0.1:3434/u/"})
//	token, err := c.User.Login(ctx, "admin", "admin")
//
//	results, err := c.NewBatch().Do(ctx, func(b *api.Batch) error {
//		b.Lambda.Info(token, uid)
//		b.Lambda.Actions(token, uid)
//		return nil
//	})
package api

import (
	"github.com/rs/zerolog"

	"cgiclient/internal/batcher"
	"cgiclient/internal/config"
	"cgiclient/internal/rpcclient"
	"cgiclient/internal/transport"
)

// Options configures a Client
type Options = rpcclient.Options

// CallError is a remote error attributed to the method that caused it
type CallError = batcher.CallError

// StatusError is returned when the server answers with a non-2xx status
type StatusError = transport.StatusError

var (
	ErrUnknownResponseID = batcher.ErrUnknownResponseID
	ErrMissingResponse   = batcher.ErrMissingResponse
	ErrMalformedResponse = batcher.ErrMalformedResponse
)

// Client groups the platform services over one connection
type Client struct {
	rpc *rpcclient.Client

	User     *UserAPI
	Project  *ProjectAPI
	Lambda   *LambdaAPI
	Policies *PoliciesAPI
	Queues   *QueuesAPI
}

// New creates a new Client
func New(opts Options) *Client {
	return newClient(rpcclient.New(opts))
}

// NewFromConfig creates a Client from loaded configuration
func NewFromConfig(cfg *config.Config, logger zerolog.Logger) (*Client, error) {
	rpc, err := rpcclient.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	return newClient(rpc), nil
}

func newClient(rpc *rpcclient.Client) *Client {
	return &Client{
		rpc:      rpc,
		User:     &UserAPI{rpc: rpc},
		Project:  &ProjectAPI{rpc: rpc},
		Lambda:   &LambdaAPI{rpc: rpc},
		Policies: &PoliciesAPI{rpc: rpc},
		Queues:   &QueuesAPI{rpc: rpc},
	}
}

// RPC returns the underlying JSON-RPC client
func (c *Client) RPC() *rpcclient.Client {
	return c.rpc
}

// NewBatch creates an empty batch. Batches are not safe for concurrent use.
func (c *Client) NewBatch() *Batch {
	return wrapBatch(c.rpc.NewBatch())
}

// Close releases idle connections and the result cache
func (c *Client) Close() {
	c.rpc.Close()
}
