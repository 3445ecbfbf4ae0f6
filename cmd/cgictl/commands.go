package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"cgiclient/api"
	"cgiclient/internal/batcher"
	"cgiclient/internal/config"
)

var errUsage = errors.New("invalid arguments")

type command struct {
	client *api.Client
	cfg    *config.Config
	token  api.Token
	out    io.Writer
	in     io.Reader
	logger zerolog.Logger
}

// batchCall is one entry of the batch command input
type batchCall struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

func (c *command) run(ctx context.Context, name string, args []string) error {
	need := func(lo, hi int) error {
		if len(args) < lo || len(args) > hi {
			return fmt.Errorf("%w: %s takes %d to %d arguments, got %d", errUsage, name, lo, hi, len(args))
		}
		return nil
	}

	switch name {
	case "login":
		if err := need(0, 0); err != nil {
			return err
		}
		token, err := c.login(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.out, token)
		return err

	case "upload":
		if err := need(2, 2); err != nil {
			return err
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		return c.withToken(ctx, func(token api.Token) error {
			_, err := c.client.Lambda.Upload(ctx, token, args[0], data)
			return err
		})

	case "download":
		if err := need(2, 2); err != nil {
			return err
		}
		return c.withToken(ctx, func(token api.Token) error {
			data, err := c.client.Lambda.Download(ctx, token, args[0])
			if err != nil {
				return err
			}
			return os.WriteFile(args[1], data, 0o644)
		})

	case "push":
		if err := need(3, 3); err != nil {
			return err
		}
		data, err := os.ReadFile(args[2])
		if err != nil {
			return err
		}
		return c.withToken(ctx, func(token api.Token) error {
			_, err := c.client.Lambda.Push(ctx, token, args[0], args[1], data)
			return err
		})

	case "pull":
		if err := need(2, 3); err != nil {
			return err
		}
		return c.withToken(ctx, func(token api.Token) error {
			data, err := c.client.Lambda.Pull(ctx, token, args[0], args[1])
			if err != nil {
				return err
			}
			if len(args) == 3 {
				return os.WriteFile(args[2], data, 0o644)
			}
			_, err = c.out.Write(data)
			return err
		})

	case "info":
		if err := need(1, 1); err != nil {
			return err
		}
		return c.withToken(ctx, func(token api.Token) error {
			def, err := c.client.Lambda.Info(ctx, token, args[0])
			if err != nil {
				return err
			}
			return c.printJSON(def)
		})

	case "list":
		if err := need(0, 0); err != nil {
			return err
		}
		return c.withToken(ctx, func(token api.Token) error {
			defs, err := c.client.Project.List(ctx, token)
			if err != nil {
				return err
			}
			return c.printJSON(defs)
		})

	case "invoke":
		if err := need(2, 2); err != nil {
			return err
		}
		return c.withToken(ctx, func(token api.Token) error {
			output, err := c.client.Lambda.Invoke(ctx, token, args[0], args[1])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(c.out, output)
			return err
		})

	case "update":
		if err := need(2, 2); err != nil {
			return err
		}
		manifest, err := readManifest(args[1])
		if err != nil {
			return err
		}
		if err := manifest.Validate(); err != nil {
			return err
		}
		return c.withToken(ctx, func(token api.Token) error {
			def, err := c.client.Lambda.Update(ctx, token, args[0], *manifest)
			if err != nil {
				return err
			}
			return c.printJSON(def)
		})

	case "batch":
		if err := need(1, 1); err != nil {
			return err
		}
		calls, err := c.readBatch(args[0])
		if err != nil {
			return err
		}
		results, err := c.client.NewBatch().Do(ctx, func(b *api.Batch) error {
			for _, call := range calls {
				b.Enqueue(call.Method, call.Params, batcher.Raw())
			}
			return nil
		})
		if err != nil {
			return err
		}
		c.logger.Debug().Int("calls", len(calls)).Msg("batch flushed")
		return c.printJSON(results)
	}

	return fmt.Errorf("%w: unknown command %q", errUsage, name)
}

// withToken runs fn with the -token value, logging in with configured credentials when it is empty
func (c *command) withToken(ctx context.Context, fn func(token api.Token) error) error {
	if c.token == "" {
		token, err := c.login(ctx)
		if err != nil {
			return err
		}
		c.token = token
	}
	return fn(c.token)
}

func (c *command) login(ctx context.Context) (api.Token, error) {
	if c.cfg.Login == "" {
		return "", fmt.Errorf("%w: no token given and no login configured", errUsage)
	}
	token, err := c.client.User.Login(ctx, c.cfg.Login, c.cfg.Password)
	if err != nil {
		return "", fmt.Errorf("login as %s: %w", c.cfg.Login, err)
	}
	c.logger.Debug().Str("login", c.cfg.Login).Msg("logged in")
	return token, nil
}

func (c *command) readBatch(path string) ([]batchCall, error) {
	var data []byte
	var err error
	if path == "-" {
		in := c.in
		if in == nil {
			in = os.Stdin
		}
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var calls []batchCall
	if err := json.Unmarshal(data, &calls); err != nil {
		return nil, fmt.Errorf("failed to parse batch: %w", err)
	}
	for i, call := range calls {
		if call.Method == "" {
			return nil, fmt.Errorf("batch entry %d has no method", i)
		}
	}
	return calls, nil
}

func (c *command) printJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readManifest loads a manifest from json, or from yaml by extension
func readManifest(path string) (*api.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var doc map[string]interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse manifest: %w", err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("failed to convert manifest: %w", err)
		}
	}

	var manifest api.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &manifest, nil
}
