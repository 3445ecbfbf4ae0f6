package api

import (
	"context"

	"cgiclient/internal/batcher"
	"cgiclient/internal/rpcclient"
)

var (
	policiesList   = rpcclient.SliceMethod[Policy]("PoliciesAPI.List")
	policiesCreate = rpcclient.NewMethod[Policy]("PoliciesAPI.Create")
	policiesRemove = rpcclient.NewMethod[bool]("PoliciesAPI.Remove")
	policiesUpdate = rpcclient.NewMethod[bool]("PoliciesAPI.Update")
	policiesApply  = rpcclient.NewMethod[bool]("PoliciesAPI.Apply")
	policiesClear  = rpcclient.NewMethod[bool]("PoliciesAPI.Clear")
)

// PoliciesAPI manages access policies
type PoliciesAPI struct {
	rpc *rpcclient.Client
}

func (p *PoliciesAPI) List(ctx context.Context, token Token) ([]Policy, error) {
	return policiesList.Call(ctx, p.rpc, token)
}

// Create registers a new policy under the given id
func (p *PoliciesAPI) Create(ctx context.Context, token Token, policy string, definition PolicyDefinition) (Policy, error) {
	return policiesCreate.Call(ctx, p.rpc, token, policy, definition)
}

func (p *PoliciesAPI) Remove(ctx context.Context, token Token, policy string) (bool, error) {
	return policiesRemove.Call(ctx, p.rpc, token, policy)
}

func (p *PoliciesAPI) Update(ctx context.Context, token Token, policy string, definition PolicyDefinition) (bool, error) {
	return policiesUpdate.Call(ctx, p.rpc, token, policy, definition)
}

// Apply links a lambda to a policy
func (p *PoliciesAPI) Apply(ctx context.Context, token Token, lambda, policy string) (bool, error) {
	return policiesApply.Call(ctx, p.rpc, token, lambda, policy)
}

// Clear unlinks a lambda from its policy
func (p *PoliciesAPI) Clear(ctx context.Context, token Token, lambda string) (bool, error) {
	return policiesClear.Call(ctx, p.rpc, token, lambda)
}

// PoliciesBatch enqueues PoliciesAPI calls
type PoliciesBatch struct {
	b *batcher.Batch
}

func (p PoliciesBatch) List(token Token) int64 {
	return policiesList.Enqueue(p.b, token)
}

func (p PoliciesBatch) Create(token Token, policy string, definition PolicyDefinition) int64 {
	return policiesCreate.Enqueue(p.b, token, policy, definition)
}

func (p PoliciesBatch) Remove(token Token, policy string) int64 {
	return policiesRemove.Enqueue(p.b, token, policy)
}

func (p PoliciesBatch) Update(token Token, policy string, definition PolicyDefinition) int64 {
	return policiesUpdate.Enqueue(p.b, token, policy, definition)
}

func (p PoliciesBatch) Apply(token Token, lambda, policy string) int64 {
	return policiesApply.Enqueue(p.b, token, lambda, policy)
}

func (p PoliciesBatch) Clear(token Token, lambda string) int64 {
	return policiesClear.Enqueue(p.b, token, lambda)
}
