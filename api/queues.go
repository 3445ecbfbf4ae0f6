package api

import (
	"context"

	"cgiclient/internal/batcher"
	"cgiclient/internal/rpcclient"
)

var (
	queuesCreate = rpcclient.NewMethod[Queue]("QueuesAPI.Create")
	queuesRemove = rpcclient.NewMethod[bool]("QueuesAPI.Remove")
	queuesLinked = rpcclient.SliceMethod[Queue]("QueuesAPI.Linked")
	queuesList   = rpcclient.SliceMethod[Queue]("QueuesAPI.List")
	queuesAssign = rpcclient.NewMethod[bool]("QueuesAPI.Assign")
)

// QueuesAPI manages asynchronous delivery queues
type QueuesAPI struct {
	rpc *rpcclient.Client
}

func (q *QueuesAPI) Create(ctx context.Context, token Token, queue Queue) (Queue, error) {
	return queuesCreate.Call(ctx, q.rpc, token, queue)
}

func (q *QueuesAPI) Remove(ctx context.Context, token Token, name string) (bool, error) {
	return queuesRemove.Call(ctx, q.rpc, token, name)
}

// Linked lists queues targeting the lambda
func (q *QueuesAPI) Linked(ctx context.Context, token Token, lambda string) ([]Queue, error) {
	return queuesLinked.Call(ctx, q.rpc, token, lambda)
}

func (q *QueuesAPI) List(ctx context.Context, token Token) ([]Queue, error) {
	return queuesList.Call(ctx, q.rpc, token)
}

// Assign retargets a queue to another lambda
func (q *QueuesAPI) Assign(ctx context.Context, token Token, name, lambda string) (bool, error) {
	return queuesAssign.Call(ctx, q.rpc, token, name, lambda)
}

// QueuesBatch enqueues QueuesAPI calls
type QueuesBatch struct {
	b *batcher.Batch
}

func (q QueuesBatch) Create(token Token, queue Queue) int64 {
	return queuesCreate.Enqueue(q.b, token, queue)
}

func (q QueuesBatch) Remove(token Token, name string) int64 {
	return queuesRemove.Enqueue(q.b, token, name)
}

func (q QueuesBatch) Linked(token Token, lambda string) int64 {
	return queuesLinked.Enqueue(q.b, token, lambda)
}

func (q QueuesBatch) List(token Token) int64 {
	return queuesList.Enqueue(q.b, token)
}

func (q QueuesBatch) Assign(token Token, name, lambda string) int64 {
	return queuesAssign.Enqueue(q.b, token, name, lambda)
}
