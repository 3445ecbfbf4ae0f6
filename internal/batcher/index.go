// Package batcher provides client-side JSON-RPC batching with response
// correlation.
//
// Calls are enqueued locally with a decoder for their result. Flush splits
// the pending calls, in enqueue order, into groups of at most the configured
// size, posts each group as one JSON array and matches every response back
// to its call by id:
//
//	b := batcher.New(tr, 10, logger)
//	b.Enqueue("LambdaAPI.Info", []interface{}{token, uid}, batcher.As[Definition]())
//	b.Enqueue("LambdaAPI.Actions", []interface{}{token, uid}, batcher.Slice[string]())
//	results, err := b.Flush(ctx)
//
// Groups are sent one after another. A failure in a later group leaves the
// side effects of earlier groups in place and their results are discarded.
// A Batch is not safe for concurrent use; use one per goroutine.
package batcher
