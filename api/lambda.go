package api

import (
	"context"

	"cgiclient/internal/batcher"
	"cgiclient/internal/rpcclient"
)

var (
	lambdaUpload     = rpcclient.NewMethod[bool]("LambdaAPI.Upload")
	lambdaDownload   = rpcclient.BytesMethod("LambdaAPI.Download")
	lambdaPush       = rpcclient.NewMethod[bool]("LambdaAPI.Push")
	lambdaPull       = rpcclient.BytesMethod("LambdaAPI.Pull")
	lambdaRemove     = rpcclient.NewMethod[bool]("LambdaAPI.Remove")
	lambdaFiles      = rpcclient.SliceMethod[File]("LambdaAPI.Files")
	lambdaInfo       = rpcclient.NewMethod[Definition]("LambdaAPI.Info")
	lambdaUpdate     = rpcclient.NewMethod[Definition]("LambdaAPI.Update")
	lambdaCreateFile = rpcclient.NewMethod[bool]("LambdaAPI.CreateFile")
	lambdaRemoveFile = rpcclient.NewMethod[bool]("LambdaAPI.RemoveFile")
	lambdaRenameFile = rpcclient.NewMethod[bool]("LambdaAPI.RenameFile")
	lambdaStats      = rpcclient.SliceMethod[Record]("LambdaAPI.Stats")
	lambdaActions    = rpcclient.SliceMethod[string]("LambdaAPI.Actions")
	lambdaInvoke     = rpcclient.NewMethod[string]("LambdaAPI.Invoke")
	lambdaLink       = rpcclient.NewMethod[Definition]("LambdaAPI.Link")
	lambdaUnlink     = rpcclient.NewMethod[Definition]("LambdaAPI.Unlink")
)

// LambdaAPI manages the content and settings of a single lambda.
// Binary arguments and results travel as base64 strings.
type LambdaAPI struct {
	rpc *rpcclient.Client
}

// Upload replaces the lambda content with a tar.gz archive
func (l *LambdaAPI) Upload(ctx context.Context, token Token, uid string, tarGz []byte) (bool, error) {
	return lambdaUpload.Call(ctx, l.rpc, token, uid, tarGz)
}

// Download returns the lambda content as a tar.gz archive
func (l *LambdaAPI) Download(ctx context.Context, token Token, uid string) ([]byte, error) {
	return lambdaDownload.Call(ctx, l.rpc, token, uid)
}

// Push writes a single file
func (l *LambdaAPI) Push(ctx context.Context, token Token, uid, file string, content []byte) (bool, error) {
	return lambdaPush.Call(ctx, l.rpc, token, uid, file, content)
}

// Pull reads a single file
func (l *LambdaAPI) Pull(ctx context.Context, token Token, uid, file string) ([]byte, error) {
	return lambdaPull.Call(ctx, l.rpc, token, uid, file)
}

func (l *LambdaAPI) Remove(ctx context.Context, token Token, uid string) (bool, error) {
	return lambdaRemove.Call(ctx, l.rpc, token, uid)
}

// Files lists a directory relative to the lambda root
func (l *LambdaAPI) Files(ctx context.Context, token Token, uid, dir string) ([]File, error) {
	return lambdaFiles.Call(ctx, l.rpc, token, uid, dir)
}

func (l *LambdaAPI) Info(ctx context.Context, token Token, uid string) (Definition, error) {
	return lambdaInfo.Call(ctx, l.rpc, token, uid)
}

// Update replaces the lambda manifest
func (l *LambdaAPI) Update(ctx context.Context, token Token, uid string, manifest Manifest) (Definition, error) {
	return lambdaUpdate.Call(ctx, l.rpc, token, uid, manifest)
}

// CreateFile creates an empty file, or a directory when dir is set
func (l *LambdaAPI) CreateFile(ctx context.Context, token Token, uid, path string, dir bool) (bool, error) {
	return lambdaCreateFile.Call(ctx, l.rpc, token, uid, path, dir)
}

func (l *LambdaAPI) RemoveFile(ctx context.Context, token Token, uid, path string) (bool, error) {
	return lambdaRemoveFile.Call(ctx, l.rpc, token, uid, path)
}

func (l *LambdaAPI) RenameFile(ctx context.Context, token Token, uid, oldPath, newPath string) (bool, error) {
	return lambdaRenameFile.Call(ctx, l.rpc, token, uid, oldPath, newPath)
}

// Stats returns the last limit invocation records of the lambda
func (l *LambdaAPI) Stats(ctx context.Context, token Token, uid string, limit int) ([]Record, error) {
	return lambdaStats.Call(ctx, l.rpc, token, uid, limit)
}

// Actions lists the actions that Invoke accepts
func (l *LambdaAPI) Actions(ctx context.Context, token Token, uid string) ([]string, error) {
	return lambdaActions.Call(ctx, l.rpc, token, uid)
}

// Invoke runs an action and returns its output
func (l *LambdaAPI) Invoke(ctx context.Context, token Token, uid, action string) (string, error) {
	return lambdaInvoke.Call(ctx, l.rpc, token, uid, action)
}

// Link adds an alias to the lambda
func (l *LambdaAPI) Link(ctx context.Context, token Token, uid, alias string) (Definition, error) {
	return lambdaLink.Call(ctx, l.rpc, token, uid, alias)
}

// Unlink removes an alias and returns the lambda it pointed to
func (l *LambdaAPI) Unlink(ctx context.Context, token Token, alias string) (Definition, error) {
	return lambdaUnlink.Call(ctx, l.rpc, token, alias)
}

// LambdaBatch enqueues LambdaAPI calls
type LambdaBatch struct {
	b *batcher.Batch
}

func (l LambdaBatch) Upload(token Token, uid string, tarGz []byte) int64 {
	return lambdaUpload.Enqueue(l.b, token, uid, tarGz)
}

func (l LambdaBatch) Download(token Token, uid string) int64 {
	return lambdaDownload.Enqueue(l.b, token, uid)
}

func (l LambdaBatch) Push(token Token, uid, file string, content []byte) int64 {
	return lambdaPush.Enqueue(l.b, token, uid, file, content)
}

func (l LambdaBatch) Pull(token Token, uid, file string) int64 {
	return lambdaPull.Enqueue(l.b, token, uid, file)
}

func (l LambdaBatch) Remove(token Token, uid string) int64 {
	return lambdaRemove.Enqueue(l.b, token, uid)
}

func (l LambdaBatch) Files(token Token, uid, dir string) int64 {
	return lambdaFiles.Enqueue(l.b, token, uid, dir)
}

func (l LambdaBatch) Info(token Token, uid string) int64 {
	return lambdaInfo.Enqueue(l.b, token, uid)
}

func (l LambdaBatch) Update(token Token, uid string, manifest Manifest) int64 {
	return lambdaUpdate.Enqueue(l.b, token, uid, manifest)
}

func (l LambdaBatch) CreateFile(token Token, uid, path string, dir bool) int64 {
	return lambdaCreateFile.Enqueue(l.b, token, uid, path, dir)
}

func (l LambdaBatch) RemoveFile(token Token, uid, path string) int64 {
	return lambdaRemoveFile.Enqueue(l.b, token, uid, path)
}

func (l LambdaBatch) RenameFile(token Token, uid, oldPath, newPath string) int64 {
	return lambdaRenameFile.Enqueue(l.b, token, uid, oldPath, newPath)
}

func (l LambdaBatch) Stats(token Token, uid string, limit int) int64 {
	return lambdaStats.Enqueue(l.b, token, uid, limit)
}

func (l LambdaBatch) Actions(token Token, uid string) int64 {
	return lambdaActions.Enqueue(l.b, token, uid)
}

func (l LambdaBatch) Invoke(token Token, uid, action string) int64 {
	return lambdaInvoke.Enqueue(l.b, token, uid, action)
}

func (l LambdaBatch) Link(token Token, uid, alias string) int64 {
	return lambdaLink.Enqueue(l.b, token, uid, alias)
}

func (l LambdaBatch) Unlink(token Token, alias string) int64 {
	return lambdaUnlink.Enqueue(l.b, token, alias)
}
