package api

import (
	"context"

	"cgiclient/internal/batcher"
	"cgiclient/internal/rpcclient"
)

var (
	userLogin          = rpcclient.NewMethod[Token]("UserAPI.Login")
	userChangePassword = rpcclient.NewMethod[bool]("UserAPI.ChangePassword")
)

// UserAPI manages sessions
type UserAPI struct {
	rpc *rpcclient.Client
}

// Login exchanges credentials for a session token
func (u *UserAPI) Login(ctx context.Context, login, password string) (Token, error) {
	return userLogin.Call(ctx, u.rpc, login, password)
}

// ChangePassword sets a new password for the session user
func (u *UserAPI) ChangePassword(ctx context.Context, token Token, password string) (bool, error) {
	return userChangePassword.Call(ctx, u.rpc, token, password)
}

// UserBatch enqueues UserAPI calls
type UserBatch struct {
	b *batcher.Batch
}

func (u UserBatch) Login(login, password string) int64 {
	return userLogin.Enqueue(u.b, login, password)
}

func (u UserBatch) ChangePassword(token Token, password string) int64 {
	return userChangePassword.Enqueue(u.b, token, password)
}
