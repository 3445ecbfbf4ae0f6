package api

import (
	"context"

	"cgiclient/internal/batcher"
	"cgiclient/internal/rpcclient"
)

var (
	projectConfig             = rpcclient.NewMethod[Settings]("ProjectAPI.Config")
	projectSetUser            = rpcclient.NewMethod[Settings]("ProjectAPI.SetUser")
	projectSetEnvironment     = rpcclient.NewMethod[Settings]("ProjectAPI.SetEnvironment")
	projectAllTemplates       = rpcclient.SliceMethod[TemplateStatus]("ProjectAPI.AllTemplates")
	projectList               = rpcclient.SliceMethod[Definition]("ProjectAPI.List")
	projectTemplates          = rpcclient.SliceMethod[Template]("ProjectAPI.Templates")
	projectStats              = rpcclient.SliceMethod[Record]("ProjectAPI.Stats")
	projectCreate             = rpcclient.NewMethod[Definition]("ProjectAPI.Create")
	projectCreateFromTemplate = rpcclient.NewMethod[Definition]("ProjectAPI.CreateFromTemplate")
	projectCreateFromGit      = rpcclient.NewMethod[Definition]("ProjectAPI.CreateFromGit")
)

// ProjectAPI manages project settings and creates lambdas
type ProjectAPI struct {
	rpc *rpcclient.Client
}

// Config returns the project settings
func (p *ProjectAPI) Config(ctx context.Context, token Token) (Settings, error) {
	return projectConfig.Call(ctx, p.rpc, token)
}

// SetUser changes the system user lambdas run as
func (p *ProjectAPI) SetUser(ctx context.Context, token Token, user string) (Settings, error) {
	return projectSetUser.Call(ctx, p.rpc, token, user)
}

// SetEnvironment replaces the project-wide environment
func (p *ProjectAPI) SetEnvironment(ctx context.Context, token Token, env Environment) (Settings, error) {
	return projectSetEnvironment.Call(ctx, p.rpc, token, env)
}

// AllTemplates lists every known template with its availability
func (p *ProjectAPI) AllTemplates(ctx context.Context, token Token) ([]TemplateStatus, error) {
	return projectAllTemplates.Call(ctx, p.rpc, token)
}

// List returns every deployed lambda
func (p *ProjectAPI) List(ctx context.Context, token Token) ([]Definition, error) {
	return projectList.Call(ctx, p.rpc, token)
}

// Templates lists the templates available on the server
func (p *ProjectAPI) Templates(ctx context.Context, token Token) ([]Template, error) {
	return projectTemplates.Call(ctx, p.rpc, token)
}

// Stats returns the last limit invocation records of the project
func (p *ProjectAPI) Stats(ctx context.Context, token Token, limit int) ([]Record, error) {
	return projectStats.Call(ctx, p.rpc, token, limit)
}

// Create makes an empty lambda
func (p *ProjectAPI) Create(ctx context.Context, token Token) (Definition, error) {
	return projectCreate.Call(ctx, p.rpc, token)
}

// CreateFromTemplate makes a lambda from a named template
func (p *ProjectAPI) CreateFromTemplate(ctx context.Context, token Token, templateName string) (Definition, error) {
	return projectCreateFromTemplate.Call(ctx, p.rpc, token, templateName)
}

// CreateFromGit makes a lambda by cloning a repository
func (p *ProjectAPI) CreateFromGit(ctx context.Context, token Token, repo string) (Definition, error) {
	return projectCreateFromGit.Call(ctx, p.rpc, token, repo)
}

// ProjectBatch enqueues ProjectAPI calls
type ProjectBatch struct {
	b *batcher.Batch
}

func (p ProjectBatch) Config(token Token) int64 {
	return projectConfig.Enqueue(p.b, token)
}

func (p ProjectBatch) SetUser(token Token, user string) int64 {
	return projectSetUser.Enqueue(p.b, token, user)
}

func (p ProjectBatch) SetEnvironment(token Token, env Environment) int64 {
	return projectSetEnvironment.Enqueue(p.b, token, env)
}

func (p ProjectBatch) AllTemplates(token Token) int64 {
	return projectAllTemplates.Enqueue(p.b, token)
}

func (p ProjectBatch) List(token Token) int64 {
	return projectList.Enqueue(p.b, token)
}

func (p ProjectBatch) Templates(token Token) int64 {
	return projectTemplates.Enqueue(p.b, token)
}

func (p ProjectBatch) Stats(token Token, limit int) int64 {
	return projectStats.Enqueue(p.b, token, limit)
}

func (p ProjectBatch) Create(token Token) int64 {
	return projectCreate.Enqueue(p.b, token)
}

func (p ProjectBatch) CreateFromTemplate(token Token, templateName string) int64 {
	return projectCreateFromTemplate.Enqueue(p.b, token, templateName)
}

func (p ProjectBatch) CreateFromGit(token Token, repo string) int64 {
	return projectCreateFromGit.Enqueue(p.b, token, repo)
}
