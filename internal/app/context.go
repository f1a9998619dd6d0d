package app

import (
	"go.uber.org/zap"

	"checkline/internal/api"
	"checkline/internal/config"
	"checkline/internal/engine"
	"checkline/internal/events"
)

// Context carries the wired collaborators for one command invocation.
type Context struct {
	Config *config.Config
	Client *api.Client
	Engine engine.Engine
	Sink   events.Sink
	Log    *zap.Logger
}

// Resolve loads the workspace config and wires the client and engine from
// it. Missing or credential-less config surfaces here and is fatal to the
// caller; no command can run without at least one account.
func Resolve(workspace string, sink events.Sink, log *zap.Logger) (*Context, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}
	client := api.New(cfg.Service.BaseURL, log)
	client.Origin = cfg.Service.Origin
	client.Referer = cfg.Service.Referer
	client.Retries = cfg.Client.Retries
	client.RetryDelay = cfg.RetryDelay()
	return &Context{
		Config: cfg,
		Client: client,
		Engine: engine.New(client, sink, log),
		Sink:   sink,
		Log:    log,
	}, nil
}

// Keys returns the resolved private keys in configured order.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.Config.Accounts))
	for _, acc := range c.Config.Accounts {
		keys = append(keys, acc.Key())
	}
	return keys
}
