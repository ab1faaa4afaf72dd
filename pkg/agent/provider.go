package agent

import (
	"context"
	"fmt"
)

// ToolSource is a Toolbox whose readiness can be checked before use.
type ToolSource interface {
	Toolbox
	Connected() bool
}

// Provider hands out agents bound to the shared tool sessions.
type Provider struct {
	tools ToolSource
	model Model
	opts  Options
}

// NewProvider creates a provider over the shared tool source and model.
func NewProvider(tools ToolSource, model Model, opts Options) *Provider {
	return &Provider{tools: tools, model: model, opts: opts}
}

// Agent returns a ready agent, or ErrAgentUnavailable when the tool sessions
// are not connected.
func (p *Provider) Agent(ctx context.Context) (Runner, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.tools == nil || !p.tools.Connected() {
		return nil, fmt.Errorf("%w: tool sessions are not connected", ErrAgentUnavailable)
	}
	if p.model == nil {
		return nil, fmt.Errorf("%w: no model configured", ErrAgentUnavailable)
	}
	return New(p.model, p.tools, p.opts), nil
}
