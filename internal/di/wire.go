//go:build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/mcpchat/notion-chat/pkg/agent"
	"github.com/mcpchat/notion-chat/pkg/chat"
	"github.com/mcpchat/notion-chat/pkg/config"
	"github.com/mcpchat/notion-chat/pkg/llm/multiplexer"
)

var pipelineSet = wire.NewSet(
	ProvideMCPConfig,
	ProvideMCPPool,
	ProvideGenAIClient,
	ProvideAgentProvider,
	ProvideCompleter,
	ProvideChatService,
	wire.Bind(new(chat.AgentProvider), new(*agent.Provider)),
	wire.Bind(new(chat.Completer), new(*multiplexer.Client)),
)

// InitializeApp wires the full service. The returned cleanup closes the MCP
// sessions.
func InitializeApp(ctx context.Context, settings *config.Settings) (*App, func(), error) {
	wire.Build(pipelineSet, ProvideServer, ProvideApp)
	return nil, nil, nil
}

// InitializeChatService wires the orchestrator alone, for one-shot commands.
func InitializeChatService(ctx context.Context, settings *config.Settings) (*chat.Service, func(), error) {
	wire.Build(pipelineSet)
	return nil, nil, nil
}
