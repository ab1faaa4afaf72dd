package di

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mcpchat/notion-chat/pkg/agent"
	"github.com/mcpchat/notion-chat/pkg/chat"
	"github.com/mcpchat/notion-chat/pkg/config"
	"github.com/mcpchat/notion-chat/pkg/llm"
	"github.com/mcpchat/notion-chat/pkg/llm/anthropic"
	genaillm "github.com/mcpchat/notion-chat/pkg/llm/genai"
	"github.com/mcpchat/notion-chat/pkg/llm/multiplexer"
	"github.com/mcpchat/notion-chat/pkg/llm/ollama"
	"github.com/mcpchat/notion-chat/pkg/llm/openai"
	"github.com/mcpchat/notion-chat/pkg/logging"
	"github.com/mcpchat/notion-chat/pkg/mcp"
	"github.com/mcpchat/notion-chat/pkg/server"
)

const agentInstruction = `You are a helpful assistant with access to the user's Notion workspace through tools.
Use the tools to search and read pages before answering questions about the workspace.
Answer concisely and mention the pages you used.`

// App holds the long-lived handles of a running service.
type App struct {
	Settings *config.Settings
	Pool     *mcp.Pool
	Chat     *chat.Service
	Server   *server.Server
}

// ProvideMCPConfig loads the MCP server configuration. A missing file yields
// an empty configuration so the service can still answer in plain mode.
func ProvideMCPConfig(settings *config.Settings) (*mcp.Config, error) {
	cfg, err := mcp.LoadConfig(settings.MCPConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		logging.Warn("MCP config not found, tool sessions disabled", "path", settings.MCPConfigPath)
		return &mcp.Config{}, nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProvideMCPPool opens the shared tool sessions. A failed connect leaves the
// pool in the error state; requests needing tools then end with an Error event.
func ProvideMCPPool(ctx context.Context, settings *config.Settings, cfg *mcp.Config) (*mcp.Pool, func()) {
	pool := mcp.NewPool(cfg,
		mcp.WithTimeout(settings.MCPTimeout),
		mcp.WithLogger(logging.NewComponentLogger("mcp")),
	)
	if err := pool.Connect(ctx); err != nil {
		logging.Error("failed to connect MCP sessions", "error", err)
	}
	cleanup := func() {
		if err := pool.Close(); err != nil {
			logging.Warn("failed to close MCP sessions", "error", err)
		}
	}
	return pool, cleanup
}

// ProvideGenAIClient returns the shared Gemini client. Missing credentials are
// reported here and again on the first request that needs the model.
func ProvideGenAIClient(settings *config.Settings) *genaillm.Client {
	client := genaillm.NewClient(genaillm.CredentialsFromSettings(settings))
	if !client.Configured() {
		logging.Warn("no Gemini credentials, set GEMINI_API_KEY or GOOGLE_CLOUD_PROJECT", "backend", settings.GenAIBackend)
	}
	return client
}

// ProvideAgentProvider binds the agent to the pool and the agent model.
func ProvideAgentProvider(settings *config.Settings, pool *mcp.Pool, client *genaillm.Client) *agent.Provider {
	params := settings.AgentModelConfig()
	return agent.NewProvider(pool, client.Model(params.ModelName), agent.Options{
		Temperature:     params.Temperature,
		MaxOutputTokens: params.MaxTokens,
		MaxSteps:        settings.AgentMaxSteps,
		IncludeThoughts: settings.GeminiIncludeThoughts,
		Instruction:     agentInstruction,
	})
}

// ProvideCompleter routes plain completions to CHAT_PROVIDER.
func ProvideCompleter(settings *config.Settings, client *genaillm.Client) (*multiplexer.Client, error) {
	factories := map[string]multiplexer.Factory{
		"gemini": func() (llm.Completer, error) {
			return client.Completer(settings.ChatModelConfig()), nil
		},
		"openai": func() (llm.Completer, error) {
			return openai.NewClient(openai.SettingsFrom(settings)), nil
		},
		"anthropic": func() (llm.Completer, error) {
			return anthropic.NewClient(anthropic.SettingsFrom(settings)), nil
		},
		"ollama": func() (llm.Completer, error) {
			return ollama.NewClient(ollama.SettingsFrom(settings)), nil
		},
		"lmstudio": func() (llm.Completer, error) {
			return openai.NewClient(openai.LMStudioSettingsFrom(settings),
				openai.WithLogger(logging.NewAPILogger("lmstudio"))), nil
		},
	}
	mux, err := multiplexer.NewClient(settings.ChatProvider, factories, multiplexer.DefaultAliases)
	if err != nil {
		return nil, err
	}
	if err := mux.WarmUp(mux.DefaultProvider()); err != nil {
		return nil, fmt.Errorf("chat provider %s: %w", mux.DefaultProvider(), err)
	}
	logging.Debug("plain completions ready", "provider", mux.DefaultProvider())
	return mux, nil
}

// ProvideChatService builds the stream orchestrator.
func ProvideChatService(agents chat.AgentProvider, completer chat.Completer) *chat.Service {
	return chat.NewService(agents, completer)
}

// ProvideServer builds the HTTP server.
func ProvideServer(settings *config.Settings, svc *chat.Service, pool *mcp.Pool) *server.Server {
	return server.New(server.OptionsFromSettings(settings), svc, pool)
}

// ProvideApp groups the handles returned to the command layer.
func ProvideApp(settings *config.Settings, pool *mcp.Pool, svc *chat.Service, srv *server.Server) *App {
	return &App{Settings: settings, Pool: pool, Chat: svc, Server: srv}
}
