package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpchat/notion-chat/pkg/config"
	"github.com/mcpchat/notion-chat/pkg/mcp"
)

func testSettings(t *testing.T, mcpConfigPath string) *config.Settings {
	t.Helper()
	return &config.Settings{
		GenAIBackend:  "gemini",
		AgentModel:    "gemini-2.5-pro",
		ChatModel:     "gemini-2.5-flash",
		AgentMaxSteps: 30,
		ChatProvider:  "gemini",
		AppName:       "Notion-MCP-Chat",
		Host:          "127.0.0.1",
		Port:          8000,
		PingInterval:  15 * time.Second,
		MCPConfigPath: mcpConfigPath,
		MCPTimeout:    time.Second,
	}
}

func TestProvideMCPConfig_MissingFile(t *testing.T) {
	cfg, err := ProvideMCPConfig(testSettings(t, filepath.Join(t.TempDir(), "absent.json")))
	require.NoError(t, err)
	assert.Empty(t, cfg.MCPServers)
}

func TestProvideMCPConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers":`), 0o600))

	_, err := ProvideMCPConfig(testSettings(t, path))
	assert.Error(t, err)
}

func TestProvideCompleter_UnknownProvider(t *testing.T) {
	settings := testSettings(t, "")
	settings.ChatProvider = "mistral"

	_, err := ProvideCompleter(settings, ProvideGenAIClient(settings))
	assert.Error(t, err)
}

func TestInitializeApp_WithoutMCPServers(t *testing.T) {
	settings := testSettings(t, filepath.Join(t.TempDir(), "absent.json"))

	app, cleanup, err := InitializeApp(context.Background(), settings)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, mcp.StatusDisconnected, app.Pool.Status())

	rec := httptest.NewRecorder()
	app.Server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mcp_status":"disconnected"`)
}

func TestProvideCompleter_WarmsDefaultProvider(t *testing.T) {
	settings := testSettings(t, "")
	settings.ChatProvider = "Ollama"

	client, err := ProvideCompleter(settings, ProvideGenAIClient(settings))
	require.NoError(t, err)
	assert.Equal(t, "ollama", client.DefaultProvider())
}
