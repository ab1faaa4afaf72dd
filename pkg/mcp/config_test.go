package mcp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_JSON(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "secret")

	path := writeConfig(t, "mcp_config.json", `{
  "mcpServers": {
    "notion": {
      "command": "npx",
      "args": ["-y", "@notionhq/notion-mcp-server"],
      "env": {"OPENAPI_MCP_HEADERS": "Bearer ${NOTION_TOKEN}"}
    },
    "remote": {
      "type": "sse",
      "url": "${REMOTE_URL:-https://example.com/mcp}",
      "headers": {"Authorization": "Bearer token123"}
    }
  }
}`)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, config.MCPServers, 2)

	notion := config.MCPServers["notion"]
	assert.Equal(t, "npx", notion.Command)
	assert.Equal(t, []string{"-y", "@notionhq/notion-mcp-server"}, notion.Args)
	assert.Equal(t, "Bearer secret", notion.Env["OPENAPI_MCP_HEADERS"])
	assert.Equal(t, TransportStdio, notion.Transport())

	remote := config.MCPServers["remote"]
	assert.Equal(t, TransportSSE, remote.Transport())
	assert.Equal(t, "https://example.com/mcp", remote.URL)
	assert.Equal(t, "Bearer token123", remote.Headers["Authorization"])

	assert.Equal(t, []string{"notion", "remote"}, config.Servers())
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "mcp.yaml", `
mcpServers:
  notion:
    type: http
    url: https://mcp.notion.com/mcp
    headers:
      Authorization: Bearer abc
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	notion := config.MCPServers["notion"]
	assert.Equal(t, TransportHTTP, notion.Transport())
	assert.Equal(t, "https://mcp.notion.com/mcp", notion.URL)
	assert.Equal(t, "Bearer abc", notion.Headers["Authorization"])
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"missing file", "", "", "failed to read config file"},
		{"bad json", "c.json", `{"mcpServers":`, "failed to parse config JSON"},
		{"bad yaml", "c.yml", "mcpServers: [", "failed to parse config YAML"},
		{"stdio without command", "c.json", `{"mcpServers":{"a":{}}}`, "command is required"},
		{"sse without url", "c.json", `{"mcpServers":{"a":{"type":"sse"}}}`, "url is required for sse"},
		{"unknown type", "c.json", `{"mcpServers":{"a":{"type":"ws","url":"x"}}}`, "unsupported server type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing.json")
			if tt.file != "" {
				path = writeConfig(t, tt.file, tt.content)
			}
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("MCP_SET", "value")
	t.Setenv("MCP_EMPTY", "")

	assert.Equal(t, "value", expandEnvVars("${MCP_SET}"))
	assert.Equal(t, "value", expandEnvVars("${MCP_SET:-fallback}"))
	assert.Equal(t, "fallback", expandEnvVars("${MCP_EMPTY:-fallback}"))
	assert.Equal(t, "", expandEnvVars("${MCP_UNSET_VARIABLE}"))
	assert.Equal(t, "a-value-b", expandEnvVars("a-${MCP_SET}-b"))
	assert.Equal(t, "$HOME stays", expandEnvVars("$HOME stays"))
}

func TestServerConfig_Environ(t *testing.T) {
	sc := ServerConfig{Env: map[string]string{"B": "2", "A": "1"}}
	assert.Equal(t, []string{"A=1", "B=2"}, sc.Environ())
}
