package mcp

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the MCP server configuration file, in the common mcpServers layout.
type Config struct {
	MCPServers map[string]ServerConfig `json:"mcpServers" yaml:"mcpServers"`
}

// ServerConfig defines how to reach one MCP server.
type ServerConfig struct {
	// stdio servers
	Command string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`

	// sse / http servers
	Type    string            `json:"type,omitempty" yaml:"type,omitempty"`
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	Disabled bool `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// TransportType is the wire transport of an MCP server.
type TransportType string

const (
	TransportStdio TransportType = "stdio"
	TransportSSE   TransportType = "sse"
	TransportHTTP  TransportType = "http"
)

// Transport returns the transport for this server, stdio when unset.
func (sc ServerConfig) Transport() TransportType {
	switch strings.ToLower(sc.Type) {
	case "sse":
		return TransportSSE
	case "http", "streamable-http", "streamable_http":
		return TransportHTTP
	default:
		return TransportStdio
	}
}

// Validate checks that the fields required by the transport are present.
func (sc ServerConfig) Validate() error {
	switch t := strings.ToLower(sc.Type); t {
	case "", "stdio", "sse", "http", "streamable-http", "streamable_http":
	default:
		return fmt.Errorf("unsupported server type %q, supported types are: stdio, sse, http", sc.Type)
	}

	transport := sc.Transport()
	switch transport {
	case TransportStdio:
		if sc.Command == "" {
			return fmt.Errorf("command is required for stdio transport")
		}
	case TransportSSE, TransportHTTP:
		if sc.URL == "" {
			return fmt.Errorf("url is required for %s transport", transport)
		}
	}
	return nil
}

// Environ returns the server environment as KEY=VALUE pairs, sorted by key.
func (sc ServerConfig) Environ() []string {
	env := make([]string, 0, len(sc.Env))
	for _, k := range slices.Sorted(maps.Keys(sc.Env)) {
		env = append(env, k+"="+sc.Env[k])
	}
	return env
}

// Servers returns the names of enabled servers in stable order.
func (c *Config) Servers() []string {
	if c == nil {
		return nil
	}
	var names []string
	for _, name := range slices.Sorted(maps.Keys(c.MCPServers)) {
		if !c.MCPServers[name].Disabled {
			names = append(names, name)
		}
	}
	return names
}

// Validate checks every enabled server.
func (c *Config) Validate() error {
	for _, name := range c.Servers() {
		if err := c.MCPServers[name].Validate(); err != nil {
			return fmt.Errorf("server %s: %w", name, err)
		}
	}
	return nil
}

// LoadConfig reads a JSON or YAML (by extension) configuration file and
// expands ${VAR} and ${VAR:-default} references before parsing.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := []byte(expandEnvVars(string(data)))

	var config Config
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(expanded, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(expanded, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-(.*?))?\}`)

// expandEnvVars expands ${VAR} or ${VAR:-default}; unset or empty variables
// take the default.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if value := os.Getenv(groups[1]); value != "" {
			return value
		}
		return groups[2]
	})
}
