package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
)

// DefaultEnvFile is the dotenv file read when no explicit path is given.
const DefaultEnvFile = ".env"

// ModelConfig represents the configuration of a single model call.
// A nil Temperature leaves the provider default in place.
type ModelConfig struct {
	ModelName   string
	MaxTokens   int32
	Temperature *float32
	TopP        float32
}

// Float32 returns a pointer to v.
func Float32(v float32) *float32 {
	return &v
}

// Settings holds the service configuration loaded from the environment.
type Settings struct {
	// LLM
	GeminiAPIKey          string  `env:"GEMINI_API_KEY"`
	GeminiAPIKeyLegacy    string  `env:"GEMINI_API"`
	GenAIBackend          string  `env:"GENAI_BACKEND" envDefault:"gemini"`
	GoogleCloudProject    string  `env:"GOOGLE_CLOUD_PROJECT"`
	GoogleCloudLocation   string  `env:"GOOGLE_CLOUD_LOCATION" envDefault:"us-central1"`
	AgentModel            string  `env:"AGENT_MODEL" envDefault:"gemini-2.5-pro"`
	ChatModel             string  `env:"CHAT_MODEL" envDefault:"gemini-2.5-flash"`
	Temperature           float32 `env:"MODEL_TEMPERATURE" envDefault:"0.7"`
	MaxTokens             int32   `env:"MODEL_MAX_TOKENS" envDefault:"8192"`
	AgentMaxSteps         int     `env:"AGENT_MAX_STEPS" envDefault:"30"`
	GeminiIncludeThoughts bool    `env:"GEMINI_INCLUDE_THOUGHTS" envDefault:"false"`

	// Plain completion provider
	ChatProvider    string `env:"CHAT_PROVIDER" envDefault:"gemini"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL"`
	OpenAIModel     string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-sonnet-20241022"`
	OllamaHost      string `env:"OLLAMA_HOST" envDefault:"http://127.0.0.1:11434"`
	OllamaModel     string `env:"OLLAMA_MODEL" envDefault:"llama3.1"`
	LMStudioBaseURL string `env:"LMSTUDIO_BASE_URL" envDefault:"http://localhost:1234/v1"`
	LMStudioModel   string `env:"LMSTUDIO_MODEL" envDefault:"local-model"`

	// App
	AppName   string `env:"APP_NAME" envDefault:"Notion-MCP-Chat"`
	Debug     bool   `env:"DEBUG" envDefault:"false"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string `env:"LOG_FORMAT"`

	// Server
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8000"`
	PingInterval    time.Duration `env:"SSE_PING_INTERVAL" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// MCP
	MCPConfigPath string        `env:"MCP_CONFIG_PATH" envDefault:"mcp_config.json"`
	MCPTimeout    time.Duration `env:"MCP_TIMEOUT" envDefault:"10s"`
}

// Load reads the dotenv file (if it exists) and parses the environment into Settings.
// Values already present in the process environment win over the dotenv file.
func Load(envFile string) (*Settings, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	var s Settings
	if err := env.Parse(&s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	if s.GeminiAPIKey == "" {
		s.GeminiAPIKey = s.GeminiAPIKeyLegacy
	}

	path, err := homedir.Expand(s.MCPConfigPath)
	if err != nil {
		return nil, fmt.Errorf("invalid MCP_CONFIG_PATH %q: %w", s.MCPConfigPath, err)
	}
	s.MCPConfigPath = path

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks settings that would otherwise fail late at request time.
func (s *Settings) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", s.Port)
	}
	if s.PingInterval <= 0 {
		return fmt.Errorf("SSE_PING_INTERVAL must be positive, got %s", s.PingInterval)
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("MODEL_TEMPERATURE must be between 0 and 2, got %g", s.Temperature)
	}
	if s.AgentMaxSteps <= 0 {
		return fmt.Errorf("AGENT_MAX_STEPS must be positive, got %d", s.AgentMaxSteps)
	}
	switch strings.ToLower(s.GenAIBackend) {
	case "gemini", "vertex":
	default:
		return fmt.Errorf("unsupported GENAI_BACKEND %q", s.GenAIBackend)
	}
	return nil
}

// EffectiveLogLevel returns LOG_LEVEL, or DEBUG when DEBUG is set.
func (s *Settings) EffectiveLogLevel() string {
	if s.Debug {
		return "DEBUG"
	}
	return s.LogLevel
}

// Addr returns the listen address for the HTTP server.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AgentModelConfig returns the model configuration used by the tool-augmented agent.
func (s *Settings) AgentModelConfig() ModelConfig {
	return s.modelConfig(s.AgentModel)
}

// ChatModelConfig returns the model configuration used for plain completions.
func (s *Settings) ChatModelConfig() ModelConfig {
	return s.modelConfig(s.ChatModel)
}

func (s *Settings) modelConfig(name string) ModelConfig {
	return ModelConfig{
		ModelName:   name,
		MaxTokens:   s.MaxTokens,
		Temperature: Float32(s.Temperature),
		TopP:        0.9,
	}
}
