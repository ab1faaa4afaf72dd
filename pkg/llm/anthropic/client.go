package anthropic

import (
	"context"
	"fmt"
	"strings"
	"sync"

	anthropic_sdk "github.com/anthropics/anthropic-sdk-go"
	anthropic_option "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mcpchat/notion-chat/pkg/config"
	"github.com/mcpchat/notion-chat/pkg/llm"
	"github.com/mcpchat/notion-chat/pkg/logging"
)

const (
	defaultClaudeModel = "claude-3-5-sonnet-20241022"
	defaultMaxTokens   = 1024
)

var _ llm.Completer = (*Client)(nil)

type messageClient interface {
	New(ctx context.Context, body anthropic_sdk.MessageNewParams, opts ...anthropic_option.RequestOption) (*anthropic_sdk.Message, error)
}

// Settings configures the Anthropic completer.
type Settings struct {
	APIKey string
	Model  config.ModelConfig
}

// SettingsFrom extracts Anthropic settings from the service settings.
func SettingsFrom(s *config.Settings) Settings {
	model := s.ChatModelConfig()
	model.ModelName = s.AnthropicModel
	return Settings{APIKey: s.AnthropicAPIKey, Model: model}
}

// Option configures the Anthropic client.
type Option func(*Client)

// WithMessageClient injects a custom Messages client (primarily for tests).
func WithMessageClient(client messageClient) Option {
	return func(c *Client) {
		if client != nil {
			c.messages = client
		}
	}
}

// WithLogger injects a custom logger implementation.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client answers plain prompts with the Anthropic Messages API.
type Client struct {
	mu sync.Mutex

	settings Settings
	logger   logging.Logger
	messages messageClient

	initialized bool
	initErr     error
}

// NewClient builds an Anthropic completer; the API client is created on first use.
func NewClient(settings Settings, opts ...Option) *Client {
	c := &Client{
		settings: settings,
		logger:   logging.NewAPILogger("anthropic"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ensureInitialized() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return c.initErr
	}
	c.initialized = true

	if c.messages != nil {
		return nil
	}

	apiKey := strings.TrimSpace(c.settings.APIKey)
	if apiKey == "" {
		c.initErr = fmt.Errorf("%w: please export ANTHROPIC_API_KEY", llm.ErrNotConfigured)
		return c.initErr
	}

	client := anthropic_sdk.NewClient(
		anthropic_option.WithAPIKey(apiKey),
		anthropic_option.WithHeaderAdd(llm.ClientHeaderName, llm.ClientHeaderValue),
	)
	service := client.Messages
	c.messages = &service
	return nil
}

// Complete sends the prompt as a single user message and joins the text blocks
// of the reply.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.ensureInitialized(); err != nil {
		return "", err
	}

	model := c.settings.Model
	name := strings.TrimSpace(model.ModelName)
	if name == "" {
		name = defaultClaudeModel
	}
	maxTokens := int64(model.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic_sdk.MessageNewParams{
		Model:     anthropic_sdk.Model(name),
		MaxTokens: maxTokens,
		Messages: []anthropic_sdk.MessageParam{
			anthropic_sdk.NewUserMessage(anthropic_sdk.NewTextBlock(prompt)),
		},
	}
	if model.Temperature != nil {
		params.Temperature = anthropic_sdk.Float(float64(*model.Temperature))
	}

	resp, err := c.messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type != "text" || strings.TrimSpace(block.Text) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(block.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}
