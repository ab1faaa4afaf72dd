package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/mcpchat/notion-chat/pkg/config"
	"github.com/mcpchat/notion-chat/pkg/llm"
	"github.com/mcpchat/notion-chat/pkg/logging"
)

var _ llm.Completer = (*Client)(nil)

type chatCompletionClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Settings configures the OpenAI completer.
type Settings struct {
	APIKey  string
	BaseURL string
	Model   config.ModelConfig
}

// SettingsFrom extracts OpenAI settings from the service settings.
func SettingsFrom(s *config.Settings) Settings {
	model := s.ChatModelConfig()
	model.ModelName = s.OpenAIModel
	return Settings{APIKey: s.OpenAIAPIKey, BaseURL: s.OpenAIBaseURL, Model: model}
}

// lmStudioAPIKey is accepted and ignored by LM Studio's local server.
const lmStudioAPIKey = "lm-studio"

// LMStudioSettingsFrom targets a local LM Studio server through its
// OpenAI-compatible endpoint.
func LMStudioSettingsFrom(s *config.Settings) Settings {
	model := s.ChatModelConfig()
	model.ModelName = s.LMStudioModel
	return Settings{APIKey: lmStudioAPIKey, BaseURL: s.LMStudioBaseURL, Model: model}
}

// Option configures the OpenAI client.
type Option func(*Client)

// WithChatClient injects a custom Chat Completions client (primarily for tests).
func WithChatClient(chat chatCompletionClient) Option {
	return func(c *Client) {
		if chat != nil {
			c.chatCompletions = chat
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

// Client answers plain prompts with OpenAI Chat Completions.
type Client struct {
	mu sync.Mutex

	settings Settings
	logger   logging.Logger

	chatCompletions chatCompletionClient

	initialized bool
	initErr     error
}

// NewClient builds an OpenAI completer; the API client is created on first use.
func NewClient(settings Settings, opts ...Option) *Client {
	c := &Client{
		settings: settings,
		logger:   logging.NewAPILogger("openai"),
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

	if c.chatCompletions != nil {
		return nil
	}

	apiKey := strings.TrimSpace(c.settings.APIKey)
	if apiKey == "" {
		c.initErr = fmt.Errorf("%w: please export OPENAI_API_KEY (and optionally OPENAI_BASE_URL)", llm.ErrNotConfigured)
		return c.initErr
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHeaderAdd(llm.ClientHeaderName, llm.ClientHeaderValue),
	}
	if baseURL := strings.TrimSpace(c.settings.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(opts...)
	service := client.Chat.Completions
	c.chatCompletions = &service
	return nil
}

// Complete sends the prompt as a single user message.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.ensureInitialized(); err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.modelName()),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	}
	c.applyGenerationConfig(&params)

	resp, err := c.chatCompletions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) modelName() string {
	if name := strings.TrimSpace(c.settings.Model.ModelName); name != "" {
		return name
	}
	return string(shared.ChatModelGPT4oMini)
}

func (c *Client) applyGenerationConfig(params *openai.ChatCompletionNewParams) {
	model := c.settings.Model
	if model.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(model.MaxTokens))
	}
	if !allowsSamplingParams(string(params.Model)) {
		c.logger.Debug("sampling parameters not supported for model; using defaults", "model", params.Model)
		return
	}
	if model.Temperature != nil {
		params.Temperature = openai.Float(float64(*model.Temperature))
	}
}

// allowsSamplingParams reports whether the model accepts temperature; the
// reasoning families reject it.
func allowsSamplingParams(model string) bool {
	model = strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(model, "o1"),
		strings.HasPrefix(model, "o3"),
		strings.HasPrefix(model, "o4"):
		return false
	default:
		return true
	}
}
