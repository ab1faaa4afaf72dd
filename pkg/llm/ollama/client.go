// Package ollama answers plain prompts with a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mcpchat/notion-chat/pkg/config"
	"github.com/mcpchat/notion-chat/pkg/llm"
	"github.com/mcpchat/notion-chat/pkg/logging"
)

const (
	defaultBaseURL = "http://127.0.0.1:11434"
	chatEndpoint   = "/api/chat"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Settings configures the Ollama completer.
type Settings struct {
	Host  string
	Model config.ModelConfig
}

// SettingsFrom extracts Ollama settings from the service settings.
func SettingsFrom(s *config.Settings) Settings {
	model := s.ChatModelConfig()
	model.ModelName = s.OllamaModel
	return Settings{Host: s.OllamaHost, Model: model}
}

// Option configures the Ollama client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client (primarily for tests).
func WithHTTPClient(client httpDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
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

// Client answers plain prompts through the Ollama chat API.
type Client struct {
	settings   Settings
	baseURL    string
	httpClient httpDoer
	logger     logging.Logger
}

var _ llm.Completer = (*Client)(nil)

// NewClient builds an Ollama completer.
func NewClient(settings Settings, opts ...Option) *Client {
	c := &Client{
		settings:   settings,
		baseURL:    resolveBaseURL(settings.Host),
		httpClient: http.DefaultClient,
		logger:     logging.NewAPILogger("ollama"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	Error           string      `json:"error"`
}

// Complete sends the prompt as a single user message.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	model := strings.TrimSpace(c.settings.Model.ModelName)
	if model == "" {
		return "", fmt.Errorf("%w: please export OLLAMA_MODEL", llm.ErrNotConfigured)
	}

	resp, err := c.sendChat(ctx, chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Options:  c.buildOptions(),
	})
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama: %s", resp.Error)
	}

	c.logger.Debug("ollama completion",
		"model", resp.Model,
		"prompt_tokens", resp.PromptEvalCount,
		"output_tokens", resp.EvalCount,
	)
	return strings.TrimSpace(resp.Message.Content), nil
}

func (c *Client) buildOptions() map[string]any {
	opts := map[string]any{}
	if temp := c.settings.Model.Temperature; temp != nil {
		opts["temperature"] = *temp
	}
	if c.settings.Model.TopP > 0 {
		opts["top_p"] = c.settings.Model.TopP
	}
	if c.settings.Model.MaxTokens > 0 {
		opts["num_predict"] = c.settings.Model.MaxTokens
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

func (c *Client) sendChat(ctx context.Context, req chatRequest) (*chatResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for key, values := range llm.DefaultHTTPHeaders() {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama chat request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading ollama response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("ollama chat request failed: status %s: %s", resp.Status, string(body))
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decoding ollama response: %w", err)
	}
	return &response, nil
}

// resolveBaseURL accepts OLLAMA_HOST in either host:port or URL form.
func resolveBaseURL(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return defaultBaseURL
	}
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return strings.TrimRight(host, "/")
	}
	return "http://" + strings.TrimRight(host, "/")
}
