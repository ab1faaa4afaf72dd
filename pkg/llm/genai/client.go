package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/mcpchat/notion-chat/pkg/agent"
	"github.com/mcpchat/notion-chat/pkg/config"
	"github.com/mcpchat/notion-chat/pkg/llm"
	"github.com/mcpchat/notion-chat/pkg/logging"
)

// Backend represents the GenAI backend to use.
type Backend string

const (
	BackendVertexAI  Backend = "vertex"
	BackendGeminiAPI Backend = "gemini"

	defaultLocation = "us-central1"
)

var errNoBackend = fmt.Errorf("%w: no valid Gemini backend. Set GEMINI_API_KEY (https://aistudio.google.com/apikey) "+
	"or GOOGLE_CLOUD_PROJECT for Vertex AI", llm.ErrNotConfigured)

// Credentials selects and authenticates the GenAI backend.
type Credentials struct {
	APIKey   string
	Backend  Backend
	Project  string
	Location string
}

// CredentialsFromSettings extracts GenAI credentials from the service settings.
func CredentialsFromSettings(s *config.Settings) Credentials {
	return Credentials{
		APIKey:   s.GeminiAPIKey,
		Backend:  Backend(strings.ToLower(s.GenAIBackend)),
		Project:  s.GoogleCloudProject,
		Location: s.GoogleCloudLocation,
	}
}

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Client wraps a lazily created genai.Client shared by every model of the
// service.
type Client struct {
	creds  Credentials
	logger logging.Logger

	// Allows tests to intercept generate content calls.
	generateFn generateFunc

	mu          sync.Mutex
	client      *genai.Client
	backend     Backend
	initialized bool
	initErr     error
}

// NewClient creates a client that connects on first use.
func NewClient(creds Credentials) *Client {
	if creds.Backend == "" {
		creds.Backend = BackendGeminiAPI
	}
	return &Client{
		creds:  creds,
		logger: logging.NewAPILogger("genai"),
	}
}

// ensureInitialized creates the underlying client once, falling back to the
// other backend when the preferred one is not configured.
func (c *Client) ensureInitialized(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return c.initErr
	}
	c.initialized = true

	if c.generateFn != nil {
		return nil
	}

	fallback := BackendVertexAI
	if c.creds.Backend == BackendVertexAI {
		fallback = BackendGeminiAPI
	}

	client, err := c.createClient(ctx, c.creds.Backend)
	backend := c.creds.Backend
	if err != nil {
		c.logger.Debug("preferred GenAI backend unavailable", "backend", backend, "error", err)
		client, err = c.createClient(ctx, fallback)
		backend = fallback
	}
	if err != nil {
		c.initErr = errNoBackend
		return c.initErr
	}

	c.client = client
	c.backend = backend
	c.generateFn = client.Models.GenerateContent
	c.logger.Debug("GenAI client initialized", "backend", backend)
	return nil
}

func (c *Client) createClient(ctx context.Context, backend Backend) (*genai.Client, error) {
	cfg := &genai.ClientConfig{}
	cfg.HTTPOptions.Headers = llm.DefaultHTTPHeaders()

	switch backend {
	case BackendGeminiAPI:
		if c.creds.APIKey == "" {
			return nil, errors.New("GEMINI_API_KEY not configured")
		}
		cfg.APIKey = c.creds.APIKey
		cfg.Backend = genai.BackendGeminiAPI
	case BackendVertexAI:
		if c.creds.Project == "" {
			return nil, errors.New("GOOGLE_CLOUD_PROJECT not configured")
		}
		cfg.Project = c.creds.Project
		cfg.Location = c.creds.Location
		if cfg.Location == "" {
			cfg.Location = defaultLocation
		}
		cfg.Backend = genai.BackendVertexAI
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating %s client: %w", backend, err)
	}
	return client, nil
}

// Configured reports whether credentials exist for at least one backend.
func (c *Client) Configured() bool {
	return c.creds.APIKey != "" || c.creds.Project != ""
}

func (c *Client) generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	return c.generateFn(ctx, model, contents, cfg)
}

// Model is a Gemini model bound to the shared client.
type Model struct {
	client *Client
	name   string
}

var _ agent.Model = (*Model)(nil)

// Model returns the named model.
func (c *Client) Model(name string) *Model {
	return &Model{client: c, name: name}
}

// GenerateContent runs one generation turn.
func (m *Model) GenerateContent(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.client.generate(ctx, m.name, contents, cfg)
}

// Completer answers single prompts without tools.
type Completer struct {
	model  *Model
	params config.ModelConfig
}

var _ llm.Completer = (*Completer)(nil)

// Completer returns a plain completer for the given model configuration.
func (c *Client) Completer(params config.ModelConfig) *Completer {
	return &Completer{model: c.Model(params.ModelName), params: params}
}

// Complete sends the prompt as a single user turn and returns the joined text
// of the first candidate. An empty answer is not an error.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if c.params.Temperature != nil {
		temp := *c.params.Temperature
		cfg.Temperature = &temp
	}
	if c.params.TopP > 0 {
		topP := c.params.TopP
		cfg.TopP = &topP
	}
	if c.params.MaxTokens > 0 {
		cfg.MaxOutputTokens = c.params.MaxTokens
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := c.model.GenerateContent(ctx, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return responseText(resp), nil
}

// responseText joins the visible text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var parts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		parts = append(parts, part.Text)
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}
