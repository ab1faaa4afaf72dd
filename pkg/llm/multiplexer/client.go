package multiplexer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mcpchat/notion-chat/pkg/llm"
)

// Factory creates a completer for a specific provider.
type Factory func() (llm.Completer, error)

// DefaultAliases maps common provider nicknames to canonical names.
var DefaultAliases = map[string]string{
	"google":    "gemini",
	"genai":     "gemini",
	"claude":    "anthropic",
	"gpt":       "openai",
	"lm-studio": "lmstudio",
	"local":     "ollama",
}

// Client routes completions to the configured provider, creating provider
// clients lazily and caching them.
type Client struct {
	mu sync.RWMutex

	factories       map[string]Factory
	aliases         map[string]string
	clients         map[string]llm.Completer
	defaultProvider string
}

var _ llm.Completer = (*Client)(nil)

// NewClient creates a multiplexer with lazy provider initialization.
func NewClient(defaultProvider string, factories map[string]Factory, aliases map[string]string) (*Client, error) {
	if len(factories) == 0 {
		return nil, fmt.Errorf("multiplexer: no LLM factories registered")
	}

	factoriesLC := make(map[string]Factory, len(factories))
	for name, factory := range factories {
		if factory == nil {
			return nil, fmt.Errorf("multiplexer: factory for provider %q is nil", name)
		}
		factoriesLC[strings.ToLower(name)] = factory
	}

	aliasesLC := make(map[string]string, len(aliases))
	for from, to := range aliases {
		if from == "" || to == "" {
			continue
		}
		aliasesLC[strings.ToLower(from)] = strings.ToLower(to)
	}

	c := &Client{
		factories: factoriesLC,
		aliases:   aliasesLC,
		clients:   make(map[string]llm.Completer),
	}

	name := defaultProvider
	if strings.TrimSpace(name) == "" {
		name = "gemini"
	}
	canonical, err := c.canonicalize(name)
	if err != nil {
		return nil, fmt.Errorf("multiplexer: unsupported default provider %q", defaultProvider)
	}
	c.defaultProvider = canonical
	return c, nil
}

// DefaultProvider returns the canonical default provider name.
func (c *Client) DefaultProvider() string {
	return c.defaultProvider
}

// WarmUp eagerly initializes the requested provider.
func (c *Client) WarmUp(provider string) error {
	_, err := c.clientFor(provider)
	return err
}

// Complete delegates to the default provider.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	client, err := c.clientFor(c.defaultProvider)
	if err != nil {
		return "", err
	}
	return client.Complete(ctx, prompt)
}

func (c *Client) clientFor(provider string) (llm.Completer, error) {
	canonical, err := c.canonicalize(provider)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	if existing := c.clients[canonical]; existing != nil {
		c.mu.RUnlock()
		return existing, nil
	}
	c.mu.RUnlock()

	client, err := c.factories[canonical]()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing := c.clients[canonical]; existing != nil {
		return existing, nil
	}
	c.clients[canonical] = client
	return client, nil
}

func (c *Client) canonicalize(provider string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(provider))
	if key == "" {
		key = c.defaultProvider
	}

	if _, ok := c.factories[key]; ok {
		return key, nil
	}
	if alias, ok := c.aliases[key]; ok {
		if _, ok := c.factories[alias]; ok {
			return alias, nil
		}
	}
	return "", fmt.Errorf("multiplexer: unsupported LLM provider %q", provider)
}
