package llm

import (
	"context"
	"errors"
	"net/http"
)

const (
	// ClientHeaderName identifies this service to downstream LLM providers.
	ClientHeaderName = "X-Notion-Chat-Client"
	// ClientHeaderValue is the value sent with ClientHeaderName.
	ClientHeaderValue = "notion-chat"
)

// ErrNotConfigured is returned when a provider is missing its credentials.
var ErrNotConfigured = errors.New("llm provider not configured")

// Completer produces a single plain-text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// DefaultHTTPHeaders returns a copy of the standard headers for outbound LLM requests.
func DefaultHTTPHeaders() http.Header {
	h := make(http.Header)
	h.Add(ClientHeaderName, ClientHeaderValue)
	return h
}
