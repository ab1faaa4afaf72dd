package chat

import (
	"context"
	"errors"

	anthropic_sdk "github.com/anthropics/anthropic-sdk-go"
	openai "github.com/openai/openai-go"
	"google.golang.org/genai"

	"github.com/mcpchat/notion-chat/pkg/agent"
	"github.com/mcpchat/notion-chat/pkg/llm"
)

// Coarse failure labels carried by Error events.
const (
	KindInvalidInput     = "InvalidInput"
	KindAgentUnavailable = "AgentUnavailable"
	KindNotConfigured    = "NotConfigured"
	KindCanceled         = "Canceled"
	KindTimeout          = "Timeout"
	KindAPIError         = "APIError"
	KindExecutionFailure = "ExecutionFailure"
)

// ErrorKind maps a failure to a coarse label for clients.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, agent.ErrAgentUnavailable):
		return KindAgentUnavailable
	case errors.Is(err, llm.ErrNotConfigured):
		return KindNotConfigured
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case isProviderAPIError(err):
		return KindAPIError
	default:
		return KindExecutionFailure
	}
}

func isProviderAPIError(err error) bool {
	var (
		genaiErr     genai.APIError
		genaiErrPtr  *genai.APIError
		openaiErr    *openai.Error
		anthropicErr *anthropic_sdk.Error
	)
	return errors.As(err, &genaiErr) ||
		errors.As(err, &genaiErrPtr) ||
		errors.As(err, &openaiErr) ||
		errors.As(err, &anthropicErr)
}
