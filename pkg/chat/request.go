package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is the longest accepted message, in characters, after trimming.
const MaxMessageLength = 2000

// ErrInvalidInput is returned when a chat request fails validation.
var ErrInvalidInput = errors.New("invalid input")

// ChatRequest is one user turn. Construct it with NewRequest; a zero value is
// not valid.
type ChatRequest struct {
	// Message is the trimmed user prompt.
	Message string `json:"message"`
	// EnableNotion selects the tool-augmented agent over a plain completion.
	EnableNotion bool `json:"enable_notion"`
}

// NewRequest trims and validates the message.
func NewRequest(message string, enableNotion bool) (ChatRequest, error) {
	req := ChatRequest{Message: strings.TrimSpace(message), EnableNotion: enableNotion}
	if err := req.Validate(); err != nil {
		return ChatRequest{}, err
	}
	return req, nil
}

// Validate checks the message length bounds.
func (r ChatRequest) Validate() error {
	n := utf8.RuneCountInString(strings.TrimSpace(r.Message))
	switch {
	case n == 0:
		return fmt.Errorf("%w: message cannot be empty", ErrInvalidInput)
	case n > MaxMessageLength:
		return fmt.Errorf("%w: message must be at most %d characters, got %d", ErrInvalidInput, MaxMessageLength, n)
	}
	return nil
}

// UnmarshalJSON decodes a request body. A missing enable_notion defaults to
// true; a missing message is left empty for Validate to reject.
func (r *ChatRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Message      *string `json:"message"`
		EnableNotion *bool   `json:"enable_notion"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Message = ""
	if raw.Message != nil {
		r.Message = *raw.Message
	}
	r.EnableNotion = raw.EnableNotion == nil || *raw.EnableNotion
	return nil
}

// DecodeRequest parses and validates a JSON request body.
func DecodeRequest(data []byte) (ChatRequest, error) {
	var req ChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return ChatRequest{}, fmt.Errorf("%w: malformed JSON body: %v", ErrInvalidInput, err)
	}
	return NewRequest(req.Message, req.EnableNotion)
}
