package openai

import (
	"context"
	"errors"
	"sync"
	"testing"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared/constant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpchat/notion-chat/pkg/config"
	"github.com/mcpchat/notion-chat/pkg/llm"
)

type mockChatCompletions struct {
	mu       sync.Mutex
	requests []openai.ChatCompletionNewParams
	response *openai.ChatCompletion
	err      error
}

func (m *mockChatCompletions) New(ctx context.Context, params openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, params)
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func newChatCompletion(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		ID:     "test",
		Object: constant.ChatCompletion(""),
		Choices: []openai.ChatCompletionChoice{{
			FinishReason: "stop",
			Message: openai.ChatCompletionMessage{
				Role:    constant.Assistant(""),
				Content: content,
			},
		}},
	}
}

func TestClient_Complete(t *testing.T) {
	mockAPI := &mockChatCompletions{response: newChatCompletion("  Hello there!  ")}
	client := NewClient(Settings{Model: config.ModelConfig{
		ModelName:   "gpt-4o-mini",
		MaxTokens:   256,
		Temperature: config.Float32(0.7),
	}}, WithChatClient(mockAPI))

	answer, err := client.Complete(context.Background(), "Say hello.")
	require.NoError(t, err)
	assert.Equal(t, "Hello there!", answer)

	require.Len(t, mockAPI.requests, 1)
	req := mockAPI.requests[0]
	assert.Equal(t, "gpt-4o-mini", string(req.Model))
	require.Len(t, req.Messages, 1)
	require.NotNil(t, req.Messages[0].OfUser)
	assert.Equal(t, "Say hello.", req.Messages[0].OfUser.Content.OfString.Value)
	assert.Equal(t, int64(256), req.MaxCompletionTokens.Value)
	assert.InDelta(t, 0.7, req.Temperature.Value, 0.0001)
}

func TestClient_Complete_ReasoningModelSkipsTemperature(t *testing.T) {
	mockAPI := &mockChatCompletions{response: newChatCompletion("ok")}
	client := NewClient(Settings{Model: config.ModelConfig{ModelName: "o3-mini", Temperature: config.Float32(0.7)}}, WithChatClient(mockAPI))

	_, err := client.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.False(t, mockAPI.requests[0].Temperature.Valid())
}

func TestClient_Complete_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		boom := errors.New("rate limited")
		client := NewClient(Settings{}, WithChatClient(&mockChatCompletions{err: boom}))
		_, err := client.Complete(context.Background(), "hi")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no choices", func(t *testing.T) {
		client := NewClient(Settings{}, WithChatClient(&mockChatCompletions{response: &openai.ChatCompletion{}}))
		_, err := client.Complete(context.Background(), "hi")
		assert.ErrorContains(t, err, "no choices")
	})

	t.Run("missing api key", func(t *testing.T) {
		client := NewClient(Settings{})
		_, err := client.Complete(context.Background(), "hi")
		assert.ErrorIs(t, err, llm.ErrNotConfigured)
	})
}

func TestClient_DefaultModel(t *testing.T) {
	mockAPI := &mockChatCompletions{response: newChatCompletion("ok")}
	client := NewClient(Settings{}, WithChatClient(mockAPI))

	_, err := client.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", string(mockAPI.requests[0].Model))
}

func TestLMStudioSettingsFrom(t *testing.T) {
	settings := &config.Settings{
		OpenAIAPIKey:    "sk-real",
		LMStudioBaseURL: "http://localhost:1234/v1",
		LMStudioModel:   "qwen2.5-7b-instruct",
		Temperature:     0.4,
		MaxTokens:       512,
	}

	got := LMStudioSettingsFrom(settings)
	assert.Equal(t, "http://localhost:1234/v1", got.BaseURL)
	assert.Equal(t, "qwen2.5-7b-instruct", got.Model.ModelName)
	assert.NotEqual(t, "sk-real", got.APIKey)
	assert.NotEmpty(t, got.APIKey)
	require.NotNil(t, got.Model.Temperature)
	assert.InDelta(t, 0.4, *got.Model.Temperature, 0.001)
	assert.Equal(t, int32(512), got.Model.MaxTokens)
}
