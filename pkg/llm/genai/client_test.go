package genai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/mcpchat/notion-chat/pkg/config"
	"github.com/mcpchat/notion-chat/pkg/llm"
)

func textResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromParts(parts, genai.RoleModel)}},
	}
}

func TestCompleter_Complete(t *testing.T) {
	client := NewClient(Credentials{APIKey: "test"})

	var (
		capturedModel    string
		capturedContents []*genai.Content
		capturedConfig   *genai.GenerateContentConfig
	)
	client.generateFn = func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		capturedModel = model
		capturedContents = contents
		capturedConfig = cfg
		return textResponse(
			&genai.Part{Text: "thinking...", Thought: true},
			genai.NewPartFromText("Paris "),
			genai.NewPartFromText("is the capital."),
		), nil
	}

	completer := client.Completer(config.ModelConfig{
		ModelName:   "gemini-2.5-flash",
		MaxTokens:   512,
		Temperature: config.Float32(0.7),
		TopP:        0.9,
	})

	answer, err := completer.Complete(context.Background(), "Capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital.", answer)

	assert.Equal(t, "gemini-2.5-flash", capturedModel)
	require.Len(t, capturedContents, 1)
	assert.Equal(t, "Capital of France?", capturedContents[0].Parts[0].Text)
	require.NotNil(t, capturedConfig.Temperature)
	assert.InDelta(t, 0.7, *capturedConfig.Temperature, 0.0001)
	require.NotNil(t, capturedConfig.TopP)
	assert.Equal(t, int32(512), capturedConfig.MaxOutputTokens)
}

func TestCompleter_Temperature(t *testing.T) {
	client := NewClient(Credentials{APIKey: "test"})
	var captured *genai.GenerateContentConfig
	client.generateFn = func(_ context.Context, _ string, _ []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		captured = cfg
		return textResponse(genai.NewPartFromText("ok")), nil
	}

	_, err := client.Completer(config.ModelConfig{ModelName: "m", Temperature: config.Float32(0)}).Complete(context.Background(), "hi")
	require.NoError(t, err)
	require.NotNil(t, captured.Temperature)
	assert.Zero(t, *captured.Temperature)

	_, err = client.Completer(config.ModelConfig{ModelName: "m"}).Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Nil(t, captured.Temperature)
}

func TestCompleter_EmptyResponse(t *testing.T) {
	client := NewClient(Credentials{APIKey: "test"})
	client.generateFn = func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{}, nil
	}

	answer, err := client.Completer(config.ModelConfig{ModelName: "m"}).Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Empty(t, answer)
}

func TestCompleter_Error(t *testing.T) {
	client := NewClient(Credentials{APIKey: "test"})
	boom := errors.New("quota")
	client.generateFn = func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return nil, boom
	}

	_, err := client.Completer(config.ModelConfig{ModelName: "m"}).Complete(context.Background(), "hi")
	assert.ErrorIs(t, err, boom)
}

func TestModel_UsesBoundName(t *testing.T) {
	client := NewClient(Credentials{APIKey: "test"})
	var got string
	client.generateFn = func(ctx context.Context, model string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		got = model
		return textResponse(genai.NewPartFromText("ok")), nil
	}

	_, err := client.Model("gemini-2.5-pro").GenerateContent(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", got)
}

func TestClient_NotConfigured(t *testing.T) {
	client := NewClient(Credentials{})
	assert.False(t, client.Configured())

	_, err := client.Model("m").GenerateContent(context.Background(), nil, nil)
	assert.ErrorIs(t, err, llm.ErrNotConfigured)

	// The failure is cached.
	_, err = client.Model("m").GenerateContent(context.Background(), nil, nil)
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}

func TestCredentialsFromSettings(t *testing.T) {
	creds := CredentialsFromSettings(&config.Settings{
		GeminiAPIKey:        "k",
		GenAIBackend:        "Vertex",
		GoogleCloudProject:  "p",
		GoogleCloudLocation: "europe-west1",
	})
	assert.Equal(t, Credentials{APIKey: "k", Backend: BackendVertexAI, Project: "p", Location: "europe-west1"}, creds)
}
