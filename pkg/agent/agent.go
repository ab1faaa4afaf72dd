package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	mmcp "github.com/mark3labs/mcp-go/mcp"
	"google.golang.org/genai"

	"github.com/mcpchat/notion-chat/pkg/logging"
)

const (
	defaultMaxSteps = 30
	thoughtPrefix   = "Thought: "

	defaultInstruction = "You are a helpful assistant with access to the user's Notion workspace through tools. " +
		"Use the tools when the question is about Notion content, then answer concisely."
)

var (
	// ErrAgentUnavailable is returned when the shared tool sessions are not ready.
	ErrAgentUnavailable = errors.New("agent unavailable")
	// ErrNoFinalAnswer is returned by Run when the execution ended without an answer.
	ErrNoFinalAnswer = errors.New("agent produced no final answer")
)

// Model generates one turn of a Gemini conversation.
type Model interface {
	GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Toolbox exposes the tools the agent may call.
type Toolbox interface {
	Tools() []mmcp.Tool
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// Runner is a tool-augmented agent bound to one set of tools.
type Runner interface {
	// Stream runs the agent and yields its execution trace lazily. Breaking
	// out of the loop stops the run.
	Stream(ctx context.Context, message string) iter.Seq2[Chunk, error]
	// Run executes the agent to completion and returns only its final answer.
	Run(ctx context.Context, message string) (string, error)
}

// Options configures an Agent.
type Options struct {
	Temperature     *float32
	MaxOutputTokens int32
	MaxSteps        int
	IncludeThoughts bool
	Instruction     string
}

// Agent runs a Gemini function-calling loop over MCP tools.
type Agent struct {
	model   Model
	toolbox Toolbox
	opts    Options
	logger  logging.Logger
}

var _ Runner = (*Agent)(nil)

// New creates an agent. A zero MaxSteps falls back to the default of 30 turns.
func New(model Model, toolbox Toolbox, opts Options) *Agent {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = defaultMaxSteps
	}
	if opts.Instruction == "" {
		opts.Instruction = defaultInstruction
	}
	return &Agent{
		model:   model,
		toolbox: toolbox,
		opts:    opts,
		logger:  logging.NewComponentLogger("agent"),
	}
}

// Stream yields two chunks per tool-using turn (requested actions, then their
// results) and one final chunk holding the answer.
func (a *Agent) Stream(ctx context.Context, message string) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		config := a.generateConfig()
		contents := []*genai.Content{genai.NewContentFromText(message, genai.RoleUser)}

		for step := 0; step < a.opts.MaxSteps; step++ {
			resp, err := a.model.GenerateContent(ctx, contents, config)
			if err != nil {
				yield(Chunk{}, fmt.Errorf("agent step %d: %w", step+1, err))
				return
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				yield(Chunk{}, fmt.Errorf("agent step %d: no response candidates", step+1))
				return
			}

			content := resp.Candidates[0].Content
			thoughts, text, calls := splitParts(content)

			if len(calls) == 0 {
				final := Chunk{Messages: thoughts}
				if answer := strings.TrimSpace(text); answer != "" {
					final.FinalOutput = answer
				}
				if !final.IsEmpty() {
					yield(final, nil)
				}
				return
			}

			requested := Chunk{Messages: thoughts}
			if narration := strings.TrimSpace(text); narration != "" {
				requested.Messages = append(requested.Messages, Message{Role: RoleModel, Content: narration})
			}
			for _, call := range calls {
				requested.Actions = append(requested.Actions, Action{Tool: call.Name, Input: call.Args})
			}
			if !yield(requested, nil) {
				return
			}

			completed, responses, err := a.callTools(ctx, calls)
			if err != nil {
				yield(Chunk{}, err)
				return
			}
			if !yield(completed, nil) {
				return
			}

			contents = append(contents, content, genai.NewContentFromParts(responses, genai.RoleUser))
		}

		a.logger.Warn("agent stopped after reaching max steps", "max_steps", a.opts.MaxSteps)
	}
}

// Run drains Stream and returns the final answer.
func (a *Agent) Run(ctx context.Context, message string) (string, error) {
	var answer string
	for chunk, err := range a.Stream(ctx, message) {
		if err != nil {
			return "", err
		}
		if chunk.FinalOutput != nil {
			answer = fmt.Sprint(chunk.FinalOutput)
		}
	}
	if answer == "" {
		return "", ErrNoFinalAnswer
	}
	return answer, nil
}

// callTools executes every requested call in order. Tool failures are reported
// to the model as an error response; only context cancellation aborts the run.
func (a *Agent) callTools(ctx context.Context, calls []*genai.FunctionCall) (Chunk, []*genai.Part, error) {
	var chunk Chunk
	parts := make([]*genai.Part, 0, len(calls))

	for _, call := range calls {
		output, err := a.toolbox.CallTool(ctx, call.Name, call.Args)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Chunk{}, nil, fmt.Errorf("tool %s: %w", call.Name, ctxErr)
		}

		response := map[string]any{"output": output}
		if err != nil {
			a.logger.Debug("tool call failed", "tool", call.Name, "error", err)
			output = "error: " + err.Error()
			response = map[string]any{"error": err.Error()}
		}

		chunk.Steps = append(chunk.Steps, Step{Tool: call.Name, Output: output})
		part := genai.NewPartFromFunctionResponse(call.Name, response)
		part.FunctionResponse.ID = call.ID
		parts = append(parts, part)
	}
	return chunk, parts, nil
}

func (a *Agent) generateConfig() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(a.opts.Instruction, genai.RoleUser),
	}
	if a.opts.Temperature != nil {
		temp := *a.opts.Temperature
		config.Temperature = &temp
	}
	if a.opts.MaxOutputTokens > 0 {
		config.MaxOutputTokens = a.opts.MaxOutputTokens
	}
	if a.opts.IncludeThoughts {
		budget := int32(-1)
		config.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget:  &budget,
			IncludeThoughts: true,
		}
	}
	if decls := FunctionDeclarations(a.toolbox.Tools()); len(decls) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return config
}

// splitParts separates model thoughts, visible text and function calls.
func splitParts(content *genai.Content) ([]Message, string, []*genai.FunctionCall) {
	var (
		thoughts []Message
		text     strings.Builder
		calls    []*genai.FunctionCall
	)
	for _, part := range content.Parts {
		switch {
		case part == nil:
		case part.FunctionCall != nil:
			calls = append(calls, part.FunctionCall)
		case part.Thought && strings.TrimSpace(part.Text) != "":
			thoughts = append(thoughts, Message{Role: RoleReasoning, Content: thoughtPrefix + strings.TrimSpace(part.Text)})
		case part.Text != "":
			text.WriteString(part.Text)
		}
	}
	return thoughts, text.String(), calls
}
