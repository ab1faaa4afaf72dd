package chat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcpchat/notion-chat/pkg/agent"
	"github.com/mcpchat/notion-chat/pkg/events"
)

type pageID string

func (p pageID) String() string { return "page:" + string(p) }

func TestTraceParser_Order(t *testing.T) {
	p := NewTraceParser()

	got := p.Parse(agent.Chunk{
		Steps:   []agent.Step{{Tool: "search", Output: "3 results"}},
		Actions: []agent.Action{{Tool: "search", Input: map[string]any{"query": "Q3"}}},
		Messages: []agent.Message{
			{Role: "reasoning", Content: "  Thought: look in Notion  "},
		},
	})

	assert.Equal(t, []events.Event{
		events.Reasoning{Thought: "Thought: look in Notion"},
		events.ToolCall{ToolName: "search", ToolInput: map[string]any{"query": "Q3"}},
		events.ToolOutput{ToolName: "search", ToolOutput: "3 results"},
	}, got)
	assert.Empty(t, p.FinalAnswer())
}

func TestTraceParser_Messages(t *testing.T) {
	tests := []struct {
		name       string
		msg        agent.Message
		wantEvents []events.Event
		wantAnswer string
	}{
		{
			name:       "reasoning keyword",
			msg:        agent.Message{Role: "system", Content: "My REASONING is this"},
			wantEvents: []events.Event{events.Reasoning{Thought: "My REASONING is this"}},
		},
		{
			name:       "assistant text becomes answer",
			msg:        agent.Message{Role: "Assistant", Content: " Hello "},
			wantAnswer: "Hello",
		},
		{
			name:       "both reasoning and answer",
			msg:        agent.Message{Role: "ai", Content: "After some thought, 42."},
			wantEvents: []events.Event{events.Reasoning{Thought: "After some thought, 42."}},
			wantAnswer: "After some thought, 42.",
		},
		{
			name: "other role ignored",
			msg:  agent.Message{Role: "model", Content: "narration"},
		},
		{
			name: "empty content ignored",
			msg:  agent.Message{Role: "assistant", Content: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewTraceParser()
			got := p.Parse(agent.Chunk{Messages: []agent.Message{tt.msg}})
			assert.Equal(t, tt.wantEvents, got)
			assert.Equal(t, tt.wantAnswer, p.FinalAnswer())
		})
	}
}

func TestTraceParser_MissingToolDefaults(t *testing.T) {
	p := NewTraceParser()

	got := p.Parse(agent.Chunk{
		Actions: []agent.Action{{}},
		Steps:   []agent.Step{{Output: nil}},
	})

	assert.Equal(t, []events.Event{
		events.ToolCall{ToolName: "unknown", ToolInput: map[string]any{}},
		events.ToolOutput{ToolName: "unknown", ToolOutput: ""},
	}, got)
}

func TestTraceParser_OutputCoercion(t *testing.T) {
	tests := []struct {
		name   string
		output any
		want   string
	}{
		{"string", "plain", "plain"},
		{"bytes", []byte("raw"), "raw"},
		{"stringer", pageID("42"), "page:42"},
		{"error", errors.New("boom"), "boom"},
		{"map", map[string]any{"id": 1}, `{"id":1}`},
		{"number", 3.5, "3.5"},
		{"unmarshalable", func() {}, "<func>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewTraceParser().Parse(agent.Chunk{Steps: []agent.Step{{Tool: "t", Output: tt.output}}})
			out := got[0].(events.ToolOutput).ToolOutput
			if tt.name == "unmarshalable" {
				assert.NotEmpty(t, out)
				return
			}
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestTraceParser_FinalAnswerJoin(t *testing.T) {
	p := NewTraceParser()
	p.Parse(agent.Chunk{Messages: []agent.Message{{Role: "assistant", Content: "Part one."}}})
	p.Parse(agent.Chunk{FinalOutput: "Part two. "})

	assert.Equal(t, "Part one. Part two.", p.FinalAnswer())
}

func TestTraceParser_EmptyChunk(t *testing.T) {
	p := NewTraceParser()
	assert.Empty(t, p.Parse(agent.Chunk{}))
	assert.Empty(t, p.FinalAnswer())
}
