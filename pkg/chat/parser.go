package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcpchat/notion-chat/pkg/agent"
	"github.com/mcpchat/notion-chat/pkg/events"
)

const unknownTool = "unknown"

// answerRoles are the message roles whose content counts toward the final answer.
var answerRoles = map[string]bool{
	"assistant": true,
	"ai":        true,
	"output":    true,
}

// TraceParser turns agent execution chunks into stream events and collects
// final answer fragments along the way. Use one parser per request.
type TraceParser struct {
	fragments []string
}

// NewTraceParser returns an empty parser.
func NewTraceParser() *TraceParser {
	return &TraceParser{}
}

// Parse returns the events carried by a chunk, in order: reasoning from
// messages, then tool calls, then tool outputs. Answer fragments from messages
// and the final output are retained for FinalAnswer. An empty chunk yields nothing.
//
// Reasoning detection is a substring match on "reasoning" or "thought" and
// will misfire on some text; it is kept as-is.
func (p *TraceParser) Parse(chunk agent.Chunk) []events.Event {
	var out []events.Event

	for _, msg := range chunk.Messages {
		lowered := strings.ToLower(msg.Content)
		if strings.Contains(lowered, "reasoning") || strings.Contains(lowered, "thought") {
			if thought := strings.TrimSpace(msg.Content); thought != "" {
				out = append(out, events.NewReasoning(thought))
			}
		}
		if answerRoles[strings.ToLower(msg.Role)] && msg.Content != "" {
			p.fragments = append(p.fragments, strings.TrimSpace(msg.Content))
		}
	}

	for _, action := range chunk.Actions {
		name := action.Tool
		if name == "" {
			name = unknownTool
		}
		out = append(out, events.NewToolCall(name, action.Input))
	}

	for _, step := range chunk.Steps {
		name := step.Tool
		if name == "" {
			name = unknownTool
		}
		out = append(out, events.NewToolOutput(name, stringify(step.Output)))
	}

	if chunk.FinalOutput != nil {
		p.fragments = append(p.fragments, stringify(chunk.FinalOutput))
	}

	return out
}

// FinalAnswer joins the collected fragments with single spaces.
func (p *TraceParser) FinalAnswer() string {
	return strings.TrimSpace(strings.Join(p.fragments, " "))
}

// stringify renders an arbitrary tool or agent output as text.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	case error:
		return val.Error()
	}
	if data, err := json.Marshal(v); err == nil {
		return string(data)
	}
	return fmt.Sprint(v)
}
