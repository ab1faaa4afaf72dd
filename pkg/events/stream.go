package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidEvent is returned when a payload does not match its event kind.
var ErrInvalidEvent = errors.New("invalid event")

// Kind identifies the type of a stream event.
type Kind int

const (
	KindAgentStart Kind = iota + 1
	KindReasoning
	KindToolCall
	KindToolOutput
	KindFinalAnswer
	KindError
	KindStreamEnd
)

var kindNames = map[Kind]string{
	KindAgentStart:  "agent_start",
	KindReasoning:   "reasoning",
	KindToolCall:    "tool_call",
	KindToolOutput:  "tool_output",
	KindFinalAnswer: "final_answer",
	KindError:       "error",
	KindStreamEnd:   "stream_end",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind resolves a wire name back to its Kind.
func ParseKind(name string) (Kind, error) {
	for kind, n := range kindNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, name)
}

// Event is one item of a chat stream. The set of implementations is closed:
// AgentStart, Reasoning, ToolCall, ToolOutput, FinalAnswer, Error and StreamEnd.
type Event interface {
	Kind() Kind
	isEvent()
}

// AgentStart marks the start of a stream.
type AgentStart struct{}

// Reasoning carries an intermediate thought of the agent.
type Reasoning struct {
	Thought string
}

// ToolCall announces a tool invocation requested by the agent. ToolInput holds
// JSON values (float64 numbers, []any, map[string]any); NewToolCall converts
// arbitrary Go values so the event reads back from the wire unchanged.
type ToolCall struct {
	ToolName  string
	ToolInput map[string]any
}

// ToolOutput carries the textual result of a tool invocation.
type ToolOutput struct {
	ToolName   string
	ToolOutput string
}

// FinalAnswer carries the answer shown to the user.
type FinalAnswer struct {
	Answer string
}

// Error reports a failure that ended the stream early.
type Error struct {
	Error     string
	ErrorKind string
}

// StreamEnd marks the end of a stream. It is always the last event.
type StreamEnd struct{}

func (AgentStart) Kind() Kind  { return KindAgentStart }
func (Reasoning) Kind() Kind   { return KindReasoning }
func (ToolCall) Kind() Kind    { return KindToolCall }
func (ToolOutput) Kind() Kind  { return KindToolOutput }
func (FinalAnswer) Kind() Kind { return KindFinalAnswer }
func (Error) Kind() Kind       { return KindError }
func (StreamEnd) Kind() Kind   { return KindStreamEnd }

func (AgentStart) isEvent()  {}
func (Reasoning) isEvent()   {}
func (ToolCall) isEvent()    {}
func (ToolOutput) isEvent()  {}
func (FinalAnswer) isEvent() {}
func (Error) isEvent()       {}
func (StreamEnd) isEvent()   {}

// NewReasoning builds a Reasoning event with valid UTF-8 text.
func NewReasoning(thought string) Reasoning {
	return Reasoning{Thought: validText(thought)}
}

// NewToolCall builds a ToolCall event whose input is normalized to the values
// it decodes to from JSON. A nil input becomes an empty object.
func NewToolCall(name string, input map[string]any) ToolCall {
	return ToolCall{ToolName: validText(name), ToolInput: jsonObject(input)}
}

// NewToolOutput builds a ToolOutput event with valid UTF-8 text.
func NewToolOutput(name, output string) ToolOutput {
	return ToolOutput{ToolName: validText(name), ToolOutput: validText(output)}
}

// NewFinalAnswer builds a FinalAnswer event with valid UTF-8 text.
func NewFinalAnswer(answer string) FinalAnswer {
	return FinalAnswer{Answer: validText(answer)}
}

// NewError builds an Error event with valid UTF-8 text.
func NewError(msg, kind string) Error {
	return Error{Error: validText(msg), ErrorKind: validText(kind)}
}

// validText replaces invalid UTF-8 the way the JSON encoder would, so the
// event equals what a client reads back.
func validText(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

// jsonObject returns m as it decodes from its JSON encoding. Values the
// encoder rejects are replaced by their fmt rendering.
func jsonObject(m map[string]any) map[string]any {
	if len(m) == 0 {
		return map[string]any{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		safe := make(map[string]any, len(m))
		for k, v := range m {
			if _, err := json.Marshal(v); err != nil {
				safe[k] = fmt.Sprint(v)
			} else {
				safe[k] = v
			}
		}
		if data, err = json.Marshal(safe); err != nil {
			return map[string]any{}
		}
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

// New builds the event of the given kind from a flat payload, checking that
// every required field is present with the right type.
func New(kind Kind, payload map[string]any) (Event, error) {
	switch kind {
	case KindAgentStart:
		return AgentStart{}, nil
	case KindStreamEnd:
		return StreamEnd{}, nil
	case KindReasoning:
		thought, err := requireString(payload, "thought")
		if err != nil {
			return nil, err
		}
		return NewReasoning(thought), nil
	case KindToolCall:
		name, err := requireString(payload, "tool_name")
		if err != nil {
			return nil, err
		}
		input, err := requireObject(payload, "tool_input")
		if err != nil {
			return nil, err
		}
		return NewToolCall(name, input), nil
	case KindToolOutput:
		name, err := requireString(payload, "tool_name")
		if err != nil {
			return nil, err
		}
		output, err := requireString(payload, "tool_output")
		if err != nil {
			return nil, err
		}
		return NewToolOutput(name, output), nil
	case KindFinalAnswer:
		answer, err := requireString(payload, "answer")
		if err != nil {
			return nil, err
		}
		return NewFinalAnswer(answer), nil
	case KindError:
		msg, err := requireString(payload, "error")
		if err != nil {
			return nil, err
		}
		var errKind string
		if raw, ok := payload["error_kind"]; ok && raw != nil {
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%w: field error_kind must be a string, got %T", ErrInvalidEvent, raw)
			}
			errKind = s
		}
		return NewError(msg, errKind), nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidEvent, int(kind))
	}
}

func requireString(payload map[string]any, field string) (string, error) {
	raw, ok := payload[field]
	if !ok || raw == nil {
		return "", fmt.Errorf("%w: missing field %s", ErrInvalidEvent, field)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %s must be a string, got %T", ErrInvalidEvent, field, raw)
	}
	return s, nil
}

func requireObject(payload map[string]any, field string) (map[string]any, error) {
	raw, ok := payload[field]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: missing field %s", ErrInvalidEvent, field)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: field %s must be an object, got %T", ErrInvalidEvent, field, raw)
	}
	return m, nil
}
