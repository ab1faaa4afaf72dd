package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	eventPrefix = "event: "
	dataPrefix  = "data: "
)

type statusData struct {
	Status string `json:"status"`
}

type reasoningData struct {
	Thought string `json:"thought"`
}

type toolCallData struct {
	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input"`
}

type toolOutputData struct {
	ToolName   string `json:"tool_name"`
	ToolOutput string `json:"tool_output"`
}

type finalAnswerData struct {
	Answer string `json:"answer"`
}

type errorData struct {
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// MarshalData returns the JSON payload of an event, the "data" line of its SSE record.
func MarshalData(e Event) ([]byte, error) {
	var v any
	switch ev := e.(type) {
	case AgentStart:
		v = statusData{Status: "started"}
	case StreamEnd:
		v = statusData{Status: "finished"}
	case Reasoning:
		v = reasoningData{Thought: ev.Thought}
	case ToolCall:
		input := ev.ToolInput
		if input == nil {
			input = map[string]any{}
		}
		v = toolCallData{ToolName: ev.ToolName, ToolInput: input}
	case ToolOutput:
		v = toolOutputData{ToolName: ev.ToolName, ToolOutput: ev.ToolOutput}
	case FinalAnswer:
		v = finalAnswerData{Answer: ev.Answer}
	case Error:
		v = errorData{Error: ev.Error, ErrorKind: ev.ErrorKind}
	default:
		return nil, fmt.Errorf("%w: unsupported event type %T", ErrInvalidEvent, e)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("marshal %s data: %w", e.Kind(), err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ToWire renders an event as a single SSE record:
//
//	event: <kind>\ndata: <json>\n\n
func ToWire(e Event) (string, error) {
	data, err := MarshalData(e)
	if err != nil {
		return "", err
	}
	return eventPrefix + e.Kind().String() + "\n" + dataPrefix + string(data) + "\n\n", nil
}

// Parse decodes one SSE record produced by ToWire back into an Event.
func Parse(record string) (Event, error) {
	var name, data string
	var haveName, haveData bool
	for _, line := range strings.Split(strings.TrimRight(record, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, eventPrefix):
			name, haveName = strings.TrimPrefix(line, eventPrefix), true
		case strings.HasPrefix(line, dataPrefix):
			data, haveData = strings.TrimPrefix(line, dataPrefix), true
		case line == "" || strings.HasPrefix(line, ":"):
			// blank separator or comment
		default:
			return nil, fmt.Errorf("%w: unexpected line %q", ErrInvalidEvent, line)
		}
	}
	if !haveName || !haveData {
		return nil, fmt.Errorf("%w: record needs both event and data lines", ErrInvalidEvent)
	}

	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return nil, fmt.Errorf("%w: data is not a JSON object: %v", ErrInvalidEvent, err)
	}
	return New(kind, payload)
}
