package agent

// Chunk is one incremental step of an agent execution trace. Every field is
// optional; an empty Chunk carries no signal.
type Chunk struct {
	// Messages produced by the model during this step.
	Messages []Message
	// Actions are tool invocations the model requested.
	Actions []Action
	// Steps are tool invocations that completed, with their output.
	Steps []Step
	// FinalOutput is the terminal answer of the run. Nil means absent.
	FinalOutput any
}

// Message is a single piece of model output.
type Message struct {
	Role    string
	Content string
}

// Action is a tool call requested by the model.
type Action struct {
	Tool  string
	Input map[string]any
}

// Step is a completed tool call.
type Step struct {
	Tool   string
	Output any
}

// Roles used by the agent when it labels its own messages.
const (
	RoleReasoning = "reasoning"
	RoleModel     = "model"
)

// IsEmpty reports whether the chunk carries no signal at all.
func (c Chunk) IsEmpty() bool {
	return len(c.Messages) == 0 && len(c.Actions) == 0 && len(c.Steps) == 0 && c.FinalOutput == nil
}
