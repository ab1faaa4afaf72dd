package chat

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/mcpchat/notion-chat/pkg/agent"
	"github.com/mcpchat/notion-chat/pkg/events"
	"github.com/mcpchat/notion-chat/pkg/llm"
	"github.com/mcpchat/notion-chat/pkg/logging"
)

// Placeholder answers used when no model text is available.
const (
	AgentCompletedAnswer = "Agent completed successfully."
	NoResponseAnswer     = "No response generated."
)

// Agent is a tool-augmented agent bound to the shared tool sessions.
type Agent = agent.Runner

// AgentProvider hands out a ready agent for one request.
type AgentProvider interface {
	Agent(ctx context.Context) (Agent, error)
}

// Completer answers a prompt with plain text, without tools.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Sink receives stream events one at a time. Send blocks until the event is
// handed to the transport; an error means the consumer is gone.
type Sink interface {
	Send(ctx context.Context, e events.Event) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, e events.Event) error

// Send calls f.
func (f SinkFunc) Send(ctx context.Context, e events.Event) error { return f(ctx, e) }

// errSinkFailed stops production once the sink rejected an event.
var errSinkFailed = errors.New("sink rejected event")

type requestIDKey struct{}

// WithRequestID attaches a request id used to correlate log lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id attached to ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Service runs chat requests and streams their events.
type Service struct {
	agents    AgentProvider
	completer Completer
}

// NewService creates the orchestrator. Either collaborator may be nil, in which
// case requests needing it end with an Error event.
func NewService(agents AgentProvider, completer Completer) *Service {
	return &Service{
		agents:    agents,
		completer: completer,
	}
}

// Stream emits AgentStart, the mode-specific events, exactly one FinalAnswer
// or Error, and finally StreamEnd. StreamEnd is attempted on every exit path,
// including after the sink failed. Collaborator failures become an Error event
// and are not returned; the returned error is the sink failure, if any.
func (s *Service) Stream(ctx context.Context, req ChatRequest, sink Sink) error {
	log := logging.NewRequestLogger("chat", RequestID(ctx)).With("enable_notion", req.EnableNotion)
	start := time.Now()

	var (
		sinkErr error
		sent    int
	)
	send := func(e events.Event) bool {
		if sinkErr != nil {
			return false
		}
		if err := sink.Send(ctx, e); err != nil {
			sinkErr = err
			log.Debug("sink rejected event", "kind", e.Kind(), "error", err)
			return false
		}
		sent++
		return true
	}

	defer func() {
		if err := sink.Send(context.WithoutCancel(ctx), events.StreamEnd{}); err != nil {
			log.Debug("failed to send stream end", "error", err)
		} else {
			sent++
		}
		log.Info("chat stream ended", "events", sent, "duration", time.Since(start))
	}()

	if !send(events.AgentStart{}) {
		return sinkErr
	}
	log.Info("chat stream started")

	var err error
	if req.EnableNotion {
		err = s.runAgent(ctx, req, send, log)
	} else {
		err = s.runPlain(ctx, req, send)
	}

	if err != nil && !errors.Is(err, errSinkFailed) {
		kind := ErrorKind(err)
		logging.LogError(ctx, log, "chat request failed", err, "error_kind", kind)
		send(events.NewError(err.Error(), kind))
	}
	return sinkErr
}

// runAgent forwards parsed trace events as they arrive, then emits the final
// answer, synthesizing one when the trace carried none.
func (s *Service) runAgent(ctx context.Context, req ChatRequest, send func(events.Event) bool, log logging.Logger) error {
	if s.agents == nil {
		return fmt.Errorf("%w: no agent provider configured", agent.ErrAgentUnavailable)
	}
	runner, err := s.agents.Agent(ctx)
	if err != nil {
		return err
	}

	parser := NewTraceParser()
	for chunk, err := range runner.Stream(ctx, req.Message) {
		if err != nil {
			return err
		}
		for _, e := range parser.Parse(chunk) {
			if !send(e) {
				return errSinkFailed
			}
		}
	}

	answer := parser.FinalAnswer()
	if answer == "" {
		fallback, err := runner.Run(ctx, req.Message)
		answer = strings.TrimSpace(fallback)
		if err != nil || answer == "" {
			log.Warn("fallback run failed to produce a final answer", "error", err)
			answer = AgentCompletedAnswer
		}
	}

	if !send(events.NewFinalAnswer(answer)) {
		return errSinkFailed
	}
	return nil
}

func (s *Service) runPlain(ctx context.Context, req ChatRequest, send func(events.Event) bool) error {
	if !send(events.NewReasoning("Processing: " + req.Message)) {
		return errSinkFailed
	}
	if s.completer == nil {
		return fmt.Errorf("%w: no completion provider configured", llm.ErrNotConfigured)
	}

	text, err := s.completer.Complete(ctx, req.Message)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		text = NoResponseAnswer
	}

	if !send(events.NewFinalAnswer(text)) {
		return errSinkFailed
	}
	return nil
}

var errConsumerStopped = errors.New("consumer stopped")

// Events returns the stream as a pull sequence. A consumer that stops early
// ends production; the internal StreamEnd attempt is then not delivered.
func (s *Service) Events(ctx context.Context, req ChatRequest) iter.Seq[events.Event] {
	return func(yield func(events.Event) bool) {
		stopped := false
		_ = s.Stream(ctx, req, SinkFunc(func(_ context.Context, e events.Event) error {
			if stopped {
				return errConsumerStopped
			}
			if !yield(e) {
				stopped = true
				return errConsumerStopped
			}
			return nil
		}))
	}
}
