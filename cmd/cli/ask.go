package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mcpchat/notion-chat/pkg/chat"
	"github.com/mcpchat/notion-chat/pkg/config"
	"github.com/mcpchat/notion-chat/pkg/events"
	"github.com/mcpchat/notion-chat/pkg/logging"
)

// ChatStreamer runs one chat request against a sink.
type ChatStreamer interface {
	Stream(ctx context.Context, req chat.ChatRequest, sink chat.Sink) error
}

// StreamerFactory builds the chat pipeline for a one-shot request.
type StreamerFactory func(ctx context.Context, settings *config.Settings) (ChatStreamer, func(), error)

// NewAskCommand creates the ask command. The message comes from the
// arguments, or from stdin when it is piped.
func NewAskCommand(factory StreamerFactory) *cobra.Command {
	var (
		noNotion   bool
		answerOnly bool
	)

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Run one chat request and print its event stream",
		Long: `Run one chat request through the pipeline and print each event as an SSE
record, exactly as the HTTP endpoint would send it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			if message == "" && hasStdinInput() {
				input, err := readStdinInput(cmd.InOrStdin())
				if err != nil {
					return err
				}
				message = input
			}

			req, err := chat.NewRequest(message, !noNotion)
			if err != nil {
				return err
			}

			settings, err := config.Load(envFile)
			if err != nil {
				return err
			}

			ctx := chat.WithRequestID(cmd.Context(), uuid.NewString())
			streamer, cleanup, err := factory(ctx, settings)
			if err != nil {
				return fmt.Errorf("failed to initialize chat pipeline: %w", err)
			}
			defer cleanup()

			return runAsk(ctx, streamer, req, cmd.OutOrStdout(), answerOnly)
		},
	}

	cmd.Flags().BoolVar(&noNotion, "no-notion", false, "answer with a plain completion, without MCP tools")
	cmd.Flags().BoolVar(&answerOnly, "answer-only", false, "print only the final answer or error")
	return cmd
}

func runAsk(ctx context.Context, streamer ChatStreamer, req chat.ChatRequest, out io.Writer, answerOnly bool) error {
	logger := logging.GetGlobalLogger()
	logger.Debug("running ask", "enable_notion", req.EnableNotion)

	var failure error
	sink := chat.SinkFunc(func(_ context.Context, e events.Event) error {
		if ev, ok := e.(events.Error); ok {
			failure = fmt.Errorf("%s: %s", ev.ErrorKind, ev.Error)
		}
		if answerOnly {
			if ev, ok := e.(events.FinalAnswer); ok {
				_, err := fmt.Fprintln(out, ev.Answer)
				return err
			}
			return nil
		}
		record, err := events.ToWire(e)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, record)
		return err
	})

	if err := streamer.Stream(ctx, req, sink); err != nil {
		return err
	}
	return failure
}
