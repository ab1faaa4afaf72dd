package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcpchat/notion-chat/internal/di"
	"github.com/mcpchat/notion-chat/pkg/config"
	"github.com/mcpchat/notion-chat/pkg/logging"
	"github.com/mcpchat/notion-chat/pkg/version"
)

func newServeCommand() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the HTTP server exposing POST /api/v1/chat/stream and GET /health.

MCP sessions are opened once at startup from MCP_CONFIG_PATH and closed on
shutdown (SIGINT or SIGTERM).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				settings.Host = host
			}
			if cmd.Flags().Changed("port") {
				settings.Port = port
			}
			if err := settings.Validate(); err != nil {
				return err
			}
			if !verbose && !quiet {
				logging.SetGlobalLogger(logging.NewServiceLogger(settings.EffectiveLogLevel(), settings.LogFormat, os.Stderr))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, settings)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides PORT)")
	return cmd
}

func runServe(ctx context.Context, settings *config.Settings) error {
	logger := logging.GetGlobalLogger()
	logger.Info("starting notion-chat",
		"version", version.GetVersion(),
		"addr", settings.Addr(),
		"chat_provider", settings.ChatProvider,
		"agent_model", settings.AgentModel,
	)

	app, cleanup, err := di.InitializeApp(context.WithoutCancel(ctx), settings)
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	defer cleanup()

	logger.Info("MCP sessions ready", "status", app.Pool.Status(), "tools", len(app.Pool.Tools()))
	return app.Server.ListenAndServe(ctx)
}
