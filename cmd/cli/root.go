package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mcpchat/notion-chat/internal/di"
	"github.com/mcpchat/notion-chat/pkg/config"
	"github.com/mcpchat/notion-chat/pkg/logging"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	envFile string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "notion-chat",
	Short: "Streaming chat backend for an MCP tool-augmented agent",
	Long: `notion-chat forwards chat messages to an LLM agent that can use MCP tools
(such as a Notion server) and streams its reasoning, tool calls and answer
back as Server-Sent Events.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.SetGlobalLogger(flagLogger())
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug level)")
	RootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "quiet output (errors only)")
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")

	addCommands()
}

// addCommands adds all CLI subcommands to the root command
func addCommands() {
	RootCmd.AddCommand(newServeCommand())
	RootCmd.AddCommand(NewAskCommand(func(ctx context.Context, settings *config.Settings) (ChatStreamer, func(), error) {
		return di.InitializeChatService(ctx, settings)
	}))
	RootCmd.AddCommand(newVersionCommand())
}

// flagLogger picks the logger implied by --verbose/--quiet.
func flagLogger() logging.Logger {
	switch {
	case quiet:
		return logging.NewQuietLogger()
	case verbose:
		return logging.NewVerboseLogger()
	default:
		return logging.NewDefaultLogger()
	}
}
