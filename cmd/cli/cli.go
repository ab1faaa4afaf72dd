package cli

import (
	"fmt"
	"os"

	"github.com/mcpchat/notion-chat/pkg/version"
)

// Execute runs the CLI with all commands
func Execute() {
	RootCmd.Version = version.GetVersion()
	RootCmd.SetVersionTemplate("notion-chat version {{.Version}}\n")
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
