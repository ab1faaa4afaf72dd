package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcpchat/notion-chat/pkg/version"
)

func newVersionCommand() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := version.GetInfo()
			if short {
				cmd.Println(info.ShortString())
				return
			}
			cmd.Println(info.String())
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print only the version number")
	return cmd
}
