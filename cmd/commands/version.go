package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// These variables are set at build time using ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "netbuilder version %s (commit: %s, built: %s, go: %s)\n",
				Version, Commit, Date, runtime.Version())
		},
	}
}
