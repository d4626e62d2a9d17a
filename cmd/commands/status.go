package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/netbuilder/internal/report"
	"github.com/yourusername/netbuilder/internal/state"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	var (
		statePath string
		outputFmt string
	)

	cmd := &cobra.Command{
		Use:   "status <topology-name>",
		Short: "Show the recorded state of a deployment",
		Long: `Status prints the deployment record of a topology: its run, status, and
every resource with its remote identifier. It reads only the state store
and makes no AWS call.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (statePath == "") {
				return fmt.Errorf("exactly one of <topology-name> or --state is required")
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runStatus(cmd, name, statePath, outputFmt)
		},
	}

	cmd.Flags().StringVarP(&statePath, "state", "s", "", "Path to a state document")
	cmd.Flags().StringVarP(&outputFmt, "output", "o", "text", "Output format (text, json, yaml)")
	return cmd
}

func runStatus(cmd *cobra.Command, topologyName, statePath, outputFmt string) error {
	opts, _, err := loadRuntime()
	if err != nil {
		return err
	}

	var st *state.DeploymentState
	if statePath != "" {
		st, err = state.ReadFile(statePath)
	} else {
		store, closeStore, serr := newStore(cmd.Context(), opts)
		if serr != nil {
			return serr
		}
		defer closeStore()
		st, err = store.Load(cmd.Context(), topologyName)
	}
	if err != nil {
		return fmt.Errorf("loading deployment state: %w", err)
	}

	formatter, err := report.NewFormatter(report.FormatType(outputFmt))
	if err != nil {
		return err
	}
	out, err := formatter.Format(st)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
