package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yourusername/netbuilder/internal/awsapi"
	"github.com/yourusername/netbuilder/internal/state"
)

// NewTeardownCmd creates the teardown command.
func NewTeardownCmd() *cobra.Command {
	var (
		topologyName string
		statePath    string
	)

	cmd := &cobra.Command{
		Use:   "teardown",
		Short: "Delete every resource recorded in a deployment state",
		Long: `Teardown deletes the resources of a previous run in reverse creation
order. The run is identified either by topology name, resolved through the
configured state store, or by an explicit state file path.

Resources that are already gone are skipped. A resource that cannot be
removed, for example because something outside the deployment still uses
it, is reported and left in the state document; rerunning teardown retries
exactly the leftovers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (topologyName == "") == (statePath == "") {
				return fmt.Errorf("exactly one of --name or --state is required")
			}
			return runTeardown(cmd, topologyName, statePath)
		},
	}

	cmd.Flags().StringVarP(&topologyName, "name", "n", "", "Topology name to tear down")
	cmd.Flags().StringVarP(&statePath, "state", "s", "", "Path to a state document")
	cmd.MarkFlagsMutuallyExclusive("name", "state")
	return cmd
}

func runTeardown(cmd *cobra.Command, topologyName, statePath string) error {
	opts, log, err := loadRuntime()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newStore(ctx, opts)
	if err != nil {
		return err
	}
	defer closeStore()

	var st *state.DeploymentState
	if statePath != "" {
		st, err = state.ReadFile(statePath)
	} else {
		st, err = store.Load(ctx, topologyName)
	}
	if err != nil {
		return fmt.Errorf("loading deployment state: %w", err)
	}

	region := st.Region
	if opts.Region != "" {
		region = opts.Region
	}
	clients, err := awsapi.New(ctx, region)
	if err != nil {
		return err
	}
	identity, err := clients.VerifyCredentials(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("identity", identity).Str("region", region).Msg("credentials verified")

	orch := newOrchestrator(clients, store, log, opts)
	result, terr := orch.Teardown(ctx, st)

	for _, name := range result.Removed {
		fmt.Fprintf(cmd.OutOrStdout(), "  removed   %s\n", name)
	}
	for _, name := range result.Unremoved {
		fmt.Fprintf(cmd.OutOrStdout(), "  leftover  %s\n", name)
	}
	if terr != nil {
		return terr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Topology %q torn down: %d resources removed\n",
		st.Topology, len(result.Removed))
	return nil
}
