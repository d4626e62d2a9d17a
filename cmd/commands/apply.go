package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yourusername/netbuilder/internal/awsapi"
	"github.com/yourusername/netbuilder/internal/config"
	"github.com/yourusername/netbuilder/internal/orchestrator"
	"github.com/yourusername/netbuilder/internal/provision"
	"github.com/yourusername/netbuilder/internal/state"
	"github.com/yourusername/netbuilder/internal/topology"
)

// NewApplyCmd creates the apply command.
func NewApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <topology.yaml>",
		Short: "Provision the network described by a topology document",
		Long: `Apply reads a YAML topology document, validates it, and provisions every
resource it describes in dependency order. Progress is written to the state
document after each resource, so an interrupted or failed run can be torn
down cleanly with the teardown command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, args[0])
		},
	}
}

func runApply(cmd *cobra.Command, path string) error {
	opts, log, err := loadRuntime()
	if err != nil {
		return err
	}

	topo, err := loadTopology(path, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients, err := awsapi.New(ctx, topo.Region)
	if err != nil {
		return err
	}
	identity, err := clients.VerifyCredentials(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("identity", identity).Str("region", topo.Region).Msg("credentials verified")

	store, closeStore, err := newStore(ctx, opts)
	if err != nil {
		return err
	}
	defer closeStore()

	orch := newOrchestrator(clients, store, log, opts)
	st, err := orch.Apply(ctx, topo)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Provisioned %d resources for topology %q (run %s)\n",
		len(st.Resources), st.Topology, st.RunID)
	for _, res := range st.Resources {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-22s %-24s %s\n", res.Kind, res.LogicalName, res.RemoteID)
	}
	if opts.StateBackend == config.BackendFile {
		fmt.Fprintf(cmd.OutOrStdout(), "State written to %s\n",
			state.NewFileStore(opts.StateDir).Path(st.Topology))
	}
	return nil
}

func newOrchestrator(clients *awsapi.ClientSet, store state.Store, log zerolog.Logger, opts *config.Options) *orchestrator.Orchestrator {
	prov := provision.NewProvisioner(clients.EC2, log,
		provision.WithCallTimeout(opts.CallTimeout))
	return orchestrator.New(prov, store, log,
		orchestrator.WithRetryPolicy(retryPolicy(opts)))
}

// loadTopology reads the document and applies the region override, so the
// state record and the remote calls agree on the region.
func loadTopology(path string, opts *config.Options) (*topology.NetworkTopology, error) {
	topo, err := topology.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.Region != "" {
		topo.Region = opts.Region
	}
	return topo, nil
}

func newStore(ctx context.Context, opts *config.Options) (state.Store, func(), error) {
	if opts.StateBackend == config.BackendSQLite {
		s, err := state.OpenSQLiteStore(ctx, opts.StateDB)
		if err != nil {
			return nil, nil, fmt.Errorf("opening state database: %w", err)
		}
		return s, func() { s.Close() }, nil
	}
	return state.NewFileStore(opts.StateDir), func() {}, nil
}

func retryPolicy(opts *config.Options) provision.RetryPolicy {
	return provision.RetryPolicy{
		MaxAttempts: opts.MaxRetries,
		BaseDelay:   opts.RetryBaseDelay,
		MaxDelay:    30 * time.Second,
	}
}
