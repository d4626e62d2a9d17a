// Package cmd wires the netbuilder CLI: apply, plan, teardown and version.
package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yourusername/netbuilder/internal/config"
	"github.com/yourusername/netbuilder/internal/logger"
)

// Global flags
var (
	awsRegion string
	stateDir  string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "netbuilder",
	Short: "Provision and tear down multi-tier AWS network topologies",
	Long: `Netbuilder provisions a complete multi-tier network on AWS from a single
YAML topology document: VPC, subnets, internet and NAT gateways, route
tables and security groups, in dependency order.

Every created resource is recorded in a state document as soon as it
exists, so a failed run never loses track of what it built, and teardown
can remove everything in reverse order.`,
}

// NewRootCmd assembles the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd.Version = Version
	rootCmd.AddCommand(NewApplyCmd())
	rootCmd.AddCommand(NewPlanCmd())
	rootCmd.AddCommand(NewTeardownCmd())
	rootCmd.AddCommand(NewStatusCmd())
	rootCmd.AddCommand(NewVersionCmd())
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&awsRegion, "region", "r", "", "AWS region (overrides the topology document)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "Directory for state documents (default \"output\")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json")
}

// loadRuntime resolves options from defaults, environment and flags, and
// builds the process logger from them.
func loadRuntime() (*config.Options, zerolog.Logger, error) {
	opts, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("loading configuration: %w", err)
	}
	opts.Merge(awsRegion, stateDir, logLevel, logFormat)

	log := logger.New(logger.Config{
		Level:  opts.LogLevel,
		Format: opts.LogFormat,
	})
	return opts, log, nil
}
