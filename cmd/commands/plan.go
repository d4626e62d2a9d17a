package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourusername/netbuilder/internal/orchestrator"
	"github.com/yourusername/netbuilder/internal/topology"
)

// NewPlanCmd creates the plan command.
func NewPlanCmd() *cobra.Command {
	var outputFmt string

	cmd := &cobra.Command{
		Use:   "plan <topology.yaml>",
		Short: "Show what apply would provision, without touching AWS",
		Long: `Plan validates the topology document and prints the ordered list of
resources apply would create. No AWS credentials are needed and no remote
call is made.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args[0], outputFmt)
		},
	}

	cmd.Flags().StringVarP(&outputFmt, "output", "o", "text", "Output format (text, json)")
	return cmd
}

func runPlan(cmd *cobra.Command, path, outputFmt string) error {
	opts, _, err := loadRuntime()
	if err != nil {
		return err
	}

	topo, err := loadTopology(path, opts)
	if err != nil {
		return err
	}
	if violations := topology.Validate(topo); len(violations) > 0 {
		return &topology.ValidationError{Violations: violations}
	}

	plan := orchestrator.ComputePlan(topo)

	if outputFmt == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Topology %q in %s: %d resources\n\n",
		topo.Name, topo.Region, len(plan))
	for i, step := range plan {
		deps := "-"
		if len(step.DependsOn) > 0 {
			deps = strings.Join(step.DependsOn, ", ")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%2d. %-22s %-24s depends on: %s\n",
			i+1, step.Kind, step.LogicalName, deps)
	}
	return nil
}
