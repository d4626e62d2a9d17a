package main

import (
	"errors"
	"fmt"
	"os"

	cmd "github.com/yourusername/netbuilder/cmd/commands"
	"github.com/yourusername/netbuilder/internal/topology"
)

// Exit codes: 0 success, 1 provisioning or teardown failure, 2 invalid
// topology document.
const (
	exitFailure    = 1
	exitValidation = 2
)

func main() {
	rootCmd := cmd.NewRootCmd()
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var verr *topology.ValidationError
		if errors.As(err, &verr) {
			os.Exit(exitValidation)
		}
		os.Exit(exitFailure)
	}
}
