// Package config loads runtime options for netbuilder.
//
// Options come from three layers: built-in defaults, NETBUILDER_* environment
// variables, and CLI flags. Flags win over environment, environment wins over
// defaults.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Backend names accepted for the state store.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Options holds process-level settings that are not part of the topology
// document itself.
type Options struct {
	// Region overrides the region declared in the topology document.
	Region string `envconfig:"REGION"`

	// StateDir is the directory the file state store writes into.
	StateDir string `envconfig:"STATE_DIR" default:"output"`

	// StateBackend selects the state store implementation: file or sqlite.
	StateBackend string `envconfig:"STATE_BACKEND" default:"file"`

	// StateDB is the SQLite database path, used when StateBackend is sqlite.
	StateDB string `envconfig:"STATE_DB" default:"output/netbuilder.db"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	// MaxRetries bounds retries of a single step on transient failures.
	MaxRetries int `envconfig:"MAX_RETRIES" default:"3"`

	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"`

	// CallTimeout bounds one provisioning step end to end, including
	// waiter polling. NAT gateways routinely take several minutes.
	CallTimeout time.Duration `envconfig:"CALL_TIMEOUT" default:"10m"`
}

// Load reads options from the environment on top of defaults.
func Load() (*Options, error) {
	var opts Options
	if err := envconfig.Process("netbuilder", &opts); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &opts, nil
}

// Merge applies CLI flag overrides. Empty flag values keep the current
// setting.
func (o *Options) Merge(region, stateDir, logLevel, logFormat string) {
	if region != "" {
		o.Region = region
	}
	if stateDir != "" {
		o.StateDir = stateDir
	}
	if logLevel != "" {
		o.LogLevel = logLevel
	}
	if logFormat != "" {
		o.LogFormat = logFormat
	}
}

func (o *Options) validate() error {
	switch o.StateBackend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown state backend %q (expected %s or %s)", o.StateBackend, BackendFile, BackendSQLite)
	}
	if o.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", o.MaxRetries)
	}
	return nil
}
