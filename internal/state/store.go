package state

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no deployment record exists for the
// requested topology.
var ErrNotFound = errors.New("deployment state not found")

// Store persists deployment records. Implementations must guarantee
// monotonic ordered appends and atomic overwrite on Save; the orchestrator
// relies on Append completing before it moves to the next step.
type Store interface {
	// Append records one more resource on the deployment and persists the
	// updated record.
	Append(ctx context.Context, st *DeploymentState, res ProvisionedResource) error

	// Load retrieves the record for a topology name, or ErrNotFound.
	Load(ctx context.Context, topology string) (*DeploymentState, error)

	// Save atomically overwrites the whole record.
	Save(ctx context.Context, st *DeploymentState) error
}
