package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/netbuilder/internal/provision"
	"github.com/yourusername/netbuilder/internal/state"
	"github.com/yourusername/netbuilder/internal/topology"
)

// ErrRunInProgress is returned when another apply for the same topology has
// not finished. Concurrent runs against one topology are never safe.
var ErrRunInProgress = errors.New("a provisioning run for this topology is already in progress")

// Provisioner executes a single creation or deletion step. Satisfied by
// *provision.Provisioner.
type Provisioner interface {
	Create(ctx context.Context, kind state.Kind, logicalName string, params provision.Params, dependsOn []string) (*state.ProvisionedResource, error)
	Delete(ctx context.Context, res *state.ProvisionedResource) error
}

// Orchestrator drives provisioning runs and teardowns.
type Orchestrator struct {
	prov  Provisioner
	store state.Store
	retry provision.RetryPolicy
	log   zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRetryPolicy overrides the transient-failure retry policy.
func WithRetryPolicy(p provision.RetryPolicy) Option {
	return func(o *Orchestrator) { o.retry = p }
}

// New creates an orchestrator over the given provisioner and state store.
func New(prov Provisioner, store state.Store, log zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		prov:  prov,
		store: store,
		retry: provision.DefaultRetryPolicy(),
		log:   log.With().Str("component", "orchestrator").Logger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Apply provisions the topology from scratch, persisting after every step.
// On any step failure the run stops immediately: the returned record then
// has status failed and lists exactly the resources created so far, which
// is what a subsequent teardown consumes. The returned record is non-nil
// whenever a run was started, even on failure.
func (o *Orchestrator) Apply(ctx context.Context, t *topology.NetworkTopology) (*state.DeploymentState, error) {
	if violations := topology.Validate(t); len(violations) > 0 {
		return nil, &topology.ValidationError{Violations: violations}
	}

	prev, err := o.store.Load(ctx, t.Name)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		return nil, fmt.Errorf("loading previous state: %w", err)
	}
	if prev != nil && prev.Status == state.StatusInProgress {
		return nil, ErrRunInProgress
	}

	st := state.New(t.Name, t.Region)
	if err := o.store.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("recording run start: %w", err)
	}

	plan := ComputePlan(t)
	o.log.Info().
		Str("topology", t.Name).
		Str("run_id", st.RunID).
		Int("steps", len(plan)).
		Msg("provisioning started")

	for i, step := range plan {
		if ctx.Err() != nil {
			return o.fail(st, provision.Classify("Apply", step.LogicalName, ctx.Err()))
		}

		params, err := o.resolveRefs(st, step)
		if err != nil {
			return o.fail(st, err)
		}

		o.log.Info().
			Str("kind", string(step.Kind)).
			Str("logical_name", step.LogicalName).
			Int("step", i+1).
			Int("of", len(plan)).
			Msg("provisioning resource")

		var res *state.ProvisionedResource
		err = o.retry.Do(ctx, func() error {
			var cerr error
			res, cerr = o.prov.Create(ctx, step.Kind, step.LogicalName, params, step.DependsOn)
			return cerr
		})
		if err != nil {
			o.log.Error().
				Err(err).
				Str("logical_name", step.LogicalName).
				Msg("provisioning step failed")
			return o.fail(st, err)
		}

		if err := o.store.Append(ctx, st, *res); err != nil {
			return o.fail(st, fmt.Errorf("persisting %s: %w", res.LogicalName, err))
		}
	}

	st.Status = state.StatusComplete
	st.FinishedAt = time.Now().UTC()
	if err := o.store.Save(ctx, st); err != nil {
		return st, fmt.Errorf("recording completion: %w", err)
	}

	o.log.Info().
		Str("topology", t.Name).
		Int("resources", len(st.Resources)).
		Msg("provisioning complete")
	return st, nil
}

// fail stamps the record failed and persists it before surfacing the error.
// Persistence here is best-effort: the original failure always wins.
func (o *Orchestrator) fail(st *state.DeploymentState, cause error) (*state.DeploymentState, error) {
	st.Status = state.StatusFailed
	st.Error = cause.Error()
	st.FinishedAt = time.Now().UTC()
	if err := o.store.Save(context.Background(), st); err != nil {
		o.log.Error().Err(err).Msg("could not persist failed state")
	}
	return st, cause
}

// resolveRefs copies the remote identifiers of previously created resources
// into the step's params. A missing reference is a planning bug, not a
// remote failure, and is not retried.
func (o *Orchestrator) resolveRefs(st *state.DeploymentState, step Step) (provision.Params, error) {
	params := step.Params

	resolve := func(logicalName string, dst *string) error {
		if logicalName == "" {
			return nil
		}
		id, ok := st.RemoteID(logicalName)
		if !ok {
			return fmt.Errorf("step %s references %s, which has not been created", step.LogicalName, logicalName)
		}
		*dst = id
		return nil
	}

	if err := resolve(step.Refs.Vpc, &params.VpcID); err != nil {
		return params, err
	}
	if err := resolve(step.Refs.Subnet, &params.SubnetID); err != nil {
		return params, err
	}
	if err := resolve(step.Refs.RouteTable, &params.RouteTableID); err != nil {
		return params, err
	}
	if err := resolve(step.Refs.Gateway, &params.GatewayID); err != nil {
		return params, err
	}
	if err := resolve(step.Refs.PrivateRouteTable, &params.PrivateRouteTableID); err != nil {
		return params, err
	}
	return params, nil
}
