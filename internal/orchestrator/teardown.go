package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/netbuilder/internal/provision"
	"github.com/yourusername/netbuilder/internal/state"
)

// TeardownResult reports which logical resources a teardown removed and
// which it could not.
type TeardownResult struct {
	Removed   []string
	Unremoved []string
}

// Teardown deletes the recorded resources in reverse creation order.
// Progress is persisted after every removal, so an interrupted teardown can
// be rerun and picks up where it stopped. Already-deleted entries and
// resources gone out-of-band are skipped silently. A conflict on one
// resource does not stop the rest; a permission failure does, since nothing
// after it would fare better.
func (o *Orchestrator) Teardown(ctx context.Context, st *state.DeploymentState) (*TeardownResult, error) {
	result := &TeardownResult{}

	o.log.Info().
		Str("topology", st.Topology).
		Int("resources", st.Remaining()).
		Msg("teardown started")

	for i := len(st.Resources) - 1; i >= 0; i-- {
		res := &st.Resources[i]
		if res.Deleted {
			continue
		}
		if ctx.Err() != nil {
			o.persist(st)
			return result, provision.Classify("Teardown", res.LogicalName, ctx.Err())
		}

		o.log.Info().
			Str("kind", string(res.Kind)).
			Str("logical_name", res.LogicalName).
			Str("remote_id", res.RemoteID).
			Msg("deleting resource")

		err := o.retry.Do(ctx, func() error {
			return o.prov.Delete(ctx, res)
		})
		switch {
		case err == nil:
			st.MarkDeleted(res.LogicalName)
			result.Removed = append(result.Removed, res.LogicalName)
			o.persist(st)
		case provision.IsPermission(err):
			o.log.Error().Err(err).Str("logical_name", res.LogicalName).Msg("teardown halted")
			o.persist(st)
			return result, err
		default:
			o.log.Warn().
				Err(err).
				Str("logical_name", res.LogicalName).
				Msg("resource could not be removed, continuing")
			result.Unremoved = append(result.Unremoved, res.LogicalName)
		}
	}

	if len(result.Unremoved) == 0 {
		st.Status = state.StatusTornDown
	}
	st.FinishedAt = time.Now().UTC()
	o.persist(st)

	if len(result.Unremoved) > 0 {
		return result, fmt.Errorf("%d of %d resources could not be removed", len(result.Unremoved), len(result.Removed)+len(result.Unremoved))
	}

	o.log.Info().
		Str("topology", st.Topology).
		Int("removed", len(result.Removed)).
		Msg("teardown complete")
	return result, nil
}

func (o *Orchestrator) persist(st *state.DeploymentState) {
	if err := o.store.Save(context.Background(), st); err != nil {
		o.log.Error().Err(err).Msg("could not persist teardown progress")
	}
}
