package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/netbuilder/internal/provision"
	"github.com/yourusername/netbuilder/internal/state"
)

// appliedState provisions the test topology and returns the resulting
// record, so teardown tests start from a realistic apply.
func appliedState(t *testing.T, prov *fakeProvisioner, orch *Orchestrator) *state.DeploymentState {
	t.Helper()
	st, err := orch.Apply(context.Background(), testTopology())
	require.NoError(t, err)
	return st
}

func reversed(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[len(names)-1-i] = n
	}
	return out
}

func TestTeardown_ReverseCreationOrder(t *testing.T) {
	prov := newFakeProvisioner()
	orch, store := newTestOrchestrator(t, prov)
	st := appliedState(t, prov, orch)

	result, err := orch.Teardown(context.Background(), st)

	require.NoError(t, err)
	assert.Equal(t, reversed(prov.created), prov.deleted)
	assert.Equal(t, reversed(prov.created), result.Removed)
	assert.Empty(t, result.Unremoved)
	assert.Equal(t, state.StatusTornDown, st.Status)
	assert.Equal(t, 0, st.Remaining())

	persisted, err := store.Load(context.Background(), "demo-net")
	require.NoError(t, err)
	assert.Equal(t, state.StatusTornDown, persisted.Status)
}

func TestTeardown_SkipsAlreadyDeleted(t *testing.T) {
	prov := newFakeProvisioner()
	orch, _ := newTestOrchestrator(t, prov)
	st := appliedState(t, prov, orch)

	st.MarkDeleted("demo-net-web-sg")

	result, err := orch.Teardown(context.Background(), st)

	require.NoError(t, err)
	assert.NotContains(t, prov.deleted, "demo-net-web-sg")
	assert.NotContains(t, result.Removed, "demo-net-web-sg")
	assert.Equal(t, state.StatusTornDown, st.Status)
}

func TestTeardown_ConflictContinuesPastResource(t *testing.T) {
	prov := newFakeProvisioner()
	orch, _ := newTestOrchestrator(t, prov)
	st := appliedState(t, prov, orch)

	// The NAT gateway refuses to go; everything else must still be tried.
	prov.failDelete["demo-net-nat"] = conflictError("demo-net-nat")

	result, err := orch.Teardown(context.Background(), st)

	require.Error(t, err)
	assert.Equal(t, []string{"demo-net-nat"}, result.Unremoved)
	assert.Len(t, result.Removed, len(prov.created)-1)
	assert.NotEqual(t, state.StatusTornDown, st.Status)
	assert.Equal(t, 1, st.Remaining())
}

func TestTeardown_PermissionHalts(t *testing.T) {
	prov := newFakeProvisioner()
	orch, _ := newTestOrchestrator(t, prov)
	st := appliedState(t, prov, orch)

	// web-a-rta is deleted late in reverse order; a permission failure
	// there must leave everything created before it untouched.
	prov.failDelete["web-a-rta"] = permissionError("web-a-rta")

	result, err := orch.Teardown(context.Background(), st)

	require.Error(t, err)
	assert.True(t, provision.IsPermission(err))
	assert.NotContains(t, prov.deleted, "demo-net")
	assert.NotContains(t, prov.deleted, "web-a")
	assert.NotContains(t, result.Removed, "demo-net")
	assert.True(t, st.Remaining() > 0)
}

func TestTeardown_RerunCompletesPartial(t *testing.T) {
	prov := newFakeProvisioner()
	orch, _ := newTestOrchestrator(t, prov)
	st := appliedState(t, prov, orch)

	prov.failDelete["demo-net-igw"] = conflictError("demo-net-igw")
	_, err := orch.Teardown(context.Background(), st)
	require.Error(t, err)

	firstPass := len(prov.deleted)
	delete(prov.failDelete, "demo-net-igw")

	result, err := orch.Teardown(context.Background(), st)

	require.NoError(t, err)
	assert.Equal(t, []string{"demo-net-igw"}, result.Removed, "only the leftover is retried")
	assert.Equal(t, firstPass+1, len(prov.deleted))
	assert.Equal(t, state.StatusTornDown, st.Status)
	assert.Equal(t, 0, st.Remaining())
}

func TestTeardown_TwiceIsIdempotent(t *testing.T) {
	prov := newFakeProvisioner()
	orch, _ := newTestOrchestrator(t, prov)
	st := appliedState(t, prov, orch)

	_, err := orch.Teardown(context.Background(), st)
	require.NoError(t, err)
	firstPass := len(prov.deleted)

	result, err := orch.Teardown(context.Background(), st)

	require.NoError(t, err)
	assert.Empty(t, result.Removed)
	assert.Empty(t, result.Unremoved)
	assert.Equal(t, firstPass, len(prov.deleted), "second pass must not re-delete anything")
	assert.Equal(t, state.StatusTornDown, st.Status)
}

func TestTeardown_EmptyStateIsNoop(t *testing.T) {
	prov := newFakeProvisioner()
	orch, _ := newTestOrchestrator(t, prov)

	st := state.New("empty-net", "us-east-1")
	result, err := orch.Teardown(context.Background(), st)

	require.NoError(t, err)
	assert.Empty(t, result.Removed)
	assert.Equal(t, state.StatusTornDown, st.Status)
}
