package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/netbuilder/internal/provision"
	"github.com/yourusername/netbuilder/internal/state"
	"github.com/yourusername/netbuilder/internal/topology"
)

// fakeProvisioner records calls and fails on demand, so tests can assert
// sequencing without mocking thirty EC2 methods.
type fakeProvisioner struct {
	created []string
	deleted []string

	failCreate map[string]error
	failDelete map[string]error

	// transientCreates makes the named resource fail transiently this many
	// times before succeeding.
	transientCreates map[string]int

	seq int
}

func newFakeProvisioner() *fakeProvisioner {
	return &fakeProvisioner{
		failCreate:       map[string]error{},
		failDelete:       map[string]error{},
		transientCreates: map[string]int{},
	}
}

func (f *fakeProvisioner) Create(_ context.Context, kind state.Kind, logicalName string, _ provision.Params, dependsOn []string) (*state.ProvisionedResource, error) {
	if n := f.transientCreates[logicalName]; n > 0 {
		f.transientCreates[logicalName] = n - 1
		return nil, provision.Classify("Create", logicalName,
			&smithy.GenericAPIError{Code: "RequestLimitExceeded"})
	}
	if err := f.failCreate[logicalName]; err != nil {
		return nil, err
	}
	f.seq++
	f.created = append(f.created, logicalName)
	return &state.ProvisionedResource{
		LogicalName: logicalName,
		Kind:        kind,
		RemoteID:    fmt.Sprintf("%s-%04d", strings.ToLower(string(kind)), f.seq),
		CreatedAt:   time.Now().UTC(),
		DependsOn:   dependsOn,
	}, nil
}

func (f *fakeProvisioner) Delete(_ context.Context, res *state.ProvisionedResource) error {
	if err := f.failDelete[res.LogicalName]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, res.LogicalName)
	return nil
}

func conflictError(name string) error {
	return provision.Classify("Create", name, &smithy.GenericAPIError{Code: "InvalidSubnet.Conflict"})
}

func permissionError(name string) error {
	return provision.Classify("Delete", name, &smithy.GenericAPIError{Code: "UnauthorizedOperation"})
}

func fastRetries() Option {
	return WithRetryPolicy(provision.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
	})
}

func testTopology() *topology.NetworkTopology {
	return &topology.NetworkTopology{
		Name:   "demo-net",
		CIDR:   "10.0.0.0/16",
		Region: "us-east-1",
		Subnets: []topology.SubnetSpec{
			{Name: "web-a", CIDR: "10.0.1.0/24", Tier: topology.TierPublic, AZ: "us-east-1a"},
			{Name: "web-b", CIDR: "10.0.2.0/24", Tier: topology.TierPublic, AZ: "us-east-1b"},
			{Name: "db-a", CIDR: "10.0.10.0/24", Tier: topology.TierPrivate, AZ: "us-east-1a"},
		},
		NatGateway: topology.NatGatewayPolicy{Enabled: true},
		SecurityGroups: map[string][]topology.SecurityRule{
			"web": {{Protocol: "tcp", FromPort: 443, ToPort: 443, CIDR: "0.0.0.0/0"}},
		},
	}
}

func newTestOrchestrator(t *testing.T, prov Provisioner) (*Orchestrator, *state.FileStore) {
	t.Helper()
	store := state.NewFileStore(t.TempDir())
	return New(prov, store, zerolog.Nop(), fastRetries()), store
}

func TestApply_Success(t *testing.T) {
	prov := newFakeProvisioner()
	orch, store := newTestOrchestrator(t, prov)

	st, err := orch.Apply(context.Background(), testTopology())

	require.NoError(t, err)
	assert.Equal(t, state.StatusComplete, st.Status)
	assert.False(t, st.FinishedAt.IsZero())
	assert.Equal(t, []string{
		"demo-net",
		"demo-net-igw",
		"demo-net-public-rt",
		"demo-net-private-rt",
		"web-a",
		"web-b",
		"db-a",
		"demo-net-nat",
		"web-a-rta",
		"web-b-rta",
		"db-a-rta",
		"demo-net-web-sg",
	}, prov.created)

	persisted, err := store.Load(context.Background(), "demo-net")
	require.NoError(t, err)
	assert.Equal(t, state.StatusComplete, persisted.Status)
	assert.Len(t, persisted.Resources, len(prov.created))
}

func TestApply_ValidationFailureRunsNothing(t *testing.T) {
	prov := newFakeProvisioner()
	orch, store := newTestOrchestrator(t, prov)

	topo := testTopology()
	topo.Subnets[1].CIDR = topo.Subnets[0].CIDR // overlap

	_, err := orch.Apply(context.Background(), topo)

	var verr *topology.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Violations)
	assert.Empty(t, prov.created, "no remote call may happen for an invalid topology")

	_, err = store.Load(context.Background(), "demo-net")
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestApply_StopsOnConflictAndRecordsPartialState(t *testing.T) {
	prov := newFakeProvisioner()
	prov.failCreate["db-a"] = conflictError("db-a")
	orch, store := newTestOrchestrator(t, prov)

	st, err := orch.Apply(context.Background(), testTopology())

	require.Error(t, err)
	assert.True(t, provision.IsConflict(err))
	require.NotNil(t, st)
	assert.Equal(t, state.StatusFailed, st.Status)
	assert.NotEmpty(t, st.Error)

	// The first two subnets and their ancestors are recorded; nothing
	// after the failing third subnet ran.
	assert.Equal(t, []string{
		"demo-net", "demo-net-igw", "demo-net-public-rt", "demo-net-private-rt",
		"web-a", "web-b",
	}, prov.created)

	persisted, err := store.Load(context.Background(), "demo-net")
	require.NoError(t, err)
	assert.Equal(t, state.StatusFailed, persisted.Status)
	assert.Len(t, persisted.Resources, 6)
}

func TestApply_RetriesTransientThenSucceeds(t *testing.T) {
	prov := newFakeProvisioner()
	prov.transientCreates["web-a"] = 2
	orch, _ := newTestOrchestrator(t, prov)

	st, err := orch.Apply(context.Background(), testTopology())

	require.NoError(t, err)
	assert.Equal(t, state.StatusComplete, st.Status)
	assert.Contains(t, prov.created, "web-a")
}

func TestApply_TransientExhaustionFails(t *testing.T) {
	prov := newFakeProvisioner()
	prov.transientCreates["demo-net-igw"] = 10
	orch, _ := newTestOrchestrator(t, prov)

	st, err := orch.Apply(context.Background(), testTopology())

	require.Error(t, err)
	assert.True(t, provision.IsTransient(err))
	assert.Equal(t, state.StatusFailed, st.Status)
	assert.Equal(t, []string{"demo-net"}, prov.created)
}

func TestApply_RejectsConcurrentRun(t *testing.T) {
	prov := newFakeProvisioner()
	orch, store := newTestOrchestrator(t, prov)

	inflight := state.New("demo-net", "us-east-1")
	require.NoError(t, store.Save(context.Background(), inflight))

	_, err := orch.Apply(context.Background(), testTopology())

	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Empty(t, prov.created)
}

func TestApply_ReapplyAfterFailureStartsFresh(t *testing.T) {
	prov := newFakeProvisioner()
	prov.failCreate["demo-net-nat"] = conflictError("demo-net-nat")
	orch, store := newTestOrchestrator(t, prov)

	first, err := orch.Apply(context.Background(), testTopology())
	require.Error(t, err)
	require.Equal(t, state.StatusFailed, first.Status)

	delete(prov.failCreate, "demo-net-nat")
	second, err := orch.Apply(context.Background(), testTopology())

	require.NoError(t, err)
	assert.Equal(t, state.StatusComplete, second.Status)
	assert.NotEqual(t, first.RunID, second.RunID)

	persisted, err := store.Load(context.Background(), "demo-net")
	require.NoError(t, err)
	assert.Equal(t, second.RunID, persisted.RunID)
}

func TestApply_CancelledContextStops(t *testing.T) {
	prov := newFakeProvisioner()
	orch, _ := newTestOrchestrator(t, prov)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st, err := orch.Apply(ctx, testTopology())

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || provision.IsTransient(err))
	assert.Equal(t, state.StatusFailed, st.Status)
	assert.Empty(t, prov.created)
}
