package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/netbuilder/internal/state"
	"github.com/yourusername/netbuilder/internal/topology"
)

func logicalNames(plan []Step) []string {
	names := make([]string, len(plan))
	for i, s := range plan {
		names[i] = s.LogicalName
	}
	return names
}

func findStep(t *testing.T, plan []Step, name string) Step {
	t.Helper()
	for _, s := range plan {
		if s.LogicalName == name {
			return s
		}
	}
	t.Fatalf("plan has no step %q", name)
	return Step{}
}

func TestComputePlan_SinglePublicSubnet(t *testing.T) {
	topo := &topology.NetworkTopology{
		Name:   "demo-net",
		CIDR:   "10.0.0.0/16",
		Region: "us-east-1",
		Subnets: []topology.SubnetSpec{
			{Name: "web-a", CIDR: "10.0.1.0/24", Tier: topology.TierPublic, AZ: "us-east-1a"},
		},
	}

	plan := ComputePlan(topo)

	assert.Equal(t, []string{
		"demo-net",
		"demo-net-igw",
		"demo-net-public-rt",
		"web-a",
		"web-a-rta",
		"demo-net-default-sg",
	}, logicalNames(plan))

	// No private subnets: no private route table, no NAT gateway.
	for _, s := range plan {
		assert.NotEqual(t, state.KindNatGateway, s.Kind)
		assert.NotEqual(t, "demo-net-private-rt", s.LogicalName)
	}
}

func TestComputePlan_FullTopology(t *testing.T) {
	topo := &topology.NetworkTopology{
		Name:               "prod-net",
		CIDR:               "10.0.0.0/16",
		Region:             "us-east-1",
		EnableDNSSupport:   true,
		EnableDNSHostnames: true,
		Subnets: []topology.SubnetSpec{
			{Name: "web-a", CIDR: "10.0.1.0/24", Tier: topology.TierPublic, AZ: "us-east-1a"},
			{Name: "web-b", CIDR: "10.0.2.0/24", Tier: topology.TierPublic, AZ: "us-east-1b"},
			{Name: "db-a", CIDR: "10.0.10.0/24", Tier: topology.TierPrivate, AZ: "us-east-1a"},
			{Name: "db-b", CIDR: "10.0.11.0/24", Tier: topology.TierPrivate, AZ: "us-east-1b"},
		},
		NatGateway: topology.NatGatewayPolicy{Enabled: true},
		SecurityGroups: map[string][]topology.SecurityRule{
			"web": {{Protocol: "tcp", FromPort: 443, ToPort: 443, CIDR: "0.0.0.0/0"}},
			"db":  {{Protocol: "tcp", FromPort: 5432, ToPort: 5432, CIDR: "10.0.0.0/16"}},
		},
		NetworkAcls: topology.NetworkAclPolicy{Enabled: true},
	}

	plan := ComputePlan(topo)

	assert.Equal(t, []string{
		"prod-net",
		"prod-net-igw",
		"prod-net-public-rt",
		"prod-net-private-rt",
		"web-a",
		"web-b",
		"db-a",
		"db-b",
		"prod-net-nat",
		"web-a-rta",
		"web-b-rta",
		"db-a-rta",
		"db-b-rta",
		"prod-net-db-sg",
		"prod-net-web-sg",
		"prod-net-db-nacl",
		"prod-net-web-nacl",
	}, logicalNames(plan))

	nat := findStep(t, plan, "prod-net-nat")
	assert.Equal(t, "web-a", nat.Refs.Subnet, "NAT lives in the first public subnet")
	assert.Equal(t, "prod-net-private-rt", nat.Refs.PrivateRouteTable)
	assert.ElementsMatch(t, []string{"web-a", "prod-net-private-rt"}, nat.DependsOn)

	publicRT := findStep(t, plan, "prod-net-public-rt")
	assert.Equal(t, "prod-net-igw", publicRT.Refs.Gateway)

	privateRT := findStep(t, plan, "prod-net-private-rt")
	assert.Empty(t, privateRT.Refs.Gateway, "private route table has no internet route")

	dbAssoc := findStep(t, plan, "db-a-rta")
	assert.Equal(t, "prod-net-private-rt", dbAssoc.Refs.RouteTable)
	webAssoc := findStep(t, plan, "web-b-rta")
	assert.Equal(t, "prod-net-public-rt", webAssoc.Refs.RouteTable)

	webSG := findStep(t, plan, "prod-net-web-sg")
	require.Len(t, webSG.Params.Rules, 1)
	assert.Equal(t, 443, webSG.Params.Rules[0].FromPort)
}

func TestComputePlan_NatDisabled(t *testing.T) {
	topo := &topology.NetworkTopology{
		Name:   "net",
		CIDR:   "10.0.0.0/16",
		Region: "us-east-1",
		Subnets: []topology.SubnetSpec{
			{Name: "web-a", CIDR: "10.0.1.0/24", Tier: topology.TierPublic, AZ: "us-east-1a"},
			{Name: "db-a", CIDR: "10.0.2.0/24", Tier: topology.TierPrivate, AZ: "us-east-1a"},
		},
	}

	for _, s := range ComputePlan(topo) {
		assert.NotEqual(t, state.KindNatGateway, s.Kind)
	}
}

func TestComputePlan_NatNeedsPublicSubnet(t *testing.T) {
	topo := &topology.NetworkTopology{
		Name:   "net",
		CIDR:   "10.0.0.0/16",
		Region: "us-east-1",
		Subnets: []topology.SubnetSpec{
			{Name: "db-a", CIDR: "10.0.2.0/24", Tier: topology.TierPrivate, AZ: "us-east-1a"},
		},
		NatGateway: topology.NatGatewayPolicy{Enabled: true},
	}

	for _, s := range ComputePlan(topo) {
		assert.NotEqual(t, state.KindNatGateway, s.Kind)
	}
}

func TestComputePlan_NatZonePin(t *testing.T) {
	topo := &topology.NetworkTopology{
		Name:   "net",
		CIDR:   "10.0.0.0/16",
		Region: "us-east-1",
		Subnets: []topology.SubnetSpec{
			{Name: "web-a", CIDR: "10.0.1.0/24", Tier: topology.TierPublic, AZ: "us-east-1a"},
			{Name: "web-b", CIDR: "10.0.2.0/24", Tier: topology.TierPublic, AZ: "us-east-1b"},
		},
		NatGateway: topology.NatGatewayPolicy{Enabled: true, AvailabilityZone: "us-east-1b"},
	}

	nat := findStep(t, ComputePlan(topo), "net-nat")
	assert.Equal(t, "web-b", nat.Refs.Subnet)
}

func TestComputePlan_Deterministic(t *testing.T) {
	topo := &topology.NetworkTopology{
		Name:   "net",
		CIDR:   "10.0.0.0/16",
		Region: "us-east-1",
		Subnets: []topology.SubnetSpec{
			{Name: "web-a", CIDR: "10.0.1.0/24", Tier: topology.TierPublic, AZ: "us-east-1a"},
		},
		SecurityGroups: map[string][]topology.SecurityRule{
			"web": nil, "app": nil, "db": nil,
		},
	}

	first := logicalNames(ComputePlan(topo))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, logicalNames(ComputePlan(topo)))
	}
	// Map iteration order must not leak into the plan.
	assert.Equal(t, []string{"net-app-sg", "net-db-sg", "net-web-sg"}, first[len(first)-3:])
}

func TestComputePlan_DependenciesPrecedeSteps(t *testing.T) {
	topo := &topology.NetworkTopology{
		Name:   "net",
		CIDR:   "10.0.0.0/16",
		Region: "us-east-1",
		Subnets: []topology.SubnetSpec{
			{Name: "web-a", CIDR: "10.0.1.0/24", Tier: topology.TierPublic, AZ: "us-east-1a"},
			{Name: "db-a", CIDR: "10.0.2.0/24", Tier: topology.TierPrivate, AZ: "us-east-1a"},
		},
		NatGateway: topology.NatGatewayPolicy{Enabled: true},
	}

	plan := ComputePlan(topo)
	position := make(map[string]int, len(plan))
	for i, s := range plan {
		position[s.LogicalName] = i
	}

	for _, s := range plan {
		for _, dep := range s.DependsOn {
			depPos, ok := position[dep]
			require.True(t, ok, "%s depends on unplanned %s", s.LogicalName, dep)
			assert.Less(t, depPos, position[s.LogicalName],
				"%s must come after its dependency %s", s.LogicalName, dep)
		}
	}
}
