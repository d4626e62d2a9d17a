package topology

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTopology() *NetworkTopology {
	return &NetworkTopology{
		Name:               "prod-secure-network",
		CIDR:               "10.0.0.0/16",
		Region:             "us-east-1",
		EnableDNSHostnames: true,
		EnableDNSSupport:   true,
		Tags:               map[string]string{"Environment": "production"},
		Subnets: []SubnetSpec{
			{Name: "public-1a", CIDR: "10.0.1.0/24", Tier: TierPublic, AZ: "us-east-1a"},
			{Name: "private-1a", CIDR: "10.0.10.0/24", Tier: TierPrivate, AZ: "us-east-1a"},
		},
		NatGateway: NatGatewayPolicy{Enabled: true},
		SecurityGroups: map[string][]SecurityRule{
			"web": {
				{Protocol: "tcp", FromPort: 443, ToPort: 443, CIDR: "0.0.0.0/0"},
			},
		},
	}
}

func TestValidateValidTopology(t *testing.T) {
	violations := Validate(validTopology())
	assert.Empty(t, violations)
}

func TestValidateSubnetOutsideVpcRange(t *testing.T) {
	topo := validTopology()
	topo.Subnets[1].CIDR = "192.168.1.0/24"

	violations := Validate(topo)

	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Message, "not contained in vpc cidr")
	assert.NotContains(t, violations[0].Message, "overlaps",
		"an out-of-range subnet must not produce a false overlap violation")
}

func TestValidateOverlappingSubnets(t *testing.T) {
	topo := validTopology()
	topo.Subnets = []SubnetSpec{
		{Name: "public-1a", CIDR: "10.0.1.0/24", Tier: TierPublic, AZ: "us-east-1a"},
		{Name: "private-1a", CIDR: "10.0.1.128/25", Tier: TierPrivate, AZ: "us-east-1a"},
	}

	violations := Validate(topo)

	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Message, "public-1a")
	assert.Contains(t, violations[0].Message, "private-1a")
	assert.Contains(t, violations[0].Message, "overlaps")
}

func TestValidateDuplicateSubnetNames(t *testing.T) {
	topo := validTopology()
	topo.Subnets[1].Name = "public-1a"

	violations := Validate(topo)

	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Message, "used more than once")
}

func TestValidateMalformedCidrs(t *testing.T) {
	topo := validTopology()
	topo.CIDR = "10.0.0.0/33"
	topo.Subnets[0].CIDR = "not-a-cidr"

	violations := Validate(topo)

	// One violation per malformed CIDR, no cascading range/overlap noise.
	require.Len(t, violations, 2)
	for _, v := range violations {
		assert.Contains(t, v.Message, "not a valid IPv4 CIDR")
	}
}

func TestValidateInvalidTier(t *testing.T) {
	topo := validTopology()
	topo.Subnets[0].Tier = "dmz"

	violations := Validate(topo)

	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Field, "Tier")
}

func TestValidateBadPortRange(t *testing.T) {
	tests := []struct {
		name string
		rule SecurityRule
	}{
		{
			name: "from above to",
			rule: SecurityRule{Protocol: "tcp", FromPort: 8080, ToPort: 80, CIDR: "10.0.0.0/8"},
		},
		{
			name: "port above 65535",
			rule: SecurityRule{Protocol: "tcp", FromPort: 0, ToPort: 70000, CIDR: "10.0.0.0/8"},
		},
		{
			name: "negative port",
			rule: SecurityRule{Protocol: "udp", FromPort: -1, ToPort: 53, CIDR: "10.0.0.0/8"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topo := validTopology()
			topo.SecurityGroups = map[string][]SecurityRule{"app": {tt.rule}}

			violations := Validate(topo)
			assert.NotEmpty(t, violations)
		})
	}
}

func TestValidateCollectsAllViolations(t *testing.T) {
	topo := validTopology()
	topo.Region = ""
	topo.Subnets[0].Tier = "dmz"
	topo.Subnets[1].CIDR = "172.16.0.0/24"

	violations := Validate(topo)

	require.Len(t, violations, 3)

	all := make([]string, len(violations))
	for i, v := range violations {
		all[i] = v.String()
	}
	joined := strings.Join(all, "\n")
	assert.Contains(t, joined, "Region")
	assert.Contains(t, joined, "Tier")
	assert.Contains(t, joined, "not contained in vpc cidr")
}

func TestNatSubnetSelection(t *testing.T) {
	topo := validTopology()
	topo.Subnets = append(topo.Subnets,
		SubnetSpec{Name: "public-1b", CIDR: "10.0.2.0/24", Tier: TierPublic, AZ: "us-east-1b"})

	sub, ok := topo.NatSubnet()
	require.True(t, ok)
	assert.Equal(t, "public-1a", sub.Name, "first public subnet wins by default")

	topo.NatGateway.AvailabilityZone = "us-east-1b"
	sub, ok = topo.NatSubnet()
	require.True(t, ok)
	assert.Equal(t, "public-1b", sub.Name)

	topo.NatGateway.AvailabilityZone = "us-east-1c"
	_, ok = topo.NatSubnet()
	assert.False(t, ok, "no public subnet in the pinned zone")
}

func TestSecurityGroupTiersStableOrder(t *testing.T) {
	topo := validTopology()
	topo.SecurityGroups = map[string][]SecurityRule{
		"web": nil, "app": nil, "db": nil,
	}

	assert.Equal(t, []string{"app", "db", "web"}, topo.SecurityGroupTiers())
}
