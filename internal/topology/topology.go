// Package topology holds the typed model of the desired network and its
// validation. Components downstream of the loader only ever see this model,
// never raw YAML maps.
package topology

import "sort"

// Subnet tiers. Public subnets route to the Internet Gateway, private
// subnets route to the NAT gateway when one is enabled.
const (
	TierPublic  = "public"
	TierPrivate = "private"
)

// NetworkTopology is the root of the desired-network description.
type NetworkTopology struct {
	Name               string            `yaml:"vpc_name" validate:"required"`
	CIDR               string            `yaml:"cidr" validate:"required,cidrv4"`
	Region             string            `yaml:"region" validate:"required"`
	EnableDNSHostnames bool              `yaml:"enable_dns_hostnames"`
	EnableDNSSupport   bool              `yaml:"enable_dns_support"`
	Tags               map[string]string `yaml:"tags"`
	Subnets            []SubnetSpec      `yaml:"subnets" validate:"required,min=1,dive"`
	NatGateway         NatGatewayPolicy  `yaml:"nat_gateway"`

	// SecurityGroups maps a tier name to its ordered allow rules. A tier
	// with no rules still gets a group: the posture is deny-all except
	// what is listed here.
	SecurityGroups map[string][]SecurityRule `yaml:"security_groups" validate:"dive,dive"`

	NetworkAcls NetworkAclPolicy `yaml:"network_acls"`
}

// SubnetSpec describes one subnet of the VPC.
type SubnetSpec struct {
	Name string `yaml:"name" validate:"required"`
	CIDR string `yaml:"cidr" validate:"required,cidrv4"`
	Tier string `yaml:"type" validate:"required,oneof=public private"`
	AZ   string `yaml:"az" validate:"required"`
}

// SecurityRule is a single ingress allow entry.
type SecurityRule struct {
	Protocol string `yaml:"protocol" validate:"required,oneof=tcp udp icmp -1"`
	FromPort int    `yaml:"from_port" validate:"gte=0,lte=65535"`
	ToPort   int    `yaml:"to_port" validate:"gte=0,lte=65535,gtefield=FromPort"`
	CIDR     string `yaml:"cidr" validate:"required,cidrv4"`
}

// NatGatewayPolicy controls whether private subnets get outbound internet
// access through a NAT gateway.
type NatGatewayPolicy struct {
	Enabled bool `yaml:"enabled"`

	// AvailabilityZone pins the NAT gateway to the public subnet in this
	// zone. Empty means the first public subnet in declared order.
	AvailabilityZone string `yaml:"availability_zone"`
}

// NetworkAclPolicy enables per-tier network ACLs mirroring the tier's
// security rules.
type NetworkAclPolicy struct {
	Enabled bool `yaml:"enabled"`
}

// PublicSubnets returns the public subnets in declared order.
func (t *NetworkTopology) PublicSubnets() []SubnetSpec {
	return t.subnetsByTier(TierPublic)
}

// PrivateSubnets returns the private subnets in declared order.
func (t *NetworkTopology) PrivateSubnets() []SubnetSpec {
	return t.subnetsByTier(TierPrivate)
}

func (t *NetworkTopology) subnetsByTier(tier string) []SubnetSpec {
	var out []SubnetSpec
	for _, s := range t.Subnets {
		if s.Tier == tier {
			out = append(out, s)
		}
	}
	return out
}

// NatSubnet selects the public subnet hosting the NAT gateway, honoring the
// policy's availability zone pin. Returns false when no public subnet
// qualifies.
func (t *NetworkTopology) NatSubnet() (SubnetSpec, bool) {
	public := t.PublicSubnets()
	if len(public) == 0 {
		return SubnetSpec{}, false
	}
	if az := t.NatGateway.AvailabilityZone; az != "" {
		for _, s := range public {
			if s.AZ == az {
				return s, true
			}
		}
		return SubnetSpec{}, false
	}
	return public[0], true
}

// SecurityGroupTiers returns the configured tier names in a stable order.
// YAML mappings carry no order into Go maps, so sorting keeps the creation
// sequence deterministic across runs.
func (t *NetworkTopology) SecurityGroupTiers() []string {
	tiers := make([]string, 0, len(t.SecurityGroups))
	for tier := range t.SecurityGroups {
		tiers = append(tiers, tier)
	}
	sort.Strings(tiers)
	return tiers
}
