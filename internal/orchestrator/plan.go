// Package orchestrator sequences the provisioning of a network topology and
// its teardown. It turns the topology into an ordered plan, drives the
// provisioner one step at a time with retries, and persists progress after
// every step so a crash never loses track of a created resource.
package orchestrator

import (
	"fmt"

	"github.com/yourusername/netbuilder/internal/provision"
	"github.com/yourusername/netbuilder/internal/state"
	"github.com/yourusername/netbuilder/internal/topology"
)

// StepRefs names the already-created resources whose remote identifiers a
// step needs. They are resolved against the deployment record at execution
// time, never at planning time.
type StepRefs struct {
	Vpc               string
	Subnet            string
	RouteTable        string
	Gateway           string
	PrivateRouteTable string
}

// Step is one planned resource creation.
type Step struct {
	Kind        state.Kind
	LogicalName string
	DependsOn   []string
	Params      provision.Params
	Refs        StepRefs
}

// ComputePlan orders the topology's resources so that every step only
// depends on steps before it. The order is deterministic for a given
// topology: VPC, gateway and route tables first, then subnets in declared
// order, the NAT gateway, route table associations, and finally security
// groups and network ACLs.
func ComputePlan(t *topology.NetworkTopology) []Step {
	var (
		vpcName       = t.Name
		igwName       = t.Name + "-igw"
		publicRTName  = t.Name + "-public-rt"
		privateRTName = t.Name + "-private-rt"
		natName       = t.Name + "-nat"
	)
	private := t.PrivateSubnets()

	plan := []Step{
		{
			Kind:        state.KindVpc,
			LogicalName: vpcName,
			Params: provision.Params{
				CIDR:               t.CIDR,
				EnableDNSSupport:   t.EnableDNSSupport,
				EnableDNSHostnames: t.EnableDNSHostnames,
				Tags:               t.Tags,
			},
		},
		{
			Kind:        state.KindInternetGateway,
			LogicalName: igwName,
			DependsOn:   []string{vpcName},
			Refs:        StepRefs{Vpc: vpcName},
		},
		{
			Kind:        state.KindRouteTable,
			LogicalName: publicRTName,
			DependsOn:   []string{vpcName, igwName},
			Refs:        StepRefs{Vpc: vpcName, Gateway: igwName},
		},
	}

	if len(private) > 0 {
		plan = append(plan, Step{
			Kind:        state.KindRouteTable,
			LogicalName: privateRTName,
			DependsOn:   []string{vpcName},
			Refs:        StepRefs{Vpc: vpcName},
		})
	}

	for _, s := range t.Subnets {
		plan = append(plan, Step{
			Kind:        state.KindSubnet,
			LogicalName: s.Name,
			DependsOn:   []string{vpcName},
			Params: provision.Params{
				CIDR:             s.CIDR,
				AvailabilityZone: s.AZ,
				Tier:             s.Tier,
				MapPublicIP:      s.Tier == topology.TierPublic,
			},
			Refs: StepRefs{Vpc: vpcName},
		})
	}

	if natSubnet, ok := t.NatSubnet(); t.NatGateway.Enabled && ok {
		step := Step{
			Kind:        state.KindNatGateway,
			LogicalName: natName,
			DependsOn:   []string{natSubnet.Name},
			Refs:        StepRefs{Subnet: natSubnet.Name},
		}
		if len(private) > 0 {
			step.DependsOn = append(step.DependsOn, privateRTName)
			step.Refs.PrivateRouteTable = privateRTName
		}
		plan = append(plan, step)
	}

	for _, s := range t.Subnets {
		rtName := publicRTName
		if s.Tier == topology.TierPrivate {
			rtName = privateRTName
		}
		plan = append(plan, Step{
			Kind:        state.KindRouteTableAssociation,
			LogicalName: s.Name + "-rta",
			DependsOn:   []string{s.Name, rtName},
			Refs:        StepRefs{Subnet: s.Name, RouteTable: rtName},
		})
	}

	plan = append(plan, securityGroupSteps(t, vpcName)...)

	if t.NetworkAcls.Enabled {
		for _, tier := range t.SecurityGroupTiers() {
			plan = append(plan, Step{
				Kind:        state.KindNetworkAcl,
				LogicalName: fmt.Sprintf("%s-%s-nacl", t.Name, tier),
				DependsOn:   []string{vpcName},
				Params: provision.Params{
					Tier:  tier,
					Rules: t.SecurityGroups[tier],
				},
				Refs: StepRefs{Vpc: vpcName},
			})
		}
	}

	return plan
}

// securityGroupSteps plans one group per configured tier. With no tiers
// configured, a single group is still planned: it carries no ingress rules,
// which on EC2 means nothing inbound is allowed.
func securityGroupSteps(t *topology.NetworkTopology, vpcName string) []Step {
	if len(t.SecurityGroups) == 0 {
		return []Step{{
			Kind:        state.KindSecurityGroup,
			LogicalName: t.Name + "-default-sg",
			DependsOn:   []string{vpcName},
			Params: provision.Params{
				Description: "deny-all ingress for " + t.Name,
			},
			Refs: StepRefs{Vpc: vpcName},
		}}
	}

	var steps []Step
	for _, tier := range t.SecurityGroupTiers() {
		steps = append(steps, Step{
			Kind:        state.KindSecurityGroup,
			LogicalName: fmt.Sprintf("%s-%s-sg", t.Name, tier),
			DependsOn:   []string{vpcName},
			Params: provision.Params{
				Description: fmt.Sprintf("%s tier ingress for %s", tier, t.Name),
				Tier:        tier,
				Rules:       t.SecurityGroups[tier],
			},
			Refs: StepRefs{Vpc: vpcName},
		})
	}
	return steps
}
