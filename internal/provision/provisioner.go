package provision

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yourusername/netbuilder/internal/awsapi"
	"github.com/yourusername/netbuilder/internal/state"
	"github.com/yourusername/netbuilder/internal/topology"
)

const defaultCallTimeout = 10 * time.Minute

// anyCIDR is the default route destination.
const anyCIDR = "0.0.0.0/0"

// Params carries the inputs for one creation step. Only the fields relevant
// to the step's kind are set; remote identifiers of dependencies are
// resolved by the orchestrator before the call.
type Params struct {
	CIDR             string
	AvailabilityZone string
	MapPublicIP      bool

	EnableDNSSupport   bool
	EnableDNSHostnames bool

	VpcID        string
	SubnetID     string
	RouteTableID string

	// GatewayID is the Internet Gateway target for a public route table's
	// default route.
	GatewayID string

	// PrivateRouteTableID is the route table that receives the default
	// route through a NAT gateway.
	PrivateRouteTableID string

	Description string
	Tier        string
	Rules       []topology.SecurityRule
	Tags        map[string]string
}

// Provisioner executes one resource creation or deletion per call. It keeps
// no state between calls; everything a delete needs is recorded on the
// ProvisionedResource at creation time.
type Provisioner struct {
	api         awsapi.EC2API
	log         zerolog.Logger
	callTimeout time.Duration
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithCallTimeout bounds each Create/Delete invocation, including waiter
// polling. A step that exceeds it fails transient.
func WithCallTimeout(d time.Duration) Option {
	return func(p *Provisioner) { p.callTimeout = d }
}

// NewProvisioner creates a provisioner over the given EC2 API.
func NewProvisioner(api awsapi.EC2API, log zerolog.Logger, opts ...Option) *Provisioner {
	p := &Provisioner{
		api:         api,
		log:         log.With().Str("component", "provisioner").Logger(),
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Create materializes one resource and returns its record. Before creating,
// it looks for a remote resource already carrying the logical name as its
// Name tag and adopts it — this is what makes a retry after a transient
// failure safe against duplicates.
func (p *Provisioner) Create(ctx context.Context, kind state.Kind, logicalName string, params Params, dependsOn []string) (*state.ProvisionedResource, error) {
	ctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	var (
		remoteID string
		attrs    map[string]string
		err      error
	)

	switch kind {
	case state.KindVpc:
		remoteID, err = p.createVpc(ctx, logicalName, params)
	case state.KindSubnet:
		remoteID, err = p.createSubnet(ctx, logicalName, params)
	case state.KindInternetGateway:
		remoteID, err = p.createInternetGateway(ctx, logicalName, params)
		attrs = map[string]string{state.AttrVpcID: params.VpcID}
	case state.KindNatGateway:
		remoteID, attrs, err = p.createNatGateway(ctx, logicalName, params)
	case state.KindRouteTable:
		remoteID, err = p.createRouteTable(ctx, logicalName, params)
	case state.KindRouteTableAssociation:
		remoteID, err = p.createRouteTableAssociation(ctx, logicalName, params)
		attrs = map[string]string{
			state.AttrSubnetID:     params.SubnetID,
			state.AttrRouteTableID: params.RouteTableID,
		}
	case state.KindSecurityGroup:
		remoteID, err = p.createSecurityGroup(ctx, logicalName, params)
	case state.KindNetworkAcl:
		remoteID, err = p.createNetworkAcl(ctx, logicalName, params)
	default:
		return nil, &Error{Class: ClassConflict, Op: "Create", Resource: logicalName,
			Err: fmt.Errorf("unknown resource kind %q", kind)}
	}
	if err != nil {
		return nil, err
	}

	p.log.Info().
		Str("kind", string(kind)).
		Str("logical_name", logicalName).
		Str("remote_id", remoteID).
		Msg("resource created")

	return &state.ProvisionedResource{
		LogicalName: logicalName,
		Kind:        kind,
		RemoteID:    remoteID,
		CreatedAt:   time.Now().UTC(),
		DependsOn:   dependsOn,
		Attributes:  attrs,
	}, nil
}

// Delete removes one resource. A remote "not found" is success: teardown
// must tolerate resources removed out-of-band or by an earlier partial run.
func (p *Provisioner) Delete(ctx context.Context, res *state.ProvisionedResource) error {
	ctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	var err error
	switch res.Kind {
	case state.KindVpc:
		_, err = p.api.DeleteVpc(ctx, &ec2.DeleteVpcInput{VpcId: aws.String(res.RemoteID)})
		err = p.classifyDelete("DeleteVpc", res, err)
	case state.KindSubnet:
		_, err = p.api.DeleteSubnet(ctx, &ec2.DeleteSubnetInput{SubnetId: aws.String(res.RemoteID)})
		err = p.classifyDelete("DeleteSubnet", res, err)
	case state.KindInternetGateway:
		err = p.deleteInternetGateway(ctx, res)
	case state.KindNatGateway:
		err = p.deleteNatGateway(ctx, res)
	case state.KindRouteTable:
		_, err = p.api.DeleteRouteTable(ctx, &ec2.DeleteRouteTableInput{RouteTableId: aws.String(res.RemoteID)})
		err = p.classifyDelete("DeleteRouteTable", res, err)
	case state.KindRouteTableAssociation:
		_, err = p.api.DisassociateRouteTable(ctx, &ec2.DisassociateRouteTableInput{AssociationId: aws.String(res.RemoteID)})
		err = p.classifyDelete("DisassociateRouteTable", res, err)
	case state.KindSecurityGroup:
		_, err = p.api.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{GroupId: aws.String(res.RemoteID)})
		err = p.classifyDelete("DeleteSecurityGroup", res, err)
	case state.KindNetworkAcl:
		_, err = p.api.DeleteNetworkAcl(ctx, &ec2.DeleteNetworkAclInput{NetworkAclId: aws.String(res.RemoteID)})
		err = p.classifyDelete("DeleteNetworkAcl", res, err)
	default:
		return &Error{Class: ClassConflict, Op: "Delete", Resource: res.LogicalName,
			Err: fmt.Errorf("unknown resource kind %q", res.Kind)}
	}
	if err != nil {
		return err
	}

	p.log.Info().
		Str("kind", string(res.Kind)).
		Str("logical_name", res.LogicalName).
		Str("remote_id", res.RemoteID).
		Msg("resource deleted")
	return nil
}

// classifyDelete maps a delete error, swallowing "not found".
func (p *Provisioner) classifyDelete(op string, res *state.ProvisionedResource, err error) error {
	if err == nil {
		return nil
	}
	classified := Classify(op, res.LogicalName, err)
	if classified.Class == ClassNotFound {
		p.log.Debug().
			Str("logical_name", res.LogicalName).
			Str("remote_id", res.RemoteID).
			Msg("resource already absent")
		return nil
	}
	return classified
}

func (p *Provisioner) createVpc(ctx context.Context, name string, params Params) (string, error) {
	id, err := p.findVpcByName(ctx, name)
	if err != nil {
		return "", err
	}
	if id == "" {
		out, err := p.api.CreateVpc(ctx, &ec2.CreateVpcInput{
			CidrBlock:         aws.String(params.CIDR),
			TagSpecifications: tagSpec(ec2types.ResourceTypeVpc, name, "", params.Tags),
		})
		if err != nil {
			return "", Classify("CreateVpc", name, err)
		}
		id = aws.ToString(out.Vpc.VpcId)

		waiter := ec2.NewVpcAvailableWaiter(p.api)
		if err := waiter.Wait(ctx, &ec2.DescribeVpcsInput{VpcIds: []string{id}}, p.callTimeout); err != nil {
			return "", Classify("WaitVpcAvailable", name, err)
		}
	}

	// DNS attributes must be modified one at a time.
	if params.EnableDNSSupport {
		_, err = p.api.ModifyVpcAttribute(ctx, &ec2.ModifyVpcAttributeInput{
			VpcId:            aws.String(id),
			EnableDnsSupport: &ec2types.AttributeBooleanValue{Value: aws.Bool(true)},
		})
		if err != nil {
			return "", Classify("ModifyVpcAttribute", name, err)
		}
	}
	if params.EnableDNSHostnames {
		_, err = p.api.ModifyVpcAttribute(ctx, &ec2.ModifyVpcAttributeInput{
			VpcId:              aws.String(id),
			EnableDnsHostnames: &ec2types.AttributeBooleanValue{Value: aws.Bool(true)},
		})
		if err != nil {
			return "", Classify("ModifyVpcAttribute", name, err)
		}
	}
	return id, nil
}

func (p *Provisioner) createSubnet(ctx context.Context, name string, params Params) (string, error) {
	id, err := p.findSubnetByName(ctx, name)
	if err != nil {
		return "", err
	}
	if id == "" {
		out, err := p.api.CreateSubnet(ctx, &ec2.CreateSubnetInput{
			VpcId:             aws.String(params.VpcID),
			CidrBlock:         aws.String(params.CIDR),
			AvailabilityZone:  aws.String(params.AvailabilityZone),
			TagSpecifications: tagSpec(ec2types.ResourceTypeSubnet, name, params.Tier, nil),
		})
		if err != nil {
			return "", Classify("CreateSubnet", name, err)
		}
		id = aws.ToString(out.Subnet.SubnetId)
	}

	// Public subnets auto-assign public addresses on launch.
	if params.MapPublicIP {
		_, err = p.api.ModifySubnetAttribute(ctx, &ec2.ModifySubnetAttributeInput{
			SubnetId:            aws.String(id),
			MapPublicIpOnLaunch: &ec2types.AttributeBooleanValue{Value: aws.Bool(true)},
		})
		if err != nil {
			return "", Classify("ModifySubnetAttribute", name, err)
		}
	}
	return id, nil
}

func (p *Provisioner) createInternetGateway(ctx context.Context, name string, params Params) (string, error) {
	id, attached, err := p.findInternetGatewayByName(ctx, name, params.VpcID)
	if err != nil {
		return "", err
	}
	if id == "" {
		out, err := p.api.CreateInternetGateway(ctx, &ec2.CreateInternetGatewayInput{
			TagSpecifications: tagSpec(ec2types.ResourceTypeInternetGateway, name, "", nil),
		})
		if err != nil {
			return "", Classify("CreateInternetGateway", name, err)
		}
		id = aws.ToString(out.InternetGateway.InternetGatewayId)
	}

	if !attached {
		_, err = p.api.AttachInternetGateway(ctx, &ec2.AttachInternetGatewayInput{
			InternetGatewayId: aws.String(id),
			VpcId:             aws.String(params.VpcID),
		})
		if err != nil && !errorCodeIs(err, "Resource.AlreadyAssociated") {
			return "", Classify("AttachInternetGateway", name, err)
		}
	}
	return id, nil
}

func (p *Provisioner) createNatGateway(ctx context.Context, name string, params Params) (string, map[string]string, error) {
	id, attrs, err := p.findNatGatewayByName(ctx, name)
	if err != nil {
		return "", nil, err
	}

	if id == "" {
		eip, err := p.api.AllocateAddress(ctx, &ec2.AllocateAddressInput{
			Domain:            ec2types.DomainTypeVpc,
			TagSpecifications: tagSpec(ec2types.ResourceTypeElasticIp, name+"-eip", "", nil),
		})
		if err != nil {
			return "", nil, Classify("AllocateAddress", name, err)
		}

		out, err := p.api.CreateNatGateway(ctx, &ec2.CreateNatGatewayInput{
			SubnetId:          aws.String(params.SubnetID),
			AllocationId:      eip.AllocationId,
			ClientToken:       aws.String(uuid.New().String()),
			TagSpecifications: tagSpec(ec2types.ResourceTypeNatgateway, name, "", nil),
		})
		if err != nil {
			return "", nil, Classify("CreateNatGateway", name, err)
		}
		id = aws.ToString(out.NatGateway.NatGatewayId)
		attrs = map[string]string{
			state.AttrAllocationID: aws.ToString(eip.AllocationId),
			state.AttrElasticIP:    aws.ToString(eip.PublicIp),
			state.AttrSubnetID:     params.SubnetID,
		}

		p.log.Info().Str("nat_gateway_id", id).Msg("waiting for NAT gateway to become available")
		waiter := ec2.NewNatGatewayAvailableWaiter(p.api)
		input := &ec2.DescribeNatGatewaysInput{NatGatewayIds: []string{id}}
		if err := waiter.Wait(ctx, input, p.callTimeout); err != nil {
			return "", nil, Classify("WaitNatGatewayAvailable", name, err)
		}
	}

	// Private subnets reach the internet through this gateway.
	if params.PrivateRouteTableID != "" {
		_, err = p.api.CreateRoute(ctx, &ec2.CreateRouteInput{
			RouteTableId:         aws.String(params.PrivateRouteTableID),
			DestinationCidrBlock: aws.String(anyCIDR),
			NatGatewayId:         aws.String(id),
		})
		if err != nil && !errorCodeIs(err, "RouteAlreadyExists") {
			return "", nil, Classify("CreateRoute", name, err)
		}
	}
	return id, attrs, nil
}

func (p *Provisioner) createRouteTable(ctx context.Context, name string, params Params) (string, error) {
	id, err := p.findRouteTableByName(ctx, name)
	if err != nil {
		return "", err
	}
	if id == "" {
		out, err := p.api.CreateRouteTable(ctx, &ec2.CreateRouteTableInput{
			VpcId:             aws.String(params.VpcID),
			TagSpecifications: tagSpec(ec2types.ResourceTypeRouteTable, name, "", nil),
		})
		if err != nil {
			return "", Classify("CreateRouteTable", name, err)
		}
		id = aws.ToString(out.RouteTable.RouteTableId)
	}

	// Public tables default-route through the Internet Gateway.
	if params.GatewayID != "" {
		_, err = p.api.CreateRoute(ctx, &ec2.CreateRouteInput{
			RouteTableId:         aws.String(id),
			DestinationCidrBlock: aws.String(anyCIDR),
			GatewayId:            aws.String(params.GatewayID),
		})
		if err != nil && !errorCodeIs(err, "RouteAlreadyExists") {
			return "", Classify("CreateRoute", name, err)
		}
	}
	return id, nil
}

func (p *Provisioner) createRouteTableAssociation(ctx context.Context, name string, params Params) (string, error) {
	// Associations are not taggable; adopt by looking up the subnet's
	// current association instead.
	existing, err := p.api.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("association.subnet-id"), Values: []string{params.SubnetID}},
		},
	})
	if err != nil {
		return "", Classify("DescribeRouteTables", name, err)
	}
	for _, rt := range existing.RouteTables {
		if aws.ToString(rt.RouteTableId) != params.RouteTableID {
			continue
		}
		for _, assoc := range rt.Associations {
			if aws.ToString(assoc.SubnetId) == params.SubnetID {
				return aws.ToString(assoc.RouteTableAssociationId), nil
			}
		}
	}

	out, err := p.api.AssociateRouteTable(ctx, &ec2.AssociateRouteTableInput{
		SubnetId:     aws.String(params.SubnetID),
		RouteTableId: aws.String(params.RouteTableID),
	})
	if err != nil {
		return "", Classify("AssociateRouteTable", name, err)
	}
	return aws.ToString(out.AssociationId), nil
}

func (p *Provisioner) createSecurityGroup(ctx context.Context, name string, params Params) (string, error) {
	id, err := p.findSecurityGroupByName(ctx, name, params.VpcID)
	if err != nil {
		return "", err
	}
	if id == "" {
		out, err := p.api.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
			GroupName:         aws.String(name),
			Description:       aws.String(params.Description),
			VpcId:             aws.String(params.VpcID),
			TagSpecifications: tagSpec(ec2types.ResourceTypeSecurityGroup, name, params.Tier, nil),
		})
		if err != nil {
			return "", Classify("CreateSecurityGroup", name, err)
		}
		id = aws.ToString(out.GroupId)
	}

	// A new group allows nothing inbound; each configured rule is one
	// explicit allow entry.
	for _, rule := range params.Rules {
		_, err := p.api.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
			GroupId:       aws.String(id),
			IpPermissions: []ec2types.IpPermission{ipPermission(rule)},
		})
		if err != nil && !errorCodeIs(err, "InvalidPermission.Duplicate") {
			return "", Classify("AuthorizeSecurityGroupIngress", name, err)
		}
	}
	return id, nil
}

func (p *Provisioner) createNetworkAcl(ctx context.Context, name string, params Params) (string, error) {
	id, err := p.findNetworkAclByName(ctx, name)
	if err != nil {
		return "", err
	}
	if id == "" {
		out, err := p.api.CreateNetworkAcl(ctx, &ec2.CreateNetworkAclInput{
			VpcId:             aws.String(params.VpcID),
			TagSpecifications: tagSpec(ec2types.ResourceTypeNetworkAcl, name, params.Tier, nil),
		})
		if err != nil {
			return "", Classify("CreateNetworkAcl", name, err)
		}
		id = aws.ToString(out.NetworkAcl.NetworkAclId)
	}

	// Rule numbers follow the AWS convention of 100, 110, 120, ...
	for i, rule := range params.Rules {
		input := &ec2.CreateNetworkAclEntryInput{
			NetworkAclId: aws.String(id),
			RuleNumber:   aws.Int32(int32(100 + i*10)),
			Protocol:     aws.String(aclProtocolNumber(rule.Protocol)),
			RuleAction:   ec2types.RuleActionAllow,
			Egress:       aws.Bool(false),
			CidrBlock:    aws.String(rule.CIDR),
		}
		if rule.Protocol == "tcp" || rule.Protocol == "udp" {
			input.PortRange = &ec2types.PortRange{
				From: aws.Int32(int32(rule.FromPort)),
				To:   aws.Int32(int32(rule.ToPort)),
			}
		}
		_, err := p.api.CreateNetworkAclEntry(ctx, input)
		if err != nil && !errorCodeIs(err, "NetworkAclEntryAlreadyExists") {
			return "", Classify("CreateNetworkAclEntry", name, err)
		}
	}
	return id, nil
}

func (p *Provisioner) deleteInternetGateway(ctx context.Context, res *state.ProvisionedResource) error {
	vpcID := res.Attributes[state.AttrVpcID]
	if vpcID != "" {
		_, err := p.api.DetachInternetGateway(ctx, &ec2.DetachInternetGatewayInput{
			InternetGatewayId: aws.String(res.RemoteID),
			VpcId:             aws.String(vpcID),
		})
		if err != nil && !errorCodeIs(err, "Gateway.NotAttached") {
			if classified := p.classifyDelete("DetachInternetGateway", res, err); classified != nil {
				return classified
			}
			// Gateway itself is gone; nothing left to delete.
			return nil
		}
	}

	_, err := p.api.DeleteInternetGateway(ctx, &ec2.DeleteInternetGatewayInput{
		InternetGatewayId: aws.String(res.RemoteID),
	})
	return p.classifyDelete("DeleteInternetGateway", res, err)
}

func (p *Provisioner) deleteNatGateway(ctx context.Context, res *state.ProvisionedResource) error {
	_, err := p.api.DeleteNatGateway(ctx, &ec2.DeleteNatGatewayInput{
		NatGatewayId: aws.String(res.RemoteID),
	})
	if err := p.classifyDelete("DeleteNatGateway", res, err); err != nil {
		return err
	}

	// The Elastic IP cannot be released while the gateway still holds it.
	if err == nil {
		waiter := ec2.NewNatGatewayDeletedWaiter(p.api)
		input := &ec2.DescribeNatGatewaysInput{NatGatewayIds: []string{res.RemoteID}}
		if werr := waiter.Wait(ctx, input, p.callTimeout); werr != nil {
			if classified := p.classifyDelete("WaitNatGatewayDeleted", res, werr); classified != nil {
				return classified
			}
		}
	}

	if allocationID := res.Attributes[state.AttrAllocationID]; allocationID != "" {
		_, rerr := p.api.ReleaseAddress(ctx, &ec2.ReleaseAddressInput{
			AllocationId: aws.String(allocationID),
		})
		if err := p.classifyDelete("ReleaseAddress", res, rerr); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) findVpcByName(ctx context.Context, name string) (string, error) {
	out, err := p.api.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		Filters: nameTagFilter(name),
	})
	if err != nil {
		return "", Classify("DescribeVpcs", name, err)
	}
	if len(out.Vpcs) == 0 {
		return "", nil
	}
	id := aws.ToString(out.Vpcs[0].VpcId)
	p.logAdopted(state.KindVpc, name, id)
	return id, nil
}

func (p *Provisioner) findSubnetByName(ctx context.Context, name string) (string, error) {
	out, err := p.api.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		Filters: nameTagFilter(name),
	})
	if err != nil {
		return "", Classify("DescribeSubnets", name, err)
	}
	if len(out.Subnets) == 0 {
		return "", nil
	}
	id := aws.ToString(out.Subnets[0].SubnetId)
	p.logAdopted(state.KindSubnet, name, id)
	return id, nil
}

func (p *Provisioner) findInternetGatewayByName(ctx context.Context, name, vpcID string) (id string, attached bool, err error) {
	out, err := p.api.DescribeInternetGateways(ctx, &ec2.DescribeInternetGatewaysInput{
		Filters: nameTagFilter(name),
	})
	if err != nil {
		return "", false, Classify("DescribeInternetGateways", name, err)
	}
	if len(out.InternetGateways) == 0 {
		return "", false, nil
	}
	igw := out.InternetGateways[0]
	id = aws.ToString(igw.InternetGatewayId)
	for _, att := range igw.Attachments {
		if aws.ToString(att.VpcId) == vpcID {
			attached = true
		}
	}
	p.logAdopted(state.KindInternetGateway, name, id)
	return id, attached, nil
}

func (p *Provisioner) findNatGatewayByName(ctx context.Context, name string) (string, map[string]string, error) {
	out, err := p.api.DescribeNatGateways(ctx, &ec2.DescribeNatGatewaysInput{
		Filter: []ec2types.Filter{
			{Name: aws.String("tag:Name"), Values: []string{name}},
			{Name: aws.String("state"), Values: []string{"pending", "available"}},
		},
	})
	if err != nil {
		return "", nil, Classify("DescribeNatGateways", name, err)
	}
	if len(out.NatGateways) == 0 {
		return "", nil, nil
	}

	nat := out.NatGateways[0]
	id := aws.ToString(nat.NatGatewayId)
	attrs := map[string]string{state.AttrSubnetID: aws.ToString(nat.SubnetId)}
	if len(nat.NatGatewayAddresses) > 0 {
		attrs[state.AttrAllocationID] = aws.ToString(nat.NatGatewayAddresses[0].AllocationId)
		attrs[state.AttrElasticIP] = aws.ToString(nat.NatGatewayAddresses[0].PublicIp)
	}
	p.logAdopted(state.KindNatGateway, name, id)
	return id, attrs, nil
}

func (p *Provisioner) findRouteTableByName(ctx context.Context, name string) (string, error) {
	out, err := p.api.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		Filters: nameTagFilter(name),
	})
	if err != nil {
		return "", Classify("DescribeRouteTables", name, err)
	}
	if len(out.RouteTables) == 0 {
		return "", nil
	}
	id := aws.ToString(out.RouteTables[0].RouteTableId)
	p.logAdopted(state.KindRouteTable, name, id)
	return id, nil
}

func (p *Provisioner) findSecurityGroupByName(ctx context.Context, name, vpcID string) (string, error) {
	out, err := p.api.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("group-name"), Values: []string{name}},
			{Name: aws.String("vpc-id"), Values: []string{vpcID}},
		},
	})
	if err != nil {
		return "", Classify("DescribeSecurityGroups", name, err)
	}
	if len(out.SecurityGroups) == 0 {
		return "", nil
	}
	id := aws.ToString(out.SecurityGroups[0].GroupId)
	p.logAdopted(state.KindSecurityGroup, name, id)
	return id, nil
}

func (p *Provisioner) findNetworkAclByName(ctx context.Context, name string) (string, error) {
	out, err := p.api.DescribeNetworkAcls(ctx, &ec2.DescribeNetworkAclsInput{
		Filters: nameTagFilter(name),
	})
	if err != nil {
		return "", Classify("DescribeNetworkAcls", name, err)
	}
	if len(out.NetworkAcls) == 0 {
		return "", nil
	}
	id := aws.ToString(out.NetworkAcls[0].NetworkAclId)
	p.logAdopted(state.KindNetworkAcl, name, id)
	return id, nil
}

func (p *Provisioner) logAdopted(kind state.Kind, name, id string) {
	p.log.Info().
		Str("kind", string(kind)).
		Str("logical_name", name).
		Str("remote_id", id).
		Msg("adopted existing resource")
}

func nameTagFilter(name string) []ec2types.Filter {
	return []ec2types.Filter{
		{Name: aws.String("tag:Name"), Values: []string{name}},
	}
}

// tagSpec builds the tag set applied at creation: the Name tag carries the
// logical name (the adoption key), Tier marks the subnet classification,
// and extra carries the topology's user tags.
func tagSpec(resourceType ec2types.ResourceType, name, tier string, extra map[string]string) []ec2types.TagSpecification {
	tags := []ec2types.Tag{
		{Key: aws.String("Name"), Value: aws.String(name)},
	}
	if tier != "" {
		tags = append(tags, ec2types.Tag{Key: aws.String("Tier"), Value: aws.String(tier)})
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		tags = append(tags, ec2types.Tag{Key: aws.String(k), Value: aws.String(extra[k])})
	}

	return []ec2types.TagSpecification{
		{ResourceType: resourceType, Tags: tags},
	}
}

func ipPermission(rule topology.SecurityRule) ec2types.IpPermission {
	perm := ec2types.IpPermission{
		IpProtocol: aws.String(rule.Protocol),
		IpRanges:   []ec2types.IpRange{{CidrIp: aws.String(rule.CIDR)}},
	}
	// Protocol -1 means all traffic; ports are not applicable.
	if rule.Protocol != "-1" {
		perm.FromPort = aws.Int32(int32(rule.FromPort))
		perm.ToPort = aws.Int32(int32(rule.ToPort))
	}
	return perm
}

// aclProtocolNumber maps a protocol name to the IANA number string network
// ACL entries expect.
func aclProtocolNumber(protocol string) string {
	switch protocol {
	case "tcp":
		return "6"
	case "udp":
		return "17"
	case "icmp":
		return "1"
	default:
		return "-1"
	}
}
