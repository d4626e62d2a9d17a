// Package state holds the durable record of a provisioning run: which
// resources were created, in what order, and under which remote identifiers.
// The record is both the audit artifact of an apply and the input to a
// teardown.
package state

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies the type of a provisioned resource.
type Kind string

const (
	KindVpc                   Kind = "Vpc"
	KindSubnet                Kind = "Subnet"
	KindInternetGateway       Kind = "InternetGateway"
	KindNatGateway            Kind = "NatGateway"
	KindRouteTable            Kind = "RouteTable"
	KindRouteTableAssociation Kind = "RouteTableAssociation"
	KindSecurityGroup         Kind = "SecurityGroup"
	KindNetworkAcl            Kind = "NetworkAcl"
)

// Status is the overall status of a deployment.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
	StatusTornDown   Status = "torn_down"
)

// Well-known attribute keys on ProvisionedResource. They carry the ancillary
// remote identifiers a later delete needs.
const (
	AttrVpcID        = "vpc_id"        // InternetGateway: VPC to detach from
	AttrAllocationID = "allocation_id" // NatGateway: Elastic IP allocation
	AttrElasticIP    = "elastic_ip"    // NatGateway: public address
	AttrSubnetID     = "subnet_id"     // RouteTableAssociation
	AttrRouteTableID = "route_table_id"
	AttrTier         = "tier"
)

// ProvisionedResource records one successfully created resource. It is never
// mutated after creation except to mark it deleted during teardown.
type ProvisionedResource struct {
	LogicalName string            `json:"logical_name"`
	Kind        Kind              `json:"kind"`
	RemoteID    string            `json:"remote_id"`
	CreatedAt   time.Time         `json:"created_at"`
	DependsOn   []string          `json:"depends_on,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Deleted     bool              `json:"deleted,omitempty"`
}

// DeploymentState is the ordered record of one provisioning run. Creation
// order equals dependency order, so reversing the sequence is a safe
// deletion order.
type DeploymentState struct {
	RunID      string                `json:"run_id"`
	Topology   string                `json:"topology"`
	Region     string                `json:"region"`
	Status     Status                `json:"status"`
	Error      string                `json:"error,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	FinishedAt time.Time             `json:"finished_at,omitzero"`
	Resources  []ProvisionedResource `json:"resources"`
}

// New creates an empty in-progress deployment record.
func New(topology, region string) *DeploymentState {
	return &DeploymentState{
		RunID:     uuid.New().String(),
		Topology:  topology,
		Region:    region,
		Status:    StatusInProgress,
		CreatedAt: time.Now().UTC(),
	}
}

// Find returns the resource with the given logical name, or nil.
func (s *DeploymentState) Find(logicalName string) *ProvisionedResource {
	for i := range s.Resources {
		if s.Resources[i].LogicalName == logicalName {
			return &s.Resources[i]
		}
	}
	return nil
}

// RemoteID resolves a logical name to its remote identifier. Returns false
// when the resource is not recorded.
func (s *DeploymentState) RemoteID(logicalName string) (string, bool) {
	if r := s.Find(logicalName); r != nil {
		return r.RemoteID, true
	}
	return "", false
}

// MarkDeleted flags a recorded resource as removed.
func (s *DeploymentState) MarkDeleted(logicalName string) {
	if r := s.Find(logicalName); r != nil {
		r.Deleted = true
	}
}

// Remaining counts resources not yet marked deleted.
func (s *DeploymentState) Remaining() int {
	n := 0
	for i := range s.Resources {
		if !s.Resources[i].Deleted {
			n++
		}
	}
	return n
}
