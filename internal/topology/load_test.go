package topology

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTopology = `
vpc_name: prod-secure-network
cidr: 10.0.0.0/16
region: us-east-1
tags:
  Environment: production
  Team: platform
subnets:
  - name: public-1a
    cidr: 10.0.1.0/24
    type: public
    az: us-east-1a
  - name: private-1a
    cidr: 10.0.10.0/24
    type: private
    az: us-east-1a
nat_gateway:
  enabled: true
  availability_zone: us-east-1a
security_groups:
  web:
    - protocol: tcp
      from_port: 80
      to_port: 80
      cidr: 0.0.0.0/0
    - protocol: tcp
      from_port: 443
      to_port: 443
      cidr: 0.0.0.0/0
  db:
    - protocol: tcp
      from_port: 5432
      to_port: 5432
      cidr: 10.0.0.0/16
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTopology), 0o644))

	topo, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod-secure-network", topo.Name)
	assert.Equal(t, "10.0.0.0/16", topo.CIDR)
	assert.Equal(t, "us-east-1", topo.Region)
	assert.Len(t, topo.Subnets, 2)
	assert.Equal(t, TierPublic, topo.Subnets[0].Tier)
	assert.True(t, topo.NatGateway.Enabled)
	assert.Equal(t, "us-east-1a", topo.NatGateway.AvailabilityZone)
	assert.Len(t, topo.SecurityGroups["web"], 2)
	assert.Equal(t, 5432, topo.SecurityGroups["db"][0].FromPort)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseDNSDefaultsOn(t *testing.T) {
	topo, err := Parse([]byte("vpc_name: net\ncidr: 10.0.0.0/16\nregion: us-east-1\n"))
	require.NoError(t, err)

	assert.True(t, topo.EnableDNSHostnames)
	assert.True(t, topo.EnableDNSSupport)
}

func TestParseDNSExplicitOff(t *testing.T) {
	doc := "vpc_name: net\ncidr: 10.0.0.0/16\nregion: us-east-1\nenable_dns_hostnames: false\n"
	topo, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.False(t, topo.EnableDNSHostnames)
	assert.True(t, topo.EnableDNSSupport)
}

func TestParseMalformedYaml(t *testing.T) {
	_, err := Parse([]byte("vpc_name: [unclosed"))
	assert.Error(t, err)
}
