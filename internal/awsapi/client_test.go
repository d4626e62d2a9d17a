package awsapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresRegion(t *testing.T) {
	_, err := New(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region")
}

func TestNew_BuildsClients(t *testing.T) {
	clients, err := New(context.Background(), "us-east-1")
	require.NoError(t, err)
	assert.NotNil(t, clients.EC2)
	assert.NotNil(t, clients.STS)
	assert.Equal(t, "us-east-1", clients.Region)
}
