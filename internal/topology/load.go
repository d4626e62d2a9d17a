package topology

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and decodes a topology document. It does not validate; callers
// run Validate separately so a single pass can report every problem.
func Load(path string) (*NetworkTopology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a topology document from raw YAML.
func Parse(data []byte) (*NetworkTopology, error) {
	// DNS options default to enabled; absent keys keep these values.
	topo := NetworkTopology{
		EnableDNSHostnames: true,
		EnableDNSSupport:   true,
	}

	if err := yaml.Unmarshal(data, &topo); err != nil {
		return nil, fmt.Errorf("failed to parse topology document: %w", err)
	}
	return &topo, nil
}
