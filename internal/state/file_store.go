package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists each deployment as <dir>/<topology>-state.json. The
// file doubles as the human-readable audit artifact and as teardown input.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir. The directory is created on
// first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the state file path for a topology name.
func (f *FileStore) Path(topology string) string {
	return filepath.Join(f.dir, topology+"-state.json")
}

func (f *FileStore) Append(_ context.Context, st *DeploymentState, res ProvisionedResource) error {
	st.Resources = append(st.Resources, res)
	return f.write(st)
}

func (f *FileStore) Load(_ context.Context, topology string) (*DeploymentState, error) {
	return ReadFile(f.Path(topology))
}

func (f *FileStore) Save(_ context.Context, st *DeploymentState) error {
	return f.write(st)
}

// write persists the record atomically: marshal to a temp file in the same
// directory, then rename over the target.
func (f *FileStore) write(st *DeploymentState) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal deployment state: %w", err)
	}

	target := f.Path(st.Topology)
	tmp, err := os.CreateTemp(f.dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// ReadFile loads a deployment record straight from a file path, for
// teardown runs given an explicit state document.
func ReadFile(path string) (*DeploymentState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var st DeploymentState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	return &st, nil
}
