package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	safety "home-safety-monitor/internal/domain/safety"
)

// Repository defines persistence operations for latched safety state.
type Repository interface {
	Load(ctx context.Context) (*safety.Snapshot, error)
	Save(ctx context.Context, snapshot *safety.Snapshot) error
}

// FileRepository persists snapshots to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// mu protects concurrent access to the state file.
	mu sync.Mutex
}

// ErrNotFound is returned when the state file does not exist yet.
var ErrNotFound = errors.New("state not found")

// errSnapshotIsNotSet is returned when a nil snapshot is saved.
var errSnapshotIsNotSet = errors.New("snapshot is not set")

// statePermissions restricts the state file to the owning user.
const statePermissions = 0o600

// NewFileRepository creates a repository that reads/writes JSON at the
// provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the snapshot from disk.
func (r *FileRepository) Load(_ context.Context) (*safety.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var snapshot safety.Snapshot
	if err = json.Unmarshal(contents, &snapshot); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return &snapshot, nil
}

// Save writes the snapshot to disk. The write goes through a temporary file
// in the same directory so a crash never leaves a torn state file behind.
func (r *FileRepository) Save(_ context.Context, snapshot *safety.Snapshot) error {
	if snapshot == nil {
		return errSnapshotIsNotSet
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	temporary := r.path + ".tmp"
	if err = os.WriteFile(temporary, data, statePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	if err = os.Rename(temporary, r.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
