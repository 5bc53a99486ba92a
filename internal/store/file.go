// Package store persists registry snapshots to disk with integrity checks.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/tracksync/tracksync/internal/core/state"
)

var (
	// ErrCorrupt is returned when a snapshot file fails its checksum.
	ErrCorrupt = errors.New("snapshot file corrupt")

	// ErrNoSnapshot is returned by Load when no snapshot has been saved yet.
	ErrNoSnapshot = errors.New("no snapshot saved")
)

// envelope wraps the serialized snapshot with an xxhash digest of the payload
// bytes, so a truncated or hand-edited file is detected on load.
type envelope struct {
	Checksum uint64          `json:"checksum"`
	Payload  json.RawMessage `json:"payload"`
}

// FileStore is a single-file state.Store. Writes go through a temp file and
// rename, so a crash mid-save leaves the previous snapshot intact.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("store path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Save(ctx context.Context, snap state.RegistrySnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	data, err := json.Marshal(envelope{
		Checksum: xxhash.Sum64(payload),
		Payload:  payload,
	})
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err = os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context) (state.RegistrySnapshot, error) {
	var snap state.RegistrySnapshot
	if err := ctx.Err(); err != nil {
		return snap, err
	}

	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return snap, ErrNoSnapshot
		}
		return snap, fmt.Errorf("reading snapshot: %w", err)
	}

	var env envelope
	if err = json.Unmarshal(data, &env); err != nil {
		return snap, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if xxhash.Sum64(env.Payload) != env.Checksum {
		return snap, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	if err = json.Unmarshal(env.Payload, &snap); err != nil {
		return snap, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return snap, nil
}
