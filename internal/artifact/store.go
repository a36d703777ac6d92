// Package artifact persists flushed WAV containers for downstream
// consumers (export, playback, offline recognition).
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Store persists one WAV artifact per flushed segment and returns a
// backend-specific location for it.
type Store interface {
	// Save writes the WAV bytes for a segment of the given session.
	Save(ctx context.Context, sessionID string, createdAt time.Time, wav []byte) (string, error)

	// Backend names the storage backend for logs and metrics.
	Backend() string
}

// artifactName builds a collision-free object name for one segment.
func artifactName(sessionID string, createdAt time.Time) string {
	return fmt.Sprintf("%s-%s-%s.wav",
		sessionID,
		createdAt.UTC().Format("20060102T150405.000"),
		uuid.New().String()[:8],
	)
}

// FSStore writes WAV artifacts to a local directory.
type FSStore struct {
	dir string
}

// NewFSStore creates the artifact directory if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
	}
	return &FSStore{dir: dir}, nil
}

// Save writes the WAV file under the store directory.
func (s *FSStore) Save(_ context.Context, sessionID string, createdAt time.Time, wav []byte) (string, error) {
	path := filepath.Join(s.dir, artifactName(sessionID, createdAt))
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", path, err)
	}
	return path, nil
}

// Backend returns "fs".
func (s *FSStore) Backend() string { return "fs" }
