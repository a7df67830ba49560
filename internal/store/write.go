package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/keshon/savepoint/internal/fsio"
	"github.com/keshon/savepoint/internal/pathcodec"
)

// CreateSnapshot appends one snapshot to the chain for key, creating the
// chain on first use. Saving content byte-identical to the current head is a
// no-op that returns the existing head id: the chain never grows and never
// corrupts. The backend's atomic commit keeps a failed call from leaving a
// half-written chain.
func (s *Store) CreateSnapshot(ctx context.Context, key string, content []byte, message string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty storage key: %w", pathcodec.ErrInvalidPath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sum := xxh3.Hash(content)
	if prev, ok := s.headHash[key]; ok && prev == sum {
		return s.headID(ctx, key)
	}

	path := filepath.Join(s.dir, key)
	if err := fsio.WriteFileAtomic(path, content, 0o644); err != nil {
		return "", fmt.Errorf("stage content for %q: %w", key, err)
	}

	// Detect the no-change case explicitly instead of parsing commit output.
	status, err := s.git.Run(ctx, "status", "--porcelain", "--", key)
	if err != nil {
		return "", fmt.Errorf("status of %q: %w", key, err)
	}
	if strings.TrimSpace(status) == "" {
		s.headHash[key] = sum
		return s.headID(ctx, key)
	}

	if _, err := s.git.Run(ctx, "add", "--", key); err != nil {
		return "", fmt.Errorf("stage %q: %w", key, err)
	}
	if _, err := s.git.Run(ctx, "commit", "--quiet", "--allow-empty-message", "-m", message, "--", key); err != nil {
		return "", fmt.Errorf("commit %q: %w", key, err)
	}

	s.headHash[key] = sum

	id, err := s.headID(ctx, key)
	if err != nil {
		return "", err
	}
	s.logger.Debug("snapshot created", "key", key, "id", id)
	return id, nil
}

// AmendLastMessage rewrites the message of the newest snapshot for key
// without touching its content. It only applies while that snapshot is still
// the newest in the whole repository, which is the case right after the
// CreateSnapshot it is meant to describe.
func (s *Store) AmendLastMessage(ctx context.Context, key, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	head, err := s.headID(ctx, key)
	if err != nil {
		return err
	}

	repoHead, err := s.runRead(ctx, "rev-parse", "HEAD")
	if err != nil {
		return fmt.Errorf("resolve repository head: %w", err)
	}
	if strings.TrimSpace(repoHead) != head {
		return fmt.Errorf("newest snapshot of %q is not the latest commit: %w", key, ErrSnapshotNotFound)
	}

	if _, err := s.git.Run(ctx, "commit", "--quiet", "--amend", "--only", "--allow-empty-message", "-m", message); err != nil {
		return fmt.Errorf("amend message for %q: %w", key, err)
	}
	return nil
}

// headID resolves the newest snapshot id for key. Must be called with the
// lock held.
func (s *Store) headID(ctx context.Context, key string) (string, error) {
	out, err := s.runRead(ctx, "log", "-n", "1", "--format=%H", "--", key)
	if err != nil {
		return "", fmt.Errorf("resolve head of %q: %w", key, err)
	}
	id := strings.TrimSpace(out)
	if id == "" {
		return "", fmt.Errorf("key %q: %w", key, ErrNoHistory)
	}
	return id, nil
}
