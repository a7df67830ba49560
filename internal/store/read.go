package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

// logFormat yields one tab-separated line per snapshot: id, unix committer
// time, subject.
const logFormat = "--format=%H%x09%ct%x09%s"

// ListSnapshots returns the chain for key, newest first.
func (s *Store) ListSnapshots(ctx context.Context, key string) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out, err := s.runRead(ctx, "log", logFormat, "--", key)
	if err != nil {
		return nil, fmt.Errorf("list snapshots for %q: %w", key, err)
	}

	lines := splitLines(out)
	if len(lines) == 0 {
		return nil, fmt.Errorf("key %q: %w", key, ErrNotFound)
	}

	snaps := make([]Snapshot, 0, len(lines))
	for _, line := range lines {
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed log line %q for %q", line, key)
		}
		ts, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed timestamp in log line %q: %w", line, err)
		}
		snaps = append(snaps, Snapshot{
			ID:      parts[0],
			Time:    time.Unix(ts, 0),
			Message: parts[2],
		})
	}
	return snaps, nil
}

// SnapshotContent returns the content recorded by snapshot id of key's
// chain. An id from another chain is rejected even when the backend could
// resolve it.
func (s *Store) SnapshotContent(ctx context.Context, key, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotContent(ctx, key, id)
}

// HeadContent returns the content of the newest snapshot for key.
func (s *Store) HeadContent(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, err := s.headID(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.snapshotContent(ctx, key, id)
}

// SnapshotPatch returns the backend's unified diff of the change snapshot id
// introduced relative to its predecessor. The first snapshot of a chain
// diffs against nothing.
func (s *Store) SnapshotPatch(ctx context.Context, key, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkMember(ctx, key, id); err != nil {
		return "", err
	}

	out, err := s.git.Run(ctx, "show", "--format=", "--patch", id, "--", key)
	if err != nil {
		return "", fmt.Errorf("diff snapshot %s of %q: %w", id, key, err)
	}
	return out, nil
}

// Keys lists every storage key currently tracked in the repository, sorted.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// -z yields NUL-separated raw names; without it the backend C-quotes
	// any name with non-ASCII bytes and the storage key would come back
	// mangled.
	out, err := s.runRead(ctx, "ls-tree", "-r", "--name-only", "-z", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("list storage keys: %w", err)
	}
	var keys []string
	for _, k := range strings.Split(out, "\x00") {
		if k != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *Store) snapshotContent(ctx context.Context, key, id string) ([]byte, error) {
	if err := s.checkMember(ctx, key, id); err != nil {
		return nil, err
	}

	out, err := s.git.Run(ctx, "show", id+":"+key)
	if err != nil {
		// Deleted between the membership check and the read.
		return nil, fmt.Errorf("snapshot %s of %q: %w", id, key, ErrSnapshotNotFound)
	}
	return []byte(out), nil
}

// checkMember verifies that id belongs to key's chain.
func (s *Store) checkMember(ctx context.Context, key, id string) error {
	out, err := s.runRead(ctx, "log", "--format=%H", "--", key)
	if err != nil {
		return fmt.Errorf("list chain for %q: %w", key, err)
	}
	for _, line := range splitLines(out) {
		if strings.TrimSpace(line) == id {
			return nil
		}
	}
	return fmt.Errorf("snapshot %s of %q: %w", id, key, ErrSnapshotNotFound)
}
