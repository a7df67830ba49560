package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/keshon/savepoint/internal/fsio"
)

// DeleteHistory irreversibly removes the whole chain for key by rewriting
// it out of the repository and dropping every reference that still reaches
// the old content. Other keys keep their snapshot counts and content;
// their ids may be rewritten, which readers observe as a stale selection.
func (s *Store) DeleteHistory(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.headID(ctx, key); err != nil {
		if errors.Is(err, ErrNoHistory) {
			return fmt.Errorf("key %q: %w", key, ErrNotFound)
		}
		return err
	}

	filter := "git rm -r --cached --ignore-unmatch -- " + shellquote.Join(key)
	if _, err := s.git.Run(ctx, "filter-branch", "-f", "--index-filter", filter, "--prune-empty", "--", "--all"); err != nil {
		// Pruning the last remaining chain deletes the branch itself and
		// the rewrite exits non-zero. The chain being gone is still
		// success; anything short of that is a real failure, but the
		// rewrite's backup refs must be dropped either way.
		if _, headErr := s.headID(ctx, key); !errors.Is(headErr, ErrNoHistory) {
			s.dropRewriteBackups(ctx)
			return fmt.Errorf("rewrite history for %q: %w", key, err)
		}
	}

	delete(s.headHash, key)
	_ = fsio.Remove(filepath.Join(s.dir, key))

	s.dropRewriteBackups(ctx)
	s.logger.Info("history deleted", "key", key)
	return nil
}

// dropRewriteBackups removes the refs and logs the rewrite left behind and
// prunes the now unreachable objects, so deleted content is actually gone.
func (s *Store) dropRewriteBackups(ctx context.Context) {
	out, err := s.runRead(ctx, "for-each-ref", "--format=%(refname)", "refs/original/")
	if err != nil {
		s.logger.Warn("list rewrite backup refs failed", "error", err)
	}
	for _, ref := range splitLines(out) {
		if _, err := s.git.Run(ctx, "update-ref", "-d", strings.TrimSpace(ref)); err != nil {
			s.logger.Warn("drop backup ref failed", "ref", ref, "error", err)
		}
	}

	if _, err := s.git.Run(ctx, "reflog", "expire", "--expire=now", "--all"); err != nil {
		s.logger.Warn("expire reflog failed", "error", err)
	}
	if _, err := s.git.Run(ctx, "gc", "--prune=now", "--quiet"); err != nil {
		s.logger.Warn("prune after delete failed", "error", err)
	}
}

// Compact reclaims storage held by unreachable objects. Observable history
// is unchanged. It takes the write lock, so it never overlaps a snapshot
// write from this process.
func (s *Store) Compact(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.git.Run(ctx, "gc", "--quiet"); err != nil {
		return fmt.Errorf("compact repository: %w", err)
	}
	s.logger.Debug("repository compacted")
	return nil
}
