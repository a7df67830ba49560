// Package store implements the versioned backup store: one linear snapshot
// chain per storage key, all chains held in a single backend repository.
package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/keshon/savepoint/internal/config"
	"github.com/keshon/savepoint/internal/gitcmd"
	"github.com/keshon/savepoint/internal/logging"
)

// Snapshot is one immutable recorded state of a tracked file.
type Snapshot struct {
	ID      string
	Time    time.Time
	Message string
}

// Store is a backup repository holding one snapshot chain per storage key.
// Methods are safe for concurrent use: writers serialize on a per-repository
// lock while readers proceed concurrently with each other.
type Store struct {
	git    gitcmd.Runner
	dir    string // repository worktree root
	logger *slog.Logger

	mu sync.RWMutex
	// headHash caches the content hash at each key's head so an unchanged
	// save can skip the backend entirely. Cold after restart; the backend's
	// no-change detection covers that case.
	headHash map[string]uint64
}

// New creates a Store over an already initialized backend repository at dir.
func New(git gitcmd.Runner, dir string, logger *slog.Logger) *Store {
	return &Store{
		git:      git,
		dir:      dir,
		logger:   logging.Default(logger).With("component", "store"),
		headHash: make(map[string]uint64),
	}
}

// Open ensures the backend repository described by cfg exists and returns a
// Store over it.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Store, error) {
	g := gitcmd.New(cfg.GitBin, cfg.RepoRoot, logger)
	if err := g.EnsureRepo(ctx); err != nil {
		return nil, err
	}
	return New(g, cfg.RepoRoot, logger), nil
}

// Dir returns the repository worktree root.
func (s *Store) Dir() string {
	return s.dir
}

// runRead runs a read-only backend command, translating the backend's
// "nothing there yet" failures into empty output so callers can map them to
// their own not-found sentinel.
func (s *Store) runRead(ctx context.Context, args ...string) (string, error) {
	out, err := s.git.Run(ctx, args...)
	if err == nil {
		return out, nil
	}
	var exitErr *gitcmd.ExitError
	if errors.As(err, &exitErr) && isEmptyRepoError(exitErr) {
		return "", nil
	}
	return "", err
}

func isEmptyRepoError(e *gitcmd.ExitError) bool {
	msg := strings.ToLower(e.Stderr)
	return strings.Contains(msg, "does not have any commits yet") ||
		strings.Contains(msg, "not a valid object name") ||
		strings.Contains(msg, "unknown revision") ||
		strings.Contains(msg, "bad revision")
}

func splitLines(out string) []string {
	var lines []string
	for _, l := range strings.Split(out, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
