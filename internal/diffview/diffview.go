// Package diffview renders snapshot changes and restores snapshot content
// into live files.
package diffview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/keshon/savepoint/internal/fsio"
	"github.com/keshon/savepoint/internal/logging"
	"github.com/keshon/savepoint/internal/store"
)

// Engine reads the backup store to produce diffs and to restore snapshots.
type Engine struct {
	store  *store.Store
	logger *slog.Logger
}

// New returns an Engine over st.
func New(st *store.Store, logger *slog.Logger) *Engine {
	return &Engine{
		store:  st,
		logger: logging.Default(logger).With("component", "diffview"),
	}
}

// RenderDiff returns a unified diff of the change snapshot id introduced
// relative to its predecessor (the first snapshot of a chain diffs against
// nothing). Pure read, no side effects.
func (e *Engine) RenderDiff(ctx context.Context, key, id string) (string, error) {
	text, err := e.store.SnapshotPatch(ctx, key, id)
	if err != nil {
		return "", staleOr(err, key, id)
	}
	return text, nil
}

// Restore overwrites destPath with the snapshot's content. Confirmation is
// the caller's concern: Restore is a separate operation precisely so a
// confirmation gate can wrap it, and it never prompts itself.
func (e *Engine) Restore(ctx context.Context, key, id, destPath string) error {
	data, err := e.store.SnapshotContent(ctx, key, id)
	if err != nil {
		return staleOr(err, key, id)
	}
	// An existing live file keeps its mode across the restore.
	mode := os.FileMode(0o644)
	if info, statErr := fsio.StatFile(destPath); statErr == nil {
		mode = info.Mode().Perm()
	}
	if err := fsio.WriteFileAtomic(destPath, data, mode); err != nil {
		return fmt.Errorf("restore %q: %w", destPath, err)
	}
	e.logger.Info("snapshot restored", "path", destPath, "id", id)
	return nil
}

// OpenAsNewDocument returns the snapshot content for opening as a copy,
// leaving the live file untouched.
func (e *Engine) OpenAsNewDocument(ctx context.Context, key, id string) ([]byte, error) {
	data, err := e.store.SnapshotContent(ctx, key, id)
	if err != nil {
		return nil, staleOr(err, key, id)
	}
	return data, nil
}

// staleOr maps a vanished snapshot to ErrStaleSelection: the candidate was
// listed once, so its absence now means it was deleted underneath us.
func staleOr(err error, key, id string) error {
	if errors.Is(err, store.ErrSnapshotNotFound) || errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("snapshot %s of %q: %w", id, key, store.ErrStaleSelection)
	}
	return err
}
