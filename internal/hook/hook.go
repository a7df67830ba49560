// Package hook is the save-event entry point: it filters, encodes, and
// commits saved file content into the backup store.
//
// Backup is best effort with respect to the caller's own save path: a
// returned error means the snapshot was not recorded, and callers must
// still complete their primary save. Errors are also logged here so a
// silent caller does not swallow a broken backend.
package hook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/keshon/savepoint/internal/exclude"
	"github.com/keshon/savepoint/internal/logging"
	"github.com/keshon/savepoint/internal/pathcodec"
	"github.com/keshon/savepoint/internal/store"
)

// Hooks wires the exclusion filter, path codec, and store into the save
// contract exposed to editors and watchers.
type Hooks struct {
	filter *exclude.Filter
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time
}

// New returns Hooks over filter and st. A nil filter allows every path.
func New(filter *exclude.Filter, st *store.Store, logger *slog.Logger) *Hooks {
	return &Hooks{
		filter: filter,
		store:  st,
		logger: logging.Default(logger).With("component", "hook"),
		now:    time.Now,
	}
}

// OnFileSaved records content for path with a generated message. An
// excluded path is a silent no-op returning an empty id and no error.
func (h *Hooks) OnFileSaved(ctx context.Context, path string, content []byte) (string, error) {
	return h.OnFileSavedWithMessage(ctx, path, content, "")
}

// OnFileSavedWithMessage is OnFileSaved with a caller-supplied message; an
// empty message falls back to the generated one.
func (h *Hooks) OnFileSavedWithMessage(ctx context.Context, path string, content []byte, message string) (string, error) {
	if h.filter != nil && h.filter.Excluded(path) {
		h.logger.Debug("path excluded", "path", path)
		return "", nil
	}

	key, err := pathcodec.Encode(path)
	if err != nil {
		h.logger.Error("backup skipped", "path", path, "error", err)
		return "", fmt.Errorf("encode %q: %w", path, err)
	}

	if message == "" {
		message = "save " + h.now().Format(time.RFC3339)
	}

	id, err := h.store.CreateSnapshot(ctx, key, content, message)
	if err != nil {
		h.logger.Error("backup failed", "path", path, "error", err)
		return "", fmt.Errorf("backup %q: %w", path, err)
	}
	return id, nil
}
