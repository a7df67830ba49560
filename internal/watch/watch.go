// Package watch turns filesystem write events into backup snapshots and
// schedules background repository compaction.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"github.com/keshon/savepoint/internal/fsio"
	"github.com/keshon/savepoint/internal/hook"
	"github.com/keshon/savepoint/internal/logging"
	"github.com/keshon/savepoint/internal/store"
)

// Watcher observes directories and records a snapshot for every file
// written under them. One event equals one save: there is no debouncing,
// the store's unchanged-content no-op absorbs repeats.
type Watcher struct {
	hooks  *hook.Hooks
	store  *store.Store
	dirs   []string
	cron   string
	logger *slog.Logger
}

// New returns a Watcher over dirs. cronExpr schedules background
// compaction; empty disables it.
func New(hooks *hook.Hooks, st *store.Store, dirs []string, cronExpr string, logger *slog.Logger) *Watcher {
	return &Watcher{
		hooks:  hooks,
		store:  st,
		dirs:   dirs,
		cron:   cronExpr,
		logger: logging.Default(logger).With("component", "watch"),
	}
}

// Run blocks until ctx is cancelled. Compaction runs once before the event
// loop starts, so it can never overlap a snapshot write.
func (w *Watcher) Run(ctx context.Context) error {
	if len(w.dirs) == 0 {
		return fmt.Errorf("no directories to watch")
	}

	if err := w.store.Compact(ctx); err != nil {
		w.logger.Warn("startup compaction failed", "error", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	for _, d := range w.dirs {
		if err := fw.Add(d); err != nil {
			return fmt.Errorf("watch %q: %w", d, err)
		}
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	if w.cron != "" {
		_, err := sched.NewJob(
			gocron.CronJob(w.cron, false),
			gocron.NewTask(func() {
				if err := w.store.Compact(context.Background()); err != nil {
					w.logger.Warn("scheduled compaction failed", "error", err)
				}
			}),
			gocron.WithName("compact"),
		)
		if err != nil {
			return fmt.Errorf("schedule compaction: %w", err)
		}
	}
	sched.Start()
	defer func() { _ = sched.Shutdown() }()

	w.logger.Info("watching", "dirs", w.dirs, "compact_cron", w.cron)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			w.handle(ctx, ev.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		w.logger.Warn("resolve event path failed", "path", path, "error", err)
		return
	}

	// never back up the backup repository itself
	if abs == w.store.Dir() || strings.HasPrefix(abs, w.store.Dir()+string(filepath.Separator)) {
		return
	}

	fi, err := fsio.StatFile(abs)
	if err != nil || !fi.Mode().IsRegular() {
		return
	}

	data, err := fsio.ReadFile(abs)
	if err != nil {
		w.logger.Warn("read saved file failed", "path", abs, "error", err)
		return
	}

	// the hook logs failures itself; the loop keeps running either way
	if _, err := w.hooks.OnFileSaved(ctx, abs, data); err != nil {
		return
	}
}
