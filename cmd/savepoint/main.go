// Command savepoint manages per-file version history: every save of a
// tracked file becomes a snapshot in a hidden backup repository that can be
// listed, diffed, restored, or purged later.
//
// Logging:
//   - the base logger is created here with its output and level
//   - components receive it via dependency injection, never globally
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/keshon/savepoint/internal/config"
	"github.com/keshon/savepoint/internal/exclude"
	"github.com/keshon/savepoint/internal/hook"
	"github.com/keshon/savepoint/internal/store"
)

var version = "dev"

func main() {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	rootCmd := &cobra.Command{
		Use:           "savepoint",
		Short:         "Local per-file version history",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if v, _ := cmd.Flags().GetBool("verbose"); v {
				level.Set(slog.LevelDebug)
			}
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file (JSON)")
	rootCmd.PersistentFlags().String("repo", "", "backup repository root (overrides config)")
	rootCmd.PersistentFlags().String("git", "", "backend binary (overrides config)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		saveCmd(logger),
		amendCmd(logger),
		logCmd(logger),
		showCmd(logger),
		diffCmd(logger),
		restoreCmd(logger),
		filesCmd(logger),
		deleteCmd(logger),
		compactCmd(logger),
		watchCmd(logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration from the config file and
// persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		c, err := config.LoadFile(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = c
	}
	if repo, _ := cmd.Flags().GetString("repo"); repo != "" {
		cfg.RepoRoot = repo
	}
	if git, _ := cmd.Flags().GetString("git"); git != "" {
		cfg.GitBin = git
	}
	return cfg, nil
}

func openStore(cmd *cobra.Command, logger *slog.Logger) (config.Config, *store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return config.Config{}, nil, err
	}
	st, err := store.Open(cmd.Context(), cfg, logger)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, st, nil
}

func newHooks(cfg config.Config, st *store.Store, logger *slog.Logger) (*hook.Hooks, error) {
	filter, err := exclude.New(cfg.ExcludeRules)
	if err != nil {
		return nil, err
	}
	return hook.New(filter, st, logger), nil
}

// absPath resolves a CLI file argument to the absolute path the codec and
// filter operate on.
func absPath(arg string) (string, error) {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", arg, err)
	}
	return abs, nil
}
