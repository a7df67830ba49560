package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keshon/savepoint/internal/diffview"
	"github.com/keshon/savepoint/internal/fsio"
	"github.com/keshon/savepoint/internal/history"
	"github.com/keshon/savepoint/internal/pathcodec"
	"github.com/keshon/savepoint/internal/watch"
)

func saveCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <file>",
		Short: "Record a snapshot of the file's current content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := openStore(cmd, logger)
			if err != nil {
				return err
			}
			hooks, err := newHooks(cfg, st, logger)
			if err != nil {
				return err
			}

			path, err := absPath(args[0])
			if err != nil {
				return err
			}
			content, err := fsio.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %q: %w", path, err)
			}

			message, _ := cmd.Flags().GetString("message")
			id, err := hooks.OnFileSavedWithMessage(cmd.Context(), path, content, message)
			if err != nil {
				return err
			}
			if id == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "excluded: %s\n", path)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringP("message", "m", "", "snapshot message")
	return cmd
}

func amendCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amend <file>",
		Short: "Rewrite the message of the file's newest snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore(cmd, logger)
			if err != nil {
				return err
			}
			key, err := keyFor(args[0])
			if err != nil {
				return err
			}
			message, _ := cmd.Flags().GetString("message")
			return st.AmendLastMessage(cmd.Context(), key, message)
		},
	}
	cmd.Flags().StringP("message", "m", "", "new snapshot message")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func logCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "log <file>",
		Short: "List the file's snapshots, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := openStore(cmd, logger)
			if err != nil {
				return err
			}
			key, err := keyFor(args[0])
			if err != nil {
				return err
			}

			builder := history.NewBuilder(cfg.TimeTemplate, cfg.DateLayout)
			cands, err := builder.List(cmd.Context(), st, key)
			if err != nil {
				return err
			}
			for _, c := range cands {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.ID, c.Label)
			}
			return nil
		},
	}
}

func showCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "show <file> <id>",
		Short: "Print a snapshot's content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore(cmd, logger)
			if err != nil {
				return err
			}
			key, err := keyFor(args[0])
			if err != nil {
				return err
			}

			engine := diffview.New(st, logger)
			content, err := engine.OpenAsNewDocument(cmd.Context(), key, args[1])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(content)
			return err
		},
	}
}

func diffCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <file> <id>",
		Short: "Show the change a snapshot introduced",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore(cmd, logger)
			if err != nil {
				return err
			}
			key, err := keyFor(args[0])
			if err != nil {
				return err
			}

			engine := diffview.New(st, logger)
			text, err := engine.RenderDiff(cmd.Context(), key, args[1])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func restoreCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <file> <id>",
		Short: "Overwrite the live file with a snapshot's content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore(cmd, logger)
			if err != nil {
				return err
			}

			path, err := absPath(args[0])
			if err != nil {
				return err
			}
			key, err := pathcodec.Encode(path)
			if err != nil {
				return err
			}

			dest := path
			if to, _ := cmd.Flags().GetString("to"); to != "" {
				if dest, err = absPath(to); err != nil {
					return err
				}
			}

			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				if !confirm(fmt.Sprintf("overwrite %s with snapshot %s", dest, args[1])) {
					fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}

			engine := diffview.New(st, logger)
			return engine.Restore(cmd.Context(), key, args[1], dest)
		},
	}
	cmd.Flags().String("to", "", "restore to this path instead of the original file")
	cmd.Flags().Bool("yes", false, "skip confirmation")
	return cmd
}

func filesCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List every file with backup history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore(cmd, logger)
			if err != nil {
				return err
			}
			keys, err := st.Keys(cmd.Context())
			if err != nil {
				return err
			}
			for _, key := range keys {
				path, err := pathcodec.Decode(key)
				if err != nil {
					logger.Warn("undecodable storage key", "key", key, "error", err)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
}

func deleteCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <file>",
		Short: "Irreversibly delete the file's whole backup history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore(cmd, logger)
			if err != nil {
				return err
			}
			key, err := keyFor(args[0])
			if err != nil {
				return err
			}

			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				if !confirm(fmt.Sprintf("delete all history of %s", args[0])) {
					fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}
			return st.DeleteHistory(cmd.Context(), key)
		},
	}
	cmd.Flags().Bool("yes", false, "skip confirmation")
	return cmd
}

func compactCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Reclaim repository storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore(cmd, logger)
			if err != nil {
				return err
			}
			return st.Compact(cmd.Context())
		},
	}
}

func watchCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir...]",
		Short: "Watch directories and snapshot every file save",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := openStore(cmd, logger)
			if err != nil {
				return err
			}
			hooks, err := newHooks(cfg, st, logger)
			if err != nil {
				return err
			}

			dirs := cfg.WatchDirs
			if len(args) > 0 {
				dirs = nil
				for _, a := range args {
					d, err := absPath(a)
					if err != nil {
						return err
					}
					dirs = append(dirs, d)
				}
			}

			w := watch.New(hooks, st, dirs, cfg.CompactCron, logger)
			return w.Run(cmd.Context())
		},
	}
}

// keyFor maps a CLI file argument to its storage key.
func keyFor(arg string) (string, error) {
	path, err := absPath(arg)
	if err != nil {
		return "", err
	}
	return pathcodec.Encode(path)
}

// confirm gates destructive operations on an explicit y/N answer.
func confirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s? [y/N]: ", prompt)
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(sc.Text()))
	return answer == "y" || answer == "yes"
}
