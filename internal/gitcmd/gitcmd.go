// Package gitcmd runs the version-control backend as a command-style
// collaborator: an argument list in, captured standard output out, failure
// signalled by exit status plus captured error text.
package gitcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/keshon/savepoint/internal/fsio"
	"github.com/keshon/savepoint/internal/logging"
)

// ErrBackendUnavailable reports that the backend binary is missing or could
// not be executed at all.
var ErrBackendUnavailable = errors.New("backend unavailable")

// Runner abstracts the backend command interface.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// ExitError describes a backend command that ran and exited non-zero.
type ExitError struct {
	Cmd    string // rendered command line
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit %d: %s", e.Cmd, e.Code, strings.TrimSpace(e.Stderr))
}

// Git is a Runner backed by the git binary operating on one repository.
type Git struct {
	bin    string
	dir    string
	logger *slog.Logger
}

// New returns a Git runner for the repository at dir.
func New(bin, dir string, logger *slog.Logger) *Git {
	if bin == "" {
		bin = "git"
	}
	return &Git{
		bin:    bin,
		dir:    dir,
		logger: logging.Default(logger).With("component", "gitcmd"),
	}
}

// Dir returns the repository worktree root the runner operates on.
func (g *Git) Dir() string {
	return g.dir
}

// Run executes the backend with args in the repository directory. Arguments
// are passed as an argv vector, never through a shell; the shell-quoted
// command line appears only in logs and errors.
func (g *Git) Run(ctx context.Context, args ...string) (string, error) {
	line := shellquote.Join(append([]string{g.bin}, args...)...)
	g.logger.Debug("run backend", "cmd", line)

	cmd := exec.CommandContext(ctx, g.bin, args...)
	cmd.Dir = g.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.String(), &ExitError{Cmd: line, Code: exitErr.ExitCode(), Stderr: stderr.String()}
	}
	return "", fmt.Errorf("%s: %w: %v", line, ErrBackendUnavailable, err)
}

// EnsureRepo creates the repository root and initializes the backend store
// when missing, including the repo-local identity and options commits
// require.
func (g *Git) EnsureRepo(ctx context.Context) error {
	if err := fsio.MkdirAll(g.dir, 0o755); err != nil {
		return fmt.Errorf("create repository root %q: %w", g.dir, err)
	}
	if fsio.IsDir(filepath.Join(g.dir, ".git")) {
		return nil
	}

	if _, err := g.Run(ctx, "init", "--quiet"); err != nil {
		return fmt.Errorf("init repository at %q: %w", g.dir, err)
	}
	if _, err := g.Run(ctx, "config", "user.name", "savepoint"); err != nil {
		return fmt.Errorf("set backend identity: %w", err)
	}
	if _, err := g.Run(ctx, "config", "user.email", "savepoint@localhost"); err != nil {
		return fmt.Errorf("set backend identity: %w", err)
	}

	// Inherited global config must not alter stored bytes or command
	// output: quotepath mangles non-ASCII keys in listings, autocrlf
	// rewrites CRLF content on commit, and gpgsign blocks unattended
	// commits.
	for _, kv := range [][2]string{
		{"core.quotepath", "off"},
		{"core.autocrlf", "false"},
		{"commit.gpgsign", "false"},
	} {
		if _, err := g.Run(ctx, "config", kv[0], kv[1]); err != nil {
			return fmt.Errorf("set backend option %s: %w", kv[0], err)
		}
	}

	g.logger.Info("initialized backup repository", "dir", g.dir)
	return nil
}
