// Package gitcmdtest provides an in-memory scripted backend implementing
// gitcmd.Runner with real chain semantics, for tests that must not depend
// on an installed git binary.
package gitcmdtest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/keshon/savepoint/internal/gitcmd"
)

type commit struct {
	id      string
	msg     string
	time    time.Time
	tree    map[string][]byte
	touched string // the storage key this commit changed
}

// Sim emulates the subset of the backend command surface the store uses:
// status, add, commit (incl. amend), log, rev-parse, show, ls-tree,
// filter-branch, ref/reflog cleanup, and gc.
type Sim struct {
	dir string

	mu      sync.Mutex
	index   map[string][]byte
	commits []*commit
	now     time.Time

	gcCount int
}

// GCRuns reports how many times gc ran, for compaction tests.
func (s *Sim) GCRuns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gcCount
}

var _ gitcmd.Runner = (*Sim)(nil)

// NewSim returns a Sim whose worktree root is dir. Commit timestamps start
// at a fixed instant and advance one minute per commit, so listings have a
// deterministic order and age.
func NewSim(dir string) *Sim {
	return &Sim{
		dir:   dir,
		index: make(map[string][]byte),
		now:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Run dispatches one backend command.
func (s *Sim) Run(_ context.Context, args ...string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(args) == 0 {
		panic("gitcmdtest: empty command")
	}
	switch args[0] {
	case "init", "config", "for-each-ref", "update-ref", "reflog":
		return "", nil
	case "gc":
		s.gcCount++
		return "", nil
	case "status":
		return s.status(pathspec(args))
	case "add":
		return s.add(pathspec(args))
	case "commit":
		if hasArg(args, "--amend") {
			return s.amend(valueAfter(args, "-m"))
		}
		return s.commit(valueAfter(args, "-m"), pathspec(args))
	case "log":
		return s.log(args)
	case "rev-parse":
		return s.revParse()
	case "show":
		if args[1] == "--format=" {
			return s.showPatch(args[3], pathspec(args))
		}
		return s.showContent(args[1])
	case "ls-tree":
		return s.lsTree(hasArg(args, "-z"))
	case "filter-branch":
		return s.filterBranch(valueAfter(args, "--index-filter"))
	}
	panic(fmt.Sprintf("gitcmdtest: unexpected command %v", args))
}

func (s *Sim) head() *commit {
	if len(s.commits) == 0 {
		return nil
	}
	return s.commits[len(s.commits)-1]
}

func (s *Sim) worktree(key string) ([]byte, bool) {
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (s *Sim) status(key string) (string, error) {
	data, ok := s.worktree(key)
	if !ok {
		return "", nil
	}
	if h := s.head(); h != nil {
		if tracked, ok := h.tree[key]; ok && bytes.Equal(tracked, data) {
			return "", nil
		}
		if _, ok := h.tree[key]; ok {
			return " M " + key + "\n", nil
		}
	}
	return "?? " + key + "\n", nil
}

func (s *Sim) add(key string) (string, error) {
	data, ok := s.worktree(key)
	if !ok {
		return "", exitErr(128, "fatal: pathspec '"+key+"' did not match any files")
	}
	s.index[key] = data
	return "", nil
}

func (s *Sim) commit(msg, key string) (string, error) {
	data, ok := s.index[key]
	if !ok {
		return "", exitErr(1, "nothing to commit")
	}
	tree := make(map[string][]byte)
	if h := s.head(); h != nil {
		for k, v := range h.tree {
			tree[k] = v
		}
	}
	if old, ok := tree[key]; ok && bytes.Equal(old, data) {
		delete(s.index, key)
		return "", exitErr(1, "nothing to commit, working tree clean")
	}
	tree[key] = data

	parent := ""
	if h := s.head(); h != nil {
		parent = h.id
	}
	c := &commit{
		id:      commitID(parent, key, msg, data, s.now),
		msg:     msg,
		time:    s.now,
		tree:    tree,
		touched: key,
	}
	s.commits = append(s.commits, c)
	s.now = s.now.Add(time.Minute)
	delete(s.index, key)
	return "", nil
}

func (s *Sim) amend(msg string) (string, error) {
	h := s.head()
	if h == nil {
		return "", exitErr(128, "fatal: you have nothing to amend")
	}
	h.msg = msg
	h.id = commitID(h.id, h.touched, msg, h.tree[h.touched], h.time)
	return "", nil
}

func (s *Sim) log(args []string) (string, error) {
	if len(s.commits) == 0 {
		return "", exitErr(128, "fatal: your current branch 'main' does not have any commits yet")
	}
	key := pathspec(args)
	format := ""
	limit := 0
	for i, a := range args {
		if strings.HasPrefix(a, "--format=") {
			format = strings.TrimPrefix(a, "--format=")
		}
		if a == "-n" && i+1 < len(args) {
			limit, _ = strconv.Atoi(args[i+1])
		}
	}

	var b strings.Builder
	count := 0
	for i := len(s.commits) - 1; i >= 0; i-- {
		c := s.commits[i]
		if key != "" && c.touched != key {
			continue
		}
		b.WriteString(render(format, c))
		b.WriteString("\n")
		count++
		if limit > 0 && count >= limit {
			break
		}
	}
	return b.String(), nil
}

func (s *Sim) revParse() (string, error) {
	h := s.head()
	if h == nil {
		return "", exitErr(128, "fatal: ambiguous argument 'HEAD': unknown revision or path not in the working tree")
	}
	return h.id + "\n", nil
}

func (s *Sim) find(id string) *commit {
	for _, c := range s.commits {
		if c.id == id {
			return c
		}
	}
	return nil
}

func (s *Sim) showContent(spec string) (string, error) {
	id, key, ok := strings.Cut(spec, ":")
	if !ok {
		panic("gitcmdtest: show expects id:key, got " + spec)
	}
	c := s.find(id)
	if c == nil {
		return "", exitErr(128, "fatal: invalid object name '"+id+"'")
	}
	data, ok := c.tree[key]
	if !ok {
		return "", exitErr(128, "fatal: path '"+key+"' does not exist in '"+id+"'")
	}
	return string(data), nil
}

func (s *Sim) showPatch(id, key string) (string, error) {
	c := s.find(id)
	if c == nil {
		return "", exitErr(128, "fatal: bad revision '"+id+"'")
	}
	var old []byte
	for i, cc := range s.commits {
		if cc == c && i > 0 {
			old = s.commits[i-1].tree[key]
		}
	}
	return unifiedDiff(key, old, c.tree[key]), nil
}

func (s *Sim) lsTree(nulTerminated bool) (string, error) {
	h := s.head()
	if h == nil {
		return "", exitErr(128, "fatal: not a valid object name HEAD")
	}
	keys := make([]string, 0, len(h.tree))
	for k := range h.tree {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return "", nil
	}
	if nulTerminated {
		return strings.Join(keys, "\x00") + "\x00", nil
	}
	// Line output goes through quotepath: names with bytes outside
	// printable ASCII come back C-quoted, exactly like git's default.
	for i, k := range keys {
		keys[i] = cQuote(k)
	}
	return strings.Join(keys, "\n") + "\n", nil
}

// cQuote reproduces git's core.quotepath=true rendering: a name with any
// byte outside printable ASCII is wrapped in double quotes with those bytes
// octal-escaped.
func cQuote(name string) string {
	plain := true
	for i := 0; i < len(name); i++ {
		if name[i] < 0x20 || name[i] > 0x7e || name[i] == '"' || name[i] == '\\' {
			plain = false
			break
		}
	}
	if plain {
		return name
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c < 0x20 || c > 0x7e:
			fmt.Fprintf(&b, "\\%03o", c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func (s *Sim) filterBranch(filter string) (string, error) {
	// the index-filter ends with "-- <key>"
	idx := strings.LastIndex(filter, "-- ")
	if idx < 0 {
		panic("gitcmdtest: unexpected index-filter " + filter)
	}
	key := strings.Trim(strings.TrimSpace(filter[idx+3:]), "'\"")

	var kept []*commit
	for _, c := range s.commits {
		if c.touched == key {
			continue // prune-empty drops commits that only touched key
		}
		tree := make(map[string][]byte, len(c.tree))
		for k, v := range c.tree {
			if k != key {
				tree[k] = v
			}
		}
		c.tree = tree
		kept = append(kept, c)
	}
	s.commits = kept
	if len(kept) == 0 {
		// Pruning every commit deletes the branch; git then fails to
		// re-resolve HEAD and the rewrite exits non-zero even though the
		// chain is gone.
		return "", exitErr(128, "fatal: Not a valid object name HEAD")
	}
	return "", nil
}

func exitErr(code int, stderr string) error {
	return &gitcmd.ExitError{Cmd: "git (sim)", Code: code, Stderr: stderr}
}

func commitID(parent, key, msg string, content []byte, t time.Time) string {
	seed := parent + "\x00" + key + "\x00" + msg + "\x00" + t.String() + "\x00" + string(content)
	sum := xxh3.Hash128([]byte(seed)).Bytes()
	return fmt.Sprintf("%x", sum[:])
}

func render(format string, c *commit) string {
	out := strings.ReplaceAll(format, "%x09", "\t")
	out = strings.ReplaceAll(out, "%H", c.id)
	out = strings.ReplaceAll(out, "%ct", strconv.FormatInt(c.time.Unix(), 10))
	out = strings.ReplaceAll(out, "%s", c.msg)
	return out
}

// unifiedDiff is a crude whole-file diff, close enough for asserting which
// lines changed.
func unifiedDiff(key string, old, new []byte) string {
	if bytes.Equal(old, new) {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "diff --git a/%s b/%s\n", key, key)
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", key, key)
	for _, l := range diffLines(old) {
		b.WriteString("-" + l + "\n")
	}
	for _, l := range diffLines(new) {
		b.WriteString("+" + l + "\n")
	}
	return b.String()
}

func diffLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// pathspec returns the argument following the last "--" separator, or "".
func pathspec(args []string) string {
	for i := len(args) - 1; i >= 0; i-- {
		if args[i] == "--" {
			if i+1 < len(args) {
				return args[i+1]
			}
			return ""
		}
	}
	return ""
}

func hasArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func valueAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
