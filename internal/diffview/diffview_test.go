package diffview_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keshon/savepoint/internal/diffview"
	"github.com/keshon/savepoint/internal/gitcmd/gitcmdtest"
	"github.com/keshon/savepoint/internal/store"
)

func newEngine(t *testing.T) (*diffview.Engine, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st := store.New(gitcmdtest.NewSim(dir), dir, nil)
	return diffview.New(st, nil), st
}

func TestRenderDiffAgainstPredecessor(t *testing.T) {
	ctx := context.Background()
	e, st := newEngine(t)
	key := "!stmp!sa.txt"

	_, err := st.CreateSnapshot(ctx, key, []byte("v2\n"), "save v2")
	require.NoError(t, err)
	id3, err := st.CreateSnapshot(ctx, key, []byte("v3\n"), "save v3")
	require.NoError(t, err)

	diff, err := e.RenderDiff(ctx, key, id3)
	require.NoError(t, err)
	require.Contains(t, diff, "-v2")
	require.Contains(t, diff, "+v3")
}

func TestRenderDiffStaleSelection(t *testing.T) {
	ctx := context.Background()
	e, st := newEngine(t)
	key := "keyA"

	id, err := st.CreateSnapshot(ctx, key, []byte("x"), "m")
	require.NoError(t, err)
	require.NoError(t, st.DeleteHistory(ctx, key))

	_, err = e.RenderDiff(ctx, key, id)
	require.ErrorIs(t, err, store.ErrStaleSelection)
}

func TestRestoreWritesDestination(t *testing.T) {
	ctx := context.Background()
	e, st := newEngine(t)
	key := "!stmp!sa.txt"

	idOld, err := st.CreateSnapshot(ctx, key, []byte("old content"), "m")
	require.NoError(t, err)
	_, err = st.CreateSnapshot(ctx, key, []byte("new content"), "m")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "live", "a.txt")
	require.NoError(t, e.Restore(ctx, key, idOld, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "old content", string(data))
}

func TestRestorePreservesFileMode(t *testing.T) {
	ctx := context.Background()
	e, st := newEngine(t)
	key := "!stmp!ssecret.txt"

	id, err := st.CreateSnapshot(ctx, key, []byte("v1"), "m")
	require.NoError(t, err)
	_, err = st.CreateSnapshot(ctx, key, []byte("v2"), "m")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(dest, []byte("v2"), 0o600))

	require.NoError(t, e.Restore(ctx, key, id, dest))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "v1", string(data))
}

func TestRestoreStaleSelection(t *testing.T) {
	ctx := context.Background()
	e, st := newEngine(t)

	id, err := st.CreateSnapshot(ctx, "keyA", []byte("x"), "m")
	require.NoError(t, err)
	require.NoError(t, st.DeleteHistory(ctx, "keyA"))

	dest := filepath.Join(t.TempDir(), "a.txt")
	err = e.Restore(ctx, "keyA", id, dest)
	require.ErrorIs(t, err, store.ErrStaleSelection)
	require.NoFileExists(t, dest)
}

func TestOpenAsNewDocument(t *testing.T) {
	ctx := context.Background()
	e, st := newEngine(t)
	key := "keyA"

	id, err := st.CreateSnapshot(ctx, key, []byte("copy me"), "m")
	require.NoError(t, err)

	data, err := e.OpenAsNewDocument(ctx, key, id)
	require.NoError(t, err)
	require.Equal(t, "copy me", string(data))
}
