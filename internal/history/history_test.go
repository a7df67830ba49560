package history_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keshon/savepoint/internal/gitcmd/gitcmdtest"
	"github.com/keshon/savepoint/internal/history"
	"github.com/keshon/savepoint/internal/store"
)

func TestDisplayTimeTokens(t *testing.T) {
	b := history.NewBuilder("%cd (%cr)", "2006-01-02 15:04")
	b.Now = func() time.Time { return time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC) }

	got := b.DisplayTime(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.Equal(t, "2025-06-01 12:00 (1 hour ago)", got)
}

func TestDisplayTimeCustomTemplate(t *testing.T) {
	b := history.NewBuilder("%cr — %cd", "15:04")
	b.Now = func() time.Time { return time.Date(2025, 6, 1, 12, 2, 0, 0, time.UTC) }

	got := b.DisplayTime(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.Equal(t, "2 minutes ago — 12:00", got)
}

func TestListCandidates(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st := store.New(gitcmdtest.NewSim(dir), dir, nil)

	key := "!stmp!sa.txt"
	var ids []string
	for _, c := range []string{"v1", "v2", "v3"} {
		id, err := st.CreateSnapshot(ctx, key, []byte(c), "save "+c)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	b := history.NewBuilder("%cd", "2006-01-02 15:04:05")
	b.Now = func() time.Time { return time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC) }

	cands, err := b.List(ctx, st, key)
	require.NoError(t, err)
	require.Len(t, cands, 3)

	// newest first, ids out of band
	require.Equal(t, ids[2], cands[0].ID)
	require.Equal(t, ids[0], cands[2].ID)
	require.Contains(t, cands[0].Label, "save v3")
	require.NotContains(t, cands[0].Label, cands[0].ID)

	// padded time column keeps messages aligned
	idx0 := strings.Index(cands[0].Label, "save ")
	idx2 := strings.Index(cands[2].Label, "save ")
	require.Equal(t, idx0, idx2)
}

func TestListUnknownKey(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st := store.New(gitcmdtest.NewSim(dir), dir, nil)

	b := history.NewBuilder("", "")
	_, err := b.List(ctx, st, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}
