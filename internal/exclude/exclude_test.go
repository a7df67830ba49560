package exclude_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keshon/savepoint/internal/exclude"
)

func TestExcludedMatchesFullPath(t *testing.T) {
	f, err := exclude.New([]string{`\.secret$`, `^/var/tmp/`})
	require.NoError(t, err)

	require.True(t, f.Excluded("/tmp/x.secret"))
	require.True(t, f.Excluded("/var/tmp/anything.txt"))
	require.False(t, f.Excluded("/tmp/x.secret.bak"))
	require.False(t, f.Excluded("/home/user/var/tmp.txt"))
}

func TestExcludedDirectoryPrefixRule(t *testing.T) {
	f, err := exclude.New([]string{`/node_modules/`})
	require.NoError(t, err)

	require.True(t, f.Excluded("/src/app/node_modules/pkg/index.js"))
	require.False(t, f.Excluded("/src/app/node_modules_backup/x.js"))
}

func TestNoRulesAllowsEverything(t *testing.T) {
	f, err := exclude.New(nil)
	require.NoError(t, err)
	require.False(t, f.Excluded("/any/path"))
}

func TestBadRuleFailsConstruction(t *testing.T) {
	_, err := exclude.New([]string{`ok.*`, `a(b`})
	require.Error(t, err)
	require.Contains(t, err.Error(), "a(b")
}
