package pathcodec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keshon/savepoint/internal/pathcodec"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	paths := []string{
		"/tmp/a.txt",
		"/tmp/sub/dir/file.go",
		"/tmp/with!bang",
		"/tmp/a!/b",
		"/tmp/a/!b",
		"/tmp/!!/x",
		"/tmp/with space/f.txt",
		"/tmp/with:colon",
		"/высокий/путь/файл.txt",
	}
	for _, p := range paths {
		key, err := pathcodec.Encode(p)
		require.NoError(t, err, p)
		require.NotContains(t, key, "/", p)
		require.False(t, strings.HasPrefix(key, "-"), p)

		back, err := pathcodec.Decode(key)
		require.NoError(t, err, p)
		require.Equal(t, p, back)
	}
}

func TestEncodeIsInjective(t *testing.T) {
	// pairs that collide under naive "!"-doubling schemes
	pairs := [][2]string{
		{"/a!/b", "/a/!b"},
		{"/a!b", "/a/b"},
		{"/a!!b", "/a!s/b"},
	}
	for _, pair := range pairs {
		k1, err := pathcodec.Encode(pair[0])
		require.NoError(t, err)
		k2, err := pathcodec.Encode(pair[1])
		require.NoError(t, err)
		require.NotEqual(t, k1, k2, "paths %q and %q must not share a key", pair[0], pair[1])
	}
}

func TestEncodeCleansPath(t *testing.T) {
	k1, err := pathcodec.Encode("/tmp/a.txt")
	require.NoError(t, err)
	k2, err := pathcodec.Encode("/tmp//./a.txt")
	require.NoError(t, err)
	require.Equal(t, k1, k2)
}

func TestEncodeInvalid(t *testing.T) {
	for _, p := range []string{"", "relative/path", "./x"} {
		_, err := pathcodec.Encode(p)
		require.ErrorIs(t, err, pathcodec.ErrInvalidPath, p)
	}
}

func TestDecodeInvalid(t *testing.T) {
	for _, k := range []string{"", "trailing!", "bad!zescape"} {
		_, err := pathcodec.Decode(k)
		require.ErrorIs(t, err, pathcodec.ErrInvalidPath, k)
	}
}
