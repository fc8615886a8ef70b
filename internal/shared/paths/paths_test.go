package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheDir(t *testing.T) {
	dir, err := CacheDir("/tmp/onboard/../onboard-cache/")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("/tmp/onboard-cache"), dir)

	t.Setenv("XDG_CACHE_HOME", "/var/cache/test")
	t.Setenv("HOME", "/home/test")
	dir, err = CacheDir("  ")
	require.NoError(t, err)
	assert.Equal(t, AppName, filepath.Base(dir))
}
