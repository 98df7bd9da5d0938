package database

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePID(t *testing.T, dir string, pid int) string {
	t.Helper()
	path := filepath.Join(dir, "postmaster.pid")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("%d\n/db_data\n1700000000\n5433\n", pid)), 0o600))
	return path
}

func TestClearStalePID(t *testing.T) {
	dir := t.TempDir()

	removed, err := clearStalePID(dir)
	require.NoError(t, err)
	assert.False(t, removed, "no pid file")

	// pids above the kernel limit never exist
	path := writePID(t, dir, 1<<30)
	removed, err = clearStalePID(dir)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoFileExists(t, path)

	path = writePID(t, dir, os.Getpid())
	_, err = clearStalePID(dir)
	assert.Error(t, err)
	assert.FileExists(t, path)
}
