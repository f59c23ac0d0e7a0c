package agentcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureKey_GeneratesOnce(t *testing.T) {
	dir := t.TempDir()

	first, err := EnsureKey(dir)
	require.NoError(t, err)
	assert.Len(t, first, keySize)

	second, err := EnsureKey(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second, "key must be stable across runs")
}

func TestEnsureKey_FilePermissions(t *testing.T) {
	dir := t.TempDir()

	_, err := EnsureKey(dir)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, keyFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestEnsureKey_RejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, keyFileName), []byte("not base64!!"), 0600))

	_, err := EnsureKey(dir)
	assert.Error(t, err)
}
