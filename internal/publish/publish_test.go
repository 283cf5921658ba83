package publish

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	perrors "git.home.luguber.info/inful/umdbuilder/internal/errors"
)

func TestPublish_ReplacesDistContents(t *testing.T) {
	root := t.TempDir()
	dist := filepath.Join(root, "dist")
	require.NoError(t, os.MkdirAll(filepath.Join(dist, "old"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "stale.js"), []byte("stale"), 0o600))

	src := filepath.Join(root, "bundle.js")
	body := []byte("(function(){}())")
	require.NoError(t, os.WriteFile(src, body, 0o600))

	a, err := New(dist, "main.js").Publish(src)
	require.NoError(t, err)

	sum := sha256.Sum256(body)
	require.Equal(t, filepath.Join(dist, "main.js"), a.Path)
	require.Equal(t, hex.EncodeToString(sum[:]), a.SHA256)
	require.Equal(t, int64(len(body)), a.Bytes)

	entries, err := os.ReadDir(dist)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "main.js", entries[0].Name())
}

func TestPublish_MissingBundleLeavesDistUntouched(t *testing.T) {
	root := t.TempDir()
	dist := filepath.Join(root, "dist")
	require.NoError(t, os.MkdirAll(dist, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "main.js"), []byte("previous"), 0o600))

	_, err := New(dist, "main.js").Publish(filepath.Join(root, "missing.js"))
	require.Error(t, err)
	require.True(t, perrors.IsCategory(err, perrors.CategoryFileSystem))

	data, err := os.ReadFile(filepath.Join(dist, "main.js"))
	require.NoError(t, err)
	require.Equal(t, "previous", string(data))
}
