package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/material"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	const key = "materials/class-1/abc-notes.txt"
	content := "fractions and decimals"
	require.NoError(t, store.Put(ctx, key, strings.NewReader(content), int64(len(content)), "text/plain"))

	rc, err := store.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.Equal(t, material.ErrBlobNotFound, err)

	// deleting twice is fine
	assert.NoError(t, store.Delete(ctx, key))
}

func TestLocalStore_Errors(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	t.Run("size mismatch", func(t *testing.T) {
		err := store.Put(ctx, "a/b.txt", strings.NewReader("abc"), 10, "text/plain")
		assert.Error(t, err)
		_, err = store.Get(ctx, "a/b.txt")
		assert.Equal(t, material.ErrBlobNotFound, err)
	})

	t.Run("key outside root", func(t *testing.T) {
		err := store.Put(ctx, "../escape.txt", strings.NewReader("abc"), 3, "text/plain")
		assert.Error(t, err)
		_, err = store.Get(ctx, "../../etc/passwd")
		assert.Equal(t, material.ErrBlobNotFound, err)
	})
}

func TestOpen(t *testing.T) {
	conf := &core.Config{Blob: core.BlobConfig{Driver: DriverLocal, Dir: t.TempDir()}}
	store, err := Open(conf)
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	conf.Blob.Driver = "ftp"
	_, err = Open(conf)
	assert.Error(t, err)

	conf.Blob.Driver = DriverOSS
	_, err = Open(conf)
	assert.Error(t, err)
}
