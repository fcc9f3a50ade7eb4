package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(ctx, t.TempDir(), nil)
	require.NoError(t, err)

	obj, err := store.Put(ctx, "backups/backup_20240105_101500.json", strings.NewReader(`{"data":{}}`))
	require.NoError(t, err)
	assert.Equal(t, "backups/backup_20240105_101500.json", obj.Path)
	assert.EqualValues(t, 11, obj.Size)

	rc, err := store.Open(ctx, obj.Path)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, `{"data":{}}`, string(body))

	require.NoError(t, store.Remove(ctx, obj.Path))
	_, err = store.Open(ctx, obj.Path)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Remove(ctx, obj.Path), "removing a missing object is a no-op")
}

func TestFileStoreRejectsEscapingNames(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(ctx, t.TempDir(), nil)
	require.NoError(t, err)

	for _, name := range []string{"", "../secret", "/etc/passwd", "a/../../b"} {
		_, err := store.Put(ctx, name, strings.NewReader("x"))
		assert.Error(t, err, "name %q", name)
	}
}

func TestNewFileStoreRequiresRoot(t *testing.T) {
	_, err := NewFileStore(context.Background(), "  ", nil)
	assert.Error(t, err)
}
