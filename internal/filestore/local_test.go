package filestore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docask/internal/config"
)

func newLocalStore(t *testing.T) Store {
	t.Helper()
	store, err := New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)
	return store
}

func TestLocalStoreSaveOpenRemove(t *testing.T) {
	store := newLocalStore(t)
	ctx := context.Background()
	body := []byte("archived upload body")

	require.NoError(t, store.Save(ctx, "doc-1", bytes.NewReader(body), int64(len(body))))

	rc, err := store.Open(ctx, "doc-1")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	require.Equal(t, body, got)

	require.NoError(t, store.Remove(ctx, "doc-1"))
	_, err = store.Open(ctx, "doc-1")
	require.Error(t, err)
}

func TestLocalStoreRemoveMissingKeyIsNoop(t *testing.T) {
	store := newLocalStore(t)
	require.NoError(t, store.Remove(context.Background(), "never-saved"))
}

func TestLocalStoreRejectsPathTraversal(t *testing.T) {
	store := newLocalStore(t)
	ctx := context.Background()
	body := bytes.NewReader([]byte("x"))

	require.Error(t, store.Save(ctx, "../escape", body, 1))
	_, err := store.Open(ctx, "a/b")
	require.Error(t, err)
	require.Error(t, store.Remove(ctx, `a\b`))
}

func TestNewUnknownStoreType(t *testing.T) {
	_, err := New(config.FileStoreConfig{Type: "ftp"})
	require.Error(t, err)
}
