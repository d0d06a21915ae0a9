package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, KeyToken, []byte("abc123")))

	got, err := s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc123"), got)
}

func TestGet_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSet_Overwrite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, KeyCart, []byte(`[]`)))
	require.NoError(t, s.Set(ctx, KeyCart, []byte(`[{"productId":"A"}]`)))

	got, err := s.Get(ctx, KeyCart)
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"productId":"A"}]`), got)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, KeyUser, []byte(`{}`)))
	require.NoError(t, s.Delete(ctx, KeyUser))

	_, err := s.Get(ctx, KeyUser)
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting an absent key is not an error
	assert.NoError(t, s.Delete(ctx, KeyUser))
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeyToken, []byte("persisted")))
	require.NoError(t, s.Close())

	// migrations are idempotent and data survives reopen
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)
}
