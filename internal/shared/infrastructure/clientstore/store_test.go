package clientstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/migrations"
)

func openSQLStore(t *testing.T, path string) (*SQLStore, func()) {
	t.Helper()
	ctx := context.Background()
	conn, err := sqlite.NewConnection(ctx, database.Config{SQLitePath: path})
	require.NoError(t, err)
	require.NoError(t, migrations.Run(ctx, conn))
	return NewSQLStore(conn), func() { conn.Close() }
}

func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "referral.pending")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "referral.pending", `{"code":"anna1234"}`))
	value, ok, err := store.Get(ctx, "referral.pending")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"code":"anna1234"}`, value)

	require.NoError(t, store.Set(ctx, "referral.pending", `{"code":"bob0001"}`))
	value, _, err = store.Get(ctx, "referral.pending")
	require.NoError(t, err)
	assert.Equal(t, `{"code":"bob0001"}`, value)

	require.NoError(t, store.Remove(ctx, "referral.pending"))
	require.NoError(t, store.Remove(ctx, "referral.pending"))
	_, ok, err = store.Get(ctx, "referral.pending")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLStore(t *testing.T) {
	store, closeFn := openSQLStore(t, ":memory:")
	defer closeFn()
	exerciseStore(t, store)
}

func TestSQLStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "client.db")

	store, closeFn := openSQLStore(t, path)
	require.NoError(t, store.Set(ctx, "referral.processed", `["anna1234"]`))
	closeFn()

	reopened, closeFn := openSQLStore(t, path)
	defer closeFn()

	value, ok, err := reopened.Get(ctx, "referral.processed")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["anna1234"]`, value)
}
