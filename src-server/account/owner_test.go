package account_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner/src-server/account"
	"planner/src-server/kv"
	"planner/src-server/utils"
)

func newOwner(t *testing.T, pinned string) (*account.Owner, *kv.BunStore) {
	t.Helper()
	_, db, err := utils.OpenDatabase(context.Background(), utils.DB_DRIVER_SQLITE, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	kvStore := kv.NewBunStore(db, nil)
	return account.NewOwner(kvStore, pinned), kvStore
}

func TestOwnerFirstClaimWins(t *testing.T) {
	ctx := context.Background()
	o, kvStore := newOwner(t, "")

	_, claimed, err := o.Current(ctx)
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, o.Claim(ctx, "uid-1"))
	require.NoError(t, o.Claim(ctx, "uid-1"))
	require.ErrorIs(t, o.Claim(ctx, "uid-2"), account.ErrForbidden)
	require.ErrorIs(t, o.Claim(ctx, ""), account.ErrForbidden)

	uid, claimed, err := o.Current(ctx)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, "uid-1", uid)

	stored, ok, err := kvStore.Get(ctx, account.OWNER_KEY)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "uid-1", stored)
}

func TestOwnerRelease(t *testing.T) {
	ctx := context.Background()
	o, _ := newOwner(t, "")
	require.NoError(t, o.Claim(ctx, "uid-1"))

	require.NoError(t, o.Release(ctx, "uid-2"))
	require.ErrorIs(t, o.Claim(ctx, "uid-2"), account.ErrForbidden)

	require.NoError(t, o.Release(ctx, "uid-1"))
	require.NoError(t, o.Claim(ctx, "uid-2"))
}

func TestOwnerPinned(t *testing.T) {
	ctx := context.Background()
	o, kvStore := newOwner(t, "uid-9")

	require.ErrorIs(t, o.Claim(ctx, "uid-1"), account.ErrForbidden)
	require.NoError(t, o.Claim(ctx, "uid-9"))
	require.NoError(t, o.Release(ctx, "uid-9"))
	require.NoError(t, o.Claim(ctx, "uid-9"))

	uid, claimed, err := o.Current(ctx)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, "uid-9", uid)

	keys, err := kvStore.GetAllKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
