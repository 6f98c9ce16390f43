package gormkv_test

import (
	"context"
	"testing"

	"github.com/dvir/roombill-client/internal/store/gormkv"
	"github.com/dvir/roombill-client/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	tdb := testutil.NewTestDB(t)
	store := gormkv.New(tdb.DB)
	ctx := context.Background()

	t.Run("missing key reads as nil", func(t *testing.T) {
		tdb.Truncate(t)

		got, err := store.Get(ctx, "absent")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("set then get", func(t *testing.T) {
		tdb.Truncate(t)

		require.NoError(t, store.Set(ctx, "cachedUser", []byte(`{"id":"u1"}`)))

		got, err := store.Get(ctx, "cachedUser")
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"u1"}`, string(got))
	})

	t.Run("set overwrites", func(t *testing.T) {
		tdb.Truncate(t)

		require.NoError(t, store.Set(ctx, "lastActivityTime", []byte(`1000`)))
		require.NoError(t, store.Set(ctx, "lastActivityTime", []byte(`2000`)))

		got, err := store.Get(ctx, "lastActivityTime")
		require.NoError(t, err)
		assert.Equal(t, "2000", string(got))
	})

	t.Run("remove", func(t *testing.T) {
		tdb.Truncate(t)

		require.NoError(t, store.Set(ctx, "recentAccounts", []byte(`[]`)))
		require.NoError(t, store.Remove(ctx, "recentAccounts"))

		got, err := store.Get(ctx, "recentAccounts")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("remove of a missing key is not an error", func(t *testing.T) {
		tdb.Truncate(t)

		assert.NoError(t, store.Remove(ctx, "absent"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		tdb.Truncate(t)

		require.NoError(t, store.Set(ctx, "a", []byte(`1`)))
		require.NoError(t, store.Set(ctx, "b", []byte(`2`)))
		require.NoError(t, store.Remove(ctx, "a"))

		got, err := store.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "2", string(got))
	})
}
