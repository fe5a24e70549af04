package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mdnaeem95/halaltech/internal/database/testutil"
	"github.com/mdnaeem95/halaltech/internal/models"
)

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v1"), time.Minute))
	require.NoError(t, store.Set(ctx, "k", []byte("v2"), time.Minute))

	value, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "v2", string(value))

	require.NoError(t, store.Delete(ctx, "k"))
	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDatabaseStoreIncrementWithTTL(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, ttl, err := store.IncrementWithTTL(ctx, "counter", time.Minute)
		require.NoError(t, err)
		require.Equal(t, want, count)
		require.Greater(t, ttl, time.Duration(0))
	}
}

func TestDatabaseStorePurgeExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "fresh", []byte("1"), time.Hour))
	require.NoError(t, store.Set(ctx, "forever", []byte("1"), 0))
	require.NoError(t, db.Create(&models.CacheEntry{Key: "stale", Value: []byte("1"), ExpiresAt: time.Now().Add(-time.Minute)}).Error)

	removed, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var keys []string
	require.NoError(t, db.Model(&models.CacheEntry{}).Order("key").Pluck("key", &keys).Error)
	require.Equal(t, []string{"forever", "fresh"}, keys)
}

func TestJSONHelpers(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	type payload struct {
		IDs []string `json:"ids"`
	}

	_, found, err := GetJSON[payload](ctx, store, "missing")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, SetJSON(ctx, store, "ids", payload{IDs: []string{"a", "b"}}, time.Minute))
	got, found, err := GetJSON[payload](ctx, store, "ids")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []string{"a", "b"}, got.IDs)
}
