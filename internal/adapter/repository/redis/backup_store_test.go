package redis

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupStore_SaveAndLatest(t *testing.T) {
	client, _ := newTestRedisClient(t)

	store := NewBackupStore(client, 0)
	ctx := context.Background()

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, store.Save(ctx, "b1", []byte(`{"version":1}`)))
	require.NoError(t, store.Save(ctx, "b2", []byte(`{"version":1,"banks":[]}`)))

	latest, err = store.Latest(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"banks":[]}`, string(latest))
}

func TestBackupStore_Retention(t *testing.T) {
	client, mr := newTestRedisClient(t)

	store := NewBackupStore(client, 2)
	ctx := context.Background()

	for i := range 4 {
		require.NoError(t, store.Save(ctx, fmt.Sprintf("b%d", i), []byte(fmt.Sprintf(`{"n":%d}`, i))))
	}

	names, err := store.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b3", "b2"}, names)

	keys, err := mr.HKeys(store.dataKey)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b2", "b3"}, keys)
}

func TestBackupStore_SaveSameNameReplaces(t *testing.T) {
	client, _ := newTestRedisClient(t)

	store := NewBackupStore(client, 5)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "b1", []byte(`{"n":1}`)))
	require.NoError(t, store.Save(ctx, "b2", []byte(`{"n":2}`)))
	require.NoError(t, store.Save(ctx, "b1", []byte(`{"n":3}`)))

	names, err := store.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2"}, names)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":3}`, string(latest))
}

func TestBackupStore_ConnectionError(t *testing.T) {
	client, mr := newTestRedisClient(t)
	mr.Close()

	store := NewBackupStore(client, 2)
	require.Error(t, store.Save(context.Background(), "b1", []byte(`{}`)))
	_, err := store.Latest(context.Background())
	require.Error(t, err)
}
