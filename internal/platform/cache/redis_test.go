package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type alertRow struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

func TestStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.SetJSON(ctx, "reorder:summary", []alertRow{{Kind: "tools", Count: 3}}))

	var rows []alertRow
	found, err := store.GetJSON(ctx, "reorder:summary", &rows)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, rows, 1)
	require.Equal(t, "tools", rows[0].Kind)
	require.Equal(t, 3, rows[0].Count)
}

func TestStoreMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(client, time.Minute)

	var rows []alertRow
	found, err := store.GetJSON(context.Background(), "missing", &rows)
	require.NoError(t, err)
	require.False(t, found)
}

func TestStoreTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(client, time.Second)
	ctx := context.Background()

	require.NoError(t, store.SetJSON(ctx, "k", alertRow{Kind: "gauges", Count: 1}))
	mr.FastForward(2 * time.Second)

	var row alertRow
	found, err := store.GetJSON(ctx, "k", &row)
	require.NoError(t, err)
	require.False(t, found)
}
