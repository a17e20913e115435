package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/mapgraph/pkg/store"
	"github.com/rmax-ai/mapgraph/pkg/store/storetest"
)

func TestRedisStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Opener {
		mr := miniredis.RunT(t)
		return func() store.GraphStore {
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			return New(client, "test")
		}
	})
}

func TestRedisStore_PrefixesIsolateGraphs(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	a := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "campus")
	defer a.Close()
	b := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	defer b.Close()

	require.NoError(t, a.SaveAll(ctx, storetest.Sample()))

	snap, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Nodes)

	assert.True(t, mr.Exists("campus:nodes"))
	assert.False(t, mr.Exists(DefaultPrefix+":nodes"))
}

func TestRedisStore_KindStoredWithEdge(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	st := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "k")
	defer st.Close()

	require.NoError(t, st.SaveAll(ctx, storetest.Sample()))

	raw := mr.HGet("k:edges", edgeField("NB", "NC"))
	assert.Contains(t, raw, `"kind":"car"`)
}

func TestDial(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	st, err := Dial(ctx, mr.Addr(), "")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = Dial(ctx, "127.0.0.1:1", "")
	assert.Error(t, err)
}
