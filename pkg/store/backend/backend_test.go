package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/mapgraph/pkg/config"
	"github.com/rmax-ai/mapgraph/pkg/store"
	"github.com/rmax-ai/mapgraph/pkg/store/redis"
	"github.com/rmax-ai/mapgraph/pkg/store/storetest"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	mr := miniredis.RunT(t)

	tests := []struct {
		backend string
		check   func(t *testing.T, st store.GraphStore)
	}{
		{store.BackendSQLite, func(t *testing.T, st store.GraphStore) {
			assert.IsType(t, &store.SQLiteStore{}, st)
		}},
		{store.BackendDocument, func(t *testing.T, st store.GraphStore) {
			assert.IsType(t, &store.DocumentStore{}, st)
		}},
		{store.BackendRedis, func(t *testing.T, st store.GraphStore) {
			assert.IsType(t, &redis.Store{}, st)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := config.Defaults(dir)
			cfg.Backend = tt.backend
			cfg.Autosave = true
			cfg.RedisAddr = mr.Addr()

			st, err := Open(ctx, cfg)
			require.NoError(t, err)
			defer st.Close()
			tt.check(t, st)

			require.NoError(t, st.SaveAll(ctx, storetest.Sample()))
			snap, err := st.Load(ctx)
			require.NoError(t, err)
			assert.Len(t, snap.Nodes, 3)
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	cfg := config.Defaults(t.TempDir())
	cfg.Backend = "postgres"
	_, err := Open(ctx, cfg)
	assert.ErrorContains(t, err, "unsupported backend")

	cfg.Backend = store.BackendSQLite
	cfg.DBPath = filepath.Join(t.TempDir(), "missing", "dir", "graph.db")
	_, err = Open(ctx, cfg)
	assert.Error(t, err)
}
