// Package backend opens the GraphStore named by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rmax-ai/mapgraph/pkg/config"
	"github.com/rmax-ai/mapgraph/pkg/store"
	"github.com/rmax-ai/mapgraph/pkg/store/redis"
)

// Open connects to the configured backend.
func Open(ctx context.Context, cfg config.Config) (store.GraphStore, error) {
	switch cfg.Backend {
	case store.BackendSQLite:
		st, err := store.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		slog.Info("Graph store opened", "backend", cfg.Backend, "path", cfg.DBPath)
		return st, nil
	case store.BackendDocument:
		slog.Info("Graph store opened", "backend", cfg.Backend, "path", cfg.DocumentPath, "autosave", cfg.Autosave)
		return store.OpenDocument(cfg.DocumentPath, store.WithAutosave(cfg.Autosave)), nil
	case store.BackendRedis:
		st, err := redis.Dial(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		slog.Info("Graph store opened", "backend", cfg.Backend, "addr", cfg.RedisAddr, "prefix", cfg.RedisPrefix)
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}
