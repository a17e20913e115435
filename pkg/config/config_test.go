package config

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/mapgraph/pkg/store"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mapgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig([]string{})
	require.NoError(t, err)

	assert.Equal(t, store.BackendSQLite, cfg.Backend)
	assert.True(t, filepath.IsAbs(cfg.DBPath))
	assert.Equal(t, "mapgraph.db", filepath.Base(cfg.DBPath))
	assert.Equal(t, 10.0, cfg.NodeTolerance)
	assert.Equal(t, 15.0, cfg.PlaceTolerance)
	assert.Equal(t, 5.0, cfg.EdgeTolerance)
	assert.Equal(t, 0, cfg.UndoLimit)
	assert.False(t, cfg.Autosave)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeYAML(t, `
backend: document
document_path: /data/campus.json
node_tolerance: 12
place_tolerance: 20
undo_limit: 50
`)

	t.Run("file over defaults", func(t *testing.T) {
		cfg, err := LoadConfig([]string{"-config", path})
		require.NoError(t, err)
		assert.Equal(t, store.BackendDocument, cfg.Backend)
		assert.Equal(t, "/data/campus.json", cfg.DocumentPath)
		assert.Equal(t, 12.0, cfg.NodeTolerance)
		assert.Equal(t, 20.0, cfg.PlaceTolerance)
		assert.Equal(t, 5.0, cfg.EdgeTolerance, "unset keys keep defaults")
		assert.Equal(t, 50, cfg.UndoLimit)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("MAPGRAPH_NODE_TOLERANCE", "8")
		t.Setenv("MAPGRAPH_UNDO_LIMIT", "3")
		cfg, err := LoadConfig([]string{"--config=" + path})
		require.NoError(t, err)
		assert.Equal(t, 8.0, cfg.NodeTolerance)
		assert.Equal(t, 3, cfg.UndoLimit)
		assert.Equal(t, 20.0, cfg.PlaceTolerance)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv("MAPGRAPH_NODE_TOLERANCE", "8")
		cfg, err := LoadConfig([]string{"-config", path, "-node-tolerance", "4", "-backend", "redis"})
		require.NoError(t, err)
		assert.Equal(t, 4.0, cfg.NodeTolerance)
		assert.Equal(t, store.BackendRedis, cfg.Backend)
	})

	t.Run("file named by env", func(t *testing.T) {
		t.Setenv(EnvConfigPath, path)
		cfg, err := LoadConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, store.BackendDocument, cfg.Backend)
		assert.Equal(t, path, cfg.ConfigPath)
	})
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		envVars     map[string]string
		errorSubstr string
	}{
		{
			name:        "unknown backend",
			args:        []string{"-backend", "postgres"},
			errorSubstr: "unsupported backend: postgres",
		},
		{
			name:        "zero node tolerance",
			args:        []string{"-node-tolerance", "0"},
			errorSubstr: "node tolerance must be positive",
		},
		{
			name:        "negative edge tolerance",
			args:        []string{"-edge-tolerance", "-1"},
			errorSubstr: "edge tolerance must be positive",
		},
		{
			name:        "negative undo limit",
			args:        []string{"-undo-limit", "-1"},
			errorSubstr: "undo limit cannot be negative",
		},
		{
			name:        "bad log level",
			args:        []string{"-log-level", "loud"},
			errorSubstr: "unsupported log level",
		},
		{
			name:        "redis without address",
			args:        []string{"-backend", "redis", "-redis-addr", " "},
			errorSubstr: "requires redis-addr",
		},
		{
			name:        "invalid tolerance from env",
			envVars:     map[string]string{"MAPGRAPH_PLACE_TOLERANCE": "wide"},
			errorSubstr: "invalid MAPGRAPH_PLACE_TOLERANCE",
		},
		{
			name:        "invalid autosave from env",
			envVars:     map[string]string{"MAPGRAPH_AUTOSAVE": "sometimes"},
			errorSubstr: "invalid MAPGRAPH_AUTOSAVE",
		},
		{
			name:        "missing config file",
			args:        []string{"-config", "/nonexistent/mapgraph.yaml"},
			errorSubstr: "failed to open config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorSubstr)
		})
	}
}

func TestLoadConfig_UnknownFileKey(t *testing.T) {
	path := writeYAML(t, "node_tolerence: 3\n")
	_, err := LoadConfig([]string{"-config", path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	path := writeYAML(t, "")
	cfg, err := LoadConfig([]string{"-config", path})
	require.NoError(t, err)
	assert.Equal(t, store.BackendSQLite, cfg.Backend)
}

func TestLoadConfig_Help(t *testing.T) {
	_, err := LoadConfig([]string{"-h"})
	assert.ErrorIs(t, err, flag.ErrHelp)
}

func TestFinalize_ResolvesRelativePaths(t *testing.T) {
	cfg := Defaults("/srv/maps")
	cfg.Backend = "JSON"
	cfg.DocumentPath = "campus.json"
	cfg.ImagePath = "campus.png"
	require.NoError(t, cfg.Finalize())

	assert.Equal(t, store.BackendDocument, cfg.Backend)
	assert.Equal(t, "/srv/maps/campus.json", cfg.DocumentPath)
	assert.Equal(t, "/srv/maps/campus.png", cfg.ImagePath)
}

func TestScanConfigFlag(t *testing.T) {
	tests := []struct {
		args []string
		want string
		ok   bool
	}{
		{[]string{"-config", "a.yaml"}, "a.yaml", true},
		{[]string{"--config", "b.yaml"}, "b.yaml", true},
		{[]string{"-backend", "redis", "-config=c.yaml"}, "c.yaml", true},
		{[]string{"inspect", "--", "-config", "d.yaml"}, "", false},
		{[]string{"-config"}, "", false},
		{[]string{"config", "e.yaml"}, "", false},
	}
	for _, tt := range tests {
		got, ok := scanConfigFlag(tt.args)
		assert.Equal(t, tt.ok, ok, "%v", tt.args)
		assert.Equal(t, tt.want, got, "%v", tt.args)
	}
}
