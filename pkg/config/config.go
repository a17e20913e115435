// Package config resolves mapgraph settings from defaults, an optional YAML
// file, MAPGRAPH_* environment variables and command-line flags, in that
// order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rmax-ai/mapgraph/pkg/store"
)

const (
	defaultBackend        = store.BackendSQLite
	defaultRedisAddr      = "127.0.0.1:6379"
	defaultRedisPrefix    = "mapgraph"
	defaultNodeTolerance  = 10.0
	defaultPlaceTolerance = 15.0
	defaultEdgeTolerance  = 5.0
	defaultLogLevel       = "info"

	// EnvConfigPath names the YAML file when no -config flag is given.
	EnvConfigPath = "MAPGRAPH_CONFIG"
)

type Config struct {
	ConfigPath string `yaml:"-"`

	Backend      string `yaml:"backend"`
	DBPath       string `yaml:"db_path"`
	DocumentPath string `yaml:"document_path"`
	Autosave     bool   `yaml:"autosave"`
	RedisAddr    string `yaml:"redis_addr"`
	RedisPrefix  string `yaml:"redis_prefix"`
	ImagePath    string `yaml:"image_path"`

	NodeTolerance  float64 `yaml:"node_tolerance"`
	PlaceTolerance float64 `yaml:"place_tolerance"`
	EdgeTolerance  float64 `yaml:"edge_tolerance"`
	UndoLimit      int     `yaml:"undo_limit"`

	LogPath     string `yaml:"log_path"`
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`

	cwd string
}

// Defaults returns the built-in settings with paths under cwd.
func Defaults(cwd string) Config {
	return Config{
		Backend:        defaultBackend,
		DBPath:         filepath.Join(cwd, "mapgraph.db"),
		DocumentPath:   filepath.Join(cwd, "mapgraph.json"),
		RedisAddr:      defaultRedisAddr,
		RedisPrefix:    defaultRedisPrefix,
		NodeTolerance:  defaultNodeTolerance,
		PlaceTolerance: defaultPlaceTolerance,
		EdgeTolerance:  defaultEdgeTolerance,
		LogPath:        filepath.Join(cwd, "mapgraph.log"),
		LogLevel:       defaultLogLevel,
		cwd:            cwd,
	}
}

// LoadConfig resolves the full configuration for a plain flag-based binary.
func LoadConfig(args []string) (Config, error) {
	cfg, err := Prepare(args)
	if err != nil {
		return Config{}, err
	}

	flagSet := flag.NewFlagSet("mapgraph", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	cfg.BindFlags(flagSet)

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
			return Config{}, err
		}
		return Config{}, err
	}

	if err := cfg.Finalize(); err != nil {
		return Config{}, err
	}
	return *cfg, nil
}

// Prepare applies defaults, the YAML file and the environment. The file is
// named by a -config flag in args, or by MAPGRAPH_CONFIG.
func Prepare(args []string) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get cwd: %w", err)
	}

	cfg := Defaults(cwd)
	cfg.ConfigPath = envOrDefault(EnvConfigPath, "")
	if path, ok := scanConfigFlag(args); ok {
		cfg.ConfigPath = path
	}

	if cfg.ConfigPath != "" {
		cfg.ConfigPath = resolvePath(cfg.ConfigPath, cwd)
		if err := cfg.loadFile(cfg.ConfigPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// scanConfigFlag finds -config/--config before the flag set is built, so
// the file can supply the flag defaults.
func scanConfigFlag(args []string) (string, bool) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if value, ok := strings.CutPrefix(name, "config="); ok {
			return value, true
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Backend = envOrDefault("MAPGRAPH_BACKEND", c.Backend)
	c.DBPath = envOrDefault("MAPGRAPH_DB_PATH", c.DBPath)
	c.DocumentPath = envOrDefault("MAPGRAPH_DOCUMENT_PATH", c.DocumentPath)
	c.RedisAddr = envOrDefault("MAPGRAPH_REDIS_ADDR", c.RedisAddr)
	c.RedisPrefix = envOrDefault("MAPGRAPH_REDIS_PREFIX", c.RedisPrefix)
	c.ImagePath = envOrDefault("MAPGRAPH_IMAGE_PATH", c.ImagePath)
	c.LogPath = envOrDefault("MAPGRAPH_LOG_PATH", c.LogPath)
	c.LogLevel = envOrDefault("MAPGRAPH_LOG_LEVEL", c.LogLevel)
	c.MetricsAddr = envOrDefault("MAPGRAPH_METRICS_ADDR", c.MetricsAddr)

	if v := os.Getenv("MAPGRAPH_AUTOSAVE"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid MAPGRAPH_AUTOSAVE: %w", err)
		}
		c.Autosave = parsed
	}
	if v := os.Getenv("MAPGRAPH_UNDO_LIMIT"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MAPGRAPH_UNDO_LIMIT: %w", err)
		}
		c.UndoLimit = parsed
	}
	for key, dst := range map[string]*float64{
		"MAPGRAPH_NODE_TOLERANCE":  &c.NodeTolerance,
		"MAPGRAPH_PLACE_TOLERANCE": &c.PlaceTolerance,
		"MAPGRAPH_EDGE_TOLERANCE":  &c.EdgeTolerance,
	} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = parsed
	}
	return nil
}

// BindFlags registers one flag per setting, defaulting to the current value.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigPath, "config", c.ConfigPath, "path to YAML config file")
	fs.StringVar(&c.Backend, "backend", c.Backend, "graph store: sqlite|document|redis")
	fs.StringVar(&c.DBPath, "db", c.DBPath, "path to SQLite database")
	fs.StringVar(&c.DocumentPath, "document", c.DocumentPath, "path to JSON graph document")
	fs.BoolVar(&c.Autosave, "autosave", c.Autosave, "write the document on every change")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "redis server address")
	fs.StringVar(&c.RedisPrefix, "redis-prefix", c.RedisPrefix, "redis key prefix")
	fs.StringVar(&c.ImagePath, "image", c.ImagePath, "background map image")
	fs.Float64Var(&c.NodeTolerance, "node-tolerance", c.NodeTolerance, "node hit radius")
	fs.Float64Var(&c.PlaceTolerance, "place-tolerance", c.PlaceTolerance, "special place hit radius")
	fs.Float64Var(&c.EdgeTolerance, "edge-tolerance", c.EdgeTolerance, "edge hit distance")
	fs.IntVar(&c.UndoLimit, "undo-limit", c.UndoLimit, "maximum undo depth, 0 for unbounded")
	fs.StringVar(&c.LogPath, "log", c.LogPath, "log file path")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug|info|warn|error")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "serve /metrics on this address")
}

// Finalize normalizes values, resolves paths and validates the result.
func (c *Config) Finalize() error {
	cwd := c.cwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get cwd: %w", err)
		}
		cwd = wd
	}

	c.Backend = normalizeBackend(c.Backend)
	c.DBPath = resolvePath(c.DBPath, cwd)
	c.DocumentPath = resolvePath(c.DocumentPath, cwd)
	c.ImagePath = resolvePath(c.ImagePath, cwd)
	c.LogPath = resolvePath(c.LogPath, cwd)
	c.RedisAddr = strings.TrimSpace(c.RedisAddr)
	c.MetricsAddr = strings.TrimSpace(c.MetricsAddr)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	switch c.Backend {
	case store.BackendSQLite:
		if c.DBPath == "" {
			return errors.New("backend sqlite requires db path")
		}
	case store.BackendDocument:
		if c.DocumentPath == "" {
			return errors.New("backend document requires document path")
		}
	case store.BackendRedis:
		if c.RedisAddr == "" {
			return errors.New("backend redis requires redis-addr")
		}
	default:
		return fmt.Errorf("unsupported backend: %s", c.Backend)
	}

	if c.NodeTolerance <= 0 {
		return fmt.Errorf("node tolerance must be positive, got %v", c.NodeTolerance)
	}
	if c.PlaceTolerance <= 0 {
		return fmt.Errorf("place tolerance must be positive, got %v", c.PlaceTolerance)
	}
	if c.EdgeTolerance <= 0 {
		return fmt.Errorf("edge tolerance must be positive, got %v", c.EdgeTolerance)
	}
	if c.UndoLimit < 0 {
		return fmt.Errorf("undo limit cannot be negative, got %d", c.UndoLimit)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported log level: %s", s)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}

func normalizeBackend(backend string) string {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "sqlite", "sqlite3", "relational", "db":
		return store.BackendSQLite
	case "document", "json", "file":
		return store.BackendDocument
	case "redis", "kv":
		return store.BackendRedis
	default:
		return strings.ToLower(strings.TrimSpace(backend))
	}
}
