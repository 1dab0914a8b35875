// Package config loads procflow settings from an optional YAML file and
// PROCFLOW_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names a document store implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
	BackendMongo  Backend = "mongo"
)

var validBackends = map[Backend]bool{
	BackendMemory: true,
	BackendSQLite: true,
	BackendRedis:  true,
	BackendMongo:  true,
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// Config holds all runtime settings.
type Config struct {
	Backend    Backend     `yaml:"backend"`
	DBPath     string      `yaml:"db_path"`
	Redis      RedisConfig `yaml:"redis"`
	Mongo      MongoConfig `yaml:"mongo"`
	Collection string      `yaml:"collection"`
	PollMs     int         `yaml:"poll_ms"`
	// RevisionCheck disabled restores last-writer-wins saves.
	RevisionCheck bool   `yaml:"revision_check"`
	LogLevel      string `yaml:"log_level"`
	LogUseCases   bool   `yaml:"log_use_cases"`
	SessionFile   string `yaml:"session_file"`
}

// Dir returns ~/.procflow, or ".procflow" when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".procflow"
	}
	return filepath.Join(home, ".procflow")
}

// DefaultPath is the config file read when PROCFLOW_CONFIG is unset.
func DefaultPath() string {
	if v := os.Getenv("PROCFLOW_CONFIG"); v != "" {
		return v
	}
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns a Config with sensible defaults: a local SQLite
// store under ~/.procflow.
func DefaultConfig() Config {
	dir := Dir()
	return Config{
		Backend:       BackendSQLite,
		DBPath:        filepath.Join(dir, "procflow.db"),
		Redis:         RedisConfig{Addr: "localhost:6379"},
		Mongo:         MongoConfig{URI: "mongodb://localhost:27017", Database: "procflow"},
		Collection:    "workspaces",
		PollMs:        1000,
		RevisionCheck: true,
		LogLevel:      "warn",
		SessionFile:   filepath.Join(dir, "session"),
	}
}

// Load reads path (a missing file is not an error), applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PROCFLOW_BACKEND"); v != "" {
		cfg.Backend = Backend(strings.ToLower(v))
	}
	if v := os.Getenv("PROCFLOW_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("PROCFLOW_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PROCFLOW_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PROCFLOW_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Redis.DB = n
		}
	}
	if v := os.Getenv("PROCFLOW_MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("PROCFLOW_MONGO_DATABASE"); v != "" {
		cfg.Mongo.Database = v
	}
	if v := os.Getenv("PROCFLOW_COLLECTION"); v != "" {
		cfg.Collection = v
	}
	if v := os.Getenv("PROCFLOW_POLL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PollMs = n
		}
	}
	if v := os.Getenv("PROCFLOW_REVISION_CHECK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RevisionCheck = b
		}
	}
	if v := os.Getenv("PROCFLOW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PROCFLOW_LOG_USE_CASES"); v != "" {
		cfg.LogUseCases, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("PROCFLOW_SESSION_FILE"); v != "" {
		cfg.SessionFile = v
	}
}

func (c Config) Validate() error {
	if !validBackends[c.Backend] {
		return fmt.Errorf("invalid backend %q (want memory, sqlite, redis or mongo)", c.Backend)
	}
	if c.Backend == BackendSQLite && c.DBPath == "" {
		return fmt.Errorf("sqlite backend requires db_path")
	}
	if c.Backend == BackendRedis && c.Redis.Addr == "" {
		return fmt.Errorf("redis backend requires redis.addr")
	}
	if c.Backend == BackendMongo && (c.Mongo.URI == "" || c.Mongo.Database == "") {
		return fmt.Errorf("mongo backend requires mongo.uri and mongo.database")
	}
	if strings.TrimSpace(c.Collection) == "" {
		return fmt.Errorf("collection must not be empty")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollMs) * time.Millisecond
}

// SlogLevel parses LogLevel (debug, info, warn, error).
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return lvl, nil
}
