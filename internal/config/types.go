package config

import (
	"strconv"

	"github.com/nibzard/kanban-go/internal/kv"
)

// Source records where a configuration value came from.
type Source string

const (
	SourceDefault  Source = "default"
	SourceUserFile Source = "user file"
	SourceProjFile Source = "project file"
	SourceEnv      Source = "environment"
	SourceFlag     Source = "flag"
)

// Default values.
const (
	DefaultBackend     = kv.BackendFile
	DefaultDataDir     = ".kanban"
	DefaultSQLitePath  = ".kanban/kanban.db"
	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisPrefix = "kanban:"
	DefaultStorageKey  = "kanban_tasks"
	DefaultAutoSave    = true
	DefaultLogLevel    = "warn"
	DefaultLogFormat   = "text"
	DefaultHTTPAddr    = ":8080"
	DefaultEnvironment = "development"
)

// Config holds the full configuration for kanban.
type Config struct {
	// Storage
	Backend     string `toml:"backend"`
	DataDir     string `toml:"data_dir"`
	SQLitePath  string `toml:"sqlite_path"`
	RedisAddr   string `toml:"redis_addr"`
	RedisPrefix string `toml:"redis_prefix"`
	StorageKey  string `toml:"storage_key"`
	AutoSave    bool   `toml:"autosave"`

	// Logging
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`
	LogDir        string `toml:"log_dir"` // empty disables run log files

	// Server
	HTTPAddr    string `toml:"http_addr"`
	Environment string `toml:"environment"`

	// Computed
	ProjectRoot string `toml:"-"`
	ConfigFile  string `toml:"-"`

	// Sources maps each toml key to where its value came from.
	Sources map[string]Source `toml:"-"`
}

// Fields returns the configurable keys in display order.
func Fields() []string {
	return []string{
		"backend",
		"data_dir",
		"sqlite_path",
		"redis_addr",
		"redis_prefix",
		"storage_key",
		"autosave",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
		"log_dir",
		"http_addr",
		"environment",
	}
}

// KVOptions converts the storage settings for kv.Open.
func (c *Config) KVOptions() kv.Options {
	return kv.Options{
		Backend:     c.Backend,
		Dir:         c.DataDir,
		SQLitePath:  c.SQLitePath,
		RedisAddr:   c.RedisAddr,
		RedisPrefix: c.RedisPrefix,
	}
}

// Values returns every field keyed by its toml name, formatted for display.
func (c *Config) Values() map[string]string {
	return map[string]string{
		"backend":        c.Backend,
		"data_dir":       c.DataDir,
		"sqlite_path":    c.SQLitePath,
		"redis_addr":     c.RedisAddr,
		"redis_prefix":   c.RedisPrefix,
		"storage_key":    c.StorageKey,
		"autosave":       strconv.FormatBool(c.AutoSave),
		"log_level":      c.LogLevel,
		"log_format":     c.LogFormat,
		"log_timestamps": strconv.FormatBool(c.LogTimestamps),
		"log_caller":     strconv.FormatBool(c.LogCaller),
		"log_dir":        c.LogDir,
		"http_addr":      c.HTTPAddr,
		"environment":    c.Environment,
	}
}

// Source returns where key was set.
func (c *Config) Source(key string) Source {
	if s, ok := c.Sources[key]; ok {
		return s
	}
	return SourceDefault
}

func setDefaults(cfg *Config) {
	cfg.Backend = DefaultBackend
	cfg.DataDir = DefaultDataDir
	cfg.SQLitePath = DefaultSQLitePath
	cfg.RedisAddr = DefaultRedisAddr
	cfg.RedisPrefix = DefaultRedisPrefix
	cfg.StorageKey = DefaultStorageKey
	cfg.AutoSave = DefaultAutoSave
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
	cfg.HTTPAddr = DefaultHTTPAddr
	cfg.Environment = DefaultEnvironment
	cfg.Sources = make(map[string]Source)
	for _, key := range Fields() {
		cfg.Sources[key] = SourceDefault
	}
}
