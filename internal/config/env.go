package config

import (
	"fmt"
	"strconv"
)

type envBinding struct {
	name  string
	field string
	str   *string
	flag  *bool
}

func envBindings(cfg *Config) []envBinding {
	return []envBinding{
		{name: "KANBAN_BACKEND", field: "backend", str: &cfg.Backend},
		{name: "KANBAN_DATA_DIR", field: "data_dir", str: &cfg.DataDir},
		{name: "KANBAN_SQLITE_PATH", field: "sqlite_path", str: &cfg.SQLitePath},
		{name: "KANBAN_REDIS_ADDR", field: "redis_addr", str: &cfg.RedisAddr},
		{name: "KANBAN_REDIS_PREFIX", field: "redis_prefix", str: &cfg.RedisPrefix},
		{name: "KANBAN_STORAGE_KEY", field: "storage_key", str: &cfg.StorageKey},
		{name: "KANBAN_AUTOSAVE", field: "autosave", flag: &cfg.AutoSave},
		{name: "KANBAN_LOG_LEVEL", field: "log_level", str: &cfg.LogLevel},
		{name: "KANBAN_LOG_FORMAT", field: "log_format", str: &cfg.LogFormat},
		{name: "KANBAN_LOG_TIMESTAMPS", field: "log_timestamps", flag: &cfg.LogTimestamps},
		{name: "KANBAN_LOG_CALLER", field: "log_caller", flag: &cfg.LogCaller},
		{name: "KANBAN_LOG_DIR", field: "log_dir", str: &cfg.LogDir},
		{name: "KANBAN_HTTP_ADDR", field: "http_addr", str: &cfg.HTTPAddr},
		{name: "KANBAN_ENV", field: "environment", str: &cfg.Environment},
	}
}

// loadFromEnv overrides config from KANBAN_* environment variables.
func loadFromEnv(cfg *Config, getenv func(string) string) error {
	for _, b := range envBindings(cfg) {
		v := getenv(b.name)
		if v == "" {
			continue
		}
		if b.flag != nil {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", b.name, err)
			}
			*b.flag = parsed
		} else {
			*b.str = v
		}
		cfg.Sources[b.field] = SourceEnv
	}
	return nil
}
