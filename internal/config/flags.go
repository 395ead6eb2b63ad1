package config

import (
	"flag"
	"strings"
)

// parseFlags binds the global flags to fs and parses args. Only flags
// that were actually passed override earlier sources.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string) error {
	if fs == nil {
		fs = flag.NewFlagSet("kanban", flag.ContinueOnError)
	}

	backend := fs.String("backend", cfg.Backend, "Storage backend: memory, file, sqlite, redis")
	dataDir := fs.String("data-dir", cfg.DataDir, "Directory for the file backend")
	sqlitePath := fs.String("sqlite-path", cfg.SQLitePath, "Database path for the sqlite backend")
	redisAddr := fs.String("redis-addr", cfg.RedisAddr, "Address for the redis backend")
	redisPrefix := fs.String("redis-prefix", cfg.RedisPrefix, "Key prefix for the redis backend")
	storageKey := fs.String("storage-key", cfg.StorageKey, "Key the board is stored under")
	autoSave := fs.Bool("autosave", cfg.AutoSave, "Save after every change")
	logLevel := fs.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	logFormat := fs.String("log-format", cfg.LogFormat, "Log format: text, json, logfmt")
	logTimestamps := fs.Bool("log-timestamps", cfg.LogTimestamps, "Include timestamps in log output")
	logCaller := fs.Bool("log-caller", cfg.LogCaller, "Include caller location in log output")
	logDir := fs.String("log-dir", cfg.LogDir, "Directory for per-run log files (empty disables)")
	httpAddr := fs.String("http-addr", cfg.HTTPAddr, "Listen address for kanban serve")
	env := fs.String("env", cfg.Environment, "Environment name reported by the health endpoint")

	if err := fs.Parse(args); err != nil {
		return err
	}

	apply := map[string]func(){
		"backend":        func() { cfg.Backend = *backend },
		"data-dir":       func() { cfg.DataDir = *dataDir },
		"sqlite-path":    func() { cfg.SQLitePath = *sqlitePath },
		"redis-addr":     func() { cfg.RedisAddr = *redisAddr },
		"redis-prefix":   func() { cfg.RedisPrefix = *redisPrefix },
		"storage-key":    func() { cfg.StorageKey = *storageKey },
		"autosave":       func() { cfg.AutoSave = *autoSave },
		"log-level":      func() { cfg.LogLevel = *logLevel },
		"log-format":     func() { cfg.LogFormat = *logFormat },
		"log-timestamps": func() { cfg.LogTimestamps = *logTimestamps },
		"log-caller":     func() { cfg.LogCaller = *logCaller },
		"log-dir":        func() { cfg.LogDir = *logDir },
		"http-addr":      func() { cfg.HTTPAddr = *httpAddr },
		"env":            func() { cfg.Environment = *env },
	}
	fs.Visit(func(f *flag.Flag) {
		if fn, ok := apply[f.Name]; ok {
			fn()
			cfg.Sources[flagField(f.Name)] = SourceFlag
		}
	})
	return nil
}

// flagField maps a flag name to its toml key.
func flagField(name string) string {
	if name == "env" {
		return "environment"
	}
	return strings.ReplaceAll(name, "-", "_")
}
