package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# kanban configuration file
# Values can be overridden by KANBAN_* environment variables or CLI flags.

# Storage backend: memory, file, sqlite, redis
backend = "file"

# File backend directory (relative to the working directory, ~ expanded)
data_dir = ".kanban"

# SQLite database path
sqlite_path = ".kanban/kanban.db"

# Redis connection
redis_addr = "localhost:6379"
redis_prefix = "kanban:"

# Key the board is stored under
storage_key = "kanban_tasks"

# Save after every change
autosave = true

# Logging: debug, info, warn, error / text, json, logfmt
log_level = "warn"
log_format = "text"
log_timestamps = false
log_caller = false

# Per-run log files (empty disables)
# log_dir = "~/.kanban/logs"

# kanban serve
http_addr = ":8080"
environment = "development"
`
}
