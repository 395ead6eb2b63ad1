package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/nibzard/kanban-go/internal/kv"
)

// Loader resolves configuration relative to a working and home directory.
// The zero value uses the process working directory, home and environment.
type Loader struct {
	WorkDir string
	HomeDir string
	Getenv  func(string) string
}

// Load loads configuration with the default Loader.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	return Loader{}.Load(fs, args)
}

// Load applies defaults, the user file, the project file, the environment
// and finally the flags in args. Unparsed arguments remain in fs.Args().
func (l Loader) Load(fs *flag.FlagSet, args []string) (*Config, error) {
	l = l.withDefaults()
	cfg := &Config{ProjectRoot: l.WorkDir}
	setDefaults(cfg)

	if path := l.findUserConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path, SourceUserFile); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
	}

	if path := l.findProjectConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path, SourceProjFile); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
	}

	if err := loadFromEnv(cfg, l.Getenv); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := parseFlags(cfg, fs, args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if err := finalizeConfig(cfg, l.HomeDir); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}
	return cfg, nil
}

func (l Loader) withDefaults() Loader {
	if l.Getenv == nil {
		l.Getenv = os.Getenv
	}
	if l.WorkDir == "" {
		if wd, err := os.Getwd(); err == nil {
			l.WorkDir = wd
		}
	}
	if l.HomeDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			l.HomeDir = home
		}
	}
	return l
}

// loadConfigFile decodes path over cfg and marks every key it defines.
func loadConfigFile(cfg *Config, path string, source Source) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	for _, key := range Fields() {
		if md.IsDefined(key) {
			cfg.Sources[key] = source
		}
	}
	return nil
}

func (l Loader) findProjectConfigFile() string {
	for _, name := range []string{"kanban.toml", ".kanban.toml"} {
		path := filepath.Join(l.WorkDir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// findUserConfigFile checks ~/.kanban/kanban.toml first, then the OS config
// directory.
func (l Loader) findUserConfigFile() string {
	if l.HomeDir != "" {
		path := filepath.Join(l.HomeDir, ".kanban", "kanban.toml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	if dir := l.osUserConfigDir(); dir != "" {
		path := filepath.Join(dir, "kanban", "kanban.toml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (l Loader) osUserConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		return l.Getenv("APPDATA")
	case "darwin":
		if l.HomeDir != "" {
			return filepath.Join(l.HomeDir, "Library", "Application Support")
		}
	default:
		if xdg := l.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return xdg
		}
		if l.HomeDir != "" {
			return filepath.Join(l.HomeDir, ".config")
		}
	}
	return ""
}

// finalizeConfig validates enums and resolves relative paths against the
// project root.
func finalizeConfig(cfg *Config, home string) error {
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if !slices.Contains(kv.Backends(), cfg.Backend) {
		return fmt.Errorf("backend %q must be one of %s", cfg.Backend, strings.Join(kv.Backends(), ", "))
	}
	if cfg.StorageKey == "" {
		return fmt.Errorf("storage_key must not be empty")
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	switch cfg.LogFormat {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("log_format %q must be one of text, json, logfmt", cfg.LogFormat)
	}

	cfg.DataDir = resolvePath(cfg.ProjectRoot, home, cfg.DataDir)
	cfg.SQLitePath = resolvePath(cfg.ProjectRoot, home, cfg.SQLitePath)
	if cfg.LogDir != "" {
		cfg.LogDir = resolvePath(cfg.ProjectRoot, home, cfg.LogDir)
	}
	return nil
}

func resolvePath(root, home, p string) string {
	p = expandPath(p, home)
	if p == "" || filepath.IsAbs(p) || root == "" {
		return p
	}
	return filepath.Join(root, p)
}
