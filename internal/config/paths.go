package config

import (
	"os"
	"path/filepath"
	"strings"
)

// expandPath expands environment variables and a leading ~ in p.
func expandPath(p, home string) string {
	if p == "" {
		return p
	}
	expanded := os.ExpandEnv(p)
	if home == "" {
		return expanded
	}
	if expanded == "~" {
		return home
	}
	if strings.HasPrefix(expanded, "~/") || strings.HasPrefix(expanded, `~\`) {
		return filepath.Join(home, expanded[2:])
	}
	return expanded
}
