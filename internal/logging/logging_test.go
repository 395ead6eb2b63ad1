package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"INFO", log.InfoLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"fatal", log.FatalLevel},
		{"", log.WarnLevel},
		{"loud", log.WarnLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormatter(t *testing.T) {
	tests := []struct {
		in   string
		want log.Formatter
	}{
		{"json", log.JSONFormatter},
		{"logfmt", log.LogfmtFormatter},
		{"text", log.TextFormatter},
		{"", log.TextFormatter},
	}
	for _, tt := range tests {
		if got := ParseFormatter(tt.in); got != tt.want {
			t.Errorf("ParseFormatter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromConfigRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := FromConfig(&buf, "warn", "text", false, false)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "key=value") {
		t.Errorf("warn line missing, got %q", out)
	}
}

func TestDiscard(t *testing.T) {
	// Must not panic or write anywhere.
	Discard().Error("ignored")
}

func TestOpenRunLog(t *testing.T) {
	base := t.TempDir()
	work := t.TempDir()

	rl, err := OpenRunLog(base, work)
	if err != nil {
		t.Fatalf("OpenRunLog() error = %v", err)
	}
	defer rl.Close()

	if _, err := os.Stat(rl.Path); err != nil {
		t.Fatalf("run log not created: %v", err)
	}
	if !strings.HasPrefix(rl.Path, base) {
		t.Errorf("Path %s not under base %s", rl.Path, base)
	}
	if filepath.Ext(rl.Path) != ".log" {
		t.Errorf("unexpected extension: %s", rl.Path)
	}

	logger := New(rl.Writer(), Options{Level: log.InfoLevel})
	logger.Info("hello")
	data, err := os.ReadFile(rl.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log file content: %q", data)
	}
}

func TestOpenRunLogEmptyBase(t *testing.T) {
	if _, err := OpenRunLog("", t.TempDir()); err == nil {
		t.Fatal("expected error for empty base dir")
	}
}

func TestLatestRunLog(t *testing.T) {
	dir := t.TempDir()

	got, err := LatestRunLog(filepath.Join(dir, "missing"))
	if err != nil || got != "" {
		t.Fatalf("missing dir: got (%q, %v)", got, err)
	}

	older := filepath.Join(dir, "a.log")
	newer := filepath.Join(dir, "b.log")
	for _, p := range []string{older, newer, filepath.Join(dir, "c.txt")} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}

	got, err = LatestRunLog(dir)
	if err != nil {
		t.Fatalf("LatestRunLog() error = %v", err)
	}
	if got != newer {
		t.Errorf("LatestRunLog() = %s, want %s", got, newer)
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"my-project": "my-project",
		"My Project": "My_Project",
		"a//b":       "a_b",
		"":           "project",
		"***":        "project",
	}
	for in, want := range tests {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
