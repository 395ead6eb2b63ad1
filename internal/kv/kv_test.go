package kv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/redis/go-redis/v9"
)

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) Store { return NewMemory(0) }},
		{"file", func(t *testing.T) Store {
			f, err := NewFile(t.TempDir())
			if err != nil {
				t.Fatalf("NewFile() error = %v", err)
			}
			return f
		}},
		{"sqlite", func(t *testing.T) Store {
			s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "kanban.db"))
			if err != nil {
				t.Fatalf("OpenSQLite() error = %v", err)
			}
			return s
		}},
		{"redis", openTestRedis},
	}
}

func openTestRedis(t *testing.T) Store {
	t.Helper()
	addr := os.Getenv("KANBAN_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available at %s: %v", addr, err)
	}
	prefix := "kanban-test:" + strings.ReplaceAll(t.Name(), "/", ":") + ":"
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
	})
	return NewRedis(client, prefix)
}

func TestBackendContract(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			ctx := context.Background()

			if _, err := s.Get(ctx, "kanban_tasks"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
			}

			if err := s.Set(ctx, "kanban_tasks", []byte(`[]`)); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := s.Set(ctx, "kanban_tasks", []byte(`[{"id":"a"}]`)); err != nil {
				t.Fatalf("Set() overwrite error = %v", err)
			}
			got, err := s.Get(ctx, "kanban_tasks")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !strings.Contains(string(got), `"id"`) || !strings.Contains(string(got), `"a"`) {
				t.Errorf("Get() = %s, want the overwritten value", got)
			}

			if err := s.Delete(ctx, "kanban_tasks"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if err := s.Delete(ctx, "kanban_tasks"); err != nil {
				t.Fatalf("Delete() twice error = %v", err)
			}
			if _, err := s.Get(ctx, "kanban_tasks"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestBackendKeysAreIndependent(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			ctx := context.Background()

			if err := s.Set(ctx, "a", []byte("1")); err != nil {
				t.Fatal(err)
			}
			if err := s.Set(ctx, "b/c", []byte("2")); err != nil {
				t.Fatal(err)
			}
			got, err := s.Get(ctx, "a")
			if err != nil {
				t.Fatal(err)
			}
			if strings.TrimSpace(string(got)) != "1" {
				t.Errorf("Get(a) = %q, want 1", got)
			}
		})
	}
}

func TestMemoryQuota(t *testing.T) {
	m := NewMemory(20)
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("0123456789")); err != nil {
		t.Fatalf("Set() within quota error = %v", err)
	}
	err := m.Set(ctx, "k", []byte("0123456789012345678901234"))
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Set() over quota error = %v, want ErrQuotaExceeded", err)
	}
	got, _ := m.Get(ctx, "k")
	if string(got) != "0123456789" {
		t.Errorf("failed Set replaced value: %q", got)
	}
	if m.Used() != 11 {
		t.Errorf("Used() = %d, want 11", m.Used())
	}

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if m.Used() != 0 {
		t.Errorf("Used() after delete = %d, want 0", m.Used())
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	value := []byte("abc")
	if err := m.Set(ctx, "k", value); err != nil {
		t.Fatal(err)
	}
	value[0] = 'x'
	got, _ := m.Get(ctx, "k")
	got[1] = 'y'
	again, _ := m.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value aliased caller memory: %q", again)
	}
}

func TestMemoryCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewMemory(0).Set(ctx, "k", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Set() error = %v, want context.Canceled", err)
	}
}

func TestFileFormatting(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Set(context.Background(), "kanban_tasks", []byte(`[{"id":"x"}]`)); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "kanban_tasks.json"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	want := "[\n  {\n    \"id\": \"x\"\n  }\n]\n"
	if string(data) != want {
		t.Errorf("file content:\ngot  %q\nwant %q", data, want)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestFileEscapesKeys(t *testing.T) {
	f, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	p := f.Path("../escape")
	if filepath.Dir(p) != f.dir {
		t.Errorf("Path() left data dir: %s", p)
	}
}

func TestSQLitePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "kanban.db")
	ctx := context.Background()

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "kanban_tasks", []byte("[]")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get(ctx, "kanban_tasks")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if string(got) != "[]" {
		t.Errorf("Get() = %q, want []", got)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		opts    Options
		want    string
		wantErr bool
	}{
		{opts: Options{Backend: "memory"}, want: "*kv.Memory"},
		{opts: Options{Backend: "", Dir: dir}, want: "*kv.File"},
		{opts: Options{Backend: "FILE", Dir: dir}, want: "*kv.File"},
		{opts: Options{Backend: "sqlite", SQLitePath: filepath.Join(dir, "k.db")}, want: "*kv.SQLite"},
		{opts: Options{Backend: "file"}, wantErr: true},
		{opts: Options{Backend: "etcd"}, wantErr: true},
	}

	for _, tt := range tests {
		s, err := Open(ctx, tt.opts)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Open(%+v) expected error", tt.opts)
			}
			continue
		}
		if err != nil {
			t.Errorf("Open(%+v) error = %v", tt.opts, err)
			continue
		}
		if got := typeName(s); got != tt.want {
			t.Errorf("Open(%+v) = %s, want %s", tt.opts, got, tt.want)
		}
		s.Close()
	}
}

func typeName(s Store) string {
	switch s.(type) {
	case *Memory:
		return "*kv.Memory"
	case *File:
		return "*kv.File"
	case *SQLite:
		return "*kv.SQLite"
	case *Redis:
		return "*kv.Redis"
	}
	return "unknown"
}
