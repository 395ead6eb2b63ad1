package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nibzard/kanban-go/internal/config"
	"github.com/nibzard/kanban-go/internal/persist"
	"github.com/nibzard/kanban-go/internal/store"
	"github.com/nibzard/kanban-go/internal/task"
)

type harness struct {
	t      *testing.T
	root   string
	out    bytes.Buffer
	errOut bytes.Buffer
	env    map[string]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{t: t, root: t.TempDir(), env: map[string]string{}}
}

// run executes one CLI invocation and returns its stdout.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	h.out.Reset()
	h.errOut.Reset()
	c := &cli{
		out:    &h.out,
		errOut: &h.errOut,
		loader: config.Loader{
			WorkDir: h.root,
			HomeDir: filepath.Join(h.root, "home"),
			Getenv:  func(k string) string { return h.env[k] },
		},
	}
	err := c.run(context.Background(), args)
	return h.out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("kanban %s: %v\nstderr: %s", strings.Join(args, " "), err, h.errOut.String())
	}
	return out
}

// saved decodes the blob the file backend wrote.
func (h *harness) saved() []task.Task {
	h.t.Helper()
	data, err := os.ReadFile(filepath.Join(h.root, ".kanban", "kanban_tasks.json"))
	if err != nil {
		h.t.Fatalf("reading saved board: %v", err)
	}
	tasks, err := persist.Decode(data)
	if err != nil {
		h.t.Fatalf("saved board does not decode: %v", err)
	}
	return tasks
}

func TestHelpAndVersion(t *testing.T) {
	h := newHarness(t)
	for _, args := range [][]string{{"--help"}, {"-h"}, {"help"}} {
		out := h.mustRun(args...)
		if !strings.Contains(out, "Commands:") {
			t.Errorf("%v: usage missing, got %q", args, out)
		}
	}
	for _, args := range [][]string{{"--version"}, {"-v"}, {"version"}} {
		out := h.mustRun(args...)
		if !strings.HasPrefix(out, "kanban version ") {
			t.Errorf("%v: got %q", args, out)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("frobnicate")
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestAddPersistsAndLists(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("add", "-p", "high", "-due", "2025-08-20", "Write", "the", "docs")
	if !strings.HasPrefix(out, "Added ") || !strings.Contains(out, `"Write the docs"`) {
		t.Errorf("add output = %q", out)
	}

	tasks := h.saved()
	if len(tasks) != 1 {
		t.Fatalf("saved %d tasks, want 1", len(tasks))
	}
	got := tasks[0]
	if got.Title != "Write the docs" || got.Priority != task.PriorityHigh || got.Status != task.StatusTodo {
		t.Errorf("saved task = %+v", got)
	}
	if got.DueDate == nil || task.FormatDate(*got.DueDate) != "2025-08-20T00:00:00.000Z" {
		t.Errorf("due date = %v", got.DueDate)
	}

	out = h.mustRun("ls")
	for _, want := range []string{"To Do (1)", "In Progress (0)", "Done (0)", "Write the docs", "(due 2025-08-20)"} {
		if !strings.Contains(out, want) {
			t.Errorf("ls output missing %q:\n%s", want, out)
		}
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"empty title", []string{"add"}, task.MsgTitleRequired},
		{"long title", []string{"add", strings.Repeat("x", 101)}, task.MsgTitleTooLong},
		{"bad status", []string{"add", "-status", "blocked", "Title"}, "status"},
		{"bad priority", []string{"add", "-priority", "urgent", "Title"}, "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.run(tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			var ve *task.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
			if _, err := os.Stat(filepath.Join(h.root, ".kanban", "kanban_tasks.json")); err == nil {
				t.Error("invalid add should not write the board")
			}
		})
	}
}

func TestAddBadDueDateIsUsageError(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("add", "-due", "next week", "Title")
	if !IsUsageError(err) {
		t.Errorf("expected usage error, got %v", err)
	}
}

func TestMoveUpdateAndRemove(t *testing.T) {
	h := newHarness(t)
	h.mustRun("add", "Ship release")
	id := h.saved()[0].ID

	out := h.mustRun("move", id[:8], "doing")
	if !strings.Contains(out, "In Progress") {
		t.Errorf("move output = %q", out)
	}
	if got := h.saved()[0].Status; got != task.StatusInProgress {
		t.Errorf("status = %s, want in-progress", got)
	}

	h.mustRun("update", id, "-title", "Ship 1.0", "-priority", "low", "-due", "2025-09-01", "-prompt", "plan it")
	got := h.saved()[0]
	if got.Title != "Ship 1.0" || got.Priority != task.PriorityLow || got.DueDate == nil || got.OriginalPrompt == nil {
		t.Errorf("after update = %+v", got)
	}
	if got.Status != task.StatusInProgress {
		t.Errorf("update changed an untouched field: status = %s", got.Status)
	}

	h.mustRun("update", id, "-due", "none", "-prompt", "none")
	got = h.saved()[0]
	if got.DueDate != nil || got.OriginalPrompt != nil {
		t.Errorf("nullable fields not cleared: %+v", got)
	}

	h.mustRun("rm", id)
	if n := len(h.saved()); n != 0 {
		t.Errorf("saved %d tasks after rm, want 0", n)
	}
}

func TestUnknownIDIsNotFound(t *testing.T) {
	h := newHarness(t)
	missing := "00000000-0000-4000-8000-000000000000"
	for _, args := range [][]string{
		{"rm", missing},
		{"move", missing, "done"},
		{"update", missing, "-title", "x"},
		{"show", missing},
	} {
		_, err := h.run(args...)
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("%v: expected ErrNotFound, got %v", args, err)
		}
	}
}

func TestUpdateWithoutFields(t *testing.T) {
	h := newHarness(t)
	h.mustRun("add", "Something")
	_, err := h.run("update", h.saved()[0].ID)
	if !IsUsageError(err) {
		t.Errorf("expected usage error, got %v", err)
	}
}

// resolveIDIn runs resolveID against a store holding tasks.
func resolveIDIn(tasks []task.Task, arg string) (string, error) {
	s := store.New()
	if err := s.Replace(tasks); err != nil {
		return "", err
	}
	return resolveID(s, arg)
}

func TestResolveID(t *testing.T) {
	tasks := []task.Task{
		sampleTask("aaaa1111-0000-4000-8000-000000000001"),
		sampleTask("aaaa2222-0000-4000-8000-000000000002"),
	}
	tests := []struct {
		arg     string
		want    string
		wantErr bool
	}{
		{"aaaa1111-0000-4000-8000-000000000001", "aaaa1111-0000-4000-8000-000000000001", false},
		{"aaaa1", "aaaa1111-0000-4000-8000-000000000001", false},
		{"aaaa", "", true},
		{"aa", "aa", false},
		{"bbbb", "bbbb", false},
	}
	for _, tt := range tests {
		got, err := resolveIDIn(tasks, tt.arg)
		if (err != nil) != tt.wantErr {
			t.Errorf("resolveID(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("resolveID(%q) = %q, want %q", tt.arg, got, tt.want)
		}
	}
}

func sampleTask(id string) task.Task {
	in := task.CreateInput{Title: "Task " + id[:4], Status: task.StatusTodo, Priority: task.PriorityLow}
	return in.Build(id, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestLsFilters(t *testing.T) {
	h := newHarness(t)
	h.mustRun("seed")

	out := h.mustRun("ls", "-status", "done")
	if strings.Contains(out, "To Do") {
		t.Errorf("filtered ls should not group by column:\n%s", out)
	}
	var want int
	for _, in := range task.SampleInputs() {
		if in.Status == task.StatusDone {
			want++
		}
	}
	if got := strings.Count(out, "\n"); got != want {
		t.Errorf("ls -status done printed %d lines, want %d:\n%s", got, want, out)
	}

	out = h.mustRun("ls", "-limit", "1", "todo")
	if got := strings.Count(out, "\n"); got != 1 {
		t.Errorf("ls -limit 1 printed %d lines:\n%s", got, out)
	}
}

func TestLsRejectsInvalidQuery(t *testing.T) {
	tests := [][]string{
		{"ls", "-limit", "0"},
		{"ls", "-limit", "101"},
		{"ls", "-offset", "-1"},
		{"ls", "-status", "blocked"},
		{"ls", "-priority", "urgent"},
	}
	for _, args := range tests {
		h := newHarness(t)
		_, err := h.run(args...)
		var ve *task.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%v: expected ValidationError, got %v", args, err)
		}
	}
}

func TestSeed(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("seed")
	n := len(task.SampleInputs())
	if len(h.saved()) != n {
		t.Fatalf("seeded %d tasks, want %d (%s)", len(h.saved()), n, out)
	}

	if _, err := h.run("seed"); err == nil {
		t.Error("seeding a non-empty board should fail without -force")
	}
	h.mustRun("seed", "-force")
	if len(h.saved()) != n {
		t.Errorf("seed -force left %d tasks, want %d", len(h.saved()), n)
	}
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	h.mustRun("seed")
	n := len(task.SampleInputs())

	out := h.mustRun("export")
	tasks, err := persist.Decode([]byte(out))
	if err != nil {
		t.Fatalf("exported JSON does not decode: %v", err)
	}
	if len(tasks) != n {
		t.Errorf("exported %d tasks, want %d", len(tasks), n)
	}
	if !strings.Contains(out, "\n  {") {
		t.Errorf("JSON export should be indented:\n%s", out)
	}

	out = h.mustRun("export", "-compact")
	if strings.Count(out, "\n") != 1 {
		t.Errorf("compact export should be one line")
	}

	out = h.mustRun("export", "-format", "yaml")
	var records []map[string]any
	if err := yaml.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("exported YAML does not parse: %v", err)
	}
	if len(records) != n {
		t.Errorf("yaml has %d records, want %d", len(records), n)
	}
	if records[0]["title"] != tasks[0].Title {
		t.Errorf("yaml title = %v, want %q", records[0]["title"], tasks[0].Title)
	}

	path := filepath.Join(h.root, "out.json")
	h.mustRun("export", "-o", path)
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export -o did not write file: %v", err)
	}

	if _, err := h.run("export", "-format", "csv"); !IsUsageError(err) {
		t.Errorf("expected usage error for csv, got %v", err)
	}
}

func TestShow(t *testing.T) {
	h := newHarness(t)
	h.mustRun("add", "-d", "Longer text", "-ai", "-prompt", "make a task", "Review PR")
	id := h.saved()[0].ID

	out := h.mustRun("show", id[:6])
	for _, want := range []string{id, "Review PR", "To Do", "medium", "AI generated: yes", "make a task", "Longer text"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	out = h.mustRun("show", "-json", id)
	if _, err := persist.Decode([]byte(out)); err != nil {
		t.Errorf("show -json does not decode: %v", err)
	}
}

func TestAutoSaveDisabledStillCommits(t *testing.T) {
	h := newHarness(t)
	h.env["KANBAN_AUTOSAVE"] = "false"
	h.mustRun("add", "Persist me")
	if n := len(h.saved()); n != 1 {
		t.Errorf("saved %d tasks, want 1", n)
	}
}

func TestMemoryBackendForgets(t *testing.T) {
	h := newHarness(t)
	h.mustRun("-backend", "memory", "add", "Ephemeral")
	out := h.mustRun("-backend", "memory", "ls")
	if strings.Contains(out, "Ephemeral") {
		t.Errorf("memory backend should not survive the process:\n%s", out)
	}
}

func TestSQLiteBackend(t *testing.T) {
	h := newHarness(t)
	h.mustRun("-backend", "sqlite", "add", "Stored in sqlite")
	out := h.mustRun("-backend", "sqlite", "ls")
	if !strings.Contains(out, "Stored in sqlite") {
		t.Errorf("sqlite backend lost the task:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(h.root, ".kanban", "kanban.db")); err != nil {
		t.Errorf("sqlite database not created: %v", err)
	}
}

func TestCorruptBoardStartsEmpty(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.root, ".kanban", "kanban_tasks.json")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	out := h.mustRun("ls")
	if !strings.Contains(out, "To Do (0)") {
		t.Errorf("ls output = %q", out)
	}
	if !strings.Contains(h.errOut.String(), "persistence failed") {
		t.Errorf("expected a warning, stderr = %q", h.errOut.String())
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "{not json" {
		t.Errorf("read-only command rewrote the corrupt board: %q", data)
	}
}

func TestRunLogWritten(t *testing.T) {
	h := newHarness(t)
	h.mustRun("-log-dir", "logs", "-log-level", "debug", "add", "Logged")
	dirs, err := os.ReadDir(filepath.Join(h.root, "logs"))
	if err != nil || len(dirs) != 1 {
		t.Fatalf("expected one project log dir, got %v (%v)", dirs, err)
	}
	files, err := os.ReadDir(filepath.Join(h.root, "logs", dirs[0].Name()))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one run log, got %v (%v)", files, err)
	}
	data, err := os.ReadFile(filepath.Join(h.root, "logs", dirs[0].Name(), files[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "task added") {
		t.Errorf("run log missing debug line:\n%s", data)
	}
}

func TestConfigCommand(t *testing.T) {
	h := newHarness(t)
	h.env["KANBAN_LOG_LEVEL"] = "info"
	out := h.mustRun("-backend", "sqlite", "config")
	for _, want := range []string{"# no config file found", "backend", "sqlite", "# flag", "# environment", "# default"} {
		if !strings.Contains(out, want) {
			t.Errorf("config output missing %q:\n%s", want, out)
		}
	}

	out = h.mustRun("config", "-example")
	if !strings.Contains(out, "backend") {
		t.Errorf("example config = %q", out)
	}
}

func TestBoardNeedsTTY(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run("board"); err == nil {
		t.Error("board should refuse to run without a terminal")
	}
}
