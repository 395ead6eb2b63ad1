package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/nibzard/kanban-go/internal/metrics"
	"github.com/nibzard/kanban-go/internal/store"
	"github.com/nibzard/kanban-go/internal/task"
)

func fixedNow(ts ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := ts[i]
		if i < len(ts)-1 {
			i++
		}
		return t
	}
}

func TestHealth(t *testing.T) {
	start := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	s := New(Options{
		Version:     "1.2.3",
		Environment: "test",
		Now:         fixedNow(start, start.Add(90*time.Second+400*time.Millisecond)),
		Probe: func() (Memory, error) {
			return Memory{Used: 50 * 1024 * 1024, Total: 200 * 1024 * 1024}, nil
		},
	})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/health", nil), -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Cache-Control"); got != "no-cache, no-store, must-revalidate" {
		t.Errorf("Cache-Control: got %q", got)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type: got %q", ct)
	}

	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	want := HealthResponse{
		Status:      "healthy",
		Timestamp:   "2025-08-01T09:01:30.400Z",
		Uptime:      90,
		Memory:      MemoryReport{Used: 50, Total: 200, Usage: 25},
		Version:     "1.2.3",
		Environment: "test",
	}
	if body != want {
		t.Errorf("body:\ngot  %+v\nwant %+v", body, want)
	}
}

func TestHealthUnhealthy(t *testing.T) {
	s := New(Options{Probe: func() (Memory, error) { return Memory{}, errors.New("probe failed") }})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/health", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 503 {
		t.Fatalf("status: got %d, want 503", resp.StatusCode)
	}
	if got := resp.Header.Get("Cache-Control"); got != "no-cache, no-store, must-revalidate" {
		t.Errorf("Cache-Control: got %q", got)
	}
	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "unhealthy" || body.Memory != (MemoryReport{}) {
		t.Errorf("body: %+v", body)
	}
	if body.Version != "0.0.1" || body.Environment != "development" {
		t.Errorf("defaults: version %q environment %q", body.Version, body.Environment)
	}
}

func TestHealthRuntimeProbe(t *testing.T) {
	s := New(Options{})
	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/health", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`).MatchString(body.Timestamp) {
		t.Errorf("timestamp format: %q", body.Timestamp)
	}
	if body.Memory.Total <= 0 {
		t.Errorf("memory total: %d", body.Memory.Total)
	}
	if body.Memory.Usage < 0 || body.Memory.Usage > 100 {
		t.Errorf("memory usage out of range: %d", body.Memory.Usage)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := metrics.New()
	r.ObserveMutation("add", metrics.ResultOK)
	s := New(Options{Metrics: r})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `kanban_mutations_total{op="add",result="ok"} 1`) {
		t.Errorf("metrics body missing counter:\n%s", body)
	}
}

func boardStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New()
	for _, in := range []task.CreateInput{
		{Title: "a", Status: task.StatusTodo, Priority: task.PriorityHigh},
		{Title: "b", Status: task.StatusDone, Priority: task.PriorityLow},
		{Title: "c", Status: task.StatusTodo, Priority: task.PriorityLow},
	} {
		if _, err := s.AddTask(in); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestListTasks(t *testing.T) {
	s := New(Options{Store: boardStore(t)})

	tests := []struct {
		url    string
		status int
		titles []string
	}{
		{"/api/tasks", 200, []string{"a", "b", "c"}},
		{"/api/tasks?status=todo", 200, []string{"a", "c"}},
		{"/api/tasks?status=todo&offset=1", 200, []string{"c"}},
		{"/api/tasks?priority=low&limit=1", 200, []string{"b"}},
		{"/api/tasks?limit=0", 400, nil},
		{"/api/tasks?limit=many", 400, nil},
		{"/api/tasks?status=later", 400, nil},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			resp, err := s.App().Test(httptest.NewRequest("GET", tt.url, nil), -1)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("status: got %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.status != 200 {
				var body struct {
					Issues []task.FieldError `json:"issues"`
				}
				if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
					t.Fatal(err)
				}
				if len(body.Issues) == 0 {
					t.Error("expected validation issues in body")
				}
				return
			}
			var tasks []struct {
				Title string `json:"title"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
				t.Fatal(err)
			}
			var titles []string
			for _, tk := range tasks {
				titles = append(titles, tk.Title)
			}
			if strings.Join(titles, ",") != strings.Join(tt.titles, ",") {
				t.Errorf("titles: got %v, want %v", titles, tt.titles)
			}
		})
	}
}

func TestGetTask(t *testing.T) {
	st := boardStore(t)
	s := New(Options{Store: st})
	want := st.Tasks()[1]

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/tasks/"+want.ID, nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	got, err := task.ParseTask(data)
	if err != nil {
		t.Fatalf("ParseTask() error = %v (body %s)", err, data)
	}
	if got.ID != want.ID || !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("got %+v, want %+v", got, want)
	}

	resp, err = s.App().Test(httptest.NewRequest("GET", "/api/tasks/missing", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("missing task status: got %d, want 404", resp.StatusCode)
	}
}

func TestTaskRoutesNeedStore(t *testing.T) {
	s := New(Options{})
	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/tasks", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}
