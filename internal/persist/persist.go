// Package persist mirrors a task store into a key-value backend and
// restores it at startup. Persistence is best effort: failures are logged
// and counted, never returned to the caller.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/kanban-go/internal/kv"
	"github.com/nibzard/kanban-go/internal/logging"
	"github.com/nibzard/kanban-go/internal/metrics"
	"github.com/nibzard/kanban-go/internal/store"
	"github.com/nibzard/kanban-go/internal/task"
)

// DefaultKey is the storage key the board is kept under.
const DefaultKey = "kanban_tasks"

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 5 * time.Second

// Error is a failed save or load.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(a *Adapter) {
		if key != "" {
			a.key = key
		}
	}
}

// WithLogger sets where failures are reported.
func WithLogger(logger *log.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics counts saves and loads on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(a *Adapter) {
		a.metrics = r
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// Adapter connects a store to a backend.
type Adapter struct {
	store   *store.Store
	backend kv.Store
	key     string
	timeout time.Duration
	logger  *log.Logger
	metrics *metrics.Recorder

	mu          sync.Mutex
	unsubscribe func()
	lastErr     error
}

// New creates an adapter. Nothing is read or written until Load or Save.
func New(s *store.Store, backend kv.Store, opts ...Option) *Adapter {
	a := &Adapter{
		store:   s,
		backend: backend,
		key:     DefaultKey,
		timeout: DefaultTimeout,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Key returns the storage key.
func (a *Adapter) Key() string {
	return a.key
}

// Save writes the store's current tasks.
func (a *Adapter) Save(ctx context.Context) {
	a.save(ctx, a.store.Tasks())
}

func (a *Adapter) save(ctx context.Context, tasks []task.Task) {
	data, err := Encode(tasks)
	if err == nil {
		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		err = a.backend.Set(ctx, a.key, data)
		cancel()
	}
	if err != nil {
		a.fail("save", err)
		return
	}
	a.setLastErr(nil)
	a.metrics.ObservePersistence("save", metrics.ResultOK)
	a.logger.Debug("tasks saved", "key", a.key, "count", len(tasks), "bytes", len(data))
}

// Load replaces the store's contents with the persisted tasks and reports
// whether any were restored. A missing, unreadable or invalid blob leaves
// the store empty.
func (a *Adapter) Load(ctx context.Context) bool {
	rctx, cancel := context.WithTimeout(ctx, a.timeout)
	data, err := a.backend.Get(rctx, a.key)
	cancel()
	if errors.Is(err, kv.ErrNotFound) {
		a.logger.Debug("no saved tasks", "key", a.key)
		a.metrics.ObservePersistence("load", metrics.ResultMissing)
		a.reset()
		return false
	}
	if err != nil {
		a.fail("load", err)
		a.reset()
		return false
	}

	tasks, err := Decode(data)
	if err == nil {
		err = a.store.Replace(tasks)
	}
	if err != nil {
		a.fail("load", err)
		a.reset()
		return false
	}

	a.setLastErr(nil)
	a.metrics.ObservePersistence("load", metrics.ResultOK)
	a.logger.Debug("tasks loaded", "key", a.key, "count", len(tasks))
	return true
}

// EnableAutoSave saves after every store change. Calling it again while
// enabled does nothing.
func (a *Adapter) EnableAutoSave() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.unsubscribe != nil {
		return
	}
	// The first delivery is the state the store already holds.
	initial := true
	a.unsubscribe = a.store.Subscribe(func(snap store.Snapshot) {
		if initial {
			initial = false
			return
		}
		a.save(context.Background(), snap.Tasks())
	})
	a.logger.Debug("auto-save enabled", "key", a.key)
}

// DisableAutoSave stops saving on change.
func (a *Adapter) DisableAutoSave() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.unsubscribe == nil {
		return
	}
	a.unsubscribe()
	a.unsubscribe = nil
	a.logger.Debug("auto-save disabled", "key", a.key)
}

// AutoSave reports whether auto-save is enabled.
func (a *Adapter) AutoSave() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.unsubscribe != nil
}

// LastError returns the most recent failure, or nil if the last operation
// succeeded. Callers that want to report persistence problems (the CLI does)
// read it after a command; it is never returned from Save or Load.
func (a *Adapter) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

func (a *Adapter) fail(op string, err error) {
	perr := &Error{Op: op, Key: a.key, Err: err}
	a.setLastErr(perr)
	a.metrics.ObservePersistence(op, metrics.ResultError)
	a.logger.Warn("persistence failed", "op", op, "key", a.key, "err", err)
}

func (a *Adapter) setLastErr(err error) {
	a.mu.Lock()
	a.lastErr = err
	a.mu.Unlock()
}

func (a *Adapter) reset() {
	if err := a.store.Replace(nil); err != nil {
		a.logger.Error("reset store", "err", err)
	}
}
