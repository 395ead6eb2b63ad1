// Package store holds the authoritative task collection and publishes a
// snapshot to subscribers after every change.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/nibzard/kanban-go/internal/logging"
	"github.com/nibzard/kanban-go/internal/metrics"
	"github.com/nibzard/kanban-go/internal/task"
)

var (
	// ErrNotFound is returned by UpdateTask and DeleteTask for unknown ids
	// when the store was created WithStrictIDs.
	ErrNotFound = errors.New("task not found")
	// ErrDuplicateID is returned by Replace when two tasks share an id.
	ErrDuplicateID = errors.New("duplicate task id")
	// ErrIDExhausted is returned by AddTask when the id generator keeps
	// producing ids that are already on the board.
	ErrIDExhausted = errors.New("no unused task id")
)

// maxIDAttempts bounds how often AddTask asks the generator for a fresh id.
const maxIDAttempts = 16

// Clock returns the current time.
type Clock func() time.Time

// IDGenerator returns a fresh task id.
type IDGenerator func() string

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source. Values are normalized to UTC
// milliseconds before use.
func WithClock(clock Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator overrides the id source.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets the logger used for debug tracing of operations.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records operations on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Store) {
		s.metrics = r
	}
}

// WithStrictIDs makes UpdateTask and DeleteTask return ErrNotFound for ids
// that are not on the board instead of silently doing nothing.
func WithStrictIDs() Option {
	return func(s *Store) {
		s.strict = true
	}
}

// Store is the task collection. The zero value is not usable; call New.
type Store struct {
	// mu guards every field below up to clock.
	mu sync.Mutex

	tasks   []task.Task
	version uint64
	subs    map[int]func(Snapshot)
	nextSub int

	// pending holds deliveries in publish order. Whichever goroutine finds
	// delivering unset drains it; everyone else only appends.
	pending    []delivery
	delivering bool

	clock   Clock
	newID   IDGenerator
	logger  *log.Logger
	metrics *metrics.Recorder
	strict  bool
}

// New returns an initialized, empty store.
func New(opts ...Option) *Store {
	s := &Store{
		clock:  time.Now,
		newID:  uuid.NewString,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tasks = []task.Task{}
	s.subs = make(map[int]func(Snapshot))
	return s
}

// Init resets the store to an empty collection and publishes it.
// A disposed store becomes usable again.
func (s *Store) Init() {
	s.mu.Lock()
	if s.subs == nil {
		s.subs = make(map[int]func(Snapshot))
	}
	s.tasks = []task.Task{}
	s.publishLocked("init")
}

// Dispose drops every subscriber and empties the collection.
func (s *Store) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = nil
	s.tasks = nil
	s.pending = nil
	s.version++
	s.logger.Debug("store disposed")
}

// Subscribe registers fn. It is called with the current snapshot and again
// after every change, until the returned function is called. Snapshots
// reach fn in version order. fn may mutate the store or subscribe; those
// deliveries are queued behind the one in progress. When nothing else is
// being delivered, the first call happens before Subscribe returns.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	if s.subs == nil {
		s.subs = make(map[int]func(Snapshot))
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.enqueueLocked(delivery{snap: s.snapshotLocked(), subs: []func(Snapshot){fn}})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Tasks returns every task in insertion order.
func (s *Store) Tasks() []task.Task {
	return s.Snapshot().Tasks()
}

// Todo returns the tasks in the "todo" column.
func (s *Store) Todo() []task.Task {
	return s.Snapshot().Todo()
}

// InProgress returns the tasks in the "in-progress" column.
func (s *Store) InProgress() []task.Task {
	return s.Snapshot().InProgress()
}

// Done returns the tasks in the "done" column.
func (s *Store) Done() []task.Task {
	return s.Snapshot().Done()
}

// ByStatus returns the tasks whose status is st.
func (s *Store) ByStatus(st task.Status) []task.Task {
	return s.Snapshot().ByStatus(st)
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Get returns the task with id.
func (s *Store) Get(id string) (task.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return task.Task{}, false
}

// Query returns the tasks matching q after offset and limit are applied.
func (s *Store) Query(q task.Query) ([]task.Task, error) {
	if err := q.Validate(); err != nil {
		s.observeInvalid("query", err)
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return q.Apply(s.tasks), nil
}

// AddTask validates in, assigns an id and timestamps, appends the task and
// publishes. Invalid input leaves the collection unchanged.
func (s *Store) AddTask(in task.CreateInput) (task.Task, error) {
	if err := task.ValidateCreate(in); err != nil {
		s.observeInvalid("add", err)
		return task.Task{}, err
	}

	s.mu.Lock()
	id, err := s.uniqueIDLocked()
	if err != nil {
		s.mu.Unlock()
		s.metrics.ObserveMutation("add", metrics.ResultError)
		s.logger.Error("no unused task id", "attempts", maxIDAttempts)
		return task.Task{}, err
	}
	t := in.Build(id, s.now())
	s.tasks = append(s.tasks, t)
	s.logger.Debug("task added", "id", t.ID, "status", t.Status)
	s.metrics.ObserveMutation("add", metrics.ResultOK)
	s.publishLocked("add")
	return t.Clone(), nil
}

// UpdateTask merges patch into the task with id and bumps its updatedAt.
// The patch is validated with id filled in; an invalid patch changes
// nothing. An unknown id is a no-op unless the store is strict.
func (s *Store) UpdateTask(id string, patch task.Patch) error {
	patch.ID = id
	if err := task.ValidateUpdate(patch); err != nil {
		s.observeInvalid("update", err)
		return err
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Debug("update of unknown task", "id", id)
		s.metrics.ObserveMutation("update", metrics.ResultNotFound)
		if s.strict {
			return fmt.Errorf("update %s: %w", id, ErrNotFound)
		}
		return nil
	}

	updated := patch.Apply(s.tasks[i])
	updated.UpdatedAt = s.now()
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		updated.UpdatedAt = updated.CreatedAt
	}
	s.tasks[i] = updated
	s.logger.Debug("task updated", "id", id)
	s.metrics.ObserveMutation("update", metrics.ResultOK)
	s.publishLocked("update")
	return nil
}

// DeleteTask removes the task with id and publishes, whether or not
// anything was removed. In strict mode an unknown id also returns
// ErrNotFound.
func (s *Store) DeleteTask(id string) error {
	s.mu.Lock()
	removed := false
	if i := s.indexLocked(id); i >= 0 {
		next := make([]task.Task, 0, len(s.tasks)-1)
		next = append(next, s.tasks[:i]...)
		s.tasks = append(next, s.tasks[i+1:]...)
		removed = true
	}
	if removed {
		s.logger.Debug("task deleted", "id", id)
		s.metrics.ObserveMutation("delete", metrics.ResultOK)
	} else {
		s.logger.Debug("delete of unknown task", "id", id)
		s.metrics.ObserveMutation("delete", metrics.ResultNotFound)
	}
	s.publishLocked("delete")

	if !removed && s.strict {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	return nil
}

// Replace swaps in tasks wholesale. Every task must validate and ids must
// be unique, otherwise the store is left as it was.
func (s *Store) Replace(tasks []task.Task) error {
	next := make([]task.Task, 0, len(tasks))
	seen := make(map[string]struct{}, len(tasks))
	for i, t := range tasks {
		if err := task.ValidateTask(t); err != nil {
			s.observeInvalid("replace", err)
			return fmt.Errorf("task %d: %w", i, err)
		}
		if _, dup := seen[t.ID]; dup {
			s.metrics.ObserveMutation("replace", metrics.ResultInvalid)
			return fmt.Errorf("task %d: %w: %s", i, ErrDuplicateID, t.ID)
		}
		seen[t.ID] = struct{}{}
		next = append(next, t.Clone())
	}

	s.mu.Lock()
	s.tasks = next
	s.logger.Debug("tasks replaced", "count", len(next))
	s.metrics.ObserveMutation("replace", metrics.ResultOK)
	s.publishLocked("replace")
	return nil
}

func (s *Store) now() time.Time {
	return s.clock().UTC().Truncate(time.Millisecond)
}

func (s *Store) uniqueIDLocked() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.newID()
		if s.indexLocked(id) < 0 {
			return id, nil
		}
		s.logger.Warn("generated id already in use, retrying", "id", id)
	}
	return "", fmt.Errorf("add: %w after %d attempts", ErrIDExhausted, maxIDAttempts)
}

func (s *Store) indexLocked(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() Snapshot {
	return newSnapshot(s.tasks, s.version)
}

type delivery struct {
	snap Snapshot
	subs []func(Snapshot)
}

// publishLocked bumps the version and queues the new snapshot for every
// subscriber. It must be called with mu held and releases it.
func (s *Store) publishLocked(op string) {
	s.version++
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	s.metrics.SetTaskCounts(snap.counts())
	s.logger.Debug("publishing snapshot", "op", op, "version", snap.Version(), "subscribers", len(subs))
	s.enqueueLocked(delivery{snap: snap, subs: subs})
}

// enqueueLocked appends d and, unless a delivery is already running, drains
// the queue on the calling goroutine. It must be called with mu held and
// releases it.
func (s *Store) enqueueLocked(d delivery) {
	s.pending = append(s.pending, d)
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true

	done := false
	defer func() {
		if !done {
			// A subscriber panicked; let the next publish drain again.
			s.mu.Lock()
			s.delivering = false
			s.pending = nil
			s.mu.Unlock()
		}
	}()

	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		for _, fn := range next.subs {
			fn(next.snap)
		}
		s.mu.Lock()
	}
	s.delivering = false
	done = true
	s.mu.Unlock()
}

func (s *Store) observeInvalid(op string, err error) {
	s.metrics.ObserveMutation(op, metrics.ResultInvalid)
	var ve *task.ValidationError
	if errors.As(err, &ve) {
		for _, issue := range ve.Issues {
			s.metrics.ObserveValidationIssue(issue.Path)
		}
	}
	s.logger.Debug("validation failed", "op", op, "err", err)
}
