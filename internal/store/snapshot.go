package store

import "github.com/nibzard/kanban-go/internal/task"

// Snapshot is an immutable view of the board at one version.
// Projections are recomputed from the full collection on every call.
type Snapshot struct {
	tasks   []task.Task
	version uint64
}

func newSnapshot(tasks []task.Task, version uint64) Snapshot {
	cp := make([]task.Task, len(tasks))
	for i, t := range tasks {
		cp[i] = t.Clone()
	}
	return Snapshot{tasks: cp, version: version}
}

// Version increases with every published change.
func (s Snapshot) Version() uint64 {
	return s.version
}

// Len returns the number of tasks.
func (s Snapshot) Len() int {
	return len(s.tasks)
}

// Tasks returns a copy of every task in insertion order.
func (s Snapshot) Tasks() []task.Task {
	out := make([]task.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

// Todo returns the tasks in the "todo" column.
func (s Snapshot) Todo() []task.Task { return s.ByStatus(task.StatusTodo) }

// InProgress returns the tasks in the "in-progress" column.
func (s Snapshot) InProgress() []task.Task { return s.ByStatus(task.StatusInProgress) }

// Done returns the tasks in the "done" column.
func (s Snapshot) Done() []task.Task { return s.ByStatus(task.StatusDone) }

// ByStatus returns the tasks in column st, in insertion order.
func (s Snapshot) ByStatus(st task.Status) []task.Task {
	out := []task.Task{}
	for _, t := range s.tasks {
		if t.Status == st {
			out = append(out, t.Clone())
		}
	}
	return out
}

func (s Snapshot) counts() map[string]int {
	counts := make(map[string]int, 3)
	for _, st := range task.Statuses() {
		counts[string(st)] = 0
	}
	for _, t := range s.tasks {
		counts[string(t.Status)]++
	}
	return counts
}
