package task

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the board column a task sits in.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Statuses returns the board columns in display order.
func Statuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusDone}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Label returns the column heading for s.
func (s Status) Label() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// ParseStatus normalizes user input into a Status.
// It accepts the canonical values plus "in_progress", "inprogress" and "doing".
func ParseStatus(value string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "in_progress", "inprogress", "doing", "in progress":
		v = string(StatusInProgress)
	}
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("invalid status %q, must be one of: todo, in-progress, done", value)
	}
	return s, nil
}

// Priority represents how urgent a task is.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities returns the priorities from most to least urgent.
func Priorities() []Priority {
	return []Priority{PriorityHigh, PriorityMedium, PriorityLow}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ParsePriority normalizes user input into a Priority.
func ParsePriority(value string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(value)))
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q, must be one of: high, medium, low", value)
	}
	return p, nil
}

// Task is a single card on the board.
type Task struct {
	ID             string     `json:"id" yaml:"id"`
	Title          string     `json:"title" yaml:"title"`
	Description    string     `json:"description" yaml:"description"`
	Status         Status     `json:"status" yaml:"status"`
	Priority       Priority   `json:"priority" yaml:"priority"`
	DueDate        *time.Time `json:"dueDate" yaml:"dueDate"`
	CreatedAt      time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt" yaml:"updatedAt"`
	AIGenerated    bool       `json:"aiGenerated" yaml:"aiGenerated"`
	OriginalPrompt *string    `json:"originalPrompt" yaml:"originalPrompt"`
}

// Clone returns a copy of t that shares no pointers with it.
func (t Task) Clone() Task {
	c := t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.OriginalPrompt != nil {
		p := *t.OriginalPrompt
		c.OriginalPrompt = &p
	}
	return c
}

// CreateInput holds the caller-supplied fields of a new task.
// The store fills in id, createdAt and updatedAt.
type CreateInput struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         Status     `json:"status"`
	Priority       Priority   `json:"priority"`
	DueDate        *time.Time `json:"dueDate"`
	AIGenerated    bool       `json:"aiGenerated"`
	OriginalPrompt *string    `json:"originalPrompt"`
}

// Build turns the input into a task with the given id and timestamps.
func (in CreateInput) Build(id string, now time.Time) Task {
	t := Task{
		ID:             id,
		Title:          in.Title,
		Description:    in.Description,
		Status:         in.Status,
		Priority:       in.Priority,
		DueDate:        in.DueDate,
		CreatedAt:      now,
		UpdatedAt:      now,
		AIGenerated:    in.AIGenerated,
		OriginalPrompt: in.OriginalPrompt,
	}
	return t.Clone()
}

// Optional is a patch field that is either absent, set to a value, or
// explicitly cleared to null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns an Optional set to v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns an Optional that clears the field.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// Patch is a partial update addressed to the task with ID.
// Nil pointers and unset Optionals leave the field unchanged.
type Patch struct {
	ID             string
	Title          *string
	Description    *string
	Status         *Status
	Priority       *Priority
	DueDate        Optional[time.Time]
	AIGenerated    *bool
	OriginalPrompt Optional[string]
}

// IsEmpty reports whether p changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && !p.DueDate.Set && p.AIGenerated == nil &&
		!p.OriginalPrompt.Set
}

// Apply returns t with every field set in p merged in.
// Timestamps are left to the caller.
func (p Patch) Apply(t Task) Task {
	out := t.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.DueDate.Set {
		out.DueDate = nil
		if p.DueDate.Value != nil {
			d := *p.DueDate.Value
			out.DueDate = &d
		}
	}
	if p.AIGenerated != nil {
		out.AIGenerated = *p.AIGenerated
	}
	if p.OriginalPrompt.Set {
		out.OriginalPrompt = nil
		if p.OriginalPrompt.Value != nil {
			s := *p.OriginalPrompt.Value
			out.OriginalPrompt = &s
		}
	}
	return out
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
