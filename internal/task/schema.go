package task

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// FieldError is one rule failure attached to a field path.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Issues []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		if issue.Path == "" {
			parts = append(parts, issue.Message)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Path, issue.Message))
	}
	return strings.Join(parts, "; ")
}

// Field returns the first message recorded for the field at path.
// Nested paths ("tasks[0].title", "memory.used") match their top-level field.
func (e *ValidationError) Field(path string) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, issue := range e.Issues {
		if topLevel(issue.Path) == path || issue.Path == path {
			return issue.Message, true
		}
	}
	return "", false
}

func topLevel(path string) string {
	if i := strings.IndexAny(path, ".["); i >= 0 {
		return path[:i]
	}
	return path
}

// Rule checks a single value. It returns the failure message and false when
// the value is rejected.
type Rule[V any] func(V) (string, bool)

// Check validates one field of T.
type Check[T any] func(T) (FieldError, bool)

// Schema is an ordered list of field checks over T.
type Schema[T any] struct {
	name   string
	checks []Check[T]
}

// NewSchema builds a schema from checks. The name only shows up in logs.
func NewSchema[T any](name string, checks ...Check[T]) *Schema[T] {
	return &Schema[T]{name: name, checks: checks}
}

// Name returns the schema name.
func (s *Schema[T]) Name() string {
	return s.name
}

// Validate runs every check and returns a *ValidationError when any fail.
func (s *Schema[T]) Validate(v T) error {
	var issues []FieldError
	for _, check := range s.checks {
		if fe, ok := check(v); !ok {
			issues = append(issues, fe)
		}
	}
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

// Field binds rules to the value get extracts from T.
// The first failing rule decides the message for the field.
func Field[T, V any](path string, get func(T) V, rules ...Rule[V]) Check[T] {
	return func(t T) (FieldError, bool) {
		v := get(t)
		for _, rule := range rules {
			if msg, ok := rule(v); !ok {
				return FieldError{Path: path, Message: msg}, false
			}
		}
		return FieldError{}, true
	}
}

// OptionalField is Field for values that may be absent; nil skips the rules.
func OptionalField[T, V any](path string, get func(T) *V, rules ...Rule[V]) Check[T] {
	return func(t T) (FieldError, bool) {
		v := get(t)
		if v == nil {
			return FieldError{}, true
		}
		for _, rule := range rules {
			if msg, ok := rule(*v); !ok {
				return FieldError{Path: path, Message: msg}, false
			}
		}
		return FieldError{}, true
	}
}

// Refine checks a condition spanning several fields and reports it on path.
func Refine[T any](path, msg string, ok func(T) bool) Check[T] {
	return func(t T) (FieldError, bool) {
		if ok(t) {
			return FieldError{}, true
		}
		return FieldError{Path: path, Message: msg}, false
	}
}

// MinLength rejects strings shorter than n code points.
func MinLength(n int, msg string) Rule[string] {
	return func(v string) (string, bool) {
		if utf8.RuneCountInString(v) < n {
			return msg, false
		}
		return "", true
	}
}

// MaxLength rejects strings longer than n code points.
func MaxLength(n int, msg string) Rule[string] {
	return func(v string) (string, bool) {
		if utf8.RuneCountInString(v) > n {
			return msg, false
		}
		return "", true
	}
}

// NonEmpty rejects the empty string.
func NonEmpty(msg string) Rule[string] {
	return func(v string) (string, bool) {
		if v == "" {
			return msg, false
		}
		return "", true
	}
}

// UUID accepts the canonical 8-4-4-4-12 hex form only.
func UUID(msg string) Rule[string] {
	return func(v string) (string, bool) {
		if len(v) != 36 {
			return msg, false
		}
		if _, err := uuid.Parse(v); err != nil {
			return msg, false
		}
		return "", true
	}
}

// OneOf accepts only the listed values.
func OneOf[V ~string](allowed ...V) Rule[V] {
	quoted := make([]string, len(allowed))
	for i, a := range allowed {
		quoted[i] = fmt.Sprintf("'%s'", a)
	}
	expected := strings.Join(quoted, " | ")
	return func(v V) (string, bool) {
		for _, a := range allowed {
			if v == a {
				return "", true
			}
		}
		return fmt.Sprintf("Invalid enum value. Expected %s, received '%s'", expected, v), false
	}
}

// Min rejects integers below n.
func Min(n int) Rule[int] {
	return func(v int) (string, bool) {
		if v < n {
			return fmt.Sprintf("Number must be greater than or equal to %d", n), false
		}
		return "", true
	}
}

// Max rejects integers above n.
func Max(n int) Rule[int] {
	return func(v int) (string, bool) {
		if v > n {
			return fmt.Sprintf("Number must be less than or equal to %d", n), false
		}
		return "", true
	}
}

// ValidDate rejects the zero time, which is what an unparsed date decodes to.
func ValidDate() Rule[time.Time] {
	return func(v time.Time) (string, bool) {
		if v.IsZero() {
			return "Invalid date", false
		}
		return "", true
	}
}

// GetFieldError validates v against s and returns the first message for
// field, or false when that field is valid.
func GetFieldError[T any](s *Schema[T], v T, field string) (string, bool) {
	err := s.Validate(v)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return "", false
	}
	return ve.Field(field)
}
