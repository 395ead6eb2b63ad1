package persist

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nibzard/kanban-go/internal/task"
)

//go:embed tasks.schema.json
var tasksSchemaJSON string

const tasksSchemaURL = "tasks.schema.json"

var (
	compileOnce   sync.Once
	tasksSchema   *jsonschema.Schema
	compileSchErr error
)

func blobSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		compiler.Formats[dateFormat] = isTaskDate
		if err := compiler.AddResource(tasksSchemaURL, strings.NewReader(tasksSchemaJSON)); err != nil {
			compileSchErr = fmt.Errorf("add schema: %w", err)
			return
		}
		tasksSchema, compileSchErr = compiler.Compile(tasksSchemaURL)
		if compileSchErr != nil {
			compileSchErr = fmt.Errorf("compile schema: %w", compileSchErr)
		}
	})
	return tasksSchema, compileSchErr
}

// dateFormat accepts whatever task.ParseDate accepts, so the schema and the
// record parser agree on which dates are valid.
const dateFormat = "task-date"

func isTaskDate(v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return true
	}
	_, err := task.ParseDate(s)
	return err == nil
}

// wireTask is the on-disk form of a task: dates are ISO-8601 strings.
type wireTask struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Status         string  `json:"status"`
	Priority       string  `json:"priority"`
	DueDate        *string `json:"dueDate"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
	AIGenerated    bool    `json:"aiGenerated"`
	OriginalPrompt *string `json:"originalPrompt"`
}

func toWire(t task.Task) wireTask {
	w := wireTask{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         string(t.Status),
		Priority:       string(t.Priority),
		CreatedAt:      task.FormatDate(t.CreatedAt),
		UpdatedAt:      task.FormatDate(t.UpdatedAt),
		AIGenerated:    t.AIGenerated,
		OriginalPrompt: t.OriginalPrompt,
	}
	if t.DueDate != nil {
		d := task.FormatDate(*t.DueDate)
		w.DueDate = &d
	}
	return w
}

// Encode renders tasks as the persisted JSON array.
func Encode(tasks []task.Task) ([]byte, error) {
	out := make([]wireTask, len(tasks))
	for i, t := range tasks {
		out[i] = toWire(t)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode tasks: %w", err)
	}
	return data, nil
}

// Decode parses a persisted blob. The blob must match the embedded JSON
// Schema, every record must pass task validation and ids must be unique.
// Field problems are reported as a *task.ValidationError with paths like
// "[2].title".
func Decode(data []byte) ([]task.Task, error) {
	sch, err := blobSchema()
	if err != nil {
		return nil, err
	}

	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, schemaIssues(err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}

	tasks := make([]task.Task, 0, len(raw))
	seen := make(map[string]int, len(raw))
	var issues []task.FieldError
	for i, rec := range raw {
		t, err := task.ParseTask(rec)
		if err != nil {
			var ve *task.ValidationError
			if !errors.As(err, &ve) {
				return nil, fmt.Errorf("task %d: %w", i, err)
			}
			for _, issue := range ve.Issues {
				issues = append(issues, task.FieldError{Path: indexPath(i, issue.Path), Message: issue.Message})
			}
			continue
		}
		if first, dup := seen[t.ID]; dup {
			issues = append(issues, task.FieldError{
				Path:    indexPath(i, "id"),
				Message: fmt.Sprintf("Duplicate task ID (first used at index %d)", first),
			})
			continue
		}
		seen[t.ID] = i
		tasks = append(tasks, t)
	}
	if len(issues) > 0 {
		return nil, &task.ValidationError{Issues: issues}
	}
	return tasks, nil
}

func indexPath(i int, field string) string {
	if field == "" {
		return fmt.Sprintf("[%d]", i)
	}
	return fmt.Sprintf("[%d].%s", i, field)
}

// schemaIssues flattens the leaf causes of a jsonschema error.
func schemaIssues(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("validate tasks: %w", err)
	}
	var issues []task.FieldError
	collectSchemaIssues(ve, &issues)
	if len(issues) == 0 {
		issues = append(issues, task.FieldError{Message: ve.Message})
	}
	return &task.ValidationError{Issues: issues}
}

func collectSchemaIssues(ve *jsonschema.ValidationError, issues *[]task.FieldError) {
	if len(ve.Causes) == 0 {
		*issues = append(*issues, task.FieldError{
			Path:    pointerToPath(ve.InstanceLocation),
			Message: ve.Message,
		})
		return
	}
	for _, cause := range ve.Causes {
		collectSchemaIssues(cause, issues)
	}
}

// pointerToPath turns "/2/title" into "[2].title".
func pointerToPath(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return ""
	}
	var b strings.Builder
	for _, part := range strings.Split(pointer, "/") {
		part = strings.ReplaceAll(strings.ReplaceAll(part, "~1", "/"), "~0", "~")
		if isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
