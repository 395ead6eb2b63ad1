package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the ISO-8601 form dates are written in: UTC, millisecond
// precision, trailing Z.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate accepts RFC 3339 timestamps with or without fractional seconds,
// and bare calendar dates (YYYY-MM-DD, read as UTC midnight).
func ParseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

// ParseTask decodes a JSON object into a Task and validates it with TaskSchema.
func ParseTask(data []byte) (Task, error) {
	d, err := newObjectDecoder(data)
	if err != nil {
		return Task{}, err
	}
	var t Task
	d.str("id", &t.ID, true)
	d.str("title", &t.Title, true)
	d.str("description", &t.Description, true)
	d.status("status", &t.Status, true)
	d.priority("priority", &t.Priority, true)
	t.DueDate = d.nullableDate("dueDate", true)
	if v := d.date("createdAt", true); v != nil {
		t.CreatedAt = *v
	}
	if v := d.date("updatedAt", true); v != nil {
		t.UpdatedAt = *v
	}
	d.boolean("aiGenerated", &t.AIGenerated, true)
	t.OriginalPrompt = d.nullableStr("originalPrompt", true)
	return t, d.finish(TaskSchema.Validate(t))
}

// ParseCreate decodes a JSON object into a CreateInput and validates it with
// CreateSchema. Unknown keys, including id and timestamps, are ignored.
func ParseCreate(data []byte) (CreateInput, error) {
	d, err := newObjectDecoder(data)
	if err != nil {
		return CreateInput{}, err
	}
	var in CreateInput
	d.str("title", &in.Title, true)
	d.str("description", &in.Description, true)
	d.status("status", &in.Status, true)
	d.priority("priority", &in.Priority, true)
	in.DueDate = d.nullableDate("dueDate", true)
	d.boolean("aiGenerated", &in.AIGenerated, true)
	in.OriginalPrompt = d.nullableStr("originalPrompt", true)
	return in, d.finish(CreateSchema.Validate(in))
}

// ParseUpdate decodes a JSON object into a Patch and validates it with
// UpdateSchema. Absent keys stay unset; a null dueDate or originalPrompt
// clears the field.
func ParseUpdate(data []byte) (Patch, error) {
	d, err := newObjectDecoder(data)
	if err != nil {
		return Patch{}, err
	}
	var p Patch
	d.str("id", &p.ID, true)
	if d.has("title") {
		var s string
		if d.str("title", &s, false) {
			p.Title = &s
		}
	}
	if d.has("description") {
		var s string
		if d.str("description", &s, false) {
			p.Description = &s
		}
	}
	if d.has("status") {
		var s Status
		if d.status("status", &s, false) {
			p.Status = &s
		}
	}
	if d.has("priority") {
		var pr Priority
		if d.priority("priority", &pr, false) {
			p.Priority = &pr
		}
	}
	if d.has("dueDate") {
		p.DueDate = Optional[time.Time]{Set: true, Value: d.nullableDate("dueDate", false)}
	}
	if d.has("aiGenerated") {
		var b bool
		if d.boolean("aiGenerated", &b, false) {
			p.AIGenerated = &b
		}
	}
	if d.has("originalPrompt") {
		p.OriginalPrompt = Optional[string]{Set: true, Value: d.nullableStr("originalPrompt", false)}
	}
	return p, d.finish(UpdateSchema.Validate(p))
}

// objectDecoder pulls typed fields out of a JSON object and records
// decode failures per field.
type objectDecoder struct {
	raw    map[string]json.RawMessage
	issues []FieldError
	failed map[string]bool
}

func newObjectDecoder(data []byte) (*objectDecoder, error) {
	if kind := jsonKind(data); kind != "object" {
		if kind == "invalid" {
			return nil, &ValidationError{Issues: []FieldError{{Message: "Invalid JSON"}}}
		}
		return nil, &ValidationError{Issues: []FieldError{{Message: "Expected object, received " + kind}}}
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{Issues: []FieldError{{Message: "Invalid JSON"}}}
	}
	return &objectDecoder{raw: raw, failed: make(map[string]bool)}, nil
}

func (d *objectDecoder) fail(key, msg string) {
	d.issues = append(d.issues, FieldError{Path: key, Message: msg})
	d.failed[key] = true
}

func (d *objectDecoder) has(key string) bool {
	_, ok := d.raw[key]
	return ok
}

// lookup returns the raw value for key when it is present and of kind want.
// Missing keys are reported when required; null is reported unless nullable.
func (d *objectDecoder) lookup(key, want string, required, nullable bool) (json.RawMessage, bool) {
	raw, ok := d.raw[key]
	if !ok {
		if required {
			d.fail(key, MsgRequired)
		}
		return nil, false
	}
	got := jsonKind(raw)
	if got == "null" {
		if !nullable {
			d.fail(key, fmt.Sprintf("Expected %s, received null", want))
		}
		return nil, false
	}
	if got != want {
		d.fail(key, fmt.Sprintf("Expected %s, received %s", want, got))
		return nil, false
	}
	return raw, true
}

func (d *objectDecoder) str(key string, dst *string, required bool) bool {
	raw, ok := d.lookup(key, "string", required, false)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		d.fail(key, err.Error())
		return false
	}
	return true
}

func (d *objectDecoder) nullableStr(key string, required bool) *string {
	raw, ok := d.lookup(key, "string", required, true)
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		d.fail(key, err.Error())
		return nil
	}
	return &s
}

func (d *objectDecoder) status(key string, dst *Status, required bool) bool {
	var s string
	if !d.str(key, &s, required) {
		return false
	}
	*dst = Status(s)
	return true
}

func (d *objectDecoder) priority(key string, dst *Priority, required bool) bool {
	var s string
	if !d.str(key, &s, required) {
		return false
	}
	*dst = Priority(s)
	return true
}

func (d *objectDecoder) boolean(key string, dst *bool, required bool) bool {
	raw, ok := d.lookup(key, "boolean", required, false)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		d.fail(key, err.Error())
		return false
	}
	return true
}

func (d *objectDecoder) date(key string, required bool) *time.Time {
	return d.parseDate(key, required, false)
}

func (d *objectDecoder) nullableDate(key string, required bool) *time.Time {
	return d.parseDate(key, required, true)
}

func (d *objectDecoder) parseDate(key string, required, nullable bool) *time.Time {
	raw, ok := d.raw[key]
	if !ok {
		if required {
			d.fail(key, MsgRequired)
		}
		return nil
	}
	switch jsonKind(raw) {
	case "null":
		if !nullable {
			d.fail(key, "Expected date, received null")
		}
		return nil
	case "string":
	default:
		d.fail(key, fmt.Sprintf("Expected date, received %s", jsonKind(raw)))
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		d.fail(key, err.Error())
		return nil
	}
	t, err := ParseDate(s)
	if err != nil {
		d.fail(key, "Invalid date")
		return nil
	}
	return &t
}

// finish merges decode issues with schema issues. Schema issues on a field
// that already failed to decode are dropped.
func (d *objectDecoder) finish(schemaErr error) error {
	issues := append([]FieldError(nil), d.issues...)
	if ve, ok := schemaErr.(*ValidationError); ok {
		for _, issue := range ve.Issues {
			if d.failed[topLevel(issue.Path)] {
				continue
			}
			issues = append(issues, issue)
		}
	}
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

// jsonKind names the JSON type of data the way validation messages do.
func jsonKind(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "invalid"
	}
	switch trimmed[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return "number"
	default:
		return "invalid"
	}
}
