package task

import "time"

// Field limits and messages shared by every schema.
const (
	TitleMaxLength       = 100
	DescriptionMaxLength = 500

	MsgRequired        = "Required"
	MsgTitleRequired   = "Title is required"
	MsgTitleTooLong    = "Title must be less than 100 characters"
	MsgDescTooLong     = "Description must be less than 500 characters"
	MsgInvalidID       = "Invalid task ID format"
	MsgUpdatedBeforeCr = "Updated date must not be before created date"
)

func titleRules() []Rule[string] {
	return []Rule[string]{
		MinLength(1, MsgTitleRequired),
		MaxLength(TitleMaxLength, MsgTitleTooLong),
	}
}

func descriptionRules() []Rule[string] {
	return []Rule[string]{MaxLength(DescriptionMaxLength, MsgDescTooLong)}
}

var (
	statusRule   = OneOf(StatusTodo, StatusInProgress, StatusDone)
	priorityRule = OneOf(PriorityHigh, PriorityMedium, PriorityLow)
)

// TaskSchema validates a complete, stored task.
var TaskSchema = NewSchema("task",
	Field("id", func(t Task) string { return t.ID }, UUID(MsgInvalidID)),
	Field("title", func(t Task) string { return t.Title }, titleRules()...),
	Field("description", func(t Task) string { return t.Description }, descriptionRules()...),
	Field("status", func(t Task) Status { return t.Status }, statusRule),
	Field("priority", func(t Task) Priority { return t.Priority }, priorityRule),
	OptionalField("dueDate", func(t Task) *time.Time { return t.DueDate }, ValidDate()),
	Field("createdAt", func(t Task) time.Time { return t.CreatedAt }, ValidDate()),
	Field("updatedAt", func(t Task) time.Time { return t.UpdatedAt }, ValidDate()),
	Refine("updatedAt", MsgUpdatedBeforeCr, func(t Task) bool {
		return !t.UpdatedAt.Before(t.CreatedAt)
	}),
)

// CreateSchema validates input for a new task.
var CreateSchema = NewSchema("create",
	Field("title", func(in CreateInput) string { return in.Title }, titleRules()...),
	Field("description", func(in CreateInput) string { return in.Description }, descriptionRules()...),
	Field("status", func(in CreateInput) Status { return in.Status }, statusRule),
	Field("priority", func(in CreateInput) Priority { return in.Priority }, priorityRule),
	OptionalField("dueDate", func(in CreateInput) *time.Time { return in.DueDate }, ValidDate()),
)

// UpdateSchema validates a patch. Only id is required.
var UpdateSchema = NewSchema("update",
	Field("id", func(p Patch) string { return p.ID }, NonEmpty(MsgRequired), UUID(MsgInvalidID)),
	OptionalField("title", func(p Patch) *string { return p.Title }, titleRules()...),
	OptionalField("description", func(p Patch) *string { return p.Description }, descriptionRules()...),
	OptionalField("status", func(p Patch) *Status { return p.Status }, statusRule),
	OptionalField("priority", func(p Patch) *Priority { return p.Priority }, priorityRule),
	OptionalField("dueDate", func(p Patch) *time.Time { return p.DueDate.Value }, ValidDate()),
)

// ValidateTask checks a full task, including the id format.
func ValidateTask(t Task) error {
	return TaskSchema.Validate(t)
}

// ValidateCreate checks the input of a new task.
func ValidateCreate(in CreateInput) error {
	return CreateSchema.Validate(in)
}

// ValidateUpdate checks a patch.
func ValidateUpdate(p Patch) error {
	return UpdateSchema.Validate(p)
}

// IsValidTitle reports whether title satisfies the title bounds.
func IsValidTitle(title string) bool {
	return passes(title, titleRules())
}

// IsValidDescription reports whether description satisfies the description bound.
func IsValidDescription(description string) bool {
	return passes(description, descriptionRules())
}

func passes[V any](v V, rules []Rule[V]) bool {
	for _, rule := range rules {
		if _, ok := rule(v); !ok {
			return false
		}
	}
	return true
}
