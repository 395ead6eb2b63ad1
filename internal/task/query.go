package task

// Query filters and pages a task list.
type Query struct {
	Status   *Status
	Priority *Priority
	Limit    *int
	Offset   *int
}

// QuerySchema bounds a Query: limit in [1,100], offset >= 0.
var QuerySchema = NewSchema("query",
	OptionalField("status", func(q Query) *Status { return q.Status }, statusRule),
	OptionalField("priority", func(q Query) *Priority { return q.Priority }, priorityRule),
	OptionalField("limit", func(q Query) *int { return q.Limit }, Min(1), Max(100)),
	OptionalField("offset", func(q Query) *int { return q.Offset }, Min(0)),
)

// Validate checks q against QuerySchema.
func (q Query) Validate() error {
	return QuerySchema.Validate(q)
}

// Match reports whether t passes the status and priority filters.
func (q Query) Match(t Task) bool {
	if q.Status != nil && t.Status != *q.Status {
		return false
	}
	if q.Priority != nil && t.Priority != *q.Priority {
		return false
	}
	return true
}

// Apply filters tasks, then skips Offset matches and keeps at most Limit.
// Order is preserved. The caller is expected to have validated q.
func (q Query) Apply(tasks []Task) []Task {
	skip := 0
	if q.Offset != nil {
		skip = *q.Offset
	}
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if !q.Match(t) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		if q.Limit != nil && len(out) >= *q.Limit {
			break
		}
		out = append(out, t.Clone())
	}
	return out
}
