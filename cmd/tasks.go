package cmd

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nibzard/kanban-go/internal/persist"
	"github.com/nibzard/kanban-go/internal/store"
	"github.com/nibzard/kanban-go/internal/task"
)

// minPrefix is the shortest id prefix accepted in place of a full id.
const minPrefix = 4

// addCommand creates a task from flags and the remaining arguments.
func (c *cli) addCommand(a *app, args []string) error {
	fs := newFlagSet(c, "add")
	description := fs.String("description", "", "Task description")
	fs.StringVar(description, "d", "", "Task description")
	status := fs.String("status", string(task.StatusTodo), "Column: todo, in-progress, done")
	priority := fs.String("priority", string(task.PriorityMedium), "Priority: high, medium, low")
	fs.StringVar(priority, "p", string(task.PriorityMedium), "Priority: high, medium, low")
	due := fs.String("due", "", "Due date (YYYY-MM-DD or RFC 3339)")
	ai := fs.Bool("ai", false, "Mark the task as AI generated")
	prompt := fs.String("prompt", "", "Prompt the task was generated from")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := task.CreateInput{
		Title:       joinArgs(fs.Args()),
		Description: *description,
		Status:      statusArg(*status),
		Priority:    priorityArg(*priority),
		AIGenerated: *ai,
	}
	if *due != "" {
		d, err := task.ParseDate(*due)
		if err != nil {
			return usageError("-due: %v", err)
		}
		in.DueDate = &d
	}
	if *prompt != "" {
		in.OriginalPrompt = prompt
	}

	t, err := a.store.AddTask(in)
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	if err := a.commit(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Added %s %q to %s\n", shortID(t.ID), t.Title, t.Status.Label())
	return nil
}

// updateCommand applies only the flags that were given.
func (c *cli) updateCommand(a *app, args []string) error {
	fs := newFlagSet(c, "update")
	title := fs.String("title", "", "New title")
	description := fs.String("description", "", "New description")
	status := fs.String("status", "", "New column: todo, in-progress, done")
	priority := fs.String("priority", "", "New priority: high, medium, low")
	due := fs.String("due", "", "New due date, or \"none\" to clear")
	ai := fs.Bool("ai", false, "Mark the task as AI generated")
	prompt := fs.String("prompt", "", "Originating prompt, or \"none\" to clear")
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError("update takes exactly one task id")
	}
	id, err := resolveID(a.store, fs.Arg(0))
	if err != nil {
		return err
	}

	var patch task.Patch
	var parseErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			patch.Title = title
		case "description":
			patch.Description = description
		case "status":
			patch.Status = task.Ptr(statusArg(*status))
		case "priority":
			patch.Priority = task.Ptr(priorityArg(*priority))
		case "ai":
			patch.AIGenerated = ai
		case "due":
			if isNone(*due) {
				patch.DueDate = task.Null[time.Time]()
				return
			}
			d, err := task.ParseDate(*due)
			if err != nil {
				parseErr = usageError("-due: %v", err)
				return
			}
			patch.DueDate = task.Some(d)
		case "prompt":
			if isNone(*prompt) {
				patch.OriginalPrompt = task.Null[string]()
				return
			}
			patch.OriginalPrompt = task.Some(*prompt)
		}
	})
	if parseErr != nil {
		return parseErr
	}
	if patch.IsEmpty() {
		return usageError("nothing to update, pass at least one field flag")
	}

	if err := a.store.UpdateTask(id, patch); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if err := a.commit(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Updated %s\n", shortID(id))
	return nil
}

// moveCommand changes the column of a task.
func (c *cli) moveCommand(a *app, args []string) error {
	fs := newFlagSet(c, "move")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return usageError("move takes a task id and a status")
	}
	id, err := resolveID(a.store, fs.Arg(0))
	if err != nil {
		return err
	}
	st, err := task.ParseStatus(fs.Arg(1))
	if err != nil {
		return usageError("%v", err)
	}
	if err := a.store.UpdateTask(id, task.Patch{Status: &st}); err != nil {
		return fmt.Errorf("move: %w", err)
	}
	if err := a.commit(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Moved %s to %s\n", shortID(id), st.Label())
	return nil
}

// rmCommand deletes every id given.
func (c *cli) rmCommand(a *app, args []string) error {
	fs := newFlagSet(c, "rm")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return usageError("rm takes at least one task id")
	}
	for _, arg := range fs.Args() {
		id, err := resolveID(a.store, arg)
		if err != nil {
			return err
		}
		if err := a.store.DeleteTask(id); err != nil {
			return fmt.Errorf("rm: %w", err)
		}
		fmt.Fprintf(c.out, "Deleted %s\n", shortID(id))
	}
	return a.commit()
}

// lsCommand lists tasks, grouped by column unless a status filter is set.
func (c *cli) lsCommand(a *app, args []string) error {
	fs := newFlagSet(c, "ls")
	status := fs.String("status", "", "Filter by status")
	priority := fs.String("priority", "", "Filter by priority")
	limit := fs.Int("limit", 0, "Show at most this many tasks (1-100)")
	offset := fs.Int("offset", 0, "Skip this many matching tasks")
	verbose := fs.Bool("v", false, "Show full ids and descriptions")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 1 && *status == "" {
		*status = fs.Arg(0)
	} else if fs.NArg() > 0 {
		return usageError("unexpected arguments: %v", fs.Args())
	}

	var q task.Query
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "limit":
			q.Limit = limit
		case "offset":
			q.Offset = offset
		case "priority":
			q.Priority = task.Ptr(priorityArg(*priority))
		}
	})
	if *status != "" {
		q.Status = task.Ptr(statusArg(*status))
	}

	tasks, err := a.store.Query(q)
	if err != nil {
		return fmt.Errorf("ls: %w", err)
	}

	if q.Status != nil {
		printTaskList(c.out, tasks, *verbose)
		return nil
	}
	for i, st := range task.Statuses() {
		if i > 0 {
			fmt.Fprintln(c.out)
		}
		var column []task.Task
		for _, t := range tasks {
			if t.Status == st {
				column = append(column, t)
			}
		}
		fmt.Fprintf(c.out, "%s (%d)\n", st.Label(), len(column))
		printTaskList(c.out, column, *verbose)
	}
	return nil
}

// showCommand prints every field of one task.
func (c *cli) showCommand(a *app, args []string) error {
	fs := newFlagSet(c, "show")
	asJSON := fs.Bool("json", false, "Print the stored JSON record")
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError("show takes exactly one task id")
	}
	id, err := resolveID(a.store, fs.Arg(0))
	if err != nil {
		return err
	}
	t, ok := a.store.Get(id)
	if !ok {
		return fmt.Errorf("show %s: %w", id, store.ErrNotFound)
	}
	if *asJSON {
		return writeJSON(c.out, []task.Task{t}, true)
	}

	w := c.out
	fmt.Fprintf(w, "ID:          %s\n", t.ID)
	fmt.Fprintf(w, "Title:       %s\n", t.Title)
	fmt.Fprintf(w, "Status:      %s\n", t.Status.Label())
	fmt.Fprintf(w, "Priority:    %s\n", t.Priority)
	if t.DueDate != nil {
		fmt.Fprintf(w, "Due:         %s\n", t.DueDate.Format(time.DateOnly))
	}
	fmt.Fprintf(w, "Created:     %s\n", task.FormatDate(t.CreatedAt))
	fmt.Fprintf(w, "Updated:     %s\n", task.FormatDate(t.UpdatedAt))
	if t.AIGenerated {
		fmt.Fprintln(w, "AI generated: yes")
	}
	if t.OriginalPrompt != nil {
		fmt.Fprintf(w, "Prompt:      %s\n", *t.OriginalPrompt)
	}
	if t.Description != "" {
		fmt.Fprintf(w, "\n%s\n", t.Description)
	}
	return nil
}

// seedCommand adds the sample tasks to an empty board.
func (c *cli) seedCommand(a *app, args []string) error {
	fs := newFlagSet(c, "seed")
	force := fs.Bool("force", false, "Replace a non-empty board")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if n := a.store.Len(); n > 0 && !*force {
		return fmt.Errorf("board already has %d tasks (use -force to replace them)", n)
	}
	if err := a.store.Replace(nil); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	for _, in := range task.SampleInputs() {
		if _, err := a.store.AddTask(in); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	if err := a.commit(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Seeded %d tasks\n", a.store.Len())
	return nil
}

// exportCommand writes the whole board.
func (c *cli) exportCommand(a *app, args []string) error {
	fs := newFlagSet(c, "export")
	format := fs.String("format", "json", "Output format: json or yaml")
	output := fs.String("o", "", "Write to this file instead of stdout")
	compact := fs.Bool("compact", false, "Write JSON exactly as stored, without indentation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var buf bytes.Buffer
	tasks := a.store.Tasks()
	switch strings.ToLower(*format) {
	case "json":
		if err := writeJSON(&buf, tasks, !*compact); err != nil {
			return err
		}
	case "yaml", "yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(tasks); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
	default:
		return usageError("unknown format %q, must be json or yaml", *format)
	}

	if *output == "" {
		_, err := c.out.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(*output, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", *output, err)
	}
	fmt.Fprintf(c.errOut, "Exported %d tasks to %s\n", len(tasks), *output)
	return nil
}

func writeJSON(w io.Writer, tasks []task.Task, indent bool) error {
	data, err := persist.Encode(tasks)
	if err != nil {
		return err
	}
	if indent {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return fmt.Errorf("formatting json: %w", err)
		}
		data = buf.Bytes()
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

func printTaskList(w io.Writer, tasks []task.Task, verbose bool) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, t := range tasks {
		id := shortID(t.ID)
		if verbose {
			id = t.ID
		}
		line := fmt.Sprintf("  %s  %-6s  %s", id, t.Priority, t.Title)
		if t.DueDate != nil {
			line += "  (due " + t.DueDate.Format(time.DateOnly) + ")"
		}
		if t.AIGenerated {
			line += "  [ai]"
		}
		fmt.Fprintln(w, line)
		if verbose && t.Description != "" {
			fmt.Fprintf(w, "      %s\n", t.Description)
		}
	}
}

// resolveID accepts a full id or an unambiguous prefix of at least
// minPrefix characters. Unknown full ids are passed through so the
// store reports them.
func resolveID(s *store.Store, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if _, ok := s.Get(arg); ok || len(arg) < minPrefix {
		return arg, nil
	}
	var matches []string
	for _, t := range s.Tasks() {
		if strings.HasPrefix(t.ID, arg) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 0:
		return arg, nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("id prefix %q matches %d tasks", arg, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// statusArg accepts the aliases ParseStatus knows and otherwise passes the
// raw value on so validation reports it.
func statusArg(raw string) task.Status {
	if st, err := task.ParseStatus(raw); err == nil {
		return st
	}
	return task.Status(raw)
}

func priorityArg(raw string) task.Priority {
	if p, err := task.ParsePriority(raw); err == nil {
		return p
	}
	return task.Priority(raw)
}

func isNone(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "none", "null":
		return true
	}
	return false
}

// reorderArgs moves a leading positional argument behind the flags so
// "update <id> -title x" parses like "update -title x <id>".
func reorderArgs(args []string) []string {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return args
	}
	out := append([]string{}, args[1:]...)
	return append(out, args[0])
}
