package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/nibzard/kanban-go/internal/persist"
	"github.com/nibzard/kanban-go/internal/task"
)

// listTasks serves GET /api/tasks?status=&priority=&limit=&offset=.
func (s *Server) listTasks(c *fiber.Ctx) error {
	q, issues := parseQuery(c)
	if len(issues) > 0 {
		return validationResponse(c, &task.ValidationError{Issues: issues})
	}
	tasks, err := s.opts.Store.Query(q)
	if err != nil {
		return validationResponse(c, err)
	}
	return sendTasks(c, tasks)
}

// getTask serves GET /api/tasks/:id.
func (s *Server) getTask(c *fiber.Ctx) error {
	t, ok := s.opts.Store.Get(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "task not found")
	}
	data, err := persist.Encode([]task.Task{t})
	if err != nil {
		return err
	}
	// Strip the enclosing array.
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data[1 : len(data)-1])
}

func sendTasks(c *fiber.Ctx, tasks []task.Task) error {
	data, err := persist.Encode(tasks)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

// parseQuery reads the query string. Type errors are reported per field;
// range checks are left to the query schema.
func parseQuery(c *fiber.Ctx) (task.Query, []task.FieldError) {
	var q task.Query
	var issues []task.FieldError

	if v := c.Query("status"); v != "" {
		st := task.Status(v)
		q.Status = &st
	}
	if v := c.Query("priority"); v != "" {
		p := task.Priority(v)
		q.Priority = &p
	}
	for _, name := range []string{"limit", "offset"} {
		v := c.Query(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			issues = append(issues, task.FieldError{Path: name, Message: "Expected number, received string"})
			continue
		}
		if name == "limit" {
			q.Limit = &n
		} else {
			q.Offset = &n
		}
	}
	return q, issues
}
