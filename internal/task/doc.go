// Package task defines the kanban task model and the schemas that every
// mutation path validates against.
//
// A task looks like this on the wire:
//
//	{
//	  "id": "4f0c2d3e-8a51-4a8e-9d55-0c7a0f1b2e3d",
//	  "title": "Set up CI/CD pipeline",
//	  "description": "Configure automated testing and deployment.",
//	  "status": "todo",
//	  "priority": "medium",
//	  "dueDate": "2025-08-25T00:00:00.000Z",
//	  "createdAt": "2025-08-09T00:00:00.000Z",
//	  "updatedAt": "2025-08-09T00:00:00.000Z",
//	  "aiGenerated": true,
//	  "originalPrompt": "Create a task for setting up continuous integration"
//	}
//
// # Schemas
//
// Four schemas are built from the small validator in schema.go:
//
//   - TaskSchema: the full shape, including the id format. Used when
//     rehydrating persisted data.
//   - CreateSchema: everything except id, createdAt and updatedAt.
//   - UpdateSchema: id is required, every other field is optional but must
//     satisfy the same bounds as the full shape when present.
//   - QuerySchema: status/priority filters plus limit (1-100) and offset (>= 0).
//
// Validation failures are returned as *ValidationError, a list of
// {path, message} pairs that callers can render next to form fields.
//
// # Field Rules
//
//   - title: 1-100 characters
//   - description: 0-500 characters
//   - status: todo, in-progress, done
//   - priority: high, medium, low
//   - dueDate: null or a valid date, no range restriction
//
// Lengths are counted in Unicode code points.
package task
