package task

import "time"

func sampleDate(s string) *time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return &t
}

// SampleInputs returns a demo board spread across all three columns.
func SampleInputs() []CreateInput {
	return []CreateInput{
		{
			Title:       "Implement user authentication system",
			Description: "Login, registration and password reset with token management.",
			Status:      StatusTodo,
			Priority:    PriorityHigh,
			DueDate:     sampleDate("2025-08-20"),
		},
		{
			Title:          "Set up CI/CD pipeline",
			Description:    "Automated tests, builds and deploys to staging and production.",
			Status:         StatusTodo,
			Priority:       PriorityMedium,
			DueDate:        sampleDate("2025-08-25"),
			AIGenerated:    true,
			OriginalPrompt: Ptr("Create a task for setting up continuous integration and deployment"),
		},
		{
			Title:       "Update project documentation",
			Description: "Bring the README, API docs and deployment guide up to date.",
			Status:      StatusTodo,
			Priority:    PriorityLow,
		},
		{
			Title:       "Optimize database queries for performance",
			Description: "Profile slow queries and add the missing indexes.",
			Status:      StatusInProgress,
			Priority:    PriorityHigh,
			DueDate:     sampleDate("2025-08-15"),
		},
		{
			Title:          "Implement real-time notifications",
			Description:    "Push status changes to connected clients over WebSockets.",
			Status:         StatusInProgress,
			Priority:       PriorityMedium,
			DueDate:        sampleDate("2025-08-30"),
			AIGenerated:    true,
			OriginalPrompt: Ptr("Create a task for adding real-time notifications to the application"),
		},
		{
			Title:       "Set up development environment",
			Description: "Toolchain, linters and local services for new contributors.",
			Status:      StatusDone,
			Priority:    PriorityHigh,
		},
		{
			Title:          "Write unit tests for utility functions",
			Description:    "Cover the edge cases of every helper in the utils package.",
			Status:         StatusDone,
			Priority:       PriorityLow,
			AIGenerated:    true,
			OriginalPrompt: Ptr("Create a task for writing tests for utility functions"),
		},
	}
}
