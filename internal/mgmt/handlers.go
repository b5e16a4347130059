package mgmt

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/scrum-maestro/agent/internal/task"
)

// taskResponse is the wire shape of a tracked task.
type taskResponse struct {
	TaskID        string    `json:"task_id"`
	Owner         string    `json:"owner"`
	OwnerHandle   string    `json:"owner_handle,omitempty"`
	Description   string    `json:"description"`
	DueAt         time.Time `json:"due_at"`
	Progress      string    `json:"progress"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	JiraKey       string    `json:"jira_key,omitempty"`
}

func toResponse(t *task.Task) taskResponse {
	return taskResponse{
		TaskID:        t.TaskID,
		Owner:         t.Owner,
		OwnerHandle:   t.OwnerHandle,
		Description:   t.Description,
		DueAt:         t.DueAt,
		Progress:      string(t.Progress),
		LastUpdatedAt: t.LastUpdatedAt,
		JiraKey:       t.JiraKey,
	}
}

func (s *Server) liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// listTasks handles GET /api/v1/tasks. An optional ?progress= query
// filters by lifecycle state.
func (s *Server) listTasks(c *fiber.Ctx) error {
	tasks, err := s.tasks.ListTasks()
	if err != nil {
		s.logger.Error().Err(err).Msg("listing tasks failed")
		return problemResponse(c, fiber.StatusInternalServerError, "store_error", "could not list tasks")
	}

	filter := task.Progress(c.Query("progress"))
	if filter != "" && !filter.Valid() {
		return problemResponse(c, fiber.StatusBadRequest, "bad_progress", "unknown progress state")
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		if filter != "" && t.Progress != filter {
			continue
		}
		out = append(out, toResponse(t))
	}
	return c.JSON(fiber.Map{"tasks": out, "count": len(out)})
}

// getTask handles GET /api/v1/tasks/:id.
func (s *Server) getTask(c *fiber.Ctx) error {
	t, err := s.tasks.GetTask(c.Params("id"))
	if err != nil {
		s.logger.Error().Err(err).Str("task", c.Params("id")).Msg("task lookup failed")
		return problemResponse(c, fiber.StatusInternalServerError, "store_error", "could not load task")
	}
	if t == nil {
		return problemResponse(c, fiber.StatusNotFound, "not_found", "no such task")
	}
	return c.JSON(toResponse(t))
}

// info handles GET /api/v1/info.
func (s *Server) info(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":        "scrum-maestro",
		"version":     s.config.Version,
		"environment": s.config.Environment,
		"uptime":      time.Since(s.startTime).Round(time.Second).String(),
	})
}
