package server

import (
	"math"
	"runtime"

	"github.com/gofiber/fiber/v2"

	"github.com/nibzard/kanban-go/internal/task"
)

// Memory is a process memory reading in bytes.
type Memory struct {
	Used  uint64
	Total uint64
}

// MemoryProbe reads current memory usage.
type MemoryProbe func() (Memory, error)

// RuntimeMemory reports heap in use against memory obtained from the OS.
func RuntimeMemory() (Memory, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return Memory{Used: ms.HeapAlloc, Total: ms.Sys}, nil
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status      string       `json:"status"`
	Timestamp   string       `json:"timestamp"`
	Uptime      int64        `json:"uptime"`
	Memory      MemoryReport `json:"memory"`
	Version     string       `json:"version"`
	Environment string       `json:"environment"`
}

// MemoryReport is megabytes used and available plus a usage percentage.
type MemoryReport struct {
	Used  int64 `json:"used"`
	Total int64 `json:"total"`
	Usage int64 `json:"usage"`
}

func (s *Server) health(c *fiber.Ctx) error {
	now := s.opts.Now()
	resp := HealthResponse{
		Status:      "healthy",
		Timestamp:   task.FormatDate(now),
		Uptime:      int64(now.Sub(s.started).Seconds()),
		Version:     s.opts.Version,
		Environment: s.opts.Environment,
	}
	if resp.Uptime < 0 {
		resp.Uptime = 0
	}

	c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")

	mem, err := s.opts.Probe()
	if err != nil {
		s.opts.Logger.Error("health check failed", "err", err)
		resp.Status = "unhealthy"
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	resp.Memory = memoryReport(mem)
	return c.JSON(resp)
}

func memoryReport(m Memory) MemoryReport {
	const mb = 1024 * 1024
	r := MemoryReport{
		Used:  int64(math.Round(float64(m.Used) / mb)),
		Total: int64(math.Round(float64(m.Total) / mb)),
	}
	if m.Total > 0 {
		r.Usage = int64(math.Round(float64(m.Used) / float64(m.Total) * 100))
	}
	return r
}
