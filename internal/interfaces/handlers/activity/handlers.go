package activity

import (
	"strconv"

	actsvc "clearledger-backend/internal/application/activity"
	"clearledger-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *actsvc.Service
}

// List GET /api/activity?limit=N — newest first.
func (h *Handlers) List(c *fiber.Ctx) error {
	limit := 50
	if q := c.Query("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			return response.Error(c, "limit must be a positive integer", 400, nil)
		}
		limit = n
	}
	entries, err := h.Service.List(c.Context(), limit)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Activity retrieved", entries, fiber.Map{"count": len(entries)})
}
