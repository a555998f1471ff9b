package statistics

import (
	"encoding/json"

	statsvc "clearledger-backend/internal/application/statistics"
	"clearledger-backend/internal/domain"
	"clearledger-backend/internal/infrastructure/cache"
	"clearledger-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *statsvc.Service
	Cache   *cache.StatsCache
}

// Get GET /api/statistics — read-through cached; the DB row is authoritative.
func (h *Handlers) Get(c *fiber.Ctx) error {
	if cached := h.Cache.Get(c.Context()); cached != "" {
		var stats domain.Statistics
		if err := json.Unmarshal([]byte(cached), &stats); err == nil {
			return response.Success(c, "Statistics retrieved", stats, fiber.Map{"cached": true})
		}
	}

	stats, err := h.Service.Get(c.Context())
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if raw, err := json.Marshal(stats); err == nil {
		h.Cache.Set(c.Context(), string(raw))
	}
	return response.Success(c, "Statistics retrieved", stats, nil)
}
