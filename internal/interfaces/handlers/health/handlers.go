package health

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// DBPinger abstracts the database connection check for testability.
type DBPinger interface {
	Ping() error
}

type Handlers struct {
	DB  DBPinger
	Rdb *redis.Client
}

// Get GET /health — liveness plus dependency status.
func (h *Handlers) Get(c *fiber.Ctx) error {
	deps := fiber.Map{}
	status := "ok"

	if h.DB != nil {
		if err := h.DB.Ping(); err != nil {
			deps["database"] = "down"
			status = "degraded"
		} else {
			deps["database"] = "up"
		}
	}
	if h.Rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.Rdb.Ping(ctx).Err(); err != nil {
			deps["redis"] = "down"
		} else {
			deps["redis"] = "up"
		}
	}

	return c.JSON(fiber.Map{
		"service":      "clearledger-api",
		"status":       status,
		"dependencies": deps,
	})
}
