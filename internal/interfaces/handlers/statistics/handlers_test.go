package statistics

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	statsvc "clearledger-backend/internal/application/statistics"
	"clearledger-backend/internal/domain"
	"clearledger-backend/internal/infrastructure/cache"
	"clearledger-backend/internal/infrastructure/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupStatisticsTest(t *testing.T, c *cache.StatsCache) (*fiber.App, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	h := &Handlers{Service: &statsvc.Service{DB: db}, Cache: c}

	app := fiber.New()
	app.Get("/api/statistics", h.Get)
	return app, db
}

func getStatistics(t *testing.T, app *fiber.App) (domain.Statistics, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", "/api/statistics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)

	var out struct {
		Data     domain.Statistics      `json:"data"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out.Data, out.Metadata
}

func TestGetStatistics_ZeroRowBeforeAnyActivity(t *testing.T) {
	app, _ := setupStatisticsTest(t, nil)

	stats, _ := getStatistics(t, app)
	assert.EqualValues(t, 0, stats.TotalProjects)
	assert.EqualValues(t, 0, stats.VerifiedProjects)
	assert.EqualValues(t, 0, stats.PendingVerification)
	assert.EqualValues(t, 0, stats.TotalCredits)
}

func TestGetStatistics_ReadsCountersFromDB(t *testing.T) {
	app, db := setupStatisticsTest(t, nil)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return statsvc.Apply(tx, statsvc.Deltas{Projects: 3, Verified: 1, Pending: 2, Credits: 5000})
	}))

	stats, _ := getStatistics(t, app)
	assert.EqualValues(t, 3, stats.TotalProjects)
	assert.EqualValues(t, 1, stats.VerifiedProjects)
	assert.EqualValues(t, 2, stats.PendingVerification)
	assert.EqualValues(t, 5000, stats.TotalCredits)
}

func TestGetStatistics_CacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := &cache.StatsCache{
		Rdb: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		TTL: 30 * time.Second,
	}
	app, db := setupStatisticsTest(t, c)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return statsvc.Apply(tx, statsvc.Deltas{Projects: 1})
	}))

	// First read misses and populates the cache.
	stats, meta := getStatistics(t, app)
	assert.EqualValues(t, 1, stats.TotalProjects)
	assert.NotContains(t, meta, "cached")

	// Second read is served from Redis.
	stats, meta = getStatistics(t, app)
	assert.EqualValues(t, 1, stats.TotalProjects)
	assert.Equal(t, true, meta["cached"])

	// Invalidation forces the next read back to the database.
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return statsvc.Apply(tx, statsvc.Deltas{Projects: 1})
	}))
	c.Invalidate(context.Background())

	stats, meta = getStatistics(t, app)
	assert.EqualValues(t, 2, stats.TotalProjects)
	assert.NotContains(t, meta, "cached")
}

func TestGetStatistics_RedisDownFallsBackToDB(t *testing.T) {
	mr := miniredis.RunT(t)
	c := &cache.StatsCache{
		Rdb: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		TTL: 30 * time.Second,
	}
	app, db := setupStatisticsTest(t, c)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return statsvc.Apply(tx, statsvc.Deltas{Credits: 100})
	}))

	mr.Close()

	stats, _ := getStatistics(t, app)
	assert.EqualValues(t, 100, stats.TotalCredits)
}
