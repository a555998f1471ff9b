package projects

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	actsvc "clearledger-backend/internal/application/activity"
	projsvc "clearledger-backend/internal/application/projects"
	"clearledger-backend/internal/domain"
	"clearledger-backend/internal/infrastructure/database"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupProjectsTest(t *testing.T) (*Handlers, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	svc := &projsvc.Service{DB: db, Activity: &actsvc.Service{DB: db}}
	return &Handlers{Service: svc}, db
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload map[string]interface{}) (int, []byte) {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, raw
}

func TestCreateProject_Validation(t *testing.T) {
	h, db := setupProjectsTest(t)
	app := fiber.New()
	app.Post("/api/projects", h.Create)

	code, raw := doJSON(t, app, "POST", "/api/projects", map[string]interface{}{
		"name": "Mangrove Restoration",
		// category, developer, country, performed_by missing
	})
	assert.Equal(t, 400, code)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	errObj := out["error"].(map[string]interface{})
	details := errObj["details"].(map[string]interface{})
	assert.Contains(t, details, "category")
	assert.Contains(t, details, "developer")
	assert.Contains(t, details, "country")
	assert.Contains(t, details, "performed_by")

	var count int64
	db.Model(&domain.Project{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateProject_Success(t *testing.T) {
	h, db := setupProjectsTest(t)
	app := fiber.New()
	app.Post("/api/projects", h.Create)

	code, raw := doJSON(t, app, "POST", "/api/projects", map[string]interface{}{
		"name":                "Mangrove Restoration",
		"category":            "blue_carbon",
		"developer":           "Coastal Carbon Ltd",
		"country":             "ken",
		"estimated_reduction": 120000,
		"performed_by":        "dev-1",
	})
	require.Equal(t, 201, code, string(raw))

	var project domain.Project
	require.NoError(t, db.First(&project).Error)
	assert.Regexp(t, `^KEN-\d{4}-001$`, project.ProjectID)
	assert.Equal(t, "registered", project.Status)

	var stats domain.Statistics
	require.NoError(t, db.First(&stats).Error)
	assert.EqualValues(t, 1, stats.TotalProjects)
	assert.EqualValues(t, 0, stats.VerifiedProjects)

	var entries []domain.ActivityLog
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, "project_created", entries[0].Action)
	assert.Equal(t, "project", entries[0].EntityType)
	assert.Equal(t, project.ProjectID, entries[0].EntityID)

	// The developer is now a known participant for transfers.
	var participant domain.Participant
	require.NoError(t, db.Where("name = ?", "Coastal Carbon Ltd").First(&participant).Error)
}

func TestCreateProject_SequencePerCountryYear(t *testing.T) {
	h, db := setupProjectsTest(t)
	app := fiber.New()
	app.Post("/api/projects", h.Create)

	for i := 0; i < 3; i++ {
		code, _ := doJSON(t, app, "POST", "/api/projects", map[string]interface{}{
			"name": "P", "category": "forestry", "developer": "Dev", "country": "BRA", "performed_by": "dev-1",
		})
		require.Equal(t, 201, code)
	}
	code, _ := doJSON(t, app, "POST", "/api/projects", map[string]interface{}{
		"name": "P", "category": "forestry", "developer": "Dev", "country": "IDN", "performed_by": "dev-1",
	})
	require.Equal(t, 201, code)

	var ids []string
	db.Model(&domain.Project{}).Order("created_at ASC").Pluck("project_id", &ids)
	require.Len(t, ids, 4)
	assert.Regexp(t, `^BRA-\d{4}-001$`, ids[0])
	assert.Regexp(t, `^BRA-\d{4}-002$`, ids[1])
	assert.Regexp(t, `^BRA-\d{4}-003$`, ids[2])
	assert.Regexp(t, `^IDN-\d{4}-001$`, ids[3])
}

func TestUpdateProject_StatusIsProtected(t *testing.T) {
	h, db := setupProjectsTest(t)
	app := fiber.New()
	app.Post("/api/projects", h.Create)
	app.Put("/api/projects/:id", h.Update)

	code, _ := doJSON(t, app, "POST", "/api/projects", map[string]interface{}{
		"name": "P", "category": "forestry", "developer": "Dev", "country": "KEN", "performed_by": "dev-1",
	})
	require.Equal(t, 201, code)
	var project domain.Project
	require.NoError(t, db.First(&project).Error)

	code, _ = doJSON(t, app, "PUT", "/api/projects/"+project.ProjectID, map[string]interface{}{
		"status": "verified", "performed_by": "dev-1",
	})
	assert.Equal(t, 400, code)

	require.NoError(t, db.First(&project).Error)
	assert.Equal(t, "registered", project.Status)
}

func TestUpdateProject_NotFound(t *testing.T) {
	h, _ := setupProjectsTest(t)
	app := fiber.New()
	app.Put("/api/projects/:id", h.Update)

	code, _ := doJSON(t, app, "PUT", "/api/projects/KEN-2025-999", map[string]interface{}{
		"name": "Renamed", "performed_by": "dev-1",
	})
	assert.Equal(t, 404, code)
}

func TestUpdateProject_Metadata(t *testing.T) {
	h, db := setupProjectsTest(t)
	app := fiber.New()
	app.Post("/api/projects", h.Create)
	app.Put("/api/projects/:id", h.Update)

	code, _ := doJSON(t, app, "POST", "/api/projects", map[string]interface{}{
		"name": "P", "category": "forestry", "developer": "Dev", "country": "KEN", "performed_by": "dev-1",
	})
	require.Equal(t, 201, code)
	var project domain.Project
	require.NoError(t, db.First(&project).Error)

	code, _ = doJSON(t, app, "PUT", "/api/projects/"+project.ProjectID, map[string]interface{}{
		"name": "Renamed", "location": "Lamu County", "performed_by": "dev-1",
	})
	require.Equal(t, 200, code)

	require.NoError(t, db.First(&project).Error)
	assert.Equal(t, "Renamed", project.Name)
	assert.Equal(t, "Lamu County", project.Location)
	assert.Equal(t, 2, project.Version)
}
