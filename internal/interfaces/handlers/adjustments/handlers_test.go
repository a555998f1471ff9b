package adjustments

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	actsvc "clearledger-backend/internal/application/activity"
	adjsvc "clearledger-backend/internal/application/adjustments"
	"clearledger-backend/internal/domain"
	"clearledger-backend/internal/infrastructure/database"
	"clearledger-backend/internal/pkg/constants"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAdjustmentsTest(t *testing.T) (*fiber.App, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	h := &Handlers{Service: &adjsvc.Service{DB: db, Activity: &actsvc.Service{DB: db}}}

	app := fiber.New()
	app.Post("/api/adjustments", h.Create)
	app.Patch("/api/adjustments/:id", h.Update)
	return app, db
}

func seedCredit(t *testing.T, db *gorm.DB, quantity int64, intlTransfer, parisEligible bool) domain.CarbonCredit {
	t.Helper()
	credit := domain.CarbonCredit{
		SerialNumber:           "KEN-2025-001-2024-001",
		ProjectID:              "KEN-2025-001",
		Vintage:                2024,
		Quantity:               quantity,
		Owner:                  "Coastal Carbon Ltd",
		Status:                 constants.CreditAvailable,
		IssuedAt:               time.Now(),
		InternationalTransfer:  intlTransfer,
		ParisAgreementEligible: parisEligible,
	}
	require.NoError(t, db.Create(&credit).Error)
	return credit
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

func createAdjustment(t *testing.T, app *fiber.App, creditID string, quantity int64) (int, []byte) {
	t.Helper()
	return doJSON(t, app, "POST", "/api/adjustments", map[string]interface{}{
		"credit_id":       creditID,
		"host_country":    "KEN",
		"adjustment_type": "Article 6.2",
		"quantity":        quantity,
		"performed_by":    "registry-1",
	})
}

func TestCreateAdjustment_StampsCreditStatus(t *testing.T) {
	app, db := setupAdjustmentsTest(t)
	credit := seedCredit(t, db, 1000, false, false)

	code, raw := createAdjustment(t, app, credit.CreditID.String(), 400)
	require.Equal(t, 201, code, string(raw))

	var a domain.CorrespondingAdjustment
	require.NoError(t, db.First(&a).Error)
	assert.Equal(t, constants.AdjustmentPending, a.Status)
	assert.Equal(t, credit.SerialNumber, a.SerialNumber)

	require.NoError(t, db.Where("credit_id = ?", credit.CreditID).First(&credit).Error)
	require.NotNil(t, credit.CorrespondingAdjustmentStatus)
	assert.Equal(t, constants.AdjustmentPending, *credit.CorrespondingAdjustmentStatus)
}

func TestCreateAdjustment_QuantityBound(t *testing.T) {
	app, db := setupAdjustmentsTest(t)
	credit := seedCredit(t, db, 1000, false, false)

	code, _ := createAdjustment(t, app, credit.CreditID.String(), 700)
	require.Equal(t, 201, code)

	// 700 already reserved; another 400 would overshoot.
	code, raw := createAdjustment(t, app, credit.CreditID.String(), 400)
	require.Equal(t, 400, code)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	msg := out["error"].(map[string]interface{})["message"].(string)
	assert.Contains(t, msg, "exceeds")

	// 300 still fits exactly.
	code, _ = createAdjustment(t, app, credit.CreditID.String(), 300)
	assert.Equal(t, 201, code)
}

func TestCreateAdjustment_RejectedQuantityIsReleased(t *testing.T) {
	app, db := setupAdjustmentsTest(t)
	credit := seedCredit(t, db, 1000, false, false)

	code, _ := createAdjustment(t, app, credit.CreditID.String(), 800)
	require.Equal(t, 201, code)
	var a domain.CorrespondingAdjustment
	require.NoError(t, db.First(&a).Error)

	status := constants.AdjustmentRejected
	code, _ = doJSON(t, app, "PATCH", "/api/adjustments/"+a.AdjustmentID.String(), map[string]interface{}{
		"status": status, "performed_by": "registry-1",
	})
	require.Equal(t, 200, code)

	// The rejected 800 no longer reserves quantity.
	code, _ = createAdjustment(t, app, credit.CreditID.String(), 900)
	assert.Equal(t, 201, code)
}

func TestCreateAdjustment_ParisEligibilityHardCheck(t *testing.T) {
	app, db := setupAdjustmentsTest(t)
	credit := seedCredit(t, db, 1000, true, false)

	code, raw := createAdjustment(t, app, credit.CreditID.String(), 100)
	require.Equal(t, 400, code)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	msg := out["error"].(map[string]interface{})["message"].(string)
	assert.Contains(t, msg, "Paris Agreement")

	var count int64
	require.NoError(t, db.Model(&domain.CorrespondingAdjustment{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// Eligible credits with international transfer pass.
	eligible := seedAnotherCredit(t, db, 1000, true, true)
	code, _ = createAdjustment(t, app, eligible.CreditID.String(), 100)
	assert.Equal(t, 201, code)
}

func seedAnotherCredit(t *testing.T, db *gorm.DB, quantity int64, intlTransfer, parisEligible bool) domain.CarbonCredit {
	t.Helper()
	credit := domain.CarbonCredit{
		SerialNumber:           "KEN-2025-001-2024-002",
		ProjectID:              "KEN-2025-001",
		Vintage:                2024,
		Quantity:               quantity,
		Owner:                  "Coastal Carbon Ltd",
		Status:                 constants.CreditAvailable,
		IssuedAt:               time.Now(),
		InternationalTransfer:  intlTransfer,
		ParisAgreementEligible: parisEligible,
	}
	require.NoError(t, db.Create(&credit).Error)
	return credit
}

func TestUpdateAdjustment_ForwardOnlyTransitions(t *testing.T) {
	app, db := setupAdjustmentsTest(t)
	credit := seedCredit(t, db, 1000, false, false)

	code, _ := createAdjustment(t, app, credit.CreditID.String(), 100)
	require.Equal(t, 201, code)
	var a domain.CorrespondingAdjustment
	require.NoError(t, db.First(&a).Error)
	path := "/api/adjustments/" + a.AdjustmentID.String()

	// approved → rejected is not a forward move.
	code, _ = doJSON(t, app, "PATCH", path, map[string]interface{}{
		"status": constants.AdjustmentApproved, "performed_by": "registry-1",
	})
	require.Equal(t, 200, code)
	code, _ = doJSON(t, app, "PATCH", path, map[string]interface{}{
		"status": constants.AdjustmentRejected, "performed_by": "registry-1",
	})
	assert.Equal(t, 400, code)

	code, _ = doJSON(t, app, "PATCH", path, map[string]interface{}{
		"status": constants.AdjustmentVerified, "performed_by": "registry-1",
	})
	require.Equal(t, 200, code)

	// Verified is terminal.
	code, _ = doJSON(t, app, "PATCH", path, map[string]interface{}{
		"status": constants.AdjustmentPending, "performed_by": "registry-1",
	})
	assert.Equal(t, 400, code)

	// The credit mirrors the latest status.
	require.NoError(t, db.Where("credit_id = ?", credit.CreditID).First(&credit).Error)
	require.NotNil(t, credit.CorrespondingAdjustmentStatus)
	assert.Equal(t, constants.AdjustmentVerified, *credit.CorrespondingAdjustmentStatus)
}

func TestUpdateAdjustment_MetadataOnlyPatch(t *testing.T) {
	app, db := setupAdjustmentsTest(t)
	credit := seedCredit(t, db, 1000, false, false)

	code, _ := createAdjustment(t, app, credit.CreditID.String(), 100)
	require.Equal(t, 201, code)
	var a domain.CorrespondingAdjustment
	require.NoError(t, db.First(&a).Error)

	code, _ = doJSON(t, app, "PATCH", "/api/adjustments/"+a.AdjustmentID.String(), map[string]interface{}{
		"recipient_country": "CHE", "ndc_target": "Energy sector 2030", "performed_by": "registry-1",
	})
	require.Equal(t, 200, code)

	require.NoError(t, db.First(&a).Error)
	assert.Equal(t, constants.AdjustmentPending, a.Status)
	require.NotNil(t, a.RecipientCountry)
	assert.Equal(t, "CHE", *a.RecipientCountry)
	require.NotNil(t, a.NDCTarget)
	assert.Equal(t, "Energy sector 2030", *a.NDCTarget)
}

func TestCreateAdjustment_ValidationDetails(t *testing.T) {
	app, _ := setupAdjustmentsTest(t)

	code, raw := doJSON(t, app, "POST", "/api/adjustments", map[string]interface{}{
		"credit_id": "not-a-uuid", "host_country": "Kenya", "adjustment_type": "Article 9", "quantity": 0,
	})
	require.Equal(t, 400, code)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	details := out["error"].(map[string]interface{})["details"].(map[string]interface{})
	assert.Contains(t, details, "credit_id")
	assert.Contains(t, details, "host_country")
	assert.Contains(t, details, "adjustment_type")
	assert.Contains(t, details, "quantity")
	assert.Contains(t, details, "performed_by")
}
