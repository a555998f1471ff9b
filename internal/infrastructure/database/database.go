package database

import (
	"errors"
	"strings"

	"clearledger-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN.
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") when using connection poolers (e.g. PgBouncer, Supabase, Render).
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// AutoMigrate runs migrations for all registry models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Project{},
		&domain.VerificationStage{},
		&domain.ProjectVerification{},
		&domain.VerificationDocument{},
		&domain.VerificationComment{},
		&domain.CarbonCredit{},
		&domain.Participant{},
		&domain.CorrespondingAdjustment{},
		&domain.ActivityLog{},
		&domain.Statistics{},
	)
}

// IsDuplicateKey reports a unique-index violation across the drivers in use
// (postgres in production, sqlite in tests). Callers retry with the next
// sequence/batch number.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}

// defaultStages is the five-step review template seeded on first boot.
var defaultStages = []struct {
	Order       int
	Name        string
	Description string
	Required    string
}{
	{1, "Document Review", "Initial screening of the project design document and methodology fit", `["project_design_document","methodology_assessment"]`},
	{2, "Baseline Assessment", "Review of the baseline scenario and additionality argument", `["baseline_study"]`},
	{3, "Site Visit", "On-site inspection by the assigned verifier", `["site_visit_report"]`},
	{4, "Stakeholder Consultation", "Local stakeholder comments and responses", `[]`},
	{5, "Final Review", "Verifier's closing assessment before the decision", `["verification_report"]`},
}

// SeedVerificationStages inserts the default stage template when the table is
// empty. Idempotent across restarts.
func SeedVerificationStages(db *gorm.DB) error {
	var count int64
	if err := db.Model(&domain.VerificationStage{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, s := range defaultStages {
		stage := domain.VerificationStage{
			Order:             s.Order,
			Name:              s.Name,
			Description:       s.Description,
			RequiredDocuments: []byte(s.Required),
		}
		if err := db.Create(&stage).Error; err != nil {
			return err
		}
	}
	return nil
}
