package statistics

import (
	"context"
	"testing"

	"clearledger-backend/internal/domain"
	"clearledger-backend/internal/infrastructure/database"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func TestApply_CreatesRowAndAccumulates(t *testing.T) {
	db := setupDB(t)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return Apply(tx, Deltas{Projects: 1, Pending: 1})
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return Apply(tx, Deltas{Verified: 1, Pending: -1, Credits: 2500})
	}))

	var stats domain.Statistics
	require.NoError(t, db.First(&stats).Error)
	assert.EqualValues(t, 1, stats.TotalProjects)
	assert.EqualValues(t, 1, stats.VerifiedProjects)
	assert.EqualValues(t, 0, stats.PendingVerification)
	assert.EqualValues(t, 2500, stats.TotalCredits)
	assert.Equal(t, 3, stats.Version)
}

func TestApply_StaleVersionConflicts(t *testing.T) {
	db := setupDB(t)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return Apply(tx, Deltas{Projects: 1})
	}))

	// Read the row, then bump the version behind the reader's back; the
	// guarded update with the stale version must match nothing.
	var stats domain.Statistics
	require.NoError(t, db.First(&stats).Error)
	require.NoError(t, db.Model(&domain.Statistics{}).Where("id = ?", stats.ID).
		Update("version", stats.Version+1).Error)

	res := db.Model(&domain.Statistics{}).
		Where("id = ? AND version = ?", stats.ID, stats.Version).
		Update("total_projects", stats.TotalProjects+1)
	require.NoError(t, res.Error)
	assert.EqualValues(t, 0, res.RowsAffected)
}

func TestGet_ZeroRowWhenEmpty(t *testing.T) {
	db := setupDB(t)
	svc := &Service{DB: db}

	stats, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.TotalProjects)
	assert.EqualValues(t, 0, stats.TotalCredits)
}
