package statistics

import (
	"context"
	"errors"
	"time"

	"clearledger-backend/internal/domain"

	"gorm.io/gorm"
)

// ErrConflict signals a lost optimistic-version race on the aggregate row.
// Callers roll back the whole transition and surface 409.
var ErrConflict = errors.New("Statistics were modified concurrently")

const statsRowID = 1

// Deltas is one transition's contribution to the aggregate counters.
type Deltas struct {
	Projects int64
	Verified int64
	Pending  int64
	Credits  int64
}

// Apply moves the counters inside the caller's transaction, guarded by the
// version column so two concurrent transitions cannot lose an update.
func Apply(tx *gorm.DB, d Deltas) error {
	var stats domain.Statistics
	err := tx.Where("id = ?", statsRowID).First(&stats).Error
	if err == gorm.ErrRecordNotFound {
		stats = domain.Statistics{ID: statsRowID, Version: 1, LastUpdated: time.Now()}
		if err := tx.Create(&stats).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	res := tx.Model(&domain.Statistics{}).
		Where("id = ? AND version = ?", statsRowID, stats.Version).
		Updates(map[string]interface{}{
			"total_projects":       stats.TotalProjects + d.Projects,
			"verified_projects":    stats.VerifiedProjects + d.Verified,
			"pending_verification": stats.PendingVerification + d.Pending,
			"total_credits":        stats.TotalCredits + d.Credits,
			"version":              stats.Version + 1,
			"last_updated":         time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

type Service struct {
	DB *gorm.DB
}

// Get returns the aggregate row, or a zero row when nothing has been counted yet.
func (s *Service) Get(ctx context.Context) (*domain.Statistics, error) {
	var stats domain.Statistics
	err := s.DB.WithContext(ctx).Where("id = ?", statsRowID).First(&stats).Error
	if err == gorm.ErrRecordNotFound {
		return &domain.Statistics{ID: statsRowID, LastUpdated: time.Now()}, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
