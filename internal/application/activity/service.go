package activity

import (
	"context"
	"encoding/json"

	"clearledger-backend/internal/domain"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// Record appends one audit entry for a committed transition. Best effort: a
// failed append is logged and dropped, never surfaced to the caller — the
// business transition it describes has already happened.
func (s *Service) Record(ctx context.Context, action, description, entityType, entityID, performedBy string, metadata interface{}) {
	entry := domain.ActivityLog{
		Action:      action,
		Description: description,
		EntityType:  entityType,
		EntityID:    entityID,
		PerformedBy: performedBy,
	}
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			entry.Metadata = raw
		}
	}
	if err := s.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Error().Err(err).Str("action", action).Str("entity_type", entityType).Str("entity_id", entityID).Msg("activity log append failed")
	}
}

// List returns the newest entries first, capped at limit.
func (s *Service) List(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var entries []domain.ActivityLog
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
