package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityLog is the append-only audit trail. One entry per successful
// state-changing operation; rows are never updated or deleted.
type ActivityLog struct {
	EntryID     uuid.UUID      `gorm:"column:entry_id;type:uuid;primaryKey" json:"entry_id"`
	Action      string         `gorm:"column:action;not null" json:"action"`
	Description string         `gorm:"column:description;not null" json:"description"`
	EntityType  string         `gorm:"column:entity_type;not null;index" json:"entity_type"`
	EntityID    string         `gorm:"column:entity_id;not null;index" json:"entity_id"`
	PerformedBy string         `gorm:"column:performed_by;not null" json:"performed_by"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt   time.Time      `gorm:"index" json:"createdAt"`
}

func (ActivityLog) TableName() string {
	return "ActivityLogs"
}

func (e *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if e.EntryID == uuid.Nil {
		e.EntryID = uuid.New()
	}
	return nil
}
