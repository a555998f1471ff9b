package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project is a carbon-offset project registered by a developer. Projects are
// never deleted; they only move between statuses, and the status is mutated
// exclusively by the verification flow.
type Project struct {
	ID                 uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProjectID          string         `gorm:"column:project_id;uniqueIndex;not null" json:"project_id"`
	Name               string         `gorm:"column:name;not null" json:"name"`
	Category           string         `gorm:"column:category;not null" json:"category"`
	Methodology        string         `gorm:"column:methodology" json:"methodology"`
	Developer          string         `gorm:"column:developer;not null" json:"developer"`
	Country            string         `gorm:"column:country;type:varchar(3);not null" json:"country"`
	Location           string         `gorm:"column:location" json:"location"`
	StartDate          *time.Time     `gorm:"column:start_date" json:"start_date"`
	EndDate            *time.Time     `gorm:"column:end_date" json:"end_date"`
	EstimatedReduction int64          `gorm:"column:estimated_reduction;not null;default:0" json:"estimated_reduction"`
	Status             string         `gorm:"column:status;type:varchar(20);not null;default:'draft'" json:"status"`
	Version            int            `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Project) TableName() string {
	return "Projects"
}

// BeforeCreate: never insert zero UUID for primary key; generate random when not set.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
