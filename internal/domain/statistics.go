package domain

import (
	"time"
)

// Statistics is the single aggregate row. Counters are updated inside the
// same transaction as the mutation that moves them, guarded by Version.
type Statistics struct {
	ID                  int       `gorm:"column:id;primaryKey" json:"-"`
	TotalProjects       int64     `gorm:"column:total_projects;not null;default:0" json:"total_projects"`
	VerifiedProjects    int64     `gorm:"column:verified_projects;not null;default:0" json:"verified_projects"`
	PendingVerification int64     `gorm:"column:pending_verification;not null;default:0" json:"pending_verification"`
	TotalCredits        int64     `gorm:"column:total_credits;not null;default:0" json:"total_credits"`
	Version             int       `gorm:"column:version;not null;default:1" json:"-"`
	LastUpdated         time.Time `gorm:"column:last_updated" json:"last_updated"`
}

func (Statistics) TableName() string {
	return "Statistics"
}
