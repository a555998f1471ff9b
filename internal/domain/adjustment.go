package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CorrespondingAdjustment is an Article 6 accounting entry against a credit.
// Several adjustments may reference one credit (partial transfers); their
// quantities may never sum past the credit's quantity.
type CorrespondingAdjustment struct {
	AdjustmentID       uuid.UUID      `gorm:"column:adjustment_id;type:uuid;primaryKey" json:"adjustment_id"`
	CreditID           uuid.UUID      `gorm:"column:credit_id;type:uuid;not null;index" json:"credit_id"`
	SerialNumber       string         `gorm:"column:serial_number;not null" json:"serial_number"`
	HostCountry        string         `gorm:"column:host_country;type:varchar(3);not null" json:"host_country"`
	RecipientCountry   *string        `gorm:"column:recipient_country;type:varchar(3)" json:"recipient_country"`
	AdjustmentType     string         `gorm:"column:adjustment_type;type:varchar(20);not null" json:"adjustment_type"`
	Quantity           int64          `gorm:"column:quantity;not null" json:"quantity"`
	Status             string         `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	NDCTarget          *string        `gorm:"column:ndc_target" json:"ndc_target"`
	SupportingDocument datatypes.JSON `gorm:"column:supporting_documents;type:jsonb" json:"supporting_documents"`
	Version            int            `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (CorrespondingAdjustment) TableName() string {
	return "CorrespondingAdjustments"
}

func (a *CorrespondingAdjustment) BeforeCreate(tx *gorm.DB) error {
	if a.AdjustmentID == uuid.Nil {
		a.AdjustmentID = uuid.New()
	}
	return nil
}
