package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CarbonCredit is one issued credit batch. Once status leaves "available" the
// batch is terminal: a credit is retired or transferred at most once.
type CarbonCredit struct {
	CreditID     uuid.UUID `gorm:"column:credit_id;type:uuid;primaryKey" json:"credit_id"`
	SerialNumber string    `gorm:"column:serial_number;uniqueIndex;not null" json:"serial_number"`
	ProjectID    string    `gorm:"column:project_id;not null;index" json:"project_id"`
	Vintage      int       `gorm:"column:vintage;not null" json:"vintage"`
	Quantity     int64     `gorm:"column:quantity;not null" json:"quantity"`
	Owner        string    `gorm:"column:owner;not null" json:"owner"`
	Status       string    `gorm:"column:status;type:varchar(20);not null;default:'available'" json:"status"`
	IssuedAt     time.Time `gorm:"column:issued_at;not null" json:"issued_at"`

	// Populated only on retirement.
	RetirementPurpose     *string    `gorm:"column:retirement_purpose" json:"retirement_purpose"`
	RetirementBeneficiary *string    `gorm:"column:retirement_beneficiary" json:"retirement_beneficiary"`
	RetirementDate        *time.Time `gorm:"column:retirement_date" json:"retirement_date"`

	// Populated only on transfer. Owner keeps the original issuer for the
	// audit trail; TransferRecipient records the destination participant.
	TransferRecipient *string    `gorm:"column:transfer_recipient" json:"transfer_recipient"`
	TransferPurpose   *string    `gorm:"column:transfer_purpose" json:"transfer_purpose"`
	TransferDate      *time.Time `gorm:"column:transfer_date" json:"transfer_date"`

	// Paris Agreement Article 6 metadata.
	ParisAgreementEligible        bool       `gorm:"column:paris_agreement_eligible;not null;default:false" json:"paris_agreement_eligible"`
	HostCountry                   *string    `gorm:"column:host_country;type:varchar(3)" json:"host_country"`
	CorrespondingAdjustmentStatus *string    `gorm:"column:corresponding_adjustment_status;type:varchar(20)" json:"corresponding_adjustment_status"`
	InternationalTransfer         bool       `gorm:"column:international_transfer;not null;default:false" json:"international_transfer"`
	MitigationOutcome             *string    `gorm:"column:mitigation_outcome" json:"mitigation_outcome"`
	AuthorizationReference        *string    `gorm:"column:authorization_reference" json:"authorization_reference"`
	AuthorizationDate             *time.Time `gorm:"column:authorization_date" json:"authorization_date"`

	Version   int            `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (CarbonCredit) TableName() string {
	return "CarbonCredits"
}

func (c *CarbonCredit) BeforeCreate(tx *gorm.DB) error {
	if c.CreditID == uuid.Nil {
		c.CreditID = uuid.New()
	}
	return nil
}

// Participant is a known registry participant (developer, broker, buyer).
// Transfers must name an existing participant as recipient.
type Participant struct {
	ParticipantID uuid.UUID      `gorm:"column:participant_id;type:uuid;primaryKey" json:"participant_id"`
	Name          string         `gorm:"column:name;uniqueIndex;not null" json:"name"`
	Country       *string        `gorm:"column:country;type:varchar(3)" json:"country"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Participant) TableName() string {
	return "Participants"
}

func (p *Participant) BeforeCreate(tx *gorm.DB) error {
	if p.ParticipantID == uuid.Nil {
		p.ParticipantID = uuid.New()
	}
	return nil
}
