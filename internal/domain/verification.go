package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VerificationStage is an ordered template step of the review process.
// Static reference data seeded at migration time.
type VerificationStage struct {
	StageID           uuid.UUID      `gorm:"column:stage_id;type:uuid;primaryKey" json:"stage_id"`
	Order             int            `gorm:"column:stage_order;uniqueIndex;not null" json:"order"`
	Name              string         `gorm:"column:name;not null" json:"name"`
	Description       string         `gorm:"column:description" json:"description"`
	RequiredDocuments datatypes.JSON `gorm:"column:required_documents;type:jsonb" json:"required_documents"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

func (VerificationStage) TableName() string {
	return "VerificationStages"
}

func (s *VerificationStage) BeforeCreate(tx *gorm.DB) error {
	if s.StageID == uuid.Nil {
		s.StageID = uuid.New()
	}
	return nil
}

// ProjectVerification is one verification process for a project. A project has
// at most one pending verification at a time; a rejection is terminal for the
// record and resubmission creates a new one.
type ProjectVerification struct {
	VerificationID      uuid.UUID      `gorm:"column:verification_id;type:uuid;primaryKey" json:"verification_id"`
	ProjectID           string         `gorm:"column:project_id;not null;index" json:"project_id"`
	CurrentStage        *uuid.UUID     `gorm:"column:current_stage;type:uuid" json:"current_stage"`
	Status              string         `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	CompletedStages     datatypes.JSON `gorm:"column:completed_stages;type:jsonb" json:"completed_stages"`
	VerifierName        *string        `gorm:"column:verifier_name" json:"verifier_name"`
	VerifierContact     *string        `gorm:"column:verifier_contact" json:"verifier_contact"`
	VerifierStandard    *string        `gorm:"column:verifier_standard" json:"verifier_standard"`
	SubmittedAt         time.Time      `gorm:"column:submitted_at;not null" json:"submitted_at"`
	EstimatedCompletion *time.Time     `gorm:"column:estimated_completion" json:"estimated_completion"`
	DecidedAt           *time.Time     `gorm:"column:decided_at" json:"decided_at"`
	Version             int            `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ProjectVerification) TableName() string {
	return "ProjectVerifications"
}

func (v *ProjectVerification) BeforeCreate(tx *gorm.DB) error {
	if v.VerificationID == uuid.Nil {
		v.VerificationID = uuid.New()
	}
	return nil
}

// VerificationDocument is evidence attached to a (verification, stage) pair.
// Append-only; only the approval status mutates.
type VerificationDocument struct {
	DocumentID     uuid.UUID `gorm:"column:document_id;type:uuid;primaryKey" json:"document_id"`
	VerificationID uuid.UUID `gorm:"column:verification_id;type:uuid;not null;index" json:"verification_id"`
	StageID        uuid.UUID `gorm:"column:stage_id;type:uuid;not null" json:"stage_id"`
	DocumentType   string    `gorm:"column:document_type;not null" json:"document_type"`
	Name           string    `gorm:"column:name;not null" json:"name"`
	URL            string    `gorm:"column:url" json:"url"`
	UploadedBy     string    `gorm:"column:uploaded_by;not null" json:"uploaded_by"`
	ApprovalStatus string    `gorm:"column:approval_status;type:varchar(20);not null;default:'pending'" json:"approval_status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (VerificationDocument) TableName() string {
	return "VerificationDocuments"
}

func (d *VerificationDocument) BeforeCreate(tx *gorm.DB) error {
	if d.DocumentID == uuid.Nil {
		d.DocumentID = uuid.New()
	}
	return nil
}

// VerificationComment is discussion scoped to a (verification, stage) pair. Append-only.
type VerificationComment struct {
	CommentID      uuid.UUID `gorm:"column:comment_id;type:uuid;primaryKey" json:"comment_id"`
	VerificationID uuid.UUID `gorm:"column:verification_id;type:uuid;not null;index" json:"verification_id"`
	StageID        uuid.UUID `gorm:"column:stage_id;type:uuid;not null" json:"stage_id"`
	Author         string    `gorm:"column:author;not null" json:"author"`
	Body           string    `gorm:"column:body;not null" json:"body"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (VerificationComment) TableName() string {
	return "VerificationComments"
}

func (c *VerificationComment) BeforeCreate(tx *gorm.DB) error {
	if c.CommentID == uuid.Nil {
		c.CommentID = uuid.New()
	}
	return nil
}
