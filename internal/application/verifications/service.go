package verifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clearledger-backend/internal/application/activity"
	"clearledger-backend/internal/application/statistics"
	"clearledger-backend/internal/domain"
	"clearledger-backend/internal/infrastructure/cache"
	"clearledger-backend/internal/notary"
	"clearledger-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var errDomain = errors.New("domain rule rejected the operation")

type Service struct {
	DB       *gorm.DB
	Activity *activity.Service
	Notary   notary.Notary
	Cache    *cache.StatsCache
}

type Result struct {
	Data     interface{} `json:"data,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
	Error    string      `json:"error,omitempty"`
	Code     int         `json:"code,omitempty"`
}

// Create opens a verification for a project at the first stage. A project
// holds at most one pending verification; rejected projects may resubmit.
func (s *Service) Create(ctx context.Context, projectID string, estimatedCompletion *time.Time, performedBy string) (*Result, error) {
	var out Result
	var verification domain.ProjectVerification

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project domain.Project
		if err := tx.Where("project_id = ?", projectID).First(&project).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				out = Result{Error: "Project not found", Code: 404}
				return errDomain
			}
			return err
		}
		if project.Status == constants.ProjectVerified {
			out = Result{Error: "Project is already verified", Code: 400}
			return errDomain
		}
		if project.Status == constants.ProjectDraft {
			out = Result{Error: "Project must be registered before verification", Code: 400}
			return errDomain
		}

		var pending int64
		if err := tx.Model(&domain.ProjectVerification{}).
			Where("project_id = ? AND status = ?", projectID, constants.VerificationPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			out = Result{Error: "Project already has a pending verification", Code: 400}
			return errDomain
		}

		var firstStage domain.VerificationStage
		if err := tx.Order("stage_order ASC").First(&firstStage).Error; err != nil {
			return err
		}

		verification = domain.ProjectVerification{
			ProjectID:           projectID,
			CurrentStage:        &firstStage.StageID,
			Status:              constants.VerificationPending,
			CompletedStages:     []byte("[]"),
			SubmittedAt:         time.Now(),
			EstimatedCompletion: estimatedCompletion,
		}
		if err := tx.Create(&verification).Error; err != nil {
			return err
		}

		return statistics.Apply(tx, statistics.Deltas{Pending: 1})
	})
	if err != nil {
		if err == errDomain {
			return &out, nil
		}
		if errors.Is(err, statistics.ErrConflict) {
			return &Result{Error: err.Error(), Code: 409}, nil
		}
		return nil, err
	}

	s.Cache.Invalidate(ctx)
	s.Activity.Record(ctx, "verification_submitted",
		fmt.Sprintf("Verification opened for project %s", projectID),
		constants.EntityVerification, verification.VerificationID.String(), performedBy, nil)
	notary.RecordAsync(s.Notary, constants.EntityVerification, verification.VerificationID.String(), "submitted", verification)

	return &Result{Data: verification}, nil
}

// List returns verifications, optionally filtered by project or status.
func (s *Service) List(ctx context.Context, projectID, status string) ([]domain.ProjectVerification, error) {
	q := s.DB.WithContext(ctx).Order("submitted_at DESC")
	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []domain.ProjectVerification
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Result, error) {
	var v domain.ProjectVerification
	if err := s.DB.WithContext(ctx).Where("verification_id = ?", id).First(&v).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &Result{Error: "Verification not found", Code: 404}, nil
		}
		return nil, err
	}
	return &Result{Data: v}, nil
}

type UpdateInput struct {
	Action              string // "", "advance", "approve", "reject"
	NextStageID         *uuid.UUID
	VerifierName        *string
	VerifierContact     *string
	VerifierStandard    *string
	EstimatedCompletion *time.Time
	PerformedBy         string
}

// Update applies verifier metadata and/or one state-machine action. Every
// path requires the verification to still be pending.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Result, error) {
	var out Result
	var action string

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v domain.ProjectVerification
		if err := tx.Where("verification_id = ?", id).First(&v).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				out = Result{Error: "Verification not found", Code: 404}
				return errDomain
			}
			return err
		}

		if v.Status != constants.VerificationPending {
			out = Result{Error: fmt.Sprintf("Verification is already %s; only pending verifications can be updated", v.Status), Code: 400}
			return errDomain
		}

		fields := map[string]interface{}{"version": v.Version + 1}
		if in.VerifierName != nil {
			fields["verifier_name"] = *in.VerifierName
		}
		if in.VerifierContact != nil {
			fields["verifier_contact"] = *in.VerifierContact
		}
		if in.VerifierStandard != nil {
			fields["verifier_standard"] = *in.VerifierStandard
		}
		if in.EstimatedCompletion != nil {
			fields["estimated_completion"] = *in.EstimatedCompletion
		}

		switch in.Action {
		case "":
			action = "verification_updated"
		case "advance":
			if in.NextStageID == nil {
				out = Result{Error: "next_stage_id is required to advance", Code: 400}
				return errDomain
			}
			var stage domain.VerificationStage
			if err := tx.Where("stage_id = ?", *in.NextStageID).First(&stage).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					out = Result{Error: "Unknown verification stage", Code: 400}
					return errDomain
				}
				return err
			}
			fields["current_stage"] = *in.NextStageID
			action = "verification_stage_advanced"
		case "approve":
			fields["status"] = constants.VerificationApproved
			fields["decided_at"] = time.Now()
			action = "verification_approved"
		case "reject":
			fields["status"] = constants.VerificationRejected
			fields["decided_at"] = time.Now()
			action = "verification_rejected"
		default:
			out = Result{Error: "Unknown action; expected advance, approve or reject", Code: 400}
			return errDomain
		}

		res := tx.Model(&domain.ProjectVerification{}).
			Where("verification_id = ? AND version = ?", id, v.Version).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			out = Result{Error: "Verification was modified concurrently, retry", Code: 409}
			return errDomain
		}

		// Approval flips the project to verified and moves both counters; all
		// of it lands with this transaction or none of it does.
		if in.Action == "approve" {
			var project domain.Project
			if err := tx.Where("project_id = ?", v.ProjectID).First(&project).Error; err != nil {
				return err
			}
			resP := tx.Model(&domain.Project{}).
				Where("project_id = ? AND version = ?", v.ProjectID, project.Version).
				Updates(map[string]interface{}{
					"status":  constants.ProjectVerified,
					"version": project.Version + 1,
				})
			if resP.Error != nil {
				return resP.Error
			}
			if resP.RowsAffected == 0 {
				out = Result{Error: "Project was modified concurrently, retry", Code: 409}
				return errDomain
			}
			if err := statistics.Apply(tx, statistics.Deltas{Verified: 1, Pending: -1}); err != nil {
				return err
			}
		}
		if in.Action == "reject" {
			// The project keeps its status and may resubmit; the verification
			// just stops being pending.
			if err := statistics.Apply(tx, statistics.Deltas{Pending: -1}); err != nil {
				return err
			}
		}

		if err := tx.Where("verification_id = ?", id).First(&v).Error; err != nil {
			return err
		}
		out = Result{Data: v}
		return nil
	})
	if err != nil {
		if err == errDomain {
			return &out, nil
		}
		if errors.Is(err, statistics.ErrConflict) {
			return &Result{Error: err.Error(), Code: 409}, nil
		}
		return nil, err
	}

	s.Cache.Invalidate(ctx)
	s.Activity.Record(ctx, action,
		fmt.Sprintf("Verification %s: %s", id, action),
		constants.EntityVerification, id.String(), in.PerformedBy, nil)
	if in.Action == "approve" || in.Action == "reject" {
		notary.RecordAsync(s.Notary, constants.EntityVerification, id.String(), in.Action, out.Data)
	}

	return &out, nil
}

// CompleteStage idempotently marks a stage complete. Missing required
// document types produce warnings, not a refusal.
func (s *Service) CompleteStage(ctx context.Context, id, stageID uuid.UUID, performedBy string) (*Result, error) {
	var out Result

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v domain.ProjectVerification
		if err := tx.Where("verification_id = ?", id).First(&v).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				out = Result{Error: "Verification not found", Code: 404}
				return errDomain
			}
			return err
		}
		if v.Status != constants.VerificationPending {
			out = Result{Error: "Only pending verifications can progress through stages", Code: 400}
			return errDomain
		}

		var stage domain.VerificationStage
		if err := tx.Where("stage_id = ?", stageID).First(&stage).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				out = Result{Error: "Verification stage not found", Code: 404}
				return errDomain
			}
			return err
		}

		var completed []string
		if len(v.CompletedStages) > 0 {
			if err := json.Unmarshal(v.CompletedStages, &completed); err != nil {
				completed = nil
			}
		}
		already := false
		for _, cs := range completed {
			if cs == stageID.String() {
				already = true
				break
			}
		}
		if !already {
			completed = append(completed, stageID.String())
			raw, err := json.Marshal(completed)
			if err != nil {
				return err
			}
			res := tx.Model(&domain.ProjectVerification{}).
				Where("verification_id = ? AND version = ?", id, v.Version).
				Updates(map[string]interface{}{
					"completed_stages": raw,
					"version":          v.Version + 1,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				out = Result{Error: "Verification was modified concurrently, retry", Code: 409}
				return errDomain
			}
		}

		warnings := s.missingDocumentWarnings(tx, v.VerificationID, stage)

		if err := tx.Where("verification_id = ?", id).First(&v).Error; err != nil {
			return err
		}
		out = Result{Data: v, Warnings: warnings}
		return nil
	})
	if err != nil {
		if err == errDomain {
			return &out, nil
		}
		return nil, err
	}

	for _, w := range out.Warnings {
		log.Warn().Str("verification_id", id.String()).Str("stage_id", stageID.String()).Msg(w)
	}
	s.Activity.Record(ctx, "verification_stage_completed",
		fmt.Sprintf("Stage %s completed for verification %s", stageID, id),
		constants.EntityVerification, id.String(), performedBy, nil)

	return &out, nil
}

// missingDocumentWarnings compares a stage's required document types against
// the documents attached to (verification, stage). Soft gate only.
func (s *Service) missingDocumentWarnings(tx *gorm.DB, verificationID uuid.UUID, stage domain.VerificationStage) []string {
	var required []string
	if len(stage.RequiredDocuments) > 0 {
		if err := json.Unmarshal(stage.RequiredDocuments, &required); err != nil {
			return nil
		}
	}
	if len(required) == 0 {
		return nil
	}

	var docs []domain.VerificationDocument
	if err := tx.Where("verification_id = ? AND stage_id = ?", verificationID, stage.StageID).Find(&docs).Error; err != nil {
		return nil
	}
	present := map[string]bool{}
	for _, d := range docs {
		present[d.DocumentType] = true
	}

	var warnings []string
	for _, r := range required {
		if !present[r] {
			warnings = append(warnings, fmt.Sprintf("Required document type %q is missing for stage %q", r, stage.Name))
		}
	}
	return warnings
}

type DocumentInput struct {
	StageID      uuid.UUID
	DocumentType string
	Name         string
	URL          string
	UploadedBy   string
}

// AddDocument attaches evidence to a (verification, stage) pair.
func (s *Service) AddDocument(ctx context.Context, verificationID uuid.UUID, in DocumentInput) (*Result, error) {
	var v domain.ProjectVerification
	if err := s.DB.WithContext(ctx).Where("verification_id = ?", verificationID).First(&v).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &Result{Error: "Verification not found", Code: 404}, nil
		}
		return nil, err
	}
	var stage domain.VerificationStage
	if err := s.DB.WithContext(ctx).Where("stage_id = ?", in.StageID).First(&stage).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &Result{Error: "Verification stage not found", Code: 400}, nil
		}
		return nil, err
	}

	doc := domain.VerificationDocument{
		VerificationID: verificationID,
		StageID:        in.StageID,
		DocumentType:   in.DocumentType,
		Name:           in.Name,
		URL:            in.URL,
		UploadedBy:     in.UploadedBy,
		ApprovalStatus: "pending",
	}
	if err := s.DB.WithContext(ctx).Create(&doc).Error; err != nil {
		return nil, err
	}

	s.Activity.Record(ctx, "verification_document_added",
		fmt.Sprintf("Document %q attached to verification %s", in.Name, verificationID),
		constants.EntityVerification, verificationID.String(), in.UploadedBy, nil)
	return &Result{Data: doc}, nil
}

func (s *Service) ListDocuments(ctx context.Context, verificationID uuid.UUID) ([]domain.VerificationDocument, error) {
	var docs []domain.VerificationDocument
	err := s.DB.WithContext(ctx).Where("verification_id = ?", verificationID).Order("created_at ASC").Find(&docs).Error
	return docs, err
}

// SetDocumentStatus is the only mutation documents allow.
func (s *Service) SetDocumentStatus(ctx context.Context, documentID uuid.UUID, status, performedBy string) (*Result, error) {
	if status != "pending" && status != "approved" && status != "rejected" {
		return &Result{Error: "Invalid document approval status", Code: 400}, nil
	}
	var doc domain.VerificationDocument
	if err := s.DB.WithContext(ctx).Where("document_id = ?", documentID).First(&doc).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &Result{Error: "Document not found", Code: 404}, nil
		}
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&doc).Update("approval_status", status).Error; err != nil {
		return nil, err
	}
	doc.ApprovalStatus = status
	s.Activity.Record(ctx, "verification_document_reviewed",
		fmt.Sprintf("Document %s marked %s", documentID, status),
		constants.EntityVerification, doc.VerificationID.String(), performedBy, nil)
	return &Result{Data: doc}, nil
}

type CommentInput struct {
	StageID uuid.UUID
	Author  string
	Body    string
}

// AddComment appends discussion to a (verification, stage) pair.
func (s *Service) AddComment(ctx context.Context, verificationID uuid.UUID, in CommentInput) (*Result, error) {
	var v domain.ProjectVerification
	if err := s.DB.WithContext(ctx).Where("verification_id = ?", verificationID).First(&v).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &Result{Error: "Verification not found", Code: 404}, nil
		}
		return nil, err
	}
	comment := domain.VerificationComment{
		VerificationID: verificationID,
		StageID:        in.StageID,
		Author:         in.Author,
		Body:           in.Body,
	}
	if err := s.DB.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, err
	}
	return &Result{Data: comment}, nil
}

func (s *Service) ListComments(ctx context.Context, verificationID uuid.UUID) ([]domain.VerificationComment, error) {
	var comments []domain.VerificationComment
	err := s.DB.WithContext(ctx).Where("verification_id = ?", verificationID).Order("created_at ASC").Find(&comments).Error
	return comments, err
}

// ListStages returns the ordered stage template.
func (s *Service) ListStages(ctx context.Context) ([]domain.VerificationStage, error) {
	var stages []domain.VerificationStage
	err := s.DB.WithContext(ctx).Order("stage_order ASC").Find(&stages).Error
	return stages, err
}
