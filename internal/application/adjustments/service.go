package adjustments

import (
	"context"
	"errors"
	"fmt"

	"clearledger-backend/internal/application/activity"
	"clearledger-backend/internal/domain"
	"clearledger-backend/internal/notary"
	"clearledger-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var errDomain = errors.New("domain rule rejected the operation")

type Service struct {
	DB       *gorm.DB
	Activity *activity.Service
	Notary   notary.Notary
}

type Result struct {
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
	Code  int         `json:"code,omitempty"`
}

type CreateInput struct {
	CreditID            uuid.UUID
	HostCountry         string
	RecipientCountry    *string
	AdjustmentType      string
	Quantity            int64
	NDCTarget           *string
	SupportingDocuments datatypes.JSON
	PerformedBy         string
}

// Create records an Article 6 adjustment against a credit. Hard invariants:
// the summed quantities across a credit's live adjustments stay within the
// credit's quantity, and internationally transferred credits must be Paris
// eligible before any adjustment is recorded.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Result, error) {
	var out Result
	var adjustment domain.CorrespondingAdjustment

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var credit domain.CarbonCredit
		if err := tx.Where("credit_id = ?", in.CreditID).First(&credit).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				out = Result{Error: "Credit not found", Code: 404}
				return errDomain
			}
			return err
		}

		if credit.InternationalTransfer && !credit.ParisAgreementEligible {
			out = Result{Error: "Credit is flagged for international transfer but is not Paris Agreement eligible", Code: 400}
			return errDomain
		}

		// Rejected adjustments never counted; everything else reserves quantity.
		var reserved int64
		if err := tx.Model(&domain.CorrespondingAdjustment{}).
			Where("credit_id = ? AND status <> ?", in.CreditID, constants.AdjustmentRejected).
			Select("COALESCE(SUM(quantity), 0)").
			Scan(&reserved).Error; err != nil {
			return err
		}
		if reserved+in.Quantity > credit.Quantity {
			out = Result{
				Error: fmt.Sprintf("Adjustment quantity exceeds the credit's remaining quantity (%d of %d tCO2e already adjusted)", reserved, credit.Quantity),
				Code:  400,
			}
			return errDomain
		}

		adjustment = domain.CorrespondingAdjustment{
			CreditID:           in.CreditID,
			SerialNumber:       credit.SerialNumber,
			HostCountry:        in.HostCountry,
			RecipientCountry:   in.RecipientCountry,
			AdjustmentType:     in.AdjustmentType,
			Quantity:           in.Quantity,
			Status:             constants.AdjustmentPending,
			NDCTarget:          in.NDCTarget,
			SupportingDocument: in.SupportingDocuments,
		}
		if err := tx.Create(&adjustment).Error; err != nil {
			return err
		}

		// First adjustment stamps the credit's adjustment status.
		if credit.CorrespondingAdjustmentStatus == nil {
			pending := constants.AdjustmentPending
			res := tx.Model(&domain.CarbonCredit{}).
				Where("credit_id = ? AND version = ?", credit.CreditID, credit.Version).
				Updates(map[string]interface{}{
					"corresponding_adjustment_status": pending,
					"version":                         credit.Version + 1,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				out = Result{Error: "Credit was modified concurrently, retry", Code: 409}
				return errDomain
			}
		}
		return nil
	})
	if err != nil {
		if err == errDomain {
			return &out, nil
		}
		return nil, err
	}

	s.Activity.Record(ctx, "adjustment_created",
		fmt.Sprintf("%s adjustment of %d tCO2e recorded against serial %s", in.AdjustmentType, in.Quantity, adjustment.SerialNumber),
		constants.EntityAdjustment, adjustment.AdjustmentID.String(), in.PerformedBy, nil)
	notary.RecordAsync(s.Notary, constants.EntityAdjustment, adjustment.AdjustmentID.String(), "created", adjustment)

	return &Result{Data: adjustment}, nil
}

// List returns adjustments, optionally filtered by credit.
func (s *Service) List(ctx context.Context, creditID *uuid.UUID) ([]domain.CorrespondingAdjustment, error) {
	q := s.DB.WithContext(ctx).Order("created_at DESC")
	if creditID != nil {
		q = q.Where("credit_id = ?", *creditID)
	}
	var list []domain.CorrespondingAdjustment
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Result, error) {
	var a domain.CorrespondingAdjustment
	if err := s.DB.WithContext(ctx).Where("adjustment_id = ?", id).First(&a).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &Result{Error: "Adjustment not found", Code: 404}, nil
		}
		return nil, err
	}
	return &Result{Data: a}, nil
}

type UpdateInput struct {
	Status              *string
	RecipientCountry    *string
	NDCTarget           *string
	SupportingDocuments datatypes.JSON
	PerformedBy         string
}

// Update patches an adjustment. Status moves forward only: pending →
// approved|rejected, approved → verified. Anything else is an invalid transition.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Result, error) {
	var out Result
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a domain.CorrespondingAdjustment
		if err := tx.Where("adjustment_id = ?", id).First(&a).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				out = Result{Error: "Adjustment not found", Code: 404}
				return errDomain
			}
			return err
		}

		fields := map[string]interface{}{"version": a.Version + 1}
		if in.Status != nil && *in.Status != a.Status {
			if !constants.IsForwardAdjustmentTransition(a.Status, *in.Status) {
				out = Result{Error: fmt.Sprintf("Invalid adjustment status transition %s → %s", a.Status, *in.Status), Code: 400}
				return errDomain
			}
			fields["status"] = *in.Status
		}
		if in.RecipientCountry != nil {
			fields["recipient_country"] = *in.RecipientCountry
		}
		if in.NDCTarget != nil {
			fields["ndc_target"] = *in.NDCTarget
		}
		if len(in.SupportingDocuments) > 0 {
			fields["supporting_documents"] = in.SupportingDocuments
		}

		res := tx.Model(&domain.CorrespondingAdjustment{}).
			Where("adjustment_id = ? AND version = ?", id, a.Version).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			out = Result{Error: "Adjustment was modified concurrently, retry", Code: 409}
			return errDomain
		}

		// Keep the credit's adjustment status in step with a status change.
		if newStatus, ok := fields["status"].(string); ok {
			var credit domain.CarbonCredit
			if err := tx.Where("credit_id = ?", a.CreditID).First(&credit).Error; err != nil {
				return err
			}
			resC := tx.Model(&domain.CarbonCredit{}).
				Where("credit_id = ? AND version = ?", credit.CreditID, credit.Version).
				Updates(map[string]interface{}{
					"corresponding_adjustment_status": newStatus,
					"version":                         credit.Version + 1,
				})
			if resC.Error != nil {
				return resC.Error
			}
			if resC.RowsAffected == 0 {
				out = Result{Error: "Credit was modified concurrently, retry", Code: 409}
				return errDomain
			}
		}

		if err := tx.Where("adjustment_id = ?", id).First(&a).Error; err != nil {
			return err
		}
		out = Result{Data: a}
		return nil
	})
	if err != nil {
		if err == errDomain {
			return &out, nil
		}
		return nil, err
	}

	s.Activity.Record(ctx, "adjustment_updated",
		fmt.Sprintf("Adjustment %s updated", id),
		constants.EntityAdjustment, id.String(), in.PerformedBy, nil)

	return &out, nil
}
