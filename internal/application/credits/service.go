package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clearledger-backend/internal/application/activity"
	"clearledger-backend/internal/application/statistics"
	"clearledger-backend/internal/domain"
	"clearledger-backend/internal/infrastructure/cache"
	"clearledger-backend/internal/infrastructure/database"
	"clearledger-backend/internal/notary"
	"clearledger-backend/internal/pkg/constants"
	"clearledger-backend/internal/pkg/serial"

	"github.com/google/uuid"
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
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
	Code  int         `json:"code,omitempty"`
}

type IssueInput struct {
	ProjectID   string
	Quantity    int64
	Vintage     int
	Owner       string // defaults to the project's developer
	PerformedBy string
}

const serialRetries = 5

// Issue mints a credit batch against a verified project. The batch number is
// the count of existing batches for (project, vintage) plus one; a serial
// collision from a concurrent issuance retries with the next batch number.
func (s *Service) Issue(ctx context.Context, in IssueInput) (*Result, error) {
	var out Result
	var credit domain.CarbonCredit

	var lastErr error
	for attempt := 0; attempt < serialRetries; attempt++ {
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var project domain.Project
			if err := tx.Where("project_id = ?", in.ProjectID).First(&project).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					out = Result{Error: "Project not found", Code: 404}
					return errDomain
				}
				return err
			}
			if project.Status != constants.ProjectVerified {
				out = Result{Error: "Credits can only be issued for verified projects", Code: 400}
				return errDomain
			}

			var batches int64
			if err := tx.Model(&domain.CarbonCredit{}).
				Where("project_id = ? AND vintage = ?", in.ProjectID, in.Vintage).
				Count(&batches).Error; err != nil {
				return err
			}

			owner := in.Owner
			if owner == "" {
				owner = project.Developer
			}

			credit = domain.CarbonCredit{
				SerialNumber: serial.SerialNumber(in.ProjectID, in.Vintage, int(batches)+1+attempt),
				ProjectID:    in.ProjectID,
				Vintage:      in.Vintage,
				Quantity:     in.Quantity,
				Owner:        owner,
				Status:       constants.CreditAvailable,
				IssuedAt:     time.Now(),
			}
			if err := tx.Create(&credit).Error; err != nil {
				return err
			}

			return statistics.Apply(tx, statistics.Deltas{Credits: in.Quantity})
		})
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		if err == errDomain || !database.IsDuplicateKey(err) {
			break
		}
	}
	if lastErr == errDomain {
		return &out, nil
	}
	if lastErr != nil {
		if errors.Is(lastErr, statistics.ErrConflict) {
			return &Result{Error: lastErr.Error(), Code: 409}, nil
		}
		return nil, lastErr
	}

	s.Cache.Invalidate(ctx)
	s.Activity.Record(ctx, "credit_issued",
		fmt.Sprintf("Issued %d tCO2e (serial %s) for project %s", credit.Quantity, credit.SerialNumber, credit.ProjectID),
		constants.EntityCredit, credit.CreditID.String(), in.PerformedBy, nil)
	notary.RecordAsync(s.Notary, constants.EntityCredit, credit.CreditID.String(), "issued", credit)

	return &Result{Data: credit}, nil
}

// List returns credits, optionally filtered by project or status.
func (s *Service) List(ctx context.Context, projectID, status string) ([]domain.CarbonCredit, error) {
	q := s.DB.WithContext(ctx).Order("issued_at DESC")
	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var credits []domain.CarbonCredit
	if err := q.Find(&credits).Error; err != nil {
		return nil, err
	}
	return credits, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Result, error) {
	var credit domain.CarbonCredit
	if err := s.DB.WithContext(ctx).Where("credit_id = ?", id).First(&credit).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &Result{Error: "Credit not found", Code: 404}, nil
		}
		return nil, err
	}
	return &Result{Data: credit}, nil
}

// Retire permanently removes a credit batch from circulation. Terminal:
// nothing transitions out of retired. totalCredits is cumulative issuance and
// is deliberately not decremented.
func (s *Service) Retire(ctx context.Context, id uuid.UUID, purpose, beneficiary *string, performedBy string) (*Result, error) {
	var out Result
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var credit domain.CarbonCredit
		if err := tx.Where("credit_id = ?", id).First(&credit).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				out = Result{Error: "Credit not found", Code: 404}
				return errDomain
			}
			return err
		}
		if credit.Status != constants.CreditAvailable {
			out = Result{Error: "Only available credits can be retired; this credit has already been retired or transferred", Code: 400}
			return errDomain
		}

		now := time.Now()
		res := tx.Model(&domain.CarbonCredit{}).
			Where("credit_id = ? AND version = ?", id, credit.Version).
			Updates(map[string]interface{}{
				"status":                 constants.CreditRetired,
				"retirement_purpose":     purpose,
				"retirement_beneficiary": beneficiary,
				"retirement_date":        now,
				"version":                credit.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			out = Result{Error: "Credit was modified concurrently, retry", Code: 409}
			return errDomain
		}

		if err := tx.Where("credit_id = ?", id).First(&credit).Error; err != nil {
			return err
		}
		out = Result{Data: credit}
		return nil
	})
	if err != nil {
		if err == errDomain {
			return &out, nil
		}
		return nil, err
	}

	credit := out.Data.(domain.CarbonCredit)
	s.Activity.Record(ctx, "credit_retired",
		fmt.Sprintf("Credit %s retired", credit.SerialNumber),
		constants.EntityCredit, id.String(), performedBy, nil)
	notary.RecordAsync(s.Notary, constants.EntityCredit, id.String(), "retired", credit)

	return &out, nil
}

// Transfer hands a credit batch to a known registry participant. Owner keeps
// the original issuer; transfer_recipient records the destination.
func (s *Service) Transfer(ctx context.Context, id uuid.UUID, recipient string, purpose *string, performedBy string) (*Result, error) {
	var out Result
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var credit domain.CarbonCredit
		if err := tx.Where("credit_id = ?", id).First(&credit).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				out = Result{Error: "Credit not found", Code: 404}
				return errDomain
			}
			return err
		}

		var participant domain.Participant
		if err := tx.Where("name = ?", recipient).First(&participant).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				out = Result{Error: "Recipient is not a known registry participant", Code: 404}
				return errDomain
			}
			return err
		}

		if credit.Status != constants.CreditAvailable {
			out = Result{Error: "Only available credits can be transferred; this credit has already been retired or transferred", Code: 400}
			return errDomain
		}

		now := time.Now()
		res := tx.Model(&domain.CarbonCredit{}).
			Where("credit_id = ? AND version = ?", id, credit.Version).
			Updates(map[string]interface{}{
				"status":             constants.CreditTransferred,
				"transfer_recipient": recipient,
				"transfer_purpose":   purpose,
				"transfer_date":      now,
				"version":            credit.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			out = Result{Error: "Credit was modified concurrently, retry", Code: 409}
			return errDomain
		}

		if err := tx.Where("credit_id = ?", id).First(&credit).Error; err != nil {
			return err
		}
		out = Result{Data: credit}
		return nil
	})
	if err != nil {
		if err == errDomain {
			return &out, nil
		}
		return nil, err
	}

	credit := out.Data.(domain.CarbonCredit)
	s.Activity.Record(ctx, "credit_transferred",
		fmt.Sprintf("Credit %s transferred to %s", credit.SerialNumber, recipient),
		constants.EntityCredit, id.String(), performedBy, nil)
	notary.RecordAsync(s.Notary, constants.EntityCredit, id.String(), "transferred", credit)

	return &out, nil
}

type ParisComplianceInput struct {
	ParisAgreementEligible *bool
	HostCountry            *string
	InternationalTransfer  *bool
	MitigationOutcome      *string
	AuthorizationReference *string
	AuthorizationDate      *time.Time
	PerformedBy            string
}

// UpdateParisCompliance patches Article 6 metadata. Plain validated field
// assignment, not a state machine.
func (s *Service) UpdateParisCompliance(ctx context.Context, id uuid.UUID, in ParisComplianceInput) (*Result, error) {
	var out Result
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var credit domain.CarbonCredit
		if err := tx.Where("credit_id = ?", id).First(&credit).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				out = Result{Error: "Credit not found", Code: 404}
				return errDomain
			}
			return err
		}

		fields := map[string]interface{}{"version": credit.Version + 1}
		if in.ParisAgreementEligible != nil {
			fields["paris_agreement_eligible"] = *in.ParisAgreementEligible
		}
		if in.HostCountry != nil {
			fields["host_country"] = *in.HostCountry
		}
		if in.InternationalTransfer != nil {
			fields["international_transfer"] = *in.InternationalTransfer
		}
		if in.MitigationOutcome != nil {
			fields["mitigation_outcome"] = *in.MitigationOutcome
		}
		if in.AuthorizationReference != nil {
			fields["authorization_reference"] = *in.AuthorizationReference
		}
		if in.AuthorizationDate != nil {
			fields["authorization_date"] = *in.AuthorizationDate
		}

		res := tx.Model(&domain.CarbonCredit{}).
			Where("credit_id = ? AND version = ?", id, credit.Version).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			out = Result{Error: "Credit was modified concurrently, retry", Code: 409}
			return errDomain
		}

		if err := tx.Where("credit_id = ?", id).First(&credit).Error; err != nil {
			return err
		}
		out = Result{Data: credit}
		return nil
	})
	if err != nil {
		if err == errDomain {
			return &out, nil
		}
		return nil, err
	}

	s.Activity.Record(ctx, "credit_paris_compliance_updated",
		fmt.Sprintf("Paris compliance metadata updated for credit %s", id),
		constants.EntityCredit, id.String(), in.PerformedBy, nil)

	return &out, nil
}

// CreateParticipant registers a transfer-eligible participant.
func (s *Service) CreateParticipant(ctx context.Context, name string, country *string) (*Result, error) {
	participant := domain.Participant{Name: name, Country: country}
	if err := s.DB.WithContext(ctx).Create(&participant).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return &Result{Error: "Participant already exists", Code: 400}, nil
		}
		return nil, err
	}
	return &Result{Data: participant}, nil
}

func (s *Service) ListParticipants(ctx context.Context) ([]domain.Participant, error) {
	var participants []domain.Participant
	err := s.DB.WithContext(ctx).Order("name ASC").Find(&participants).Error
	return participants, err
}
