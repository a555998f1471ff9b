package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clearledger-backend/internal/application/activity"
	"clearledger-backend/internal/application/statistics"
	"clearledger-backend/internal/domain"
	"clearledger-backend/internal/infrastructure/cache"
	"clearledger-backend/internal/infrastructure/database"
	"clearledger-backend/internal/notary"
	"clearledger-backend/internal/pkg/constants"
	"clearledger-backend/internal/pkg/serial"

	"gorm.io/gorm"
)

// errDomain marks a transition rejected by a business rule; the rejection
// detail is carried in the Result, and the transaction rolls back whole.
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

type CreateInput struct {
	Name               string
	Category           string
	Methodology        string
	Developer          string
	Country            string
	Location           string
	StartDate          *time.Time
	EndDate            *time.Time
	EstimatedReduction int64
	Status             string
	PerformedBy        string
}

const projectIDRetries = 5

// Create registers a project, minting a country/year-scoped project ID. The
// counter and the row land in one transaction; an ID collision from a
// concurrent creation retries with the next sequence.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Result, error) {
	if in.Status == "" {
		in.Status = constants.ProjectRegistered
	}
	if in.Status != constants.ProjectDraft && in.Status != constants.ProjectRegistered {
		return &Result{Error: "New projects can only be draft or registered", Code: 400}, nil
	}
	in.Country = strings.ToUpper(in.Country)

	year := time.Now().Year()
	var project domain.Project

	var lastErr error
	for attempt := 0; attempt < projectIDRetries; attempt++ {
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			prefix := serial.ProjectID(in.Country, year, 0)
			prefix = prefix[:len(prefix)-3] // keep "CC-YYYY-"
			var count int64
			if err := tx.Model(&domain.Project{}).Where("project_id LIKE ?", prefix+"%").Count(&count).Error; err != nil {
				return err
			}

			project = domain.Project{
				ProjectID:          serial.ProjectID(in.Country, year, int(count)+1+attempt),
				Name:               in.Name,
				Category:           in.Category,
				Methodology:        in.Methodology,
				Developer:          in.Developer,
				Country:            in.Country,
				Location:           in.Location,
				StartDate:          in.StartDate,
				EndDate:            in.EndDate,
				EstimatedReduction: in.EstimatedReduction,
				Status:             in.Status,
			}
			if err := tx.Create(&project).Error; err != nil {
				return err
			}

			// The issuing developer becomes a known registry participant, so
			// later transfers can name them as recipient.
			var participant domain.Participant
			if err := tx.Where("name = ?", in.Developer).First(&participant).Error; err == gorm.ErrRecordNotFound {
				participant = domain.Participant{Name: in.Developer, Country: &project.Country}
				if err := tx.Create(&participant).Error; err != nil && !database.IsDuplicateKey(err) {
					return err
				}
			} else if err != nil {
				return err
			}

			return statistics.Apply(tx, statistics.Deltas{Projects: 1})
		})
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		if !database.IsDuplicateKey(err) {
			break
		}
	}
	if lastErr != nil {
		if errors.Is(lastErr, statistics.ErrConflict) {
			return &Result{Error: lastErr.Error(), Code: 409}, nil
		}
		return nil, lastErr
	}

	s.Cache.Invalidate(ctx)
	s.Activity.Record(ctx, "project_created",
		fmt.Sprintf("Project %s (%s) registered", project.Name, project.ProjectID),
		constants.EntityProject, project.ProjectID, in.PerformedBy, nil)
	notary.RecordAsync(s.Notary, constants.EntityProject, project.ProjectID, "created", project)

	return &Result{Data: project}, nil
}

// List returns projects, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string) ([]domain.Project, error) {
	q := s.DB.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var projects []domain.Project
	if err := q.Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// Get fetches one project by its registry ID.
func (s *Service) Get(ctx context.Context, projectID string) (*Result, error) {
	var project domain.Project
	if err := s.DB.WithContext(ctx).Where("project_id = ?", projectID).First(&project).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &Result{Error: "Project not found", Code: 404}, nil
		}
		return nil, err
	}
	return &Result{Data: project}, nil
}

type UpdateInput struct {
	Name               *string
	Category           *string
	Methodology        *string
	Location           *string
	StartDate          *time.Time
	EndDate            *time.Time
	EstimatedReduction *int64
	Status             *string
	PerformedBy        string
}

// Update patches project metadata. Status is owned by the verification flow
// and cannot be set here.
func (s *Service) Update(ctx context.Context, projectID string, in UpdateInput) (*Result, error) {
	var out Result
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project domain.Project
		if err := tx.Where("project_id = ?", projectID).First(&project).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				out = Result{Error: "Project not found", Code: 404}
				return errDomain
			}
			return err
		}

		if in.Status != nil && *in.Status != project.Status {
			out = Result{Error: "Project status is managed by the verification process", Code: 400}
			return errDomain
		}

		fields := map[string]interface{}{"version": project.Version + 1}
		if in.Name != nil {
			fields["name"] = *in.Name
		}
		if in.Category != nil {
			fields["category"] = *in.Category
		}
		if in.Methodology != nil {
			fields["methodology"] = *in.Methodology
		}
		if in.Location != nil {
			fields["location"] = *in.Location
		}
		if in.StartDate != nil {
			fields["start_date"] = *in.StartDate
		}
		if in.EndDate != nil {
			fields["end_date"] = *in.EndDate
		}
		if in.EstimatedReduction != nil {
			fields["estimated_reduction"] = *in.EstimatedReduction
		}

		res := tx.Model(&domain.Project{}).
			Where("project_id = ? AND version = ?", projectID, project.Version).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			out = Result{Error: "Project was modified concurrently, retry", Code: 409}
			return errDomain
		}

		if err := tx.Where("project_id = ?", projectID).First(&project).Error; err != nil {
			return err
		}
		out = Result{Data: project}
		return nil
	})
	if err != nil && err != errDomain {
		return nil, err
	}

	if out.Error == "" {
		s.Activity.Record(ctx, "project_updated",
			fmt.Sprintf("Project %s updated", projectID),
			constants.EntityProject, projectID, in.PerformedBy, nil)
	}
	return &out, nil
}
