package projects

import (
	"time"

	projsvc "clearledger-backend/internal/application/projects"
	"clearledger-backend/internal/pkg/response"
	"clearledger-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *projsvc.Service
}

// Create POST /api/projects
func (h *Handlers) Create(c *fiber.Ctx) error {
	var body struct {
		Name               string `json:"name"`
		Category           string `json:"category"`
		Methodology        string `json:"methodology"`
		Developer          string `json:"developer"`
		Country            string `json:"country"`
		Location           string `json:"location"`
		StartDate          string `json:"start_date"`
		EndDate            string `json:"end_date"`
		EstimatedReduction int64  `json:"estimated_reduction"`
		Status             string `json:"status"`
		PerformedBy        string `json:"performed_by"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}

	details := map[string]string{}
	if body.Name == "" {
		details["name"] = "name is required"
	}
	if body.Category == "" {
		details["category"] = "category is required"
	}
	if body.Developer == "" {
		details["developer"] = "developer is required"
	}
	if !validation.IsValidCountryCode(body.Country) {
		details["country"] = "country must be a 2-3 letter country code"
	}
	if body.EstimatedReduction < 0 {
		details["estimated_reduction"] = "estimated_reduction cannot be negative"
	}
	if body.PerformedBy == "" {
		details["performed_by"] = "performed_by is required"
	}
	var startDate, endDate *time.Time
	if body.StartDate != "" {
		t, ok := validation.ParseDate(body.StartDate)
		if !ok {
			details["start_date"] = "start_date must be YYYY-MM-DD or RFC 3339"
		} else {
			startDate = &t
		}
	}
	if body.EndDate != "" {
		t, ok := validation.ParseDate(body.EndDate)
		if !ok {
			details["end_date"] = "end_date must be YYYY-MM-DD or RFC 3339"
		} else {
			endDate = &t
		}
	}
	if len(details) > 0 {
		return response.Error(c, "Validation failed", 400, details)
	}

	result, err := h.Service.Create(c.Context(), projsvc.CreateInput{
		Name:               body.Name,
		Category:           body.Category,
		Methodology:        body.Methodology,
		Developer:          body.Developer,
		Country:            body.Country,
		Location:           body.Location,
		StartDate:          startDate,
		EndDate:            endDate,
		EstimatedReduction: body.EstimatedReduction,
		Status:             body.Status,
		PerformedBy:        body.PerformedBy,
	})
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	return response.SuccessCreated(c, "Project registered", result.Data, nil)
}

// List GET /api/projects
func (h *Handlers) List(c *fiber.Ctx) error {
	projects, err := h.Service.List(c.Context(), c.Query("status"))
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Projects retrieved", projects, fiber.Map{"count": len(projects)})
}

// Get GET /api/projects/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	result, err := h.Service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	return response.Success(c, "Project retrieved", result.Data, nil)
}

// Update PUT /api/projects/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	var body struct {
		Name               *string `json:"name"`
		Category           *string `json:"category"`
		Methodology        *string `json:"methodology"`
		Location           *string `json:"location"`
		StartDate          *string `json:"start_date"`
		EndDate            *string `json:"end_date"`
		EstimatedReduction *int64  `json:"estimated_reduction"`
		Status             *string `json:"status"`
		PerformedBy        string  `json:"performed_by"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Malformed request body", 400, nil)
	}
	if body.PerformedBy == "" {
		return response.Error(c, "Validation failed", 400, map[string]string{"performed_by": "performed_by is required"})
	}
	if body.EstimatedReduction != nil && *body.EstimatedReduction < 0 {
		return response.Error(c, "Validation failed", 400, map[string]string{"estimated_reduction": "estimated_reduction cannot be negative"})
	}

	in := projsvc.UpdateInput{
		Name:               body.Name,
		Category:           body.Category,
		Methodology:        body.Methodology,
		Location:           body.Location,
		EstimatedReduction: body.EstimatedReduction,
		Status:             body.Status,
		PerformedBy:        body.PerformedBy,
	}
	if body.StartDate != nil {
		t, ok := validation.ParseDate(*body.StartDate)
		if !ok {
			return response.Error(c, "Validation failed", 400, map[string]string{"start_date": "start_date must be YYYY-MM-DD or RFC 3339"})
		}
		in.StartDate = &t
	}
	if body.EndDate != nil {
		t, ok := validation.ParseDate(*body.EndDate)
		if !ok {
			return response.Error(c, "Validation failed", 400, map[string]string{"end_date": "end_date must be YYYY-MM-DD or RFC 3339"})
		}
		in.EndDate = &t
	}

	result, err := h.Service.Update(c.Context(), c.Params("id"), in)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	return response.Success(c, "Project updated", result.Data, nil)
}
