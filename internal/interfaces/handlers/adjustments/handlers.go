package adjustments

import (
	"encoding/json"

	adjsvc "clearledger-backend/internal/application/adjustments"
	"clearledger-backend/internal/pkg/constants"
	"clearledger-backend/internal/pkg/response"
	"clearledger-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *adjsvc.Service
}

// Create POST /api/adjustments
func (h *Handlers) Create(c *fiber.Ctx) error {
	var body struct {
		CreditID            string          `json:"credit_id"`
		HostCountry         string          `json:"host_country"`
		RecipientCountry    *string         `json:"recipient_country"`
		AdjustmentType      string          `json:"adjustment_type"`
		Quantity            int64           `json:"quantity"`
		NDCTarget           *string         `json:"ndc_target"`
		SupportingDocuments json.RawMessage `json:"supporting_documents"`
		PerformedBy         string          `json:"performed_by"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}

	details := map[string]string{}
	creditID, err := uuid.Parse(body.CreditID)
	if err != nil {
		details["credit_id"] = "credit_id must be a valid UUID"
	}
	if !validation.IsValidCountryCode(body.HostCountry) {
		details["host_country"] = "host_country must be a 2-3 letter country code"
	}
	if body.RecipientCountry != nil && !validation.IsValidCountryCode(*body.RecipientCountry) {
		details["recipient_country"] = "recipient_country must be a 2-3 letter country code"
	}
	if !constants.IsValidAdjustmentType(body.AdjustmentType) {
		details["adjustment_type"] = `adjustment_type must be "Article 6.2" or "Article 6.4"`
	}
	if body.Quantity <= 0 {
		details["quantity"] = "quantity must be a positive number of tCO2e"
	}
	if body.PerformedBy == "" {
		details["performed_by"] = "performed_by is required"
	}
	if len(details) > 0 {
		return response.Error(c, "Validation failed", 400, details)
	}

	result, err := h.Service.Create(c.Context(), adjsvc.CreateInput{
		CreditID:            creditID,
		HostCountry:         body.HostCountry,
		RecipientCountry:    body.RecipientCountry,
		AdjustmentType:      body.AdjustmentType,
		Quantity:            body.Quantity,
		NDCTarget:           body.NDCTarget,
		SupportingDocuments: []byte(body.SupportingDocuments),
		PerformedBy:         body.PerformedBy,
	})
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	return response.SuccessCreated(c, "Corresponding adjustment recorded", result.Data, nil)
}

// List GET /api/adjustments
func (h *Handlers) List(c *fiber.Ctx) error {
	var creditID *uuid.UUID
	if q := c.Query("credit_id"); q != "" {
		id, err := uuid.Parse(q)
		if err != nil {
			return response.Error(c, "Invalid UUID format for credit_id", 400, nil)
		}
		creditID = &id
	}
	list, err := h.Service.List(c.Context(), creditID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Adjustments retrieved", list, fiber.Map{"count": len(list)})
}

// Get GET /api/adjustments/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for adjustment id", 400, nil)
	}
	result, err := h.Service.Get(c.Context(), id)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	return response.Success(c, "Adjustment retrieved", result.Data, nil)
}

// Update PATCH /api/adjustments/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for adjustment id", 400, nil)
	}
	var body struct {
		Status              *string         `json:"status"`
		RecipientCountry    *string         `json:"recipient_country"`
		NDCTarget           *string         `json:"ndc_target"`
		SupportingDocuments json.RawMessage `json:"supporting_documents"`
		PerformedBy         string          `json:"performed_by"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Malformed request body", 400, nil)
	}
	if body.PerformedBy == "" {
		return response.Error(c, "Validation failed", 400, map[string]string{"performed_by": "performed_by is required"})
	}
	if body.RecipientCountry != nil && !validation.IsValidCountryCode(*body.RecipientCountry) {
		return response.Error(c, "Validation failed", 400, map[string]string{"recipient_country": "recipient_country must be a 2-3 letter country code"})
	}

	result, err := h.Service.Update(c.Context(), id, adjsvc.UpdateInput{
		Status:              body.Status,
		RecipientCountry:    body.RecipientCountry,
		NDCTarget:           body.NDCTarget,
		SupportingDocuments: []byte(body.SupportingDocuments),
		PerformedBy:         body.PerformedBy,
	})
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	return response.Success(c, "Adjustment updated", result.Data, nil)
}
