package credits

import (
	credsvc "clearledger-backend/internal/application/credits"
	"clearledger-backend/internal/pkg/response"
	"clearledger-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *credsvc.Service
}

// Issue POST /api/credits
func (h *Handlers) Issue(c *fiber.Ctx) error {
	var body struct {
		ProjectID   string `json:"project_id"`
		Quantity    int64  `json:"quantity"`
		Vintage     int    `json:"vintage"`
		Owner       string `json:"owner"`
		PerformedBy string `json:"performed_by"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	details := map[string]string{}
	if body.ProjectID == "" {
		details["project_id"] = "project_id is required"
	}
	if body.Quantity <= 0 {
		details["quantity"] = "quantity must be a positive number of tCO2e"
	}
	if !validation.IsValidVintage(body.Vintage) {
		details["vintage"] = "vintage must be a plausible year"
	}
	if body.PerformedBy == "" {
		details["performed_by"] = "performed_by is required"
	}
	if len(details) > 0 {
		return response.Error(c, "Validation failed", 400, details)
	}

	result, err := h.Service.Issue(c.Context(), credsvc.IssueInput{
		ProjectID:   body.ProjectID,
		Quantity:    body.Quantity,
		Vintage:     body.Vintage,
		Owner:       body.Owner,
		PerformedBy: body.PerformedBy,
	})
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	return response.SuccessCreated(c, "Credits issued", result.Data, nil)
}

// List GET /api/credits
func (h *Handlers) List(c *fiber.Ctx) error {
	credits, err := h.Service.List(c.Context(), c.Query("project_id"), c.Query("status"))
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Credits retrieved", credits, fiber.Map{"count": len(credits)})
}

// Get GET /api/credits/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for credit id", 400, nil)
	}
	result, err := h.Service.Get(c.Context(), id)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	return response.Success(c, "Credit retrieved", result.Data, nil)
}

// Retire POST /api/credits/:id/retire
func (h *Handlers) Retire(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for credit id", 400, nil)
	}
	var body struct {
		Purpose     *string `json:"purpose"`
		Beneficiary *string `json:"beneficiary"`
		PerformedBy string  `json:"performed_by"`
	}
	if err := c.BodyParser(&body); err != nil || body.PerformedBy == "" {
		return response.Error(c, "Validation failed", 400, map[string]string{"performed_by": "performed_by is required"})
	}

	result, err := h.Service.Retire(c.Context(), id, body.Purpose, body.Beneficiary, body.PerformedBy)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	return response.Success(c, "Credits retired successfully", result.Data, nil)
}

// Transfer POST /api/credits/:id/transfer
func (h *Handlers) Transfer(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for credit id", 400, nil)
	}
	var body struct {
		Recipient   string  `json:"recipient"`
		Purpose     *string `json:"purpose"`
		PerformedBy string  `json:"performed_by"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	details := map[string]string{}
	if body.Recipient == "" {
		details["recipient"] = "recipient is required"
	}
	if body.PerformedBy == "" {
		details["performed_by"] = "performed_by is required"
	}
	if len(details) > 0 {
		return response.Error(c, "Validation failed", 400, details)
	}

	result, err := h.Service.Transfer(c.Context(), id, body.Recipient, body.Purpose, body.PerformedBy)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	return response.Success(c, "Transfer successful", result.Data, nil)
}

// UpdateParisCompliance PATCH /api/credits/:id/paris-compliance
func (h *Handlers) UpdateParisCompliance(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for credit id", 400, nil)
	}
	var body struct {
		ParisAgreementEligible *bool   `json:"paris_agreement_eligible"`
		HostCountry            *string `json:"host_country"`
		InternationalTransfer  *bool   `json:"international_transfer"`
		MitigationOutcome      *string `json:"mitigation_outcome"`
		AuthorizationReference *string `json:"authorization_reference"`
		AuthorizationDate      *string `json:"authorization_date"`
		PerformedBy            string  `json:"performed_by"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Malformed request body", 400, nil)
	}
	if body.PerformedBy == "" {
		return response.Error(c, "Validation failed", 400, map[string]string{"performed_by": "performed_by is required"})
	}
	if body.HostCountry != nil && !validation.IsValidCountryCode(*body.HostCountry) {
		return response.Error(c, "Validation failed", 400, map[string]string{"host_country": "host_country must be a 2-3 letter country code"})
	}

	in := credsvc.ParisComplianceInput{
		ParisAgreementEligible: body.ParisAgreementEligible,
		HostCountry:            body.HostCountry,
		InternationalTransfer:  body.InternationalTransfer,
		MitigationOutcome:      body.MitigationOutcome,
		AuthorizationReference: body.AuthorizationReference,
		PerformedBy:            body.PerformedBy,
	}
	if body.AuthorizationDate != nil {
		t, ok := validation.ParseDate(*body.AuthorizationDate)
		if !ok {
			return response.Error(c, "Validation failed", 400, map[string]string{"authorization_date": "authorization_date must be YYYY-MM-DD or RFC 3339"})
		}
		in.AuthorizationDate = &t
	}

	result, err := h.Service.UpdateParisCompliance(c.Context(), id, in)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	return response.Success(c, "Paris compliance updated", result.Data, nil)
}

// CreateParticipant POST /api/participants
func (h *Handlers) CreateParticipant(c *fiber.Ctx) error {
	var body struct {
		Name    string  `json:"name"`
		Country *string `json:"country"`
	}
	if err := c.BodyParser(&body); err != nil || body.Name == "" {
		return response.Error(c, "name is required", 400, nil)
	}
	if body.Country != nil && !validation.IsValidCountryCode(*body.Country) {
		return response.Error(c, "Validation failed", 400, map[string]string{"country": "country must be a 2-3 letter country code"})
	}
	result, err := h.Service.CreateParticipant(c.Context(), body.Name, body.Country)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	return response.SuccessCreated(c, "Participant registered", result.Data, nil)
}

// ListParticipants GET /api/participants
func (h *Handlers) ListParticipants(c *fiber.Ctx) error {
	participants, err := h.Service.ListParticipants(c.Context())
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Participants retrieved", participants, fiber.Map{"count": len(participants)})
}
