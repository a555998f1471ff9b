package verifications

import (
	"time"

	verifsvc "clearledger-backend/internal/application/verifications"
	"clearledger-backend/internal/pkg/response"
	"clearledger-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *verifsvc.Service
}

// Create POST /api/verifications
func (h *Handlers) Create(c *fiber.Ctx) error {
	var body struct {
		ProjectID           string `json:"project_id"`
		EstimatedCompletion string `json:"estimated_completion"`
		PerformedBy         string `json:"performed_by"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	details := map[string]string{}
	if body.ProjectID == "" {
		details["project_id"] = "project_id is required"
	}
	if body.PerformedBy == "" {
		details["performed_by"] = "performed_by is required"
	}
	if len(details) > 0 {
		return response.Error(c, "Validation failed", 400, details)
	}

	var estimated *time.Time
	if body.EstimatedCompletion != "" {
		t, ok := validation.ParseDate(body.EstimatedCompletion)
		if !ok {
			return response.Error(c, "Validation failed", 400, map[string]string{"estimated_completion": "estimated_completion must be YYYY-MM-DD or RFC 3339"})
		}
		estimated = &t
	}

	result, err := h.Service.Create(c.Context(), body.ProjectID, estimated, body.PerformedBy)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	return response.SuccessCreated(c, "Verification submitted", result.Data, nil)
}

// List GET /api/verifications
func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.Service.List(c.Context(), c.Query("project_id"), c.Query("status"))
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Verifications retrieved", list, fiber.Map{"count": len(list)})
}

// Get GET /api/verifications/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for verification id", 400, nil)
	}
	result, err := h.Service.Get(c.Context(), id)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	return response.Success(c, "Verification retrieved", result.Data, nil)
}

// Update PUT /api/verifications/:id — advance/approve/reject and verifier metadata.
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for verification id", 400, nil)
	}
	var body struct {
		Action              string  `json:"action"`
		NextStageID         *string `json:"next_stage_id"`
		VerifierName        *string `json:"verifier_name"`
		VerifierContact     *string `json:"verifier_contact"`
		VerifierStandard    *string `json:"verifier_standard"`
		EstimatedCompletion *string `json:"estimated_completion"`
		PerformedBy         string  `json:"performed_by"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Malformed request body", 400, nil)
	}
	if body.PerformedBy == "" {
		return response.Error(c, "Validation failed", 400, map[string]string{"performed_by": "performed_by is required"})
	}

	in := verifsvc.UpdateInput{
		Action:           body.Action,
		VerifierName:     body.VerifierName,
		VerifierContact:  body.VerifierContact,
		VerifierStandard: body.VerifierStandard,
		PerformedBy:      body.PerformedBy,
	}
	if body.NextStageID != nil {
		sid, err := uuid.Parse(*body.NextStageID)
		if err != nil {
			return response.Error(c, "Invalid UUID format for next_stage_id", 400, nil)
		}
		in.NextStageID = &sid
	}
	if body.EstimatedCompletion != nil {
		t, ok := validation.ParseDate(*body.EstimatedCompletion)
		if !ok {
			return response.Error(c, "Validation failed", 400, map[string]string{"estimated_completion": "estimated_completion must be YYYY-MM-DD or RFC 3339"})
		}
		in.EstimatedCompletion = &t
	}

	result, err := h.Service.Update(c.Context(), id, in)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	return response.Success(c, "Verification updated", result.Data, nil)
}

// CompleteStage POST /api/verifications/:id/complete-stage/:stageId
func (h *Handlers) CompleteStage(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for verification id", 400, nil)
	}
	stageID, err := uuid.Parse(c.Params("stageId"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for stage id", 400, nil)
	}
	var body struct {
		PerformedBy string `json:"performed_by"`
	}
	if err := c.BodyParser(&body); err != nil || body.PerformedBy == "" {
		return response.Error(c, "Validation failed", 400, map[string]string{"performed_by": "performed_by is required"})
	}

	result, err := h.Service.CompleteStage(c.Context(), id, stageID, body.PerformedBy)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	var meta interface{}
	if len(result.Warnings) > 0 {
		meta = fiber.Map{"warnings": result.Warnings}
	}
	return response.Success(c, "Stage completed", result.Data, meta)
}

// AddDocument POST /api/verifications/:id/documents
func (h *Handlers) AddDocument(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for verification id", 400, nil)
	}
	var body struct {
		StageID      string `json:"stage_id"`
		DocumentType string `json:"document_type"`
		Name         string `json:"name"`
		URL          string `json:"url"`
		UploadedBy   string `json:"uploaded_by"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	details := map[string]string{}
	if body.DocumentType == "" {
		details["document_type"] = "document_type is required"
	}
	if body.Name == "" {
		details["name"] = "name is required"
	}
	if body.UploadedBy == "" {
		details["uploaded_by"] = "uploaded_by is required"
	}
	stageID, err := uuid.Parse(body.StageID)
	if err != nil {
		details["stage_id"] = "stage_id must be a valid UUID"
	}
	if len(details) > 0 {
		return response.Error(c, "Validation failed", 400, details)
	}

	result, err := h.Service.AddDocument(c.Context(), id, verifsvc.DocumentInput{
		StageID:      stageID,
		DocumentType: body.DocumentType,
		Name:         body.Name,
		URL:          body.URL,
		UploadedBy:   body.UploadedBy,
	})
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	return response.SuccessCreated(c, "Document attached", result.Data, nil)
}

// ListDocuments GET /api/verifications/:id/documents
func (h *Handlers) ListDocuments(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for verification id", 400, nil)
	}
	docs, err := h.Service.ListDocuments(c.Context(), id)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Documents retrieved", docs, fiber.Map{"count": len(docs)})
}

// SetDocumentStatus PATCH /api/verification-documents/:id
func (h *Handlers) SetDocumentStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for document id", 400, nil)
	}
	var body struct {
		ApprovalStatus string `json:"approval_status"`
		PerformedBy    string `json:"performed_by"`
	}
	if err := c.BodyParser(&body); err != nil || body.ApprovalStatus == "" || body.PerformedBy == "" {
		return response.Error(c, "approval_status and performed_by are required", 400, nil)
	}

	result, err := h.Service.SetDocumentStatus(c.Context(), id, body.ApprovalStatus, body.PerformedBy)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	return response.Success(c, "Document status updated", result.Data, nil)
}

// AddComment POST /api/verifications/:id/comments
func (h *Handlers) AddComment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for verification id", 400, nil)
	}
	var body struct {
		StageID string `json:"stage_id"`
		Author  string `json:"author"`
		Body    string `json:"body"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if body.Author == "" || body.Body == "" {
		return response.Error(c, "author and body are required", 400, nil)
	}
	stageID, err := uuid.Parse(body.StageID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for stage_id", 400, nil)
	}

	result, err := h.Service.AddComment(c.Context(), id, verifsvc.CommentInput{
		StageID: stageID,
		Author:  body.Author,
		Body:    body.Body,
	})
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if result.Error != "" {
		return response.Error(c, result.Error, result.Code, nil)
	}
	return response.SuccessCreated(c, "Comment added", result.Data, nil)
}

// ListComments GET /api/verifications/:id/comments
func (h *Handlers) ListComments(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for verification id", 400, nil)
	}
	comments, err := h.Service.ListComments(c.Context(), id)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Comments retrieved", comments, fiber.Map{"count": len(comments)})
}

// ListStages GET /api/verification-stages
func (h *Handlers) ListStages(c *fiber.Ctx) error {
	stages, err := h.Service.ListStages(c.Context())
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Stages retrieved", stages, fiber.Map{"count": len(stages)})
}
