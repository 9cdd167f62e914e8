package handler

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/simorq_screening/internal/service/screening"
)

type AssessmentHandler struct {
	svc screening.Service
}

func NewAssessmentHandler(svc screening.Service) *AssessmentHandler {
	return &AssessmentHandler{svc: svc}
}

// GET /assessments/:id
func (h *AssessmentHandler) Get(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid assessment id")
	}
	a, err := h.svc.GetAssessment(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, toAssessmentResponse(a))
}

// POST /assessments/:id/review
func (h *AssessmentHandler) Review(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid assessment id")
	}
	a, err := h.svc.MarkReviewed(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, toAssessmentResponse(a))
}
