package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/simorq_screening/internal/repo"
	"github.com/Alijeyrad/simorq_screening/internal/service/screening"
	"github.com/Alijeyrad/simorq_screening/internal/service/token"
)

type OrderHandler struct {
	svc screening.Service
}

func NewOrderHandler(svc screening.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

type createOrderRequest struct {
	PatientID         uuid.UUID  `json:"patient_id"`
	DoctorID          uuid.UUID  `json:"doctor_id"`
	AssessingDoctorID *uuid.UUID `json:"assessing_doctor_id"`
	AssessmentType    string     `json:"assessment_type"`
	Instructions      *string    `json:"instructions"`
}

type issuedTokenResponse struct {
	OrderID   uuid.UUID `json:"order_id"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toIssuedResponse(t *token.Issued) issuedTokenResponse {
	return issuedTokenResponse{OrderID: t.OrderID, Token: t.Token, IssuedAt: t.IssuedAt, ExpiresAt: t.ExpiresAt}
}

// POST /orders
func (h *OrderHandler) Create(c fiber.Ctx) error {
	var body createOrderRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.PatientID == uuid.Nil || body.DoctorID == uuid.Nil {
		return badRequest(c, "patient_id and doctor_id are required")
	}

	o, err := h.svc.CreateOrder(c.Context(), screening.CreateOrderRequest{
		PatientID:         body.PatientID,
		DoctorID:          body.DoctorID,
		AssessingDoctorID: body.AssessingDoctorID,
		AssessmentType:    repo.AssessmentType(body.AssessmentType),
		Instructions:      body.Instructions,
	})
	if err != nil {
		return writeError(c, err)
	}
	return created(c, toOrderResponse(o))
}

// GET /orders/:id
func (h *OrderHandler) Get(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid order id")
	}
	o, err := h.svc.GetOrder(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, toOrderResponse(o))
}

// POST /orders/:id/token
func (h *OrderHandler) IssueToken(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid order id")
	}
	t, err := h.svc.IssueToken(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return created(c, toIssuedResponse(t))
}

// POST /orders/:id/reissue
func (h *OrderHandler) Reissue(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid order id")
	}
	t, err := h.svc.ReissueToken(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return created(c, toIssuedResponse(t))
}

// POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c fiber.Ctx) error {
	return h.transition(c, h.svc.CancelOrder)
}

// POST /orders/:id/expire
func (h *OrderHandler) Expire(c fiber.Ctx) error {
	return h.transition(c, h.svc.ExpireOrder)
}

// POST /orders/:id/review
func (h *OrderHandler) Review(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid order id")
	}
	a, err := h.svc.ReviewOrder(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, toAssessmentResponse(a))
}

func (h *OrderHandler) transition(c fiber.Ctx, op func(ctx context.Context, id uuid.UUID) error) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid order id")
	}
	if err := op(c.Context(), id); err != nil {
		return writeError(c, err)
	}
	o, err := h.svc.GetOrder(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, toOrderResponse(o))
}
