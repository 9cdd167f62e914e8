package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simorq_screening/internal/repo"

	"github.com/Alijeyrad/simorq_screening/internal/service/catalog"
	"github.com/Alijeyrad/simorq_screening/internal/service/screening"
)

// AdminHandler exposes maintenance runs that also exist as CLI commands.
type AdminHandler struct {
	screening screening.Service
	catalog   catalog.Service
}

func NewAdminHandler(svc screening.Service, cat catalog.Service) *AdminHandler {
	return &AdminHandler{screening: svc, catalog: cat}
}

// POST /admin/sweep
func (h *AdminHandler) Sweep(c fiber.Ctx) error {
	n, err := h.screening.SweepExpired(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, fiber.Map{"expired": n})
}

// POST /admin/catalog/seed
func (h *AdminHandler) SeedCatalog(c fiber.Ctx) error {
	n, err := h.catalog.Seed(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, fiber.Map{"written": n})
}

// POST /admin/catalog/questions/:id/retire
func (h *AdminHandler) RetireQuestion(c fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid question id")
	}
	switch err := h.catalog.Retire(c.Context(), id); {
	case err == nil:
		return ok(c, fiber.Map{"question_id": id, "retired": true})
	case errors.Is(err, catalog.ErrSelfHarmItem):
		return conflict(c, catalog.ErrSelfHarmItem.Error())
	case errors.Is(err, repo.ErrNotFound):
		return notFound(c, "question not found")
	default:
		return writeError(c, err)
	}
}
