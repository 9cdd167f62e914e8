package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simorq_screening/internal/service/intake"
	"github.com/Alijeyrad/simorq_screening/internal/service/screening"
	"github.com/Alijeyrad/simorq_screening/internal/service/token"
)

func ok(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"data": data})
}

func created(c fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": data})
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func notFound(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": msg})
}

func conflict(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": msg})
}

func gone(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": msg})
}

func unprocessable(c fiber.Ctx, body fiber.Map) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(body)
}

func serviceUnavailable(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": msg})
}

func internalError(c fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

// writeError maps service errors to responses. Anything unrecognised is
// logged and reported as a 500 without detail.
func writeError(c fiber.Ctx, err error) error {
	var (
		incomplete *intake.IncompleteSubmissionError
		outOfRange *intake.ScoreOutOfRangeError
		unknown    *intake.UnknownQuestionError
		transition *screening.InvalidTransitionError
	)

	switch {
	case errors.Is(err, token.ErrTokenNotFound):
		return notFound(c, token.ErrTokenNotFound.Error())
	case errors.Is(err, token.ErrTokenExpired):
		return gone(c, token.ErrTokenExpired.Error())
	case errors.Is(err, token.ErrTokenAlreadyConsumed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":  token.ErrTokenAlreadyConsumed.Error(),
			"action": "request_new_token",
		})

	case errors.As(err, &incomplete):
		return unprocessable(c, fiber.Map{"error": intake.ErrIncompleteSubmission.Error(), "missing": incomplete.Missing})
	case errors.As(err, &outOfRange):
		return unprocessable(c, fiber.Map{
			"error":       intake.ErrScoreOutOfRange.Error(),
			"question_id": outOfRange.QuestionID,
			"value":       outOfRange.Value,
			"min":         outOfRange.Min,
			"max":         outOfRange.Max,
		})
	case errors.As(err, &unknown):
		return unprocessable(c, fiber.Map{"error": intake.ErrUnknownQuestion.Error(), "question_ids": unknown.QuestionIDs})

	case errors.Is(err, screening.ErrOrderNotFound), errors.Is(err, token.ErrOrderNotFound):
		return notFound(c, screening.ErrOrderNotFound.Error())
	case errors.Is(err, screening.ErrAssessmentNotFound),
		errors.Is(err, screening.ErrPatientNotFound),
		errors.Is(err, screening.ErrDoctorNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, screening.ErrInvalidAssessment):
		return badRequest(c, err.Error())
	case errors.Is(err, token.ErrOrderNotSendable):
		return conflict(c, token.ErrOrderNotSendable.Error())
	case errors.As(err, &transition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": screening.ErrInvalidStateTransition.Error(),
			"op":    transition.Op,
			"from":  transition.From,
			"to":    transition.To,
		})
	case errors.Is(err, screening.ErrAuditUnavailable):
		return serviceUnavailable(c, "temporarily unavailable")
	}

	slog.ErrorContext(c.Context(), "request failed", "route", c.Route().Path, "error", err)
	return internalError(c)
}
