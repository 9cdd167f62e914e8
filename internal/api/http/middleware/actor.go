package middleware

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simorq_screening/pkg/reqctx"
)

// Identity headers set by the authenticating gateway.
const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"
)

// ActorRequired reads the gateway identity headers into the request context.
// Requests without an actor id are rejected.
func ActorRequired() fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Get(HeaderActorID)
		if id == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		c.SetContext(reqctx.WithActor(c.Context(), reqctx.Actor{
			ID:   id,
			Role: c.Get(HeaderActorRole),
		}))
		return c.Next()
	}
}
