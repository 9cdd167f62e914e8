package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	fiberredis "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"

	"github.com/Alijeyrad/simorq_screening/config"
)

// NewTokenLimiter throttles the public token routes per client IP. Counters
// live in redis when a client is given, so every replica shares them;
// otherwise they are kept in process.
func NewTokenLimiter(rdb *redis.Client, cfg config.RateLimit) fiber.Handler {
	lc := limiter.Config{
		Max:               cfg.Max,
		Expiration:        time.Duration(cfg.ExpirationSeconds) * time.Second,
		LimiterMiddleware: limiter.SlidingWindow{},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many requests"})
		},
	}
	if lc.Max <= 0 {
		lc.Max = 30
	}
	if lc.Expiration <= 0 {
		lc.Expiration = time.Minute
	}
	if rdb != nil {
		lc.Storage = fiberredis.NewFromConnection(rdb)
	}
	return limiter.New(lc)
}
