package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"acidlab.dev/backend/internal/pkg/flog"
)

// RequestID exposes the id assigned by the logger chain to handlers via Locals.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := flog.IDFromFiberCtx(c); ok {
			c.Locals(LocalsKeyRequestID, id.String())
		}
		return c.Next()
	}
}
