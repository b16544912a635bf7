package authn

import (
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"acidlab.dev/backend/internal/pkg/apierr"
	"acidlab.dev/backend/internal/pkg/flog"
	"acidlab.dev/backend/internal/pkg/middlewares"
)

const localsKeyUserID = "authn_user_id"

// RequireUser rejects requests without a valid bearer token with 401.
func RequireUser(v *Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if !ok || token == "" {
			return apierr.ErrUnauthorized
		}

		id, err := v.Verify(c.UserContext(), token)
		if err != nil {
			flog.DebugFrom(c).
				Str("evt.name", "authn.rejected").
				Err(err).
				Msg("rejected bearer token")
			return apierr.ErrUnauthorized
		}

		c.Locals(localsKeyUserID, id)
		flog.FromFiberCtx(c).UpdateContext(func(l zerolog.Context) zerolog.Context {
			return l.Str("user_id", id.String())
		})
		if hub := middlewares.SentryHub(c); hub != nil {
			hub.Scope().SetUser(sentry.User{ID: id.String()})
		}

		return c.Next()
	}
}

// UserID returns the authenticated user, or uuid.Nil outside RequireUser.
func UserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(localsKeyUserID).(uuid.UUID)
	return id
}
