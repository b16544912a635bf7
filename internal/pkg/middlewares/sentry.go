package middlewares

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

func EnrichSentry() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if hub := SentryHub(c); hub != nil {
			if id, ok := c.Locals(LocalsKeyRequestID).(string); ok {
				hub.Scope().SetTag("request_id", id)
			}
		}

		var r http.Request
		if err := fasthttpadaptor.ConvertRequest(c.Context(), &r, true); err != nil {
			return err
		}
		rootSpan := sentry.StartSpan(c.UserContext(), "http.server", sentry.WithTransactionName(c.Method()+" "+c.Path()), sentry.ContinueFromRequest(&r))
		defer rootSpan.Finish()

		return c.Next()
	}
}

// SentryHub returns the request hub set up by fibersentry, or nil when the
// fibersentry middleware is not mounted. fibersentry.GetHubFromContext panics
// in that case.
func SentryHub(c *fiber.Ctx) *sentry.Hub {
	hub, _ := c.Locals(localsKeySentryHub).(*sentry.Hub)
	return hub
}
