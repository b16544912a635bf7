package httpserver

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"acidlab.dev/backend/internal/pkg/apierr"
	"acidlab.dev/backend/internal/pkg/middlewares"
)

func handleCustomError(ctx *fiber.Ctx, e *apierr.Error) error {
	log.Warn().
		Err(e).
		Str("evt.name", "http.error").
		Str("method", ctx.Method()).
		Str("path", ctx.Path()).
		Msg(e.Message)

	body := fiber.Map{
		"status":  "error",
		"code":    e.ErrorCode,
		"message": e.Message,
	}

	if e.Extras != nil && len(*e.Extras) > 0 {
		for k, v := range *e.Extras {
			body[k] = v
		}
	}

	return ctx.Status(e.StatusCode).JSON(body)
}

func ErrorHandler(ctx *fiber.Ctx, err error) error {
	var pe *apierr.Error
	if errors.As(err, &pe) {
		return handleCustomError(ctx, pe)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusNotFound:
			return handleCustomError(ctx, apierr.ErrNotFound)
		case fiber.StatusMethodNotAllowed, fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
			re := *apierr.ErrInvalidReq
			re.StatusCode = fe.Code
			re.Message = fe.Message
			return handleCustomError(ctx, &re)
		}
	}

	log.Error().
		Stack().
		Err(err).
		Str("evt.name", "http.error.internal").
		Str("method", ctx.Method()).
		Str("path", ctx.Path()).
		Msg("Internal Server Error")

	if hub := middlewares.SentryHub(ctx); hub != nil {
		hub.Scope().SetTag("status", strconv.Itoa(apierr.ErrInternalError.StatusCode))
		hub.CaptureException(err)
	}

	return handleCustomError(ctx, apierr.ErrInternalError)
}
