package meta

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"go.uber.org/fx"

	"acidlab.dev/backend/internal/pkg/apierr"
	"acidlab.dev/backend/internal/pkg/bininfo"
	"acidlab.dev/backend/internal/pkg/cachectrl"
	"acidlab.dev/backend/internal/pkg/flog"
	"acidlab.dev/backend/internal/server/svr"
	"acidlab.dev/backend/internal/service"
)

type Meta struct {
	fx.In

	HealthService *service.Health
}

func RegisterMeta(meta *svr.Meta, c Meta) {
	meta.Get("/bininfo", c.BinInfo)

	meta.Get("/health", cache.New(cache.Config{
		// cache it for a second to mitigate potential DDoS
		Expiration: time.Second,
	}), c.Health)
}

func (c *Meta) BinInfo(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"version": bininfo.Version,
		"build":   bininfo.BuildTime,
	})
}

func (c *Meta) Health(ctx *fiber.Ctx) error {
	cachectrl.OptOut(ctx)

	if err := c.HealthService.Ping(ctx.UserContext()); err != nil {
		flog.WarnFrom(ctx).
			Str("evt.name", "health.unhealthy").
			Err(err).
			Msg("health check failed")
		return apierr.ErrServiceUnavailable.Msg("service unavailable: %s", err.Error())
	}

	return ctx.JSON(fiber.Map{
		"status": "ok",
	})
}
