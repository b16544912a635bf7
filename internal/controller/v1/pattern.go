package v1

import (
	"strconv"
	"strings"

	"github.com/go-redsync/redsync/v4"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gopkg.in/guregu/null.v3"

	"acidlab.dev/backend/internal/app/appconfig"
	"acidlab.dev/backend/internal/model/types"
	"acidlab.dev/backend/internal/pkg/apierr"
	"acidlab.dev/backend/internal/pkg/authn"
	"acidlab.dev/backend/internal/pkg/cachectrl"
	"acidlab.dev/backend/internal/pkg/fiberstore"
	"acidlab.dev/backend/internal/pkg/middlewares"
	"acidlab.dev/backend/internal/server/svr"
	"acidlab.dev/backend/internal/service"
	"acidlab.dev/backend/internal/util/rekuest"
)

const IdempotencyKeyPrefix = "acid:idempotency:"

type Pattern struct {
	fx.In

	PatternService *service.Pattern
	Verifier       *authn.Verifier
	Config         *appconfig.Config

	// Redis and RedSync are nil when Redis is not configured.
	Redis   *redis.Client    `optional:"true"`
	RedSync *redsync.Redsync `optional:"true"`
}

func RegisterPattern(v1 *svr.V1, c Pattern) {
	requireUser := authn.RequireUser(c.Verifier)

	idempotency := &middlewares.IdempotencyConfig{
		Lifetime:  c.Config.IdempotencyLifetime,
		KeyHeader: middlewares.IdempotencyKeyHeader,
		KeepResponseHeaders: []string{
			fiber.HeaderContentType,
		},
		RedSync: c.RedSync,
		KeyScope: func(ctx *fiber.Ctx) string {
			return authn.UserID(ctx).String()
		},
	}
	if c.Redis != nil {
		idempotency.Storage = fiberstore.NewRedis(c.Redis, IdempotencyKeyPrefix)
	}

	patterns := v1.Group("/patterns/tb303")
	patterns.Get("/random", c.GetRandom)
	patterns.Post("/", requireUser, middlewares.Idempotency(idempotency), c.Create)
	patterns.Get("/", requireUser, c.List)
	patterns.Get("/:patternId", requireUser, c.GetByID)
	patterns.Put("/:patternId", requireUser, c.Update)
	patterns.Delete("/:patternId", requireUser, c.Delete)
}

func (c *Pattern) Create(ctx *fiber.Ctx) error {
	var req types.PatternRequest
	if err := rekuest.ValidBody(ctx, &req); err != nil {
		return err
	}

	id, err := c.PatternService.Create(ctx.UserContext(), authn.UserID(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(types.NewPatternIDResponse(id))
}

func (c *Pattern) Update(ctx *fiber.Ctx) error {
	id, err := patternID(ctx)
	if err != nil {
		return err
	}

	var req types.PatternRequest
	if err := rekuest.ValidBody(ctx, &req); err != nil {
		return err
	}

	id, err = c.PatternService.Update(ctx.UserContext(), authn.UserID(ctx), id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(types.NewPatternIDResponse(id))
}

func (c *Pattern) Delete(ctx *fiber.Ctx) error {
	id, err := patternID(ctx)
	if err != nil {
		return err
	}

	if err := c.PatternService.Delete(ctx.UserContext(), authn.UserID(ctx), id); err != nil {
		return err
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *Pattern) GetByID(ctx *fiber.Ctx) error {
	id, err := patternID(ctx)
	if err != nil {
		return err
	}

	pattern, err := c.PatternService.GetByID(ctx.UserContext(), authn.UserID(ctx), id)
	if err != nil {
		return err
	}

	body, err := json.Marshal(pattern)
	if err != nil {
		return errors.Wrap(err, "failed to marshal pattern")
	}

	cachectrl.OptInPrivate(ctx)
	return cachectrl.SendWithETag(ctx, body)
}

func (c *Pattern) GetRandom(ctx *fiber.Ctx) error {
	pattern, err := c.PatternService.GetRandomPublic(ctx.UserContext())
	if err != nil {
		return err
	}

	cachectrl.OptOut(ctx)
	return ctx.JSON(pattern)
}

func (c *Pattern) List(ctx *fiber.Ctx) error {
	query, err := listQuery(ctx)
	if err != nil {
		return err
	}
	query.Normalize(c.Config.ListDefaultPageSize, c.Config.ListMaxPageSize)
	if err := rekuest.ValidStruct(query); err != nil {
		return err
	}

	page, err := c.PatternService.List(ctx.UserContext(), authn.UserID(ctx), query)
	if err != nil {
		return err
	}

	return ctx.JSON(page)
}

// patternID reports a malformed id the same way as an unknown one.
func patternID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("patternId"))
	if err != nil {
		return uuid.Nil, apierr.ErrPatternNotFound
	}
	return id, nil
}

func listQuery(ctx *fiber.Ctx) (*types.ListQuery, error) {
	var (
		q   types.ListQuery
		err error
	)

	if q.Page, err = queryInt(ctx, "page"); err != nil {
		return nil, err
	}
	if q.PageSize, err = queryInt(ctx, "page_size"); err != nil {
		return nil, err
	}
	q.SortColumn = ctx.Query("sort_column")
	q.SortDirection = ctx.Query("sort_direction")
	q.Search = strings.TrimSpace(ctx.Query("search"))
	if cols := ctx.Query("search_columns"); cols != "" {
		for _, col := range strings.Split(cols, ",") {
			q.SearchColumns = append(q.SearchColumns, strings.TrimSpace(col))
		}
	}
	if v := ctx.Query("is_public"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, apierr.ErrInvalidReq.Msg("invalid is_public: %q is not a boolean", v)
		}
		q.IsPublic = null.BoolFrom(b)
	}

	return &q, nil
}

// queryInt treats an absent parameter as zero and rejects a non-integer one.
func queryInt(ctx *fiber.Ctx, key string) (int, error) {
	v := ctx.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apierr.ErrInvalidReq.Msg("invalid %s: %q is not an integer", key, v)
	}
	return n, nil
}
