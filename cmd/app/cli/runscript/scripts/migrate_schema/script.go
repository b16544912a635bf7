package script_migrate_schema

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"acidlab.dev/backend/internal/repo"
)

func run(ctx *cli.Context, deps CommandDeps) error {
	log.Info().Msg("running script")

	if err := repo.CreateSchema(ctx.Context, deps.DB); err != nil {
		return errors.Wrap(err, "failed to create schema")
	}

	log.Info().Msg("script finished")

	return nil
}
