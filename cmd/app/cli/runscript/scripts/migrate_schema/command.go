package script_migrate_schema

import (
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

type CommandDeps struct {
	fx.In

	DB *bun.DB
}

func Command(depsFn func() (CommandDeps, func())) *cli.Command {
	return &cli.Command{
		Name:        "migrate_schema",
		Description: "create the pattern tables and indexes when missing",
		Action: func(ctx *cli.Context) error {
			deps, stop := depsFn()
			defer stop()
			return run(ctx, deps)
		},
	}
}
