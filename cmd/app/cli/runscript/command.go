package runscript

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	cliapp "acidlab.dev/backend/cmd/app/cli"
	script_archive_public_patterns "acidlab.dev/backend/cmd/app/cli/runscript/scripts/archive_public_patterns"
	script_migrate_schema "acidlab.dev/backend/cmd/app/cli/runscript/scripts/migrate_schema"
)

func depsFn[T any]() func() (T, func()) {
	return func() (T, func()) {
		var deps T
		stop := cliapp.Start(fx.Populate(&deps))
		return deps, stop
	}
}

func Command() *cli.Command {
	return &cli.Command{
		Name:        "run-script",
		Description: "run maintenance go scripts",
		Subcommands: []*cli.Command{
			script_migrate_schema.Command(depsFn[script_migrate_schema.CommandDeps]()),
			script_archive_public_patterns.Command(depsFn[script_archive_public_patterns.CommandDeps]()),
		},
	}
}
