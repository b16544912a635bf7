package script_archive_public_patterns

import (
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	"acidlab.dev/backend/internal/service"
)

type CommandDeps struct {
	fx.In

	ArchiveService *service.Archive
}

func Command(depsFn func() (CommandDeps, func())) *cli.Command {
	return &cli.Command{
		Name:        "archive_public_patterns",
		Description: "archive every public pattern to S3 as a dated jsonl.gz object",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "date",
				Usage: "archive date in YYYY-MM-DD, UTC",
				Value: time.Now().UTC().Format(time.DateOnly),
			},
			&cli.BoolFlag{
				Name:  "profile",
				Usage: "serve fgprof on 127.0.0.1:6060 while running",
			},
		},
		Action: func(ctx *cli.Context) error {
			deps, stop := depsFn()
			defer stop()
			return run(ctx, deps)
		},
	}
}
