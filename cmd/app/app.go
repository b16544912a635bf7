package app

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"acidlab.dev/backend/cmd/app/cli/runscript"
	"acidlab.dev/backend/cmd/app/server"
	"acidlab.dev/backend/internal/pkg/bininfo"
)

func Run() {
	app := &cli.App{
		Name:        "acidbackend",
		Description: "The Acid Lab backend: validates and stores TB-303 patterns. Built with Go, fiber, bun and go.uber.org/fx. Publishes pattern events to NATS and keeps idempotency keys in Redis.",
		Version:     bininfo.Version,
		Commands: []*cli.Command{
			server.Command(),
			runscript.Command(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("failed to run app")
	}
}
