package cli

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"acidlab.dev/backend/internal/app"
	"acidlab.dev/backend/internal/app/appcontext"
)

// Start boots the fx graph for a one-off command. The returned func stops it.
func Start(module fx.Option) (stop func()) {
	a := app.New(appcontext.Declare(appcontext.EnvCLI), module)
	if err := a.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to start application")
	}
	return func() {
		if err := a.Stop(context.Background()); err != nil {
			log.Warn().Err(err).Msg("failed to stop application cleanly")
		}
	}
}
