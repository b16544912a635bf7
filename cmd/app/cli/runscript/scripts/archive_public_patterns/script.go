package script_archive_public_patterns

import (
	"net/http"
	"time"

	"github.com/felixge/fgprof"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func run(ctx *cli.Context, deps CommandDeps) error {
	if ctx.Bool("profile") {
		mux := http.NewServeMux()
		mux.Handle("/debug/fgprof", fgprof.Handler())
		go func() {
			log.Print(http.ListenAndServe("127.0.0.1:6060", mux))
		}()
	}

	dateStr := ctx.String("date")
	log.Info().Str("date", dateStr).Msg("running script")

	date, err := time.Parse(time.DateOnly, dateStr)
	if err != nil {
		return errors.Wrap(err, "failed to parse date")
	}

	count, err := deps.ArchiveService.ArchivePublicPatterns(ctx.Context, date)
	if err != nil {
		return errors.Wrap(err, "failed to run archivePublicPatterns")
	}

	log.Info().Int("count", count).Msg("script finished")

	return nil
}
