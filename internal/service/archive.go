package service

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redsync/redsync/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"acidlab.dev/backend/internal/app/appconfig"
	"acidlab.dev/backend/internal/model"
	"acidlab.dev/backend/internal/pkg/archiver"
	"acidlab.dev/backend/internal/repo"
)

const (
	RealmPublicPatterns = "public_patterns"

	ArchiveS3Prefix = "v1/"
)

var ErrArchiveNotConfigured = errors.New("archive bucket is not configured")

// Archive exports every public pattern to a dated jsonl.gz object.
type Archive struct {
	PatternRepo *repo.Pattern
	Config      *appconfig.Config

	// Store is nil when no archive bucket is configured.
	Store archiver.ObjectStore

	// RedSync is nil when Redis is not configured; runs are then not serialized.
	RedSync *redsync.Redsync
}

func NewArchive(patternRepo *repo.Pattern, conf *appconfig.Config, s3Client *s3.Client, rs *redsync.Redsync) *Archive {
	s := &Archive{
		PatternRepo: patternRepo,
		Config:      conf,
		RedSync:     rs,
	}
	if s3Client != nil {
		s.Store = s3Client
	}
	return s
}

// ArchivePublicPatterns uploads the public patterns as of date and returns how
// many were written. An archive that already exists for date is left alone.
func (s *Archive) ArchivePublicPatterns(ctx context.Context, date time.Time) (int, error) {
	if s.Store == nil {
		return 0, ErrArchiveNotConfigured
	}

	if s.RedSync != nil {
		lock := s.RedSync.NewMutex("mutex:archiver:"+RealmPublicPatterns, redsync.WithExpiry(30*time.Minute), redsync.WithTries(2))
		if err := lock.LockContext(ctx); err != nil {
			return 0, errors.Wrap(err, "failed to acquire lock")
		}
		defer func() {
			if _, err := lock.Unlock(); err != nil {
				log.Warn().Err(err).Str("evt.name", "archive.unlock_failed").Msg("failed to release archive lock")
			}
		}()
	}

	a := &archiver.Archiver{
		Store:     s.Store,
		S3Bucket:  s.Config.ArchiveS3Bucket,
		S3Prefix:  ArchiveS3Prefix,
		RealmName: RealmPublicPatterns,
	}
	if err := a.Prepare(ctx, date); err != nil {
		if errors.Is(err, archiver.ErrFileAlreadyExists) {
			log.Info().
				Str("evt.name", "archive.public_patterns").
				Str("realm", RealmPublicPatterns).
				Msg("already archived")
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to prepare public patterns archiver")
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return a.Collect(egctx)
	})

	var count int
	eg.Go(func() error {
		ch := a.WriterCh()
		defer close(ch)

		var err error
		count, err = s.PatternRepo.EachPublic(egctx, s.Config.ArchiveBatchSize, func(p *model.Pattern) error {
			resp, err := toResponse(p)
			if err != nil {
				return err
			}
			select {
			case ch <- resp:
				return nil
			case <-egctx.Done():
				return egctx.Err()
			}
		})
		return errors.Wrap(err, "failed to read public patterns")
	})

	if err := eg.Wait(); err != nil {
		return 0, err
	}

	log.Info().
		Str("evt.name", "archive.finished").
		Str("key", a.Key()).
		Int("count", count).
		Msg("finished archiving public patterns")

	return count, nil
}
