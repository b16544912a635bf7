package archiver

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FileExt                = ".jsonl.gz"
	LocalTempDirPattern    = "acidlab-archiver-*"
	ArchiverChanBufferSize = 16
)

var ErrFileAlreadyExists = errors.New("file already exists")

// ObjectStore is the subset of the S3 API the archiver needs. *s3.Client satisfies it.
type ObjectStore interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ ObjectStore = (*s3.Client)(nil)

// Archiver writes the items sent to WriterCh as gzipped JSON lines and uploads
// the file to <S3Prefix><Realm>/<Realm>_<date>.jsonl.gz.
type Archiver struct {
	Store    ObjectStore
	S3Bucket string

	// S3Prefix is for the files in the bucket with no leading slash but optionally (typically) with trailing slash
	// e.g. "v1/" or simply "" (empty string)
	S3Prefix string

	RealmName string

	date         time.Time
	localTempDir string
	writerCh     chan any
	logger       *zerolog.Logger
}

func (a *Archiver) initLogger() {
	if a.logger == nil {
		logger := log.With().
			Str("module", "archiver").
			Str("realm", a.RealmName).
			Logger()
		a.logger = &logger
	}
}

// Key is the object key the archive is uploaded to.
func (a *Archiver) Key() string {
	return a.S3Prefix + a.canonicalFilePath()
}

func (a *Archiver) canonicalFilePath() string {
	return a.RealmName + "/" + a.RealmName + "_" + a.date.UTC().Format("2006-01-02") + FileExt
}

func (a *Archiver) Prepare(ctx context.Context, date time.Time) error {
	a.initLogger()

	a.logger.Info().Str("date", date.UTC().Format("2006-01-02")).Msg("preparing archiver")
	a.date = date
	a.writerCh = make(chan any, ArchiverChanBufferSize)

	if err := a.assertS3FileNonExistence(ctx); err != nil {
		return errors.Wrap(err, "failed to assertFileNonExistence")
	}

	dir, err := os.MkdirTemp("", LocalTempDirPattern)
	if err != nil {
		return errors.Wrap(err, "failed to create temporary directory")
	}
	a.localTempDir = dir
	a.logger.Trace().Str("localTempDir", a.localTempDir).Msg("created local temp dir")

	return nil
}

func (a *Archiver) assertS3FileNonExistence(ctx context.Context) error {
	key := a.Key()
	object, err := a.Store.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) && ae.ErrorCode() == "NotFound" {
			return nil
		}
		return errors.Wrap(err, "failed to invoke HeadObject")
	}
	return errors.Wrap(ErrFileAlreadyExists, fmt.Sprintf("file %q already exists in s3 with LastModified %q", key, aws.ToTime(object.LastModified)))
}

// WriterCh must be closed by the caller once every item has been sent.
func (a *Archiver) WriterCh() chan<- any {
	return a.writerCh
}

// Collect drains WriterCh into the local file and uploads it. It must run on
// a different goroutine from the sender and only once per Prepare.
func (a *Archiver) Collect(ctx context.Context) error {
	defer func() {
		if err := os.RemoveAll(a.localTempDir); err != nil {
			a.logger.Warn().Err(err).Msg("failed to remove temporary directory")
		}
	}()

	localPath := path.Join(a.localTempDir, a.canonicalFilePath())
	if err := a.archiveToLocalFile(ctx, localPath); err != nil {
		return errors.Wrap(err, "failed to archiveToLocalFile")
	}
	a.logger.Trace().Msg("archived to local file")

	if err := a.uploadToS3(ctx, localPath); err != nil {
		return errors.Wrap(err, "failed to uploadToS3")
	}
	a.logger.Info().Str("key", a.Key()).Msg("uploaded archive")

	return nil
}

func (a *Archiver) archiveToLocalFile(ctx context.Context, localPath string) (err error) {
	if err := os.MkdirAll(path.Dir(localPath), 0o755); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}

	file, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "failed to close file")
		}
	}()

	gzipWriter := gzip.NewWriter(file)
	defer func() {
		if cerr := gzipWriter.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "failed to flush gzip stream")
		}
	}()

	encoder := json.NewEncoder(gzipWriter)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-a.writerCh:
			if !ok {
				return nil
			}
			if err := encoder.Encode(item); err != nil {
				return errors.Wrap(err, "failed to encode item")
			}
		}
	}
}

func (a *Archiver) uploadToS3(ctx context.Context, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	if _, err := a.Store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:            aws.String(a.S3Bucket),
		Key:               aws.String(a.Key()),
		Body:              file,
		ContentType:       aws.String("application/x-ndjson"),
		ContentEncoding:   aws.String("gzip"),
		StorageClass:      types.StorageClassGlacierIr,
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	}); err != nil {
		return errors.Wrap(err, "failed to invoke PutObject")
	}
	return nil
}
