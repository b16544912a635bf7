package service_test

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"acidlab.dev/backend/internal/app/appconfig"
	"acidlab.dev/backend/internal/pkg/testdb"
	"acidlab.dev/backend/internal/repo"
	"acidlab.dev/backend/internal/service"
)

type bucket map[string][]byte

func (b bucket) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := b[aws.ToString(in.Key)]; !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound"}
	}
	return &s3.HeadObjectOutput{LastModified: aws.Time(time.Now())}, nil
}

func (b bucket) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	b[aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func TestArchivePublicPatterns(t *testing.T) {
	ctx := context.Background()
	patternRepo := repo.NewPattern(testdb.New(t))
	patterns := service.NewPattern(patternRepo, nil)
	owner := uuid.New()

	for i, public := range []bool{true, false, true, true} {
		_, err := patterns.Create(ctx, owner, request(string(rune('a'+i)), public, i+1))
		require.NoError(t, err)
	}

	store := bucket{}
	conf := &appconfig.Config{}
	conf.ArchiveS3Bucket = "archive"
	conf.ArchiveBatchSize = 2
	archive := &service.Archive{PatternRepo: patternRepo, Config: conf, Store: store}

	date := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	count, err := archive.ArchivePublicPatterns(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	object, ok := store["v1/public_patterns/public_patterns_2024-05-01.jsonl.gz"]
	require.True(t, ok)

	gz, err := gzip.NewReader(bytes.NewReader(object))
	require.NoError(t, err)
	scanner := bufio.NewScanner(gz)
	var names []string
	for scanner.Scan() {
		line := gjson.ParseBytes(scanner.Bytes())
		assert.True(t, line.Get("is_public").Bool())
		assert.Equal(t, "note", line.Get("steps.0.time").String())
		names = append(names, line.Get("name").String())
	}
	require.NoError(t, scanner.Err())
	assert.ElementsMatch(t, []string{"a", "c", "d"}, names)

	count, err = archive.ArchivePublicPatterns(ctx, date)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestArchiveRequiresBucket(t *testing.T) {
	archive := service.NewArchive(repo.NewPattern(testdb.New(t)), &appconfig.Config{}, nil, nil)

	_, err := archive.ArchivePublicPatterns(context.Background(), time.Now())
	assert.ErrorIs(t, err, service.ErrArchiveNotConfigured)
}
