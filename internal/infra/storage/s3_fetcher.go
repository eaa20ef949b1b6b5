package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"moderation-service/internal/domain/ports/adapter"
)

var _ adapter.MediaFetcher = (*S3Fetcher)(nil)

const downloadPartSize = 8 * 1024 * 1024

type S3Config struct {
	// e.g. "http://127.0.0.1:9000" for minio; empty uses the AWS endpoint
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	TempDir   string
}

// S3Fetcher downloads media objects into temporary files.
type S3Fetcher struct {
	bucket     string
	tempDir    string
	downloader *manager.Downloader
	log        *zerolog.Logger
}

// Connect builds an S3 client for cfg.
func Connect(cfg S3Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	return s3.NewFromConfig(aws.Config{Region: region}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.AccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		}
	})
}

func NewS3Fetcher(client *s3.Client, cfg S3Config, logger *zerolog.Logger) (*S3Fetcher, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: empty bucket")
	}
	l := logger.With().Str("component", "s3_fetcher").Logger()
	return &S3Fetcher{
		bucket:  cfg.Bucket,
		tempDir: cfg.TempDir,
		downloader: manager.NewDownloader(client, func(d *manager.Downloader) {
			d.PartSize = downloadPartSize
		}),
		log: &l,
	}, nil
}

func (f *S3Fetcher) Fetch(ctx context.Context, objectKey string) (string, func(), error) {
	key, err := cleanKey(objectKey)
	if err != nil {
		return "", nil, err
	}
	tmp, err := os.CreateTemp(f.tempDir, "media-*"+filepath.Ext(key))
	if err != nil {
		return "", nil, fmt.Errorf("s3: create temp file: %w", err)
	}
	release := removeOnce(tmp.Name(), f.log)

	n, err := f.downloader.Download(ctx, tmp, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		release()
		return "", nil, fmt.Errorf("s3: download %s: %w", key, err)
	}
	f.log.Debug().Str("key", key).Int64("bytes", n).Msg("media downloaded")
	return tmp.Name(), release, nil
}
