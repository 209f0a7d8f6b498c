package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/xhad/pdfrag/internal/types"
)

type S3Config struct {
	Bucket string
	Region string
}

// S3Store keeps the raw uploaded PDFs in an S3 bucket. Credentials come
// from the standard AWS environment/credential chain.
type S3Store struct {
	config   S3Config
	client   *s3.Client
	uploader *manager.Uploader
}

func NewS3WithConfig(ctx context.Context, config S3Config) (*S3Store, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.Region))
	if err != nil {
		return nil, types.Wrap(types.ErrStorage, fmt.Errorf("failed to load AWS config: %w", err))
	}

	client := s3.NewFromConfig(awsCfg)

	return &S3Store{
		config:   config,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// Put streams r to the bucket under key and returns the object's URL.
func (s *S3Store) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", types.Wrap(types.ErrStorage, fmt.Errorf("failed to upload %s: %w", key, err))
	}

	return out.Location, nil
}

// Get returns a reader over the stored object. The caller closes it.
func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, types.Wrap(types.ErrStorage, fmt.Errorf("failed to fetch %s: %w", key, err))
	}

	return out.Body, nil
}
