/*
Copyright © 2025 Imgvault Authors
SPDX-License-Identifier: Apache-2.0
*/

package storage

import (
	"context"
	stderrors "errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/imgvault/imgvault/pkg/config"
	"github.com/imgvault/imgvault/pkg/defaults"
	"github.com/imgvault/imgvault/pkg/errors"
)

// r2Region is the region name Cloudflare R2 expects for its S3 API.
const r2Region = "auto"

// S3 stores objects in an S3-compatible bucket (Cloudflare R2 by default).
type S3 struct {
	client *s3.Client
	bucket string
}

// NewS3 builds an S3 store from resolved storage configuration.
// Credentials are static, the region is R2's "auto", and path-style
// addressing is used for compatibility with non-AWS endpoints.
func NewS3(ctx context.Context, cfg *config.Storage) (*S3, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(r2Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, "failed to build storage client config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.EndpointURL())
		o.UsePathStyle = true
	})

	return &S3{client: client, bucket: cfg.Bucket}, nil
}

// Exists issues a HeadObject against the bucket.
func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	_, exists, err := s.Stat(ctx, key)
	return exists, err
}

// Put streams the object into the bucket. ContentLength is declared up
// front so the SDK does not buffer the body to compute it.
func (s *S3) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = DefaultContentType
	}
	ctx, cancel := context.WithTimeout(ctx, defaults.BlobUploadTimeout)
	defer cancel()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeUpload,
			"failed to put object", err,
			map[string]any{"bucket": s.bucket, "key": key})
	}
	return nil
}

// Stat returns the stored object size via HeadObject. A NotFound response
// is not an error; it reports absence.
func (s *S3) Stat(ctx context.Context, key string) (int64, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaults.StorageProbeTimeout)
	defer cancel()
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if stderrors.As(err, &notFound) {
			return 0, false, nil
		}
		return 0, false, errors.WrapWithContext(errors.ErrCodeUpload,
			"failed to stat object", err,
			map[string]any{"bucket": s.bucket, "key": key})
	}
	return aws.ToInt64(out.ContentLength), true, nil
}
