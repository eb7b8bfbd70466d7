// Package objectstore stores binary blobs (progress photos, oversized
// icons) in an S3-compatible bucket and mints time-limited signed GET URLs.
package objectstore

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	perr "pursue/internal/platform/errors"
	"pursue/internal/platform/logger"
)

const (
	defaultRegion = "us-east-1"
	defaultTTL    = 15 * time.Minute
)

// Options configures the store
type Options struct {
	Bucket string
	Region string

	// Endpoint overrides the AWS endpoint for S3-compatible stores.
	// Path-style addressing is forced when set.
	Endpoint string

	// Static credentials; empty falls back to the default AWS chain
	AccessKey string
	SecretKey string

	// SignedURLTTL bounds how long minted GET URLs stay valid
	SignedURLTTL time.Duration
}

// Store is the S3-backed object store
type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
	log     logger.Logger
}

// New builds a Store and verifies the options are usable
func New(ctx context.Context, o Options) (*Store, error) {
	if o.Bucket == "" {
		return nil, perr.InvalidArgf("objectstore: bucket is required")
	}
	if o.Region == "" {
		o.Region = defaultRegion
	}
	if o.SignedURLTTL <= 0 {
		o.SignedURLTTL = defaultTTL
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(o.Region),
	}
	if o.AccessKey != "" && o.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "objectstore: load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = true
		}
	})

	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  o.Bucket,
		ttl:     o.SignedURLTTL,
		log:     *logger.Named("objectstore"),
	}, nil
}

// Upload writes data at path, overwriting any previous object
func (s *Store) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "objectstore: put %s", path)
	}
	s.log.Debug().Str("path", path).Int("bytes", len(data)).Msg("object uploaded")
	return nil
}

// SignedURL mints a presigned GET URL for path; expiry is the store's TTL
func (s *Store) SignedURL(ctx context.Context, path string) (string, error) {
	out, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "objectstore: presign %s", path)
	}
	return out.URL, nil
}

// Delete removes a single object; deleting a missing object is not an error
func (s *Store) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "objectstore: delete %s", path)
	}
	return nil
}

// DeletePrefix removes every object under prefix, paging through listings
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	n := 0
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "objectstore: list %s", prefix)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			}); err != nil {
				return perr.Wrapf(err, perr.ErrorCodeUnavailable, "objectstore: delete %s", *obj.Key)
			}
			n++
		}
	}
	s.log.Debug().Str("prefix", prefix).Int("deleted", n).Msg("prefix cleared")
	return nil
}
