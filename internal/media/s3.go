package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"portfolio-site-api/internal/config"
)

// S3Store writes objects to an S3-compatible bucket.
type S3Store struct {
	client     *s3.Client
	bucket     string
	region     string
	endpoint   string
	publicBase string
}

// NewS3Store loads the default AWS credential chain. If cfg.Endpoint is set,
// path-style addressing is used (MinIO, Supabase storage and similar).
func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Store{
		client:     s3.NewFromConfig(awsCfg, opts...),
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

func (s *S3Store) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=3600"),
	})
	if err != nil {
		return fmt.Errorf("s3 put object %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the URL an object is served from.
func (s *S3Store) PublicURL(key string) string {
	return publicURL(s.publicBase, s.endpoint, s.bucket, s.region, key)
}

func publicURL(publicBase, endpoint, bucket, region, key string) string {
	switch {
	case publicBase != "":
		return publicBase + "/" + key
	case endpoint != "":
		return fmt.Sprintf("%s/%s/%s", endpoint, bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
	}
}
