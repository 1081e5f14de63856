package archive

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-faster/errors"
)

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional, e.g. MinIO
	PathStyle bool
	Prefix    string
}

// S3Store archives objects into a single S3-compatible bucket.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Store{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

func (s *S3Store) Driver() Driver { return DriverS3 }

func (s *S3Store) objectKey(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + "/" + k
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, opts PutOptions) (Info, error) {
	k, err := CleanKey(key)
	if err != nil {
		return Info{}, err
	}
	objKey := s.objectKey(k)
	// Create-only: refuse to overwrite an archived document.
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &objKey}); err == nil {
		return Info{}, ErrExists
	}
	input := &s3.PutObjectInput{
		Bucket:   &s.bucket,
		Key:      &objKey,
		Body:     bytes.NewReader(data),
		Metadata: opts.Metadata,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		return Info{}, errors.Wrapf(err, "put s3://%s/%s", s.bucket, objKey)
	}
	info := Info{
		Key:         k,
		Size:        int64(len(data)),
		ContentType: opts.ContentType,
		ETag:        etag(data),
		Metadata:    opts.Metadata,
		CreatedAt:   time.Now().UTC(),
	}
	if out.ETag != nil {
		info.ETag = strings.Trim(*out.ETag, `"`)
	}
	return info, nil
}

func (s *S3Store) Get(ctx context.Context, key string) (Info, []byte, error) {
	k, err := CleanKey(key)
	if err != nil {
		return Info{}, nil, err
	}
	objKey := s.objectKey(k)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &objKey})
	if err != nil {
		return Info{}, nil, errors.Wrapf(err, "get s3://%s/%s", s.bucket, objKey)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return Info{}, nil, errors.Wrap(err, "read s3 body")
	}
	info := Info{Key: k, Size: int64(len(data)), Metadata: out.Metadata, ETag: etag(data)}
	if out.ContentType != nil {
		info.ContentType = *out.ContentType
	}
	if out.LastModified != nil {
		info.CreatedAt = out.LastModified.UTC()
	}
	return info, data, nil
}
