package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/cognicore/tactica/internal/logger"
	"github.com/cognicore/tactica/pkg/tactica/internalerr"
)

// S3Config points at an S3-compatible bucket. Endpoint is optional and
// enables path-style addressing for MinIO and similar services.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3 stores images as objects. References are s3://bucket/key URIs.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
	log    *logger.Logger
}

// NewS3 loads the AWS SDK configuration and builds the client. Static
// credentials are used when given, otherwise the default chain applies.
func NewS3(ctx context.Context, cfg S3Config, log *logger.Logger) (*S3, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("imagestore: s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	sdkCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("imagestore: load aws config: %w", err)
	}
	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	log.Info("s3 image store initialized", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return &S3{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/"), log: log}, nil
}

func (s *S3) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *S3) Put(ctx context.Context, key string, png []byte) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	obj := s.objectKey(key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(obj),
		Body:        bytes.NewReader(png),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", fmt.Errorf("imagestore: put %s: %w", obj, err)
	}
	return s3Ref(s.bucket, obj), nil
}

func (s *S3) Get(ctx context.Context, ref string) ([]byte, error) {
	bucket, key, err := parseS3Ref(ref)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("image %s: %w", ref, internalerr.ErrNotFound)
		}
		return nil, fmt.Errorf("imagestore: get %s: %w", ref, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3) Delete(ctx context.Context, ref string) error {
	bucket, key, err := parseS3Ref(ref)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("imagestore: delete %s: %w", ref, err)
	}
	return nil
}

func s3Ref(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}

func parseS3Ref(ref string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(ref, "s3://")
	if ok {
		bucket, key, ok = strings.Cut(rest, "/")
	}
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: s3 ref %q", internalerr.ErrInvalidInput, ref)
	}
	return bucket, key, nil
}
