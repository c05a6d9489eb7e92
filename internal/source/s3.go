package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/adamancini/nudge/internal/manifest"
	"github.com/adamancini/nudge/internal/types"
)

// ObjectGetter is the slice of the S3 API the source needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config locates a manifest object. Endpoint targets S3-compatible
// stores such as R2 or MinIO and switches to path-style addressing.
type S3Config struct {
	Bucket          string
	Key             string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Source reads a manifest object from S3.
type S3Source struct {
	*remoteManifest

	client ObjectGetter
	bucket string
	key    string
	etag   string
}

// NewS3Source creates a source over an existing client.
func NewS3Source(client ObjectGetter, bucket, key string, opts Options) *S3Source {
	s := &S3Source{client: client, bucket: bucket, key: key}
	s.remoteManifest = newRemoteManifest(opts, s.get)
	return s
}

// NewS3SourceFromConfig builds an S3 client from the default AWS credential
// chain, or from static keys when both are set.
func NewS3SourceFromConfig(ctx context.Context, cfg S3Config, opts Options) (*S3Source, error) {
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("s3 source requires bucket and key")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Source(client, cfg.Bucket, cfg.Key, opts), nil
}

// Location returns the object as s3://bucket/key.
func (s *S3Source) Location() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}

func (s *S3Source) get(ctx context.Context) ([]byte, types.Format, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	}
	if s.etag != "" {
		in.IfNoneMatch = aws.String(s.etag)
	}

	out, err := s.client.GetObject(ctx, in)
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, types.FormatUnknown, fmt.Errorf("%s: %w", s.Location(), ErrNoRelease)
		}
		if isNotModified(err) {
			return nil, types.FormatUnknown, nil
		}
		return nil, types.FormatUnknown, fmt.Errorf("failed to get %s: %w", s.Location(), err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, maxManifestSize))
	if err != nil {
		return nil, types.FormatUnknown, fmt.Errorf("failed to read %s: %w", s.Location(), err)
	}
	s.etag = aws.ToString(out.ETag)

	format := manifest.DetectFormat(s.key, body)
	if format == types.FormatUnknown {
		format = formatFromContentType(aws.ToString(out.ContentType))
	}
	return body, format, nil
}

// isNotModified reports a 304 answer to a conditional GetObject.
func isNotModified(err error) bool {
	var status interface{ HTTPStatusCode() int }
	return errors.As(err, &status) && status.HTTPStatusCode() == 304
}
