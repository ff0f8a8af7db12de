package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader copies a finished backup off the machine.
type Uploader interface {
	Upload(ctx context.Context, name string, body io.ReadSeeker, size int64) error
}

// S3Options configures S3Uploader.
type S3Options struct {
	Bucket string
	Prefix string

	// Endpoint targets an S3-compatible server such as MinIO or LocalStack.
	// Path-style addressing is used when it is set.
	Endpoint string
	Region   string
}

// S3Uploader stores backups as objects under Prefix in Bucket.
type S3Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Uploader builds a client from the default AWS credential chain.
func NewS3Uploader(ctx context.Context, opts S3Options) (*S3Uploader, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Uploader{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

// Key returns the object key for a backup file name.
func (u *S3Uploader) Key(name string) string {
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}

// Upload puts the backup into the bucket.
func (u *S3Uploader) Upload(ctx context.Context, name string, body io.ReadSeeker, size int64) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(u.Key(name)),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", u.bucket, u.Key(name), err)
	}
	return nil
}

// upload sends info to the offsite store. Failures leave the local backup in
// place and are only logged by the caller.
func (m *Manager) upload(ctx context.Context, info Info) error {
	f, err := os.Open(info.Path)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer f.Close()
	return m.uploader.Upload(ctx, info.FileName, f, info.Size)
}
