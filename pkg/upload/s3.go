package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"tripcast/pkg/config"
	"tripcast/pkg/text"
)

const partSize = 10 * 1024 * 1024

// S3Uploader puts videos into an S3-compatible bucket under
// <prefix>/<keyword>/<file>.
type S3Uploader struct {
	cfg config.S3Config

	// creds overrides the default credential chain when set.
	creds *credentials.Credentials
}

// NewS3Uploader creates an uploader. Credentials come from the standard
// AWS chain (environment, shared config, instance role).
func NewS3Uploader(cfg config.S3Config) *S3Uploader {
	return &S3Uploader{cfg: cfg}
}

// Upload streams the video to the bucket.
func (u *S3Uploader) Upload(ctx context.Context, req Request) (*Result, error) {
	if u.cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is not set")
	}

	f, err := os.Open(req.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	defer f.Close()

	sess, err := session.NewSession(u.awsConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to s3: %w", err)
	}

	key := ObjectKey(u.cfg.Prefix, req.Keyword, req.VideoPath)
	slog.Info("Uploading to S3", "bucket", u.cfg.Bucket, "key", key)

	out, err := s3manager.NewUploader(sess).UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("video/mp4"),
	}, func(up *s3manager.Uploader) {
		up.PartSize = partSize
		up.LeavePartsOnError = false
	})
	if err != nil {
		return nil, fmt.Errorf("s3 upload failed: %w", err)
	}

	return &Result{ID: key, URL: out.Location}, nil
}

func (u *S3Uploader) awsConfig() *aws.Config {
	cfg := &aws.Config{}
	if u.cfg.Region != "" {
		cfg.Region = aws.String(u.cfg.Region)
	}
	if u.cfg.Endpoint != "" {
		cfg.Endpoint = aws.String(u.cfg.Endpoint)
		// Custom endpoints (MinIO, R2, ...) rarely support virtual-host buckets.
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if u.creds != nil {
		cfg.Credentials = u.creds
	}
	return cfg
}

// ObjectKey builds <prefix>/<keyword>/<file base>. A missing keyword files
// the video under "unknown".
func ObjectKey(prefix, keyword, videoPath string) string {
	dir := "unknown"
	if keyword != "" {
		dir = text.SanitizeFilename(keyword)
	}
	return path.Join(prefix, dir, filepath.Base(videoPath))
}
