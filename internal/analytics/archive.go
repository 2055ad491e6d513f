package analytics

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/wolfman30/leadcrm/pkg/logging"
)

// S3API is the subset of the S3 client used by S3Archiver.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver keeps a copy of every CSV export. If bucket is empty, Archive is
// a no-op.
type S3Archiver struct {
	bucket string
	client S3API
	logger *logging.Logger
	now    func() time.Time
}

func NewS3Archiver(client S3API, bucket string, logger *logging.Logger) *S3Archiver {
	if logger == nil {
		logger = logging.Default()
	}
	return &S3Archiver{bucket: bucket, client: client, logger: logger, now: time.Now}
}

// Enabled returns true if archival is configured.
func (a *S3Archiver) Enabled() bool {
	return a != nil && a.bucket != "" && a.client != nil
}

// Archive uploads data and returns the object key.
func (a *S3Archiver) Archive(ctx context.Context, data []byte) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	now := a.now().UTC()
	key := fmt.Sprintf("exports/%d/%02d/%02d/%s.csv",
		now.Year(), now.Month(), now.Day(), now.Format("20060102T150405.000000000Z"))

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("analytics: s3 put %s: %w", key, err)
	}
	a.logger.Info("archived lead export to S3", "s3_key", key, "bytes", len(data))
	return key, nil
}
