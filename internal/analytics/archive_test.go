package analytics

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockS3Client struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.bucket = *input.Bucket
	m.key = *input.Key
	m.contentType = *input.ContentType
	m.body, _ = io.ReadAll(input.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3ArchiverArchive(t *testing.T) {
	mock := &mockS3Client{}
	a := NewS3Archiver(mock, "exports-bucket", quietLogger())
	a.now = func() time.Time { return time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC) }

	key, err := a.Archive(context.Background(), []byte("ID\n"))
	require.NoError(t, err)
	assert.Equal(t, "exports/2024/02/03/20240203T040506.000000000Z.csv", key)
	assert.Equal(t, "exports-bucket", mock.bucket)
	assert.Equal(t, key, mock.key)
	assert.Equal(t, "text/csv", mock.contentType)
	assert.Equal(t, "ID\n", string(mock.body))
}

func TestS3ArchiverDisabled(t *testing.T) {
	var nilArchiver *S3Archiver
	assert.False(t, nilArchiver.Enabled())

	a := NewS3Archiver(&mockS3Client{}, "", nil)
	assert.False(t, a.Enabled())
	key, err := a.Archive(context.Background(), []byte("x"))
	assert.NoError(t, err)
	assert.Empty(t, key)
}

func TestS3ArchiverError(t *testing.T) {
	a := NewS3Archiver(&mockS3Client{err: errors.New("access denied")}, "b", quietLogger())
	_, err := a.Archive(context.Background(), []byte("x"))
	assert.ErrorContains(t, err, "access denied")
}
