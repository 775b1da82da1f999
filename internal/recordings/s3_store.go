package recordings

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wolfman30/visit-report-ai/internal/llm"
)

const s3Prefix = "recordings/"

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store keeps recordings in a bucket under the recordings/ prefix.
type S3Store struct {
	api    S3API
	bucket string
}

func NewS3Store(api S3API, bucket string) (*S3Store, error) {
	if api == nil {
		return nil, errors.New("recordings: s3 client required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("recordings: bucket required")
	}
	return &S3Store{api: api, bucket: bucket}, nil
}

func (s *S3Store) Save(ctx context.Context, name string, data []byte) (string, error) {
	id := NewID(name)
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s3Prefix + id),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(llm.MIMETypeForFile(id)),
	})
	if err != nil {
		return "", fmt.Errorf("recordings: s3 put %s: %w", id, err)
	}
	return id, nil
}

func (s *S3Store) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3Prefix + id),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("recordings: s3 get %s: %w", id, err)
	}
	return out.Body, nil
}
