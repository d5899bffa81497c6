package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kailas-cloud/aossindex/internal/domain"
)

// ErrSource signals that the event feed could not be read or decoded.
var ErrSource = errors.New("event source")

// ObjectGetter is the subset of *s3.Client used by S3Source.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads the event feed, a JSON array, from one object.
type S3Source struct {
	api    ObjectGetter
	bucket string
	key    string
}

// NewS3Source creates a source for s3://bucket/key.
func NewS3Source(api ObjectGetter, bucket, key string) *S3Source {
	return &S3Source{api: api, bucket: bucket, key: key}
}

// Events downloads and decodes the feed.
func (s *S3Source) Events(ctx context.Context) ([]domain.Event, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, describe(fmt.Sprintf("get s3://%s/%s", s.bucket, s.key), err, ErrSource)
	}
	defer out.Body.Close()

	var events []domain.Event
	if err := json.NewDecoder(out.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("decode s3://%s/%s: %v: %w", s.bucket, s.key, err, ErrSource)
	}
	return events, nil
}
