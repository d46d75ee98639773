package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

const schemaKeyPrefix = "schemas"

// schemaKey is the primary L3 key for a schema identified by id.
func schemaKey(id string) string {
	return fmt.Sprintf("%s/%s", schemaKeyPrefix, id)
}

// contentAddressedKey dedupes identical schema bodies registered under
// different subjects, sharded two hex characters deep like the
// reference codebase's proto-file bucket layout.
func contentAddressedKey(hash string) string {
	return fmt.Sprintf("%s/sha256/%s/%s", schemaKeyPrefix, hash[:2], hash[2:])
}

// l3Store wraps an S3-compatible client as the warm, content-addressable
// object tier.
type l3Store struct {
	client *s3.Client
	bucket string
}

func newL3Store(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, pathStyle bool) (*l3Store, error) {
	var awsCfg aws.Config
	var err error
	if accessKey != "" && secretKey != "" {
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		)
	} else {
		awsCfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(region))
	}
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = pathStyle
	})

	return &l3Store{client: client, bucket: bucket}, nil
}

func (s *l3Store) Put(ctx context.Context, key string, content []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("l3 put %s: %w", key, err)
	}
	return nil
}

func (s *l3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("l3 get %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *l3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("l3 head %s: %w", key, err)
	}
	return true, nil
}

func (s *l3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return fmt.Errorf("l3 delete %s: %w", key, err)
	}
	return nil
}

// PutContentAddressed stores content once per distinct SHA256 digest.
func (s *l3Store) PutContentAddressed(ctx context.Context, content []byte, contentType string) (string, error) {
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	key := contentAddressedKey(hash)

	exists, err := s.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		if err := s.Put(ctx, key, content, contentType); err != nil {
			return "", err
		}
	}
	return key, nil
}

func (s *l3Store) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("l3 health check: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == 404
	}
	return false
}
