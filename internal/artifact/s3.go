package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/enercomp/enercomp/internal/logging"
)

// S3Config holds the connection parameters for an S3-compatible object store.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3Store keeps artifacts in an S3-compatible bucket (MinIO, AWS S3, GCS in
// interoperability mode).
type S3Store struct {
	client *minio.Client
	bucket string
	logger *logging.Logger
}

// NewS3Store connects to the object store and ensures the bucket exists.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("artifact: s3 endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("artifact: s3 bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("artifact: failed to create s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("artifact: failed to check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("artifact: failed to create bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		logger: logging.GetLogger("artifact.s3"),
	}, nil
}

func (s *S3Store) Save(ctx context.Context, userID, sessionID, key, mimeType string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey(userID, sessionID, key),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: mimeType},
	)
	if err != nil {
		return fmt.Errorf("artifact: failed to store object: %w", err)
	}
	return nil
}

func (s *S3Store) Load(ctx context.Context, userID, sessionID, key string) (*Artifact, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(userID, sessionID, key), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("artifact: failed to get object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("artifact: failed to read object: %w", err)
	}

	stat, err := obj.Stat()
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("artifact: failed to stat object: %w", err)
	}

	return &Artifact{
		Key:       key,
		MIMEType:  stat.ContentType,
		Data:      data,
		Size:      stat.Size,
		UpdatedAt: stat.LastModified,
	}, nil
}

func (s *S3Store) List(ctx context.Context, userID, sessionID string) ([]Artifact, error) {
	prefix := sessionPrefix(userID, sessionID)
	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}

	var out []Artifact
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("artifact: failed to list objects: %w", obj.Err)
		}
		out = append(out, Artifact{
			Key:       strings.TrimPrefix(obj.Key, prefix),
			MIMEType:  obj.ContentType,
			Size:      obj.Size,
			UpdatedAt: obj.LastModified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *S3Store) Delete(ctx context.Context, userID, sessionID, key string) error {
	objKey := objectKey(userID, sessionID, key)

	// RemoveObject succeeds on missing keys; stat first so the contract
	// matches the other backends.
	if _, err := s.client.StatObject(ctx, s.bucket, objKey, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return ErrNotFound
		}
		return fmt.Errorf("artifact: failed to stat object: %w", err)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, objKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("artifact: failed to delete object: %w", err)
	}
	return nil
}

func (s *S3Store) Close() error {
	return nil
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey"
	}
	return false
}

var _ Store = (*S3Store)(nil)
