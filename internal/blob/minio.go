package blob

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"pdf-search/internal/apperr"
)

// MinIOStore stores blobs in a single MinIO bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
	log    *slog.Logger
}

// MinIOOptions configures the MinIO-backed store.
type MinIOOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinIO connects to MinIO and ensures the bucket exists.
func NewMinIO(log *slog.Logger, opts MinIOOptions) (*MinIOStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBlobStore, err, "failed to create MinIO client")
	}
	s := &MinIOStore{client: client, bucket: opts.Bucket, log: log}
	if err := s.ensureBucket(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MinIOStore) ensureBucket() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return apperr.Wrap(apperr.KindBlobStore, err, "failed to check bucket %s", s.bucket)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return apperr.Wrap(apperr.KindBlobStore, err, "failed to create bucket %s", s.bucket)
		}
		s.log.Info("bucket created", "bucket", s.bucket)
	}
	return nil
}

func (s *MinIOStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return apperr.Wrap(apperr.KindBlobStore, err, "failed to upload %s", key)
	}
	s.log.Info("blob uploaded", "key", key, "bucket", s.bucket, "bytes", len(data))
	return nil
}

func (s *MinIOStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBlobStore, err, "failed to download %s", key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBlobStore, err, "failed to read %s", key)
	}
	return data, nil
}

func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.New(apperr.KindBlobStore, "blob not found: %s", key)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return apperr.Wrap(apperr.KindBlobStore, err, "failed to delete %s", key)
	}
	s.log.Info("blob deleted", "key", key, "bucket", s.bucket)
	return nil
}

func (s *MinIOStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, apperr.Wrap(apperr.KindBlobStore, err, "failed to stat %s", key)
	}
	return true, nil
}

func (s *MinIOStore) Close() error { return nil }
