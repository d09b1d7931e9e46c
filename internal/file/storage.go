package file

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStorage keeps the raw document bytes; Mongo keeps only metadata.
type ObjectStorage interface {
	Save(ctx context.Context, filename, contentType string, data []byte) (objectKey, publicURL, checksum string, err error)
	Delete(ctx context.Context, objectKey string) error
	Bucket() string
}

type minioStorage struct {
	client     *minio.Client
	bucketName string
	publicBase string
}

func NewMinioStorage(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (ObjectStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, errBucket := client.BucketExists(ctx, bucket)
	if errBucket != nil {
		return nil, errBucket
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	scheme := "http"
	if useSSL {
		scheme = "https"
	}

	return &minioStorage{
		client:     client,
		bucketName: bucket,
		publicBase: fmt.Sprintf("%s://%s/%s", scheme, endpoint, bucket),
	}, nil
}

func (s *minioStorage) Save(ctx context.Context, filename, contentType string, data []byte) (string, string, string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	objectKey := fmt.Sprintf("files/%s%s", uuid.New().String(), ext)

	hash := sha256.Sum256(data)
	checksum := hex.EncodeToString(hash[:])

	_, err := s.client.PutObject(ctx, s.bucketName, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"filename": filename, "checksum": checksum},
	})
	if err != nil {
		return "", "", "", err
	}

	// Bucket is public-read: the consumer downloads jobs over plain HTTP.
	return objectKey, s.publicBase + "/" + objectKey, checksum, nil
}

func (s *minioStorage) Delete(ctx context.Context, objectKey string) error {
	return s.client.RemoveObject(ctx, s.bucketName, objectKey, minio.RemoveObjectOptions{})
}

func (s *minioStorage) Bucket() string {
	return s.bucketName
}
