package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/xeze-org/nutriplan-web/internal/models"
)

const exportContentType = "application/json"

// MinioStore keeps JSON exports of meal plans under exports/<user>/<plan>.json.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	return &MinioStore{client: client, bucket: bucket}, nil
}

// ExportKey names the object holding a plan export.
func ExportKey(userID, planID string) string {
	if userID == "" {
		userID = "unknown"
	}
	return path.Join("exports", path.Base(userID), path.Base(planID)+".json")
}

// EncodeExport renders plan as the indented JSON document served to users.
func EncodeExport(plan models.MealPlan) ([]byte, error) {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode plan %s: %w", plan.ID, err)
	}
	return append(data, '\n'), nil
}

// SaveExport uploads the JSON export of plan and returns its descriptor
// together with the uploaded bytes.
func (s *MinioStore) SaveExport(ctx context.Context, plan models.MealPlan) (models.ExportObject, []byte, error) {
	data, err := EncodeExport(plan)
	if err != nil {
		return models.ExportObject{}, nil, err
	}
	obj := models.ExportObject{
		Key:         ExportKey(plan.UserID, plan.ID),
		ContentType: exportContentType,
		Size:        len(data),
	}
	_, err = s.client.PutObject(ctx, s.bucket, obj.Key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	if err != nil {
		return models.ExportObject{}, nil, fmt.Errorf("minio put %s: %w", obj.Key, err)
	}
	return obj, data, nil
}

// LoadExport reads back a stored export. A missing object gives ErrNotFound.
func (s *MinioStore) LoadExport(ctx context.Context, key string) ([]byte, models.ExportObject, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, models.ExportObject{}, notFound(key, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, models.ExportObject{}, notFound(key, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, models.ExportObject{}, fmt.Errorf("minio read %s: %w", key, err)
	}
	return data, models.ExportObject{Key: key, ContentType: info.ContentType, Size: len(data)}, nil
}

func (s *MinioStore) RemoveExport(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio remove %s: %w", key, err)
	}
	return nil
}

func notFound(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return fmt.Errorf("minio get %s: %w", key, err)
}
