package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/qs3c/hia_server/config"
)

type OSSStore struct {
	bucket *oss.Bucket
}

func NewOSSStore(cfg *config.OSSConfig) (*OSSStore, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &OSSStore{bucket: bucket}, nil
}

func (s *OSSStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	if err := s.bucket.PutObject(key, bytes.NewReader(data), oss.ContentType(contentType)); err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// SignedURL 生成带签名的临时下载地址
func (s *OSSStore) SignedURL(_ context.Context, key string, expire time.Duration) (string, error) {
	signed, err := s.bucket.SignURL(key, oss.HTTPGet, int64(expire/time.Second))
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL: %w", err)
	}
	return signed, nil
}

func (s *OSSStore) Delete(_ context.Context, key string) error {
	if err := s.bucket.DeleteObject(key); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
