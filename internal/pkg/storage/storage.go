// Package storage 归档上传与导出的 PDF，支持阿里云 OSS 与 MinIO。
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/qs3c/hia_server/config"
)

// ObjectStore 对象存储
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	SignedURL(ctx context.Context, key string, expire time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// New 按配置创建对象存储，backend 为空时返回 nil
func New(ctx context.Context, cfg *config.StorageConfig) (ObjectStore, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "oss":
		return NewOSSStore(&cfg.OSS)
	case "minio":
		return NewMinioStore(ctx, &cfg.Minio)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// ReportKey 导出报告的对象路径
func ReportKey(userID, sessionID, messageID int64, at time.Time) string {
	return fmt.Sprintf("reports/%d/%d/%d_%d.pdf", userID, sessionID, messageID, at.Unix())
}

// UploadKey 上传原件的对象路径
func UploadKey(userID int64, uploadID string) string {
	return fmt.Sprintf("uploads/%d/%s.pdf", userID, uploadID)
}
