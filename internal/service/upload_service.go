package service

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/qs3c/hia_server/config"
	"github.com/qs3c/hia_server/internal/model/dto"
	"github.com/qs3c/hia_server/internal/pkg/pdftext"
	"github.com/qs3c/hia_server/internal/pkg/staging"
	"github.com/qs3c/hia_server/internal/pkg/storage"
)

var (
	ErrUploadNotFound = staging.ErrNotFound
	// 提取结果像是错误信息而不是报告内容
	ErrUnreadableReport = errors.New("The uploaded file could not be read as a report")
)

// InvalidUploadError 上传文件未通过校验，Error() 直接返回给用户
type InvalidUploadError struct {
	Err error
}

func (e *InvalidUploadError) Error() string {
	return e.Err.Error()
}

func (e *InvalidUploadError) Unwrap() error {
	return e.Err
}

type UploadService struct {
	staging *staging.Store
	store   storage.ObjectStore
	limits  pdftext.Limits
}

// NewUploadService store 为 nil 时不归档原件
func NewUploadService(stagingStore *staging.Store, store storage.ObjectStore, cfg *config.Config) *UploadService {
	return &UploadService{
		staging: stagingStore,
		store:   store,
		limits: pdftext.Limits{
			MaxBytes:          cfg.Upload.MaxSizeBytes(),
			MaxPages:          cfg.Upload.MaxPages,
			AllowedExtensions: cfg.Upload.AllowedExtensions,
		},
	}
}

// MaxBytes 单个文件大小上限
func (s *UploadService) MaxBytes() int64 {
	return s.limits.MaxBytes
}

// Upload 校验并提取 PDF 文本，暂存后返回 upload_id
func (s *UploadService) Upload(ctx context.Context, userID int64, fileName string, data []byte) (*dto.UploadReportResponse, error) {
	doc, err := pdftext.Extract(fileName, data, s.limits)
	if err != nil {
		return nil, &InvalidUploadError{Err: err}
	}
	if pdftext.IsFailureText(doc.Text) {
		return nil, &InvalidUploadError{Err: ErrUnreadableReport}
	}

	up := &staging.Upload{
		ID:       uuid.NewString(),
		UserID:   userID,
		FileName: filepath.Base(fileName),
		Pages:    doc.Pages,
		Text:     doc.Text,
	}

	if s.store != nil {
		key := storage.UploadKey(userID, up.ID)
		if err := s.store.Put(ctx, key, data, "application/pdf"); err != nil {
			log.Printf("Failed to archive upload %s: %v", up.ID, err)
		} else {
			up.ObjectKey = key
		}
	}

	if err := s.staging.Put(ctx, up); err != nil {
		return nil, err
	}

	return &dto.UploadReportResponse{
		UploadID:  up.ID,
		FileName:  up.FileName,
		Pages:     up.Pages,
		Text:      up.Text,
		ExpiresAt: up.ExpiresAt.Format(time.RFC3339),
	}, nil
}

// Get 读取暂存的上传
func (s *UploadService) Get(ctx context.Context, userID int64, uploadID string) (*staging.Upload, error) {
	return s.staging.Get(ctx, uploadID, userID)
}

// Discard 分析完成后清理暂存，原件归档不受影响
func (s *UploadService) Discard(ctx context.Context, uploadID string) {
	if err := s.staging.Delete(context.WithoutCancel(ctx), uploadID); err != nil {
		log.Printf("Failed to discard upload %s: %v", uploadID, err)
	}
}
