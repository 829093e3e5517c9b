package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/qs3c/hia_server/internal/model"
	"github.com/qs3c/hia_server/internal/model/dto"
	"github.com/qs3c/hia_server/internal/pkg/pdfreport"
	"github.com/qs3c/hia_server/internal/pkg/storage"
)

const exportURLExpire = time.Hour

var ErrStorageDisabled = errors.New("未配置对象存储，无法导出")

// ExportedPDF 渲染好的报告
type ExportedPDF struct {
	FileName string
	Data     []byte
}

type ExportService struct {
	sessionService *SessionService
	renderer       *pdfreport.Renderer
	store          storage.ObjectStore
	now            func() time.Time
}

// NewExportService store 为 nil 时只支持直接下载
func NewExportService(sessionService *SessionService, renderer *pdfreport.Renderer, store storage.ObjectStore) *ExportService {
	return &ExportService{
		sessionService: sessionService,
		renderer:       renderer,
		store:          store,
		now:            time.Now,
	}
}

// RenderPDF 把会话中的一条消息渲染为 PDF
func (s *ExportService) RenderPDF(userID, sessionID, messageID int64) (*ExportedPDF, error) {
	msg, err := s.sessionService.GetMessage(userID, sessionID, messageID)
	if err != nil {
		return nil, err
	}
	return s.render(msg)
}

func (s *ExportService) render(msg *model.ChatMessage) (*ExportedPDF, error) {
	data, err := s.renderer.Render(msg.Content)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	return &ExportedPDF{
		FileName: fmt.Sprintf("health_report_%d_%d.pdf", msg.SessionID, msg.ID),
		Data:     data,
	}, nil
}

// Export 渲染并归档到对象存储，返回带签名的下载地址
func (s *ExportService) Export(ctx context.Context, userID, sessionID, messageID int64) (*dto.ExportResponse, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	msg, err := s.sessionService.GetMessage(userID, sessionID, messageID)
	if err != nil {
		return nil, err
	}
	pdf, err := s.render(msg)
	if err != nil {
		return nil, err
	}

	now := s.now()
	key := storage.ReportKey(userID, sessionID, messageID, now)
	if err := s.store.Put(ctx, key, pdf.Data, "application/pdf"); err != nil {
		return nil, fmt.Errorf("store pdf: %w", err)
	}
	if err := s.sessionService.RecordExport(msg.ID, key); err != nil {
		return nil, fmt.Errorf("record export: %w", err)
	}
	// 每条消息只保留最新一份归档
	if msg.ExportKey != "" && msg.ExportKey != key {
		if err := s.store.Delete(ctx, msg.ExportKey); err != nil {
			log.Printf("Failed to delete previous export %s: %v", msg.ExportKey, err)
		}
	}

	url, err := s.store.SignedURL(ctx, key, exportURLExpire)
	if err != nil {
		return nil, fmt.Errorf("sign url: %w", err)
	}

	return &dto.ExportResponse{
		ObjectKey: key,
		URL:       url,
		ExpiresAt: now.Add(exportURLExpire).Format(time.RFC3339),
	}, nil
}
