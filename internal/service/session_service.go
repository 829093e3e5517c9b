package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/hia_server/internal/model"
	"github.com/qs3c/hia_server/internal/model/dto"
	"github.com/qs3c/hia_server/internal/pkg/storage"
	"github.com/qs3c/hia_server/internal/repository"
)

var (
	ErrSessionNotFound   = errors.New("会话不存在")
	ErrSessionPermission = errors.New("无权访问该会话")
	ErrMessageNotFound   = errors.New("消息不存在")
)

type SessionService struct {
	sessionRepo *repository.SessionRepository
	messageRepo *repository.MessageRepository
	store       storage.ObjectStore
}

// NewSessionService store 为 nil 时删除会话不清理归档
func NewSessionService(sessionRepo *repository.SessionRepository, messageRepo *repository.MessageRepository, store storage.ObjectStore) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		store:       store,
	}
}

// Create 创建会话，未指定标题时使用创建时间
func (s *SessionService) Create(userID int64, req *dto.CreateSessionRequest) (*dto.SessionItem, error) {
	now := time.Now()
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = now.Format(model.SessionTitleLayout)
	}

	session := &model.ChatSession{
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return buildSessionItem(session), nil
}

// List 列出用户会话，最新的在前
func (s *SessionService) List(userID int64) ([]*dto.SessionItem, error) {
	sessions, err := s.sessionRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.SessionItem, len(sessions))
	for i, session := range sessions {
		items[i] = buildSessionItem(session)
	}
	return items, nil
}

// Get 获取会话详情
func (s *SessionService) Get(userID, sessionID int64) (*dto.SessionItem, error) {
	session, err := s.owned(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return buildSessionItem(session), nil
}

// Delete 删除会话及其消息，只有所有者可以删除。已归档的 PDF 一并清理
func (s *SessionService) Delete(ctx context.Context, userID, sessionID int64) error {
	if _, err := s.owned(userID, sessionID); err != nil {
		return err
	}

	var keys []string
	if s.store != nil {
		var err error
		if keys, err = s.messageRepo.ListExportKeys(sessionID); err != nil {
			return err
		}
	}
	if err := s.sessionRepo.Delete(sessionID); err != nil {
		return err
	}

	for _, key := range keys {
		if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
			log.Printf("Failed to delete exported object %s: %v", key, err)
		}
	}
	return nil
}

// Messages 按时间正序列出会话消息
func (s *SessionService) Messages(userID, sessionID int64) ([]*dto.MessageItem, error) {
	if _, err := s.owned(userID, sessionID); err != nil {
		return nil, err
	}

	msgs, err := s.messageRepo.ListBySession(sessionID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.MessageItem, len(msgs))
	for i, msg := range msgs {
		items[i] = buildMessageItem(msg)
	}
	return items, nil
}

// GetMessage 获取会话中的单条消息
func (s *SessionService) GetMessage(userID, sessionID, messageID int64) (*model.ChatMessage, error) {
	if _, err := s.owned(userID, sessionID); err != nil {
		return nil, err
	}

	msg, err := s.messageRepo.GetByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if msg.SessionID != sessionID {
		return nil, ErrMessageNotFound
	}
	return msg, nil
}

// AppendMessage 向会话追加消息并刷新会话时间
func (s *SessionService) AppendMessage(sessionID int64, role, content, modelUsed string) (*model.ChatMessage, error) {
	msg := &model.ChatMessage{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}
	if modelUsed != "" {
		msg.ModelUsed = &modelUsed
	}
	if err := s.messageRepo.Create(msg); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Touch(sessionID); err != nil {
		return nil, err
	}
	return msg, nil
}

// RecordExport 记录消息的归档 key
func (s *SessionService) RecordExport(messageID int64, key string) error {
	return s.messageRepo.SetExportKey(messageID, key)
}

func (s *SessionService) owned(userID, sessionID int64) (*model.ChatSession, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrSessionPermission
	}
	return session, nil
}

func buildSessionItem(session *model.ChatSession) *dto.SessionItem {
	return &dto.SessionItem{
		ID:        session.ID,
		Title:     session.Title,
		CreatedAt: session.CreatedAt.Format(time.RFC3339),
		UpdatedAt: session.UpdatedAt.Format(time.RFC3339),
	}
}

func buildMessageItem(msg *model.ChatMessage) *dto.MessageItem {
	item := &dto.MessageItem{
		ID:        msg.ID,
		SessionID: msg.SessionID,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt.Format(time.RFC3339),
	}
	if msg.ModelUsed != nil {
		item.ModelUsed = *msg.ModelUsed
	}
	return item
}
