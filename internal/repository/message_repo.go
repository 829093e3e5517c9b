package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/hia_server/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(msg *model.ChatMessage) error {
	return r.db.Create(msg).Error
}

func (r *MessageRepository) GetByID(id int64) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	err := r.db.Where("id = ?", id).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListBySession 按创建时间正序列出会话消息
func (r *MessageRepository) ListBySession(sessionID int64) ([]*model.ChatMessage, error) {
	var msgs []*model.ChatMessage
	err := r.db.Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// SetExportKey 记录消息最近一次归档的对象 key
func (r *MessageRepository) SetExportKey(id int64, key string) error {
	return r.db.Model(&model.ChatMessage{}).Where("id = ?", id).Update("export_key", key).Error
}

// ListExportKeys 列出会话中已归档的对象 key
func (r *MessageRepository) ListExportKeys(sessionID int64) ([]string, error) {
	var keys []string
	err := r.db.Model(&model.ChatMessage{}).
		Where("session_id = ? AND export_key <> ''", sessionID).
		Pluck("export_key", &keys).Error
	return keys, err
}

func (r *MessageRepository) CountBySession(sessionID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.ChatMessage{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count, err
}
