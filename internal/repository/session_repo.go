package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/hia_server/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *model.ChatSession) error {
	return r.db.Create(session).Error
}

func (r *SessionRepository) GetByID(id int64) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.Where("id = ?", id).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ListByUser 按创建时间倒序列出用户的会话
func (r *SessionRepository) ListByUser(userID int64) ([]*model.ChatSession, error) {
	var sessions []*model.ChatSession
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&sessions).Error
	return sessions, err
}

// Delete 先删除会话下的消息，再删除会话本身
func (r *SessionRepository) Delete(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.ChatSession{}, id).Error
	})
}

// Touch 刷新会话的更新时间
func (r *SessionRepository) Touch(id int64) error {
	return r.db.Model(&model.ChatSession{}).Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}
