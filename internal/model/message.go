package model

import (
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	SessionID int64     `gorm:"index;not null" json:"session_id"`
	Role      string    `gorm:"size:20;not null" json:"role"`
	Content   string    `gorm:"type:longtext" json:"content"`
	ModelUsed *string   `gorm:"size:150" json:"model_used,omitempty"`
	ExportKey string    `gorm:"size:255" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
