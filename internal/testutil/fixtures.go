package testutil

import (
	"fmt"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/hia_server/internal/model"
)

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	email := fmt.Sprintf("test_%d@example.com", time.Now().UnixNano())
	passwordHash := "$2a$10$abcdefghijklmnopqrstuvwxyz123456" // bcrypt hash placeholder
	user := &model.User{
		Name:           fmt.Sprintf("testuser_%d", time.Now().UnixNano()%10000),
		Email:          &email,
		PasswordHash:   &passwordHash,
		QuotaUsedToday: 0,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithName 设置姓名
func WithName(name string) func(*model.User) {
	return func(u *model.User) {
		u.Name = name
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = &email
	}
}

// WithPassword 设置明文密码（使用最低 cost 加密）
func WithPassword(password string) func(*model.User) {
	return func(u *model.User) {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			panic(err)
		}
		s := string(hash)
		u.PasswordHash = &s
	}
}

// WithQuotaUsed 设置已使用配额
func WithQuotaUsed(used int) func(*model.User) {
	return func(u *model.User) {
		u.QuotaUsedToday = used
	}
}

// WithQuotaResetAt 设置配额重置时间
func WithQuotaResetAt(at time.Time) func(*model.User) {
	return func(u *model.User) {
		u.QuotaResetAt = &at
	}
}

// TestSession 创建测试会话
func TestSession(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.ChatSession)) *model.ChatSession {
	t.Helper()

	session := &model.ChatSession{
		UserID: userID,
		Title:  time.Now().Format(model.SessionTitleLayout),
	}

	for _, opt := range opts {
		opt(session)
	}

	if err := db.Create(session).Error; err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}

	return session
}

// WithTitle 设置会话标题
func WithTitle(title string) func(*model.ChatSession) {
	return func(s *model.ChatSession) {
		s.Title = title
	}
}

// WithSessionCreatedAt 设置会话创建时间
func WithSessionCreatedAt(at time.Time) func(*model.ChatSession) {
	return func(s *model.ChatSession) {
		s.CreatedAt = at
	}
}

// TestMessage 创建测试消息
func TestMessage(t *testing.T, db *gorm.DB, sessionID int64, role, content string) *model.ChatMessage {
	t.Helper()

	msg := &model.ChatMessage{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}

	if err := db.Create(msg).Error; err != nil {
		t.Fatalf("Failed to create test message: %v", err)
	}

	return msg
}
