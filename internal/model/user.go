package model

import (
	"time"
)

type User struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	Name           string     `gorm:"size:50;not null" json:"name"`
	Email          *string    `gorm:"size:100;uniqueIndex" json:"email,omitempty"`
	PasswordHash   *string    `gorm:"size:255" json:"-"`
	AvatarURL      string     `gorm:"size:500" json:"avatar_url"`
	GithubID       *string    `gorm:"column:github_id;size:50;uniqueIndex" json:"-"`
	QuotaUsedToday int        `gorm:"default:0" json:"quota_used_today"`
	QuotaResetAt   *time.Time `json:"quota_reset_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
