package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/hia_server/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByGithubID(githubID string) (*model.User, error) {
	var user model.User
	err := r.db.Where("github_id = ?", githubID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Update(user *model.User) error {
	return r.db.Save(user).Error
}

func (r *UserRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *UserRepository) ExistsByEmail(email string) (bool, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// ResetQuotaIfDue 窗口到期时清零计数，返回是否发生了重置。
// 条件写在 WHERE 中，并发请求只有一个会生效。
func (r *UserRepository) ResetQuotaIfDue(id int64, now, nextResetAt time.Time) (bool, error) {
	result := r.db.Model(&model.User{}).
		Where("id = ? AND (quota_reset_at IS NULL OR quota_reset_at <= ?)", id, now).
		Updates(map[string]interface{}{
			"quota_used_today": 0,
			"quota_reset_at":   nextResetAt,
		})
	return result.RowsAffected > 0, result.Error
}

// ConsumeQuota 在未达上限时占用一次配额，返回是否占用成功
func (r *UserRepository) ConsumeQuota(id int64, limit int) (bool, error) {
	result := r.db.Model(&model.User{}).
		Where("id = ? AND quota_used_today < ?", id, limit).
		Update("quota_used_today", gorm.Expr("quota_used_today + 1"))
	return result.RowsAffected == 1, result.Error
}

// RefundQuota 退还一次配额，不会低于 0
func (r *UserRepository) RefundQuota(id int64) error {
	return r.db.Model(&model.User{}).
		Where("id = ? AND quota_used_today > 0", id).
		Update("quota_used_today", gorm.Expr("quota_used_today - 1")).Error
}
