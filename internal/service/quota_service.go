package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/hia_server/config"
	"github.com/qs3c/hia_server/internal/model/dto"
	"github.com/qs3c/hia_server/internal/repository"
)

const (
	defaultDailyLimit = 6
	quotaWindow       = 24 * time.Hour
)

// Decision 准入结果，拒绝时 Reason 说明原因
type Decision struct {
	Allowed bool
	Reason  string
}

// AdmissionGate 分析准入策略。Check 只读，Admit 占用一次额度，Refund 退还。
type AdmissionGate interface {
	Check(ctx context.Context, userID int64) (Decision, error)
	Admit(ctx context.Context, userID int64) (Decision, error)
	Refund(ctx context.Context, userID int64) error
	Status(ctx context.Context, userID int64) (*dto.QuotaInfo, error)
}

// NewAdmissionGate 按 admission.enabled 选择策略
func NewAdmissionGate(userRepo *repository.UserRepository, cfg *config.Config) AdmissionGate {
	if !cfg.Admission.Enabled {
		return UnlimitedGate{}
	}
	return NewQuotaService(userRepo, cfg)
}

// UnlimitedGate 不限次数
type UnlimitedGate struct{}

func (UnlimitedGate) Check(context.Context, int64) (Decision, error) {
	return Decision{Allowed: true}, nil
}

func (UnlimitedGate) Admit(context.Context, int64) (Decision, error) {
	return Decision{Allowed: true}, nil
}

func (UnlimitedGate) Refund(context.Context, int64) error {
	return nil
}

func (UnlimitedGate) Status(context.Context, int64) (*dto.QuotaInfo, error) {
	return &dto.QuotaInfo{Enabled: false}, nil
}

// QuotaService 每日次数限制，窗口在上次重置 24 小时后刷新
type QuotaService struct {
	userRepo *repository.UserRepository
	limit    int
	now      func() time.Time
}

func NewQuotaService(userRepo *repository.UserRepository, cfg *config.Config) *QuotaService {
	limit := cfg.Admission.DailyLimit
	if limit <= 0 {
		limit = defaultDailyLimit
	}
	return &QuotaService{
		userRepo: userRepo,
		limit:    limit,
		now:      time.Now,
	}
}

// Check 判断当前是否还有额度，不占用
func (s *QuotaService) Check(_ context.Context, userID int64) (Decision, error) {
	now := s.now()
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return Decision{}, userLookupErr(err)
	}

	if user.QuotaResetAt == nil || !user.QuotaResetAt.After(now) || user.QuotaUsedToday < s.limit {
		return Decision{Allowed: true}, nil
	}
	return s.denied(*user.QuotaResetAt, now), nil
}

// Admit 原子地占用一次额度
func (s *QuotaService) Admit(_ context.Context, userID int64) (Decision, error) {
	now := s.now()
	if _, err := s.userRepo.ResetQuotaIfDue(userID, now, now.Add(quotaWindow)); err != nil {
		return Decision{}, err
	}

	ok, err := s.userRepo.ConsumeQuota(userID, s.limit)
	if err != nil {
		return Decision{}, err
	}
	if ok {
		return Decision{Allowed: true}, nil
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return Decision{}, userLookupErr(err)
	}
	resetAt := now.Add(quotaWindow)
	if user.QuotaResetAt != nil {
		resetAt = *user.QuotaResetAt
	}
	return s.denied(resetAt, now), nil
}

// Refund 退还额度
func (s *QuotaService) Refund(_ context.Context, userID int64) error {
	return s.userRepo.RefundQuota(userID)
}

// Status 获取用户配额信息
func (s *QuotaService) Status(_ context.Context, userID int64) (*dto.QuotaInfo, error) {
	now := s.now()
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, userLookupErr(err)
	}

	used := user.QuotaUsedToday
	if user.QuotaResetAt == nil || !user.QuotaResetAt.After(now) {
		used = 0
	}
	remaining := s.limit - used
	if remaining < 0 {
		remaining = 0
	}

	info := &dto.QuotaInfo{
		Enabled:        true,
		DailyQuota:     s.limit,
		QuotaUsedToday: used,
		QuotaRemaining: remaining,
	}
	if user.QuotaResetAt != nil && user.QuotaResetAt.After(now) {
		info.QuotaResetAt = user.QuotaResetAt.Format(time.RFC3339)
	}
	return info, nil
}

func (s *QuotaService) denied(resetAt, now time.Time) Decision {
	return Decision{Allowed: false, Reason: quotaReason(resetAt.Sub(now))}
}

func quotaReason(wait time.Duration) string {
	minutes := int(math.Ceil(wait.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("今日分析次数已用完，请在 %d 小时 %d 分钟后重试", minutes/60, minutes%60)
}

func userLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}
