package service

import (
	"context"
	"strings"

	"github.com/qs3c/hia_server/internal/model/dto"
	"github.com/qs3c/hia_server/internal/repository"
)

type UserService struct {
	userRepo *repository.UserRepository
	gate     AdmissionGate
}

func NewUserService(userRepo *repository.UserRepository, gate AdmissionGate) *UserService {
	return &UserService{
		userRepo: userRepo,
		gate:     gate,
	}
}

// GetProfile 获取用户详情
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, userLookupErr(err)
	}
	return buildUserInfo(ctx, s.gate, user), nil
}

// UpdateProfile 更新用户名称
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, userLookupErr(err)
	}

	user.Name = strings.TrimSpace(req.Name)
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return buildUserInfo(ctx, s.gate, user), nil
}

// Quota 获取分析准入状态
func (s *UserService) Quota(ctx context.Context, userID int64) (*dto.QuotaInfo, error) {
	return s.gate.Status(ctx, userID)
}
