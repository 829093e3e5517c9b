package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/hia_server/config"
	"github.com/qs3c/hia_server/internal/model"
	"github.com/qs3c/hia_server/internal/model/dto"
	"github.com/qs3c/hia_server/internal/pkg/jwt"
	"github.com/qs3c/hia_server/internal/pkg/loginsession"
	"github.com/qs3c/hia_server/internal/pkg/oauth"
	"github.com/qs3c/hia_server/internal/repository"
)

var (
	ErrEmailExists        = errors.New("电子邮件已注册")
	ErrPasswordMismatch   = errors.New("两次输入的密码不一致")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrGithubDisabled     = errors.New("未启用 GitHub 登录")
	ErrInvalidOAuthState  = errors.New("登录状态无效或已过期，请重新登录")
	ErrGithubEmailTaken   = errors.New("邮箱已注册，请用密码登录")
)

type AuthService struct {
	userRepo    *repository.UserRepository
	sessions    *loginsession.Store
	states      *oauth.StateStore
	gate        AdmissionGate
	cfg         *config.Config
	githubOAuth *oauth.GithubOAuth
}

func NewAuthService(
	userRepo *repository.UserRepository,
	sessions *loginsession.Store,
	states *oauth.StateStore,
	gate AdmissionGate,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		sessions: sessions,
		states:   states,
		gate:     gate,
		cfg:      cfg,
		githubOAuth: oauth.NewGithubOAuth(
			cfg.OAuth.Github.ClientID,
			cfg.OAuth.Github.ClientSecret,
			cfg.OAuth.Github.RedirectURI,
		),
	}
}

// Register 用户注册
func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	email := normalizeEmail(req.Email)
	exists, err := s.userRepo.ExistsByEmail(email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	passwordStr := string(hashedPassword)

	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        &email,
		PasswordHash: &passwordStr,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	return &dto.RegisterResponse{UserID: user.ID}, nil
}

// Login 用户登录，每次登录签发新的令牌与会话
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// GitHub 用户没有密码
	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(ctx, user)
}

// Logout 注销当前令牌
func (s *AuthService) Logout(ctx context.Context, tokenID string) error {
	return s.sessions.Revoke(ctx, tokenID)
}

// CurrentUser 页面刷新后恢复登录用户
func (s *AuthService) CurrentUser(ctx context.Context, userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, userLookupErr(err)
	}
	return s.buildUserInfo(ctx, user), nil
}

// GithubAuthURL 生成 state 并返回 GitHub 授权地址
func (s *AuthService) GithubAuthURL(ctx context.Context) (string, error) {
	if !s.githubOAuth.Enabled() {
		return "", ErrGithubDisabled
	}
	state, err := s.states.GenerateState(ctx, s.cfg.OAuth.Github.RedirectURI)
	if err != nil {
		return "", err
	}
	return s.githubOAuth.GetAuthURL(state), nil
}

// GithubCallback 处理 GitHub OAuth 回调
func (s *AuthService) GithubCallback(ctx context.Context, code, state string) (*dto.LoginResponse, error) {
	if !s.githubOAuth.Enabled() {
		return nil, ErrGithubDisabled
	}
	if _, err := s.states.ValidateState(ctx, state); err != nil {
		if errors.Is(err, oauth.ErrEmptyState) || errors.Is(err, oauth.ErrInvalidState) {
			return nil, ErrInvalidOAuthState
		}
		return nil, err
	}

	token, err := s.githubOAuth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	githubUser, err := s.githubOAuth.GetUser(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get github user: %w", err)
	}

	user, err := s.findOrCreateGithubUser(githubUser)
	if err != nil {
		return nil, err
	}

	return s.issueToken(ctx, user)
}

func (s *AuthService) findOrCreateGithubUser(githubUser *oauth.GithubUser) (*model.User, error) {
	githubIDStr := fmt.Sprintf("%d", githubUser.ID)

	user, err := s.userRepo.GetByGithubID(githubIDStr)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 本地注册不验证邮箱，邮箱相同也不能绑定到已有账号
	email := normalizeEmail(githubUser.Email)
	if email != "" {
		exists, err := s.userRepo.ExistsByEmail(email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrGithubEmailTaken
		}
	}

	user = &model.User{
		Name:      githubUser.DisplayName(),
		GithubID:  &githubIDStr,
		AvatarURL: githubUser.AvatarURL,
	}
	if email != "" {
		user.Email = &email
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issueToken(ctx context.Context, user *model.User) (*dto.LoginResponse, error) {
	token, claims, err := jwt.GenerateTokenWithClaims(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Start(ctx, claims.ID, user.ID); err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time.Format(time.RFC3339),
		User:      s.buildUserInfo(ctx, user),
	}, nil
}

func (s *AuthService) buildUserInfo(ctx context.Context, user *model.User) *dto.UserInfo {
	return buildUserInfo(ctx, s.gate, user)
}

// buildUserInfo 组装返回给前端的用户信息，配额读取失败时省略
func buildUserInfo(ctx context.Context, gate AdmissionGate, user *model.User) *dto.UserInfo {
	info := &dto.UserInfo{
		ID:        user.ID,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
	if user.Email != nil {
		info.Email = *user.Email
	}

	if quota, err := gate.Status(ctx, user.ID); err == nil {
		info.QuotaInfo = quota
	}
	return info
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
