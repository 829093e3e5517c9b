package handler

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/hia_server/internal/api/middleware"
	"github.com/qs3c/hia_server/internal/model/dto"
	"github.com/qs3c/hia_server/internal/pkg/response"
	"github.com/qs3c/hia_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register 用户注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailExists), errors.Is(err, service.ErrPasswordMismatch):
			response.ParamError(c, err.Error())
		default:
			log.Printf("Register failed: %v", err)
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "注册成功", resp)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.AuthError(c, err.Error())
		default:
			log.Printf("Login failed: %v", err)
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "登录成功", resp)
}

// Logout 注销当前令牌
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenID := middleware.GetTokenID(c)
	if tokenID == "" {
		response.AuthError(c, "")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), tokenID); err != nil {
		log.Printf("Logout failed: %v", err)
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "已退出登录", nil)
}

// Session 页面刷新后恢复当前用户
// GET /api/v1/auth/session
func (h *AuthHandler) Session(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	info, err := h.authService.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.SessionExpiredError(c)
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, info)
}

// GithubAuth 获取 GitHub 授权地址
// GET /api/v1/auth/github
func (h *AuthHandler) GithubAuth(c *gin.Context) {
	url, err := h.authService.GithubAuthURL(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrGithubDisabled) {
			response.Error(c, response.CodeParamError, err.Error())
			return
		}
		log.Printf("Github auth failed: %v", err)
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"auth_url": url})
}

// GithubCallback GitHub 授权回调
// GET /api/v1/auth/github/callback
func (h *AuthHandler) GithubCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		response.ParamError(c, "缺少授权码")
		return
	}

	resp, err := h.authService.GithubCallback(c.Request.Context(), code, c.Query("state"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidOAuthState),
			errors.Is(err, service.ErrGithubDisabled),
			errors.Is(err, service.ErrGithubEmailTaken):
			response.AuthError(c, err.Error())
		default:
			log.Printf("Github callback failed: %v", err)
			response.AuthError(c, "GitHub 登录失败")
		}
		return
	}

	response.SuccessWithMessage(c, "登录成功", resp)
}
