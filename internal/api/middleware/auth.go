package middleware

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/hia_server/internal/pkg/jwt"
	"github.com/qs3c/hia_server/internal/pkg/loginsession"
	"github.com/qs3c/hia_server/internal/pkg/response"
)

const (
	UserIDKey  = "userID"
	TokenIDKey = "tokenID"
)

// SessionStore 登录会话活跃检查
type SessionStore interface {
	Touch(ctx context.Context, tokenID string, userID int64) error
}

// Auth JWT 认证中间件，sessions 不为空时同时校验空闲超时与注销
func Auth(jwtSecret string, sessions SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "请提供认证信息")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			response.AuthError(c, "认证格式错误")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.AuthError(c, "认证失败或已过期")
			c.Abort()
			return
		}

		if sessions != nil {
			if err := sessions.Touch(c.Request.Context(), claims.ID, claims.UserID); err != nil {
				if errors.Is(err, loginsession.ErrExpired) {
					response.SessionExpiredError(c)
				} else {
					log.Printf("Failed to check login session: %v", err)
					response.ServerError(c, "")
				}
				c.Abort()
				return
			}
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(TokenIDKey, claims.ID)
		c.Next()
	}
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}

// GetTokenID 从上下文获取令牌 ID
func GetTokenID(c *gin.Context) string {
	return c.GetString(TokenIDKey)
}
