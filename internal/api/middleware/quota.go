package middleware

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/hia_server/internal/pkg/response"
	"github.com/qs3c/hia_server/internal/service"
)

// AdmissionCheck 分析前的准入预检，只读不占用额度
func AdmissionCheck(gate service.AdmissionGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		decision, err := gate.Check(c.Request.Context(), userID)
		if err != nil {
			log.Printf("Failed to check admission for user %d: %v", userID, err)
			response.ServerError(c, "配额检查失败")
			c.Abort()
			return
		}

		if !decision.Allowed {
			response.QuotaError(c, decision.Reason)
			c.Abort()
			return
		}

		c.Next()
	}
}
