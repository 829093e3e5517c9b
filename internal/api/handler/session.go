package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/hia_server/internal/api/middleware"
	"github.com/qs3c/hia_server/internal/model/dto"
	"github.com/qs3c/hia_server/internal/pkg/response"
	"github.com/qs3c/hia_server/internal/service"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

// Create 创建会话
// POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateSessionRequest
	// 请求体可以为空
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ParamError(c, err.Error())
			return
		}
	}

	item, err := h.sessionService.Create(userID, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "创建成功", item)
}

// List 获取会话列表
// GET /api/v1/sessions
func (h *SessionHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	items, err := h.sessionService.List(userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessList(c, len(items), items)
}

// Get 获取会话详情
// GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	sessionID, ok := paramID(c, "id", "无效的会话ID")
	if !ok {
		return
	}

	item, err := h.sessionService.Get(userID, sessionID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, item)
}

// Delete 删除会话及其消息
// DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	sessionID, ok := paramID(c, "id", "无效的会话ID")
	if !ok {
		return
	}

	if err := h.sessionService.Delete(c.Request.Context(), userID, sessionID); err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

// Messages 获取会话消息，按时间正序
// GET /api/v1/sessions/:id/messages
func (h *SessionHandler) Messages(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	sessionID, ok := paramID(c, "id", "无效的会话ID")
	if !ok {
		return
	}

	items, err := h.sessionService.Messages(userID, sessionID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessList(c, len(items), items)
}
