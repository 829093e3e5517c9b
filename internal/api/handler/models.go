package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/hia_server/internal/pkg/response"
	"github.com/qs3c/hia_server/internal/service"
)

type ModelsHandler struct {
	analysisService *service.AnalysisService
}

func NewModelsHandler(analysisService *service.AnalysisService) *ModelsHandler {
	return &ModelsHandler{analysisService: analysisService}
}

// List 获取模型列表，顺序即回退优先级
// GET /api/v1/models
func (h *ModelsHandler) List(c *gin.Context) {
	response.Success(c, gin.H{
		"models": h.analysisService.Models(),
	})
}
