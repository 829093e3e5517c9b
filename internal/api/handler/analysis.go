package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/hia_server/internal/api/middleware"
	"github.com/qs3c/hia_server/internal/model/dto"
	"github.com/qs3c/hia_server/internal/pkg/response"
	"github.com/qs3c/hia_server/internal/service"
)

type AnalysisHandler struct {
	analysisService *service.AnalysisService
	exportService   *service.ExportService
}

func NewAnalysisHandler(analysisService *service.AnalysisService, exportService *service.ExportService) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		exportService:   exportService,
	}
}

// Analyze 分析体检报告
// POST /api/v1/sessions/:id/analyze
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	sessionID, ok := paramID(c, "id", "无效的会话ID")
	if !ok {
		return
	}

	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.analysisService.Analyze(c.Request.Context(), userID, sessionID, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, resp)
}

// DownloadPDF 下载消息对应的 PDF 报告
// GET /api/v1/sessions/:id/messages/:mid/pdf
func (h *AnalysisHandler) DownloadPDF(c *gin.Context) {
	userID, sessionID, messageID, ok := h.messageParams(c)
	if !ok {
		return
	}

	pdf, err := h.exportService.RenderPDF(userID, sessionID, messageID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, pdf.FileName))
	c.Data(http.StatusOK, "application/pdf", pdf.Data)
}

// Export 导出 PDF 到对象存储并返回临时链接
// POST /api/v1/sessions/:id/messages/:mid/export
func (h *AnalysisHandler) Export(c *gin.Context) {
	userID, sessionID, messageID, ok := h.messageParams(c)
	if !ok {
		return
	}

	resp, err := h.exportService.Export(c.Request.Context(), userID, sessionID, messageID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, resp)
}

func (h *AnalysisHandler) messageParams(c *gin.Context) (userID, sessionID, messageID int64, ok bool) {
	userID, ok = middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	if sessionID, ok = paramID(c, "id", "无效的会话ID"); !ok {
		return
	}
	messageID, ok = paramID(c, "mid", "无效的消息ID")
	return
}
