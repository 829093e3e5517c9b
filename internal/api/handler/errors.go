package handler

import (
	"errors"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/hia_server/internal/pkg/pdfreport"
	"github.com/qs3c/hia_server/internal/pkg/response"
	"github.com/qs3c/hia_server/internal/service"
)

// paramID 解析路径中的数字 ID
func paramID(c *gin.Context, name, msg string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, msg)
		return 0, false
	}
	return id, true
}

// writeServiceError 把服务层错误映射为响应码，未知错误只记录日志
func writeServiceError(c *gin.Context, err error) {
	var invalid *service.InvalidUploadError
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrMessageNotFound),
		errors.Is(err, service.ErrUploadNotFound),
		errors.Is(err, service.ErrUserNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrSessionPermission):
		response.PermissionError(c, err.Error())
	case errors.Is(err, service.ErrAdmissionDenied):
		response.QuotaError(c, err.Error())
	case errors.Is(err, service.ErrAnalysisFailed):
		response.AnalysisError(c, err.Error())
	case errors.Is(err, service.ErrReportRequired),
		errors.Is(err, service.ErrReportTooLong),
		errors.As(err, &invalid):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrStorageDisabled):
		response.ServerError(c, err.Error())
	case errors.Is(err, pdfreport.ErrFontRequired):
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		response.ServerError(c, "未配置中文字体，无法生成 PDF")
	default:
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		response.ServerError(c, "")
	}
}
