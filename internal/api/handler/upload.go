package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/hia_server/internal/api/middleware"
	"github.com/qs3c/hia_server/internal/pkg/response"
	"github.com/qs3c/hia_server/internal/service"
)

// multipartOverhead 表单边界和其他字段的余量
const multipartOverhead = 1 << 20

type UploadHandler struct {
	uploadService *service.UploadService
}

func NewUploadHandler(uploadService *service.UploadService) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
	}
}

// Upload 上传体检报告 PDF 并提取文本
// POST /api/v1/uploads
func (h *UploadHandler) Upload(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	maxBytes := h.uploadService.MaxBytes()
	tooLargeMsg := fmt.Sprintf("文件过大，最大支持 %dMB", maxBytes/1024/1024)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.ParamError(c, tooLargeMsg)
			return
		}
		response.ParamError(c, "请上传文件")
		return
	}
	defer file.Close()

	if header.Size > maxBytes {
		response.ParamError(c, tooLargeMsg)
		return
	}

	// header.Size 不可信，多读一个字节交给服务层判断
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		response.ServerError(c, "文件读取失败")
		return
	}

	resp, err := h.uploadService.Upload(c.Request.Context(), userID, header.Filename, data)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, resp)
}
