package dto

// AnalyzeRequest 体检报告分析请求，report_text 与 upload_id 二选一
type AnalyzeRequest struct {
	Name       string `json:"name" binding:"required,max=50"`
	Age        *int   `json:"age,omitempty" binding:"omitempty,min=0,max=150"`
	Gender     string `json:"gender,omitempty" binding:"omitempty,max=20"`
	ReportText string `json:"report_text,omitempty"`
	UploadID   string `json:"upload_id,omitempty" binding:"omitempty,max=64"`
}

// AnalyzeResponse 分析结果
type AnalyzeResponse struct {
	Message   *MessageItem `json:"message"`
	ModelUsed string       `json:"model_used"`
}

// ModelInfo 候选模型信息，按回退优先级排列
type ModelInfo struct {
	Provider    string `json:"provider"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	Available   bool   `json:"available"`
}

// ExportResponse 导出结果
type ExportResponse struct {
	ObjectKey string `json:"object_key"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}
