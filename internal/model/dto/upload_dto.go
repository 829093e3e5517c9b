package dto

// UploadReportResponse 上传体检报告的响应
type UploadReportResponse struct {
	UploadID  string `json:"upload_id"`
	FileName  string `json:"file_name"`
	Pages     int    `json:"pages"`
	Text      string `json:"text"`
	ExpiresAt string `json:"expires_at"`
}
