package dto

// CreateSessionRequest 创建会话请求，标题为空时使用创建时间
type CreateSessionRequest struct {
	Title string `json:"title" binding:"omitempty,max=100"`
}

// SessionItem 会话列表项
type SessionItem struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// MessageItem 会话消息
type MessageItem struct {
	ID        int64  `json:"id"`
	SessionID int64  `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	ModelUsed string `json:"model_used,omitempty"`
	CreatedAt string `json:"created_at"`
}
