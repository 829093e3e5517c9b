package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/qs3c/hia_server/config"
	"github.com/qs3c/hia_server/internal/llm"
	"github.com/qs3c/hia_server/internal/model"
	"github.com/qs3c/hia_server/internal/model/dto"
)

var (
	ErrAdmissionDenied = errors.New("今日分析次数已用完")
	ErrAnalysisFailed  = errors.New("分析失败")
	ErrReportRequired  = errors.New("请上传体检报告或填写报告内容")
	ErrReportTooLong   = errors.New("报告内容过长")
)

// AdmissionDeniedError 准入被拒绝，Reason 说明何时可以重试
type AdmissionDeniedError struct {
	Reason string
}

func (e *AdmissionDeniedError) Error() string {
	return e.Reason
}

func (e *AdmissionDeniedError) Is(target error) bool {
	return target == ErrAdmissionDenied
}

// AnalysisFailedError 所有候选模型都失败
type AnalysisFailedError struct {
	Reason string
}

func (e *AnalysisFailedError) Error() string {
	return e.Reason
}

func (e *AnalysisFailedError) Is(target error) bool {
	return target == ErrAnalysisFailed
}

// Dispatcher 模型调度
type Dispatcher interface {
	Dispatch(ctx context.Context, payload interface{}, instructions string) llm.Result
	Candidates() []llm.Candidate
	Available(c llm.Candidate) bool
}

// analysisPayload 发送给模型的报告数据
type analysisPayload struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Age    *int   `json:"age,omitempty"`
	Gender string `json:"gender,omitempty"`
	Report string `json:"report"`
}

type AnalysisService struct {
	sessionService *SessionService
	uploadService  *UploadService
	gate           AdmissionGate
	dispatcher     Dispatcher
	models         []config.ModelConfig
	maxReportChars int
}

func NewAnalysisService(
	sessionService *SessionService,
	uploadService *UploadService,
	gate AdmissionGate,
	dispatcher Dispatcher,
	cfg *config.Config,
) *AnalysisService {
	return &AnalysisService{
		sessionService: sessionService,
		uploadService:  uploadService,
		gate:           gate,
		dispatcher:     dispatcher,
		models:         cfg.LLM.Models,
		maxReportChars: cfg.LLM.ReportCharLimit(),
	}
}

// Analyze 分析体检报告并把结果追加到会话
func (s *AnalysisService) Analyze(ctx context.Context, userID, sessionID int64, req *dto.AnalyzeRequest) (*dto.AnalyzeResponse, error) {
	if _, err := s.sessionService.owned(userID, sessionID); err != nil {
		return nil, err
	}

	report, uploadID, err := s.resolveReport(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	if n := utf8.RuneCountInString(report); n > s.maxReportChars {
		return nil, fmt.Errorf("%w（%d 字，最多 %d 字）", ErrReportTooLong, n, s.maxReportChars)
	}

	decision, err := s.gate.Admit(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &AdmissionDeniedError{Reason: decision.Reason}
	}

	payload := analysisPayload{
		UserID: userID,
		Name:   strings.TrimSpace(req.Name),
		Age:    req.Age,
		Gender: strings.TrimSpace(req.Gender),
		Report: report,
	}

	result := s.dispatcher.Dispatch(ctx, payload, llm.ComprehensivePrompt)
	if !result.OK() {
		s.refund(ctx, userID)
		return nil, &AnalysisFailedError{Reason: result.Error}
	}

	msg, err := s.sessionService.AppendMessage(sessionID, model.RoleAssistant, result.Content, result.ModelUsed)
	if err != nil {
		return nil, err
	}
	if uploadID != "" {
		s.uploadService.Discard(ctx, uploadID)
	}

	return &dto.AnalyzeResponse{
		Message:   buildMessageItem(msg),
		ModelUsed: result.ModelUsed,
	}, nil
}

// Models 按回退优先级列出候选模型
func (s *AnalysisService) Models() []*dto.ModelInfo {
	candidates := s.dispatcher.Candidates()
	items := make([]*dto.ModelInfo, len(candidates))
	for i, c := range candidates {
		item := &dto.ModelInfo{
			Provider:    c.Provider,
			Name:        c.Model,
			DisplayName: c.Model,
			Available:   s.dispatcher.Available(c),
		}
		if m, ok := s.modelConfig(c); ok {
			if m.DisplayName != "" {
				item.DisplayName = m.DisplayName
			}
			item.Description = m.Description
		}
		items[i] = item
	}
	return items
}

// resolveReport 优先使用 report_text，否则读取暂存的上传并返回其 ID
func (s *AnalysisService) resolveReport(ctx context.Context, userID int64, req *dto.AnalyzeRequest) (string, string, error) {
	if text := strings.TrimSpace(req.ReportText); text != "" {
		return text, "", nil
	}
	if req.UploadID == "" {
		return "", "", ErrReportRequired
	}

	up, err := s.uploadService.Get(ctx, userID, req.UploadID)
	if err != nil {
		return "", "", err
	}
	return up.Text, up.ID, nil
}

// refund 请求被取消时也要退还额度
func (s *AnalysisService) refund(ctx context.Context, userID int64) {
	if err := s.gate.Refund(context.WithoutCancel(ctx), userID); err != nil {
		log.Printf("Failed to refund admission for user %d: %v", userID, err)
	}
}

func (s *AnalysisService) modelConfig(c llm.Candidate) (config.ModelConfig, bool) {
	for _, m := range s.models {
		if m.Provider == c.Provider && m.Name == c.Model {
			return m, true
		}
	}
	return config.ModelConfig{}, false
}
