package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/hia_server/config"
	"github.com/qs3c/hia_server/internal/api/middleware"
	"github.com/qs3c/hia_server/internal/llm"
	"github.com/qs3c/hia_server/internal/model"
	"github.com/qs3c/hia_server/internal/model/dto"
	"github.com/qs3c/hia_server/internal/pkg/pdfreport"
	"github.com/qs3c/hia_server/internal/pkg/response"
	"github.com/qs3c/hia_server/internal/service"
	"github.com/qs3c/hia_server/internal/testutil"
)

const sampleReport = "### Checkup Result\n#### General\n- Blood pressure normal\n| Item | Value |\n| :--- | :--- |\n| HGB | 135 |\n"

// fakeDispatcher 返回预设结果并记录调用次数
type fakeDispatcher struct {
	mu     sync.Mutex
	result llm.Result
	calls  int
}

func (d *fakeDispatcher) Dispatch(_ context.Context, _ interface{}, _ string) llm.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.result
}

func (d *fakeDispatcher) Candidates() []llm.Candidate {
	return []llm.Candidate{{Provider: "openai", Model: "gpt-4o-mini"}, {Provider: "groq", Model: "llama-3.1-8b-instant"}}
}

func (d *fakeDispatcher) Available(c llm.Candidate) bool {
	return c.Provider == "openai"
}

func (d *fakeDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type analysisFixture struct {
	env        *testEnv
	dispatcher *fakeDispatcher
	router     *gin.Engine
	user       *model.User
}

func setupAnalysisRouter(t *testing.T, cfg *config.Config) *analysisFixture {
	t.Helper()

	env := newTestEnv(t, cfg)
	user := testutil.TestUser(t, env.db)
	dispatcher := &fakeDispatcher{result: llm.Result{
		Outcome:   llm.OutcomeSuccess,
		Content:   sampleReport,
		ModelUsed: "openai/gpt-4o-mini",
	}}

	analysisService := service.NewAnalysisService(env.sessions, newUploadService(env), env.gate, dispatcher, cfg)
	exportService := service.NewExportService(env.sessions, pdfreport.NewRenderer(""), nil)
	h := NewAnalysisHandler(analysisService, exportService)
	models := NewModelsHandler(analysisService)

	router := gin.New()
	router.GET("/models", models.List)
	authed := router.Group("")
	authed.Use(mockAuth(user.ID))
	authed.POST("/sessions/:id/analyze", middleware.AdmissionCheck(env.gate), h.Analyze)
	authed.GET("/sessions/:id/messages/:mid/pdf", h.DownloadPDF)
	authed.POST("/sessions/:id/messages/:mid/export", h.Export)

	return &analysisFixture{env: env, dispatcher: dispatcher, router: router, user: user}
}

func analyzeBody() dto.AnalyzeRequest {
	age := 35
	return dto.AnalyzeRequest{
		Name:       "张三",
		Age:        &age,
		Gender:     "男",
		ReportText: "血红蛋白 135 g/L",
	}
}

func TestAnalysisHandler_Analyze_Success(t *testing.T) {
	f := setupAnalysisRouter(t, testConfig())
	session := testutil.TestSession(t, f.env.db, f.user.ID)

	w := performRequest(f.router, "POST", fmt.Sprintf("/sessions/%d/analyze", session.ID), analyzeBody())
	resp := parseResponse(t, w)

	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)
	data := dataMap(t, resp)
	assert.Equal(t, "openai/gpt-4o-mini", data["model_used"])

	msg, ok := data["message"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, model.RoleAssistant, msg["role"])
	assert.Equal(t, sampleReport, msg["content"])

	status, err := f.env.gate.Status(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.QuotaUsedToday)
}

func TestAnalysisHandler_Analyze_InvalidRequest(t *testing.T) {
	f := setupAnalysisRouter(t, testConfig())
	session := testutil.TestSession(t, f.env.db, f.user.ID)
	path := fmt.Sprintf("/sessions/%d/analyze", session.ID)

	body := analyzeBody()
	body.Name = ""
	w := performRequest(f.router, "POST", path, body)
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)

	body = analyzeBody()
	body.ReportText = "   "
	w = performRequest(f.router, "POST", path, body)
	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeParamError, resp.Code)
	assert.Equal(t, service.ErrReportRequired.Error(), resp.Message)

	assert.Zero(t, f.dispatcher.callCount())
}

func TestAnalysisHandler_Analyze_UploadNotFound(t *testing.T) {
	f := setupAnalysisRouter(t, testConfig())
	session := testutil.TestSession(t, f.env.db, f.user.ID)

	body := analyzeBody()
	body.ReportText = ""
	body.UploadID = "missing"
	w := performRequest(f.router, "POST", fmt.Sprintf("/sessions/%d/analyze", session.ID), body)

	assert.Equal(t, response.CodeResourceNotFound, parseResponse(t, w).Code)
}

func TestAnalysisHandler_Analyze_SessionErrors(t *testing.T) {
	f := setupAnalysisRouter(t, testConfig())
	other := testutil.TestUser(t, f.env.db)
	foreign := testutil.TestSession(t, f.env.db, other.ID)

	w := performRequest(f.router, "POST", fmt.Sprintf("/sessions/%d/analyze", foreign.ID), analyzeBody())
	assert.Equal(t, response.CodePermissionDenied, parseResponse(t, w).Code)

	w = performRequest(f.router, "POST", "/sessions/99999/analyze", analyzeBody())
	assert.Equal(t, response.CodeResourceNotFound, parseResponse(t, w).Code)

	assert.Zero(t, f.dispatcher.callCount())
}

func TestAnalysisHandler_Analyze_AllModelsFailed(t *testing.T) {
	f := setupAnalysisRouter(t, testConfig())
	f.dispatcher.result = llm.Result{Outcome: llm.OutcomeFailure, Error: "All models failed. Last error: request timeout"}
	session := testutil.TestSession(t, f.env.db, f.user.ID)

	w := performRequest(f.router, "POST", fmt.Sprintf("/sessions/%d/analyze", session.ID), analyzeBody())
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeAnalysisFailed, resp.Code)
	assert.Equal(t, "All models failed. Last error: request timeout", resp.Message)

	// 失败不占用额度
	status, err := f.env.gate.Status(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Zero(t, status.QuotaUsedToday)
}

func TestAnalysisHandler_Analyze_QuotaExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.Admission.DailyLimit = 2
	f := setupAnalysisRouter(t, cfg)
	session := testutil.TestSession(t, f.env.db, f.user.ID)
	path := fmt.Sprintf("/sessions/%d/analyze", session.ID)

	for i := 0; i < 2; i++ {
		w := performRequest(f.router, "POST", path, analyzeBody())
		require.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)
	}

	w := performRequest(f.router, "POST", path, analyzeBody())
	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeQuotaExceeded, resp.Code)
	assert.Contains(t, resp.Message, "今日分析次数已用完")
	assert.Equal(t, 2, f.dispatcher.callCount())
}

func TestAnalysisHandler_Analyze_ReportTooLong(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.MaxReportChars = 10
	f := setupAnalysisRouter(t, cfg)
	session := testutil.TestSession(t, f.env.db, f.user.ID)

	body := analyzeBody()
	body.ReportText = strings.Repeat("血", 11)
	w := performRequest(f.router, "POST", fmt.Sprintf("/sessions/%d/analyze", session.ID), body)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeParamError, resp.Code)
	assert.Contains(t, resp.Message, service.ErrReportTooLong.Error())
	assert.Zero(t, f.dispatcher.callCount())

	status, err := f.env.gate.Status(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Zero(t, status.QuotaUsedToday)
}

func TestAnalysisHandler_DownloadPDF(t *testing.T) {
	f := setupAnalysisRouter(t, testConfig())
	session := testutil.TestSession(t, f.env.db, f.user.ID)
	msg := testutil.TestMessage(t, f.env.db, session.ID, model.RoleAssistant, sampleReport)

	req := httptest.NewRequest("GET", fmt.Sprintf("/sessions/%d/messages/%d/pdf", session.ID, msg.ID), nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), fmt.Sprintf("health_report_%d_%d.pdf", session.ID, msg.ID))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
}

func TestAnalysisHandler_DownloadPDF_Errors(t *testing.T) {
	f := setupAnalysisRouter(t, testConfig())
	other := testutil.TestUser(t, f.env.db)
	foreign := testutil.TestSession(t, f.env.db, other.ID)
	foreignMsg := testutil.TestMessage(t, f.env.db, foreign.ID, model.RoleAssistant, sampleReport)
	session := testutil.TestSession(t, f.env.db, f.user.ID)

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"foreign session", fmt.Sprintf("/sessions/%d/messages/%d/pdf", foreign.ID, foreignMsg.ID), response.CodePermissionDenied},
		{"message of another session", fmt.Sprintf("/sessions/%d/messages/%d/pdf", session.ID, foreignMsg.ID), response.CodeResourceNotFound},
		{"bad message id", fmt.Sprintf("/sessions/%d/messages/x/pdf", session.ID), response.CodeParamError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(f.router, "GET", tt.path, nil)
			assert.Equal(t, tt.wantCode, parseResponse(t, w).Code)
		})
	}
}

func TestAnalysisHandler_DownloadPDF_ChineseWithoutFont(t *testing.T) {
	f := setupAnalysisRouter(t, testConfig())
	session := testutil.TestSession(t, f.env.db, f.user.ID)
	msg := testutil.TestMessage(t, f.env.db, session.ID, model.RoleAssistant, "### 体检报告诊断结果\n血糖偏高")

	w := performRequest(f.router, "GET", fmt.Sprintf("/sessions/%d/messages/%d/pdf", session.ID, msg.ID), nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeServerError, resp.Code)
	assert.Equal(t, "未配置中文字体，无法生成 PDF", resp.Message)
}

func TestAnalysisHandler_Export_NoStorage(t *testing.T) {
	f := setupAnalysisRouter(t, testConfig())
	session := testutil.TestSession(t, f.env.db, f.user.ID)
	msg := testutil.TestMessage(t, f.env.db, session.ID, model.RoleAssistant, sampleReport)

	w := performRequest(f.router, "POST", fmt.Sprintf("/sessions/%d/messages/%d/export", session.ID, msg.ID), nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeServerError, resp.Code)
	assert.Equal(t, service.ErrStorageDisabled.Error(), resp.Message)
}

func TestModelsHandler_List(t *testing.T) {
	f := setupAnalysisRouter(t, testConfig())

	w := performRequest(f.router, "GET", "/models", nil)
	resp := parseResponse(t, w)

	require.Equal(t, response.CodeSuccess, resp.Code)
	models, ok := dataMap(t, resp)["models"].([]interface{})
	require.True(t, ok)
	require.Len(t, models, 2)

	first := models[0].(map[string]interface{})
	assert.Equal(t, "openai", first["provider"])
	assert.Equal(t, "gpt-4o-mini", first["name"])
	assert.Equal(t, true, first["available"])
	assert.Equal(t, false, models[1].(map[string]interface{})["available"])
}
