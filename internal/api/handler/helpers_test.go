package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/hia_server/config"
	"github.com/qs3c/hia_server/internal/api/middleware"
	"github.com/qs3c/hia_server/internal/pkg/response"
	"github.com/qs3c/hia_server/internal/repository"
	"github.com/qs3c/hia_server/internal/service"
	"github.com/qs3c/hia_server/internal/testutil"
)

const testJWTSecret = "test-secret-key"

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:      testJWTSecret,
			ExpireHours: 24,
		},
		Session:   config.SessionConfig{IdleTimeoutMinutes: 30},
		Admission: config.AdmissionConfig{Enabled: true, DailyLimit: 6},
		Upload: config.UploadConfig{
			MaxSizeMB:         1,
			MaxPages:          5,
			AllowedExtensions: []string{".pdf"},
		},
	}
}

// testEnv 每个测试独立的 SQLite 与 miniredis
type testEnv struct {
	db       *gorm.DB
	rdb      *redis.Client
	mr       *miniredis.Miniredis
	cfg      *config.Config
	userRepo *repository.UserRepository
	gate     service.AdmissionGate
	sessions *service.SessionService
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	rdb, mr := testutil.SetupTestRedis(t)
	t.Cleanup(func() {
		testutil.CleanupTestDB(t, db)
	})

	userRepo := repository.NewUserRepository(db)
	return &testEnv{
		db:       db,
		rdb:      rdb,
		mr:       mr,
		cfg:      cfg,
		userRepo: userRepo,
		gate:     service.NewAdmissionGate(userRepo, cfg),
		sessions: service.NewSessionService(
			repository.NewSessionRepository(db),
			repository.NewMessageRepository(db),
			nil,
		),
	}
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	return performRequestWithToken(r, method, path, "", body)
}

func performRequestWithToken(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()

	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// dataMap 把响应 data 转为 map
func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return data
}

// mockAuth 模拟认证中间件
func mockAuth(userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}
