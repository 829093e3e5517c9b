package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/hia_server/config"
	"github.com/qs3c/hia_server/internal/api/handler"
	"github.com/qs3c/hia_server/internal/api/middleware"
	"github.com/qs3c/hia_server/internal/service"
)

type Router struct {
	authHandler     *handler.AuthHandler
	userHandler     *handler.UserHandler
	sessionHandler  *handler.SessionHandler
	uploadHandler   *handler.UploadHandler
	analysisHandler *handler.AnalysisHandler
	modelsHandler   *handler.ModelsHandler
	sessions        middleware.SessionStore
	gate            service.AdmissionGate
	logger          *slog.Logger
	cfg             *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	sessionHandler *handler.SessionHandler,
	uploadHandler *handler.UploadHandler,
	analysisHandler *handler.AnalysisHandler,
	modelsHandler *handler.ModelsHandler,
	sessions middleware.SessionStore,
	gate service.AdmissionGate,
	logger *slog.Logger,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:     authHandler,
		userHandler:     userHandler,
		sessionHandler:  sessionHandler,
		uploadHandler:   uploadHandler,
		analysisHandler: analysisHandler,
		modelsHandler:   modelsHandler,
		sessions:        sessions,
		gate:            gate,
		logger:          logger,
		cfg:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(r.logger))
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.GET("/github", r.authHandler.GithubAuth)
			auth.GET("/github/callback", r.authHandler.GithubCallback)
		}

		// 公开接口 - 模型
		api.GET("/models", r.modelsHandler.List)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret, r.sessions))
		{
			authenticated.POST("/auth/logout", r.authHandler.Logout)
			authenticated.GET("/auth/session", r.authHandler.Session)

			// 用户
			user := authenticated.Group("/user")
			{
				user.GET("/profile", r.userHandler.GetProfile)
				user.PUT("/profile", r.userHandler.UpdateProfile)
				user.GET("/quota", r.userHandler.GetQuota)
			}

			// 会话
			sessions := authenticated.Group("/sessions")
			{
				sessions.POST("", r.sessionHandler.Create)
				sessions.GET("", r.sessionHandler.List)
				sessions.GET("/:id", r.sessionHandler.Get)
				sessions.DELETE("/:id", r.sessionHandler.Delete)
				sessions.GET("/:id/messages", r.sessionHandler.Messages)

				// 分析与导出
				sessions.POST("/:id/analyze", middleware.AdmissionCheck(r.gate), r.analysisHandler.Analyze)
				sessions.GET("/:id/messages/:mid/pdf", r.analysisHandler.DownloadPDF)
				sessions.POST("/:id/messages/:mid/export", r.analysisHandler.Export)
			}

			// 上传
			authenticated.POST("/uploads", r.uploadHandler.Upload)
		}
	}

	return engine
}
