package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qs3c/hia_server/config"
	"github.com/qs3c/hia_server/internal/api"
	"github.com/qs3c/hia_server/internal/api/handler"
	"github.com/qs3c/hia_server/internal/database"
	"github.com/qs3c/hia_server/internal/llm"
	"github.com/qs3c/hia_server/internal/pkg/loginsession"
	"github.com/qs3c/hia_server/internal/pkg/oauth"
	"github.com/qs3c/hia_server/internal/pkg/pdfreport"
	"github.com/qs3c/hia_server/internal/pkg/staging"
	"github.com/qs3c/hia_server/internal/pkg/storage"
	"github.com/qs3c/hia_server/internal/repository"
	"github.com/qs3c/hia_server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化对象存储（可选）
	store, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to init object storage: %v", err)
	}
	if store == nil {
		log.Println("Object storage disabled, export and upload archiving are off")
	}

	// 初始化模型调度
	pool := llm.NewPool(cfg.LLM.Providers, logger)
	logger.Info("llm providers ready", "providers", pool.Names())
	dispatcher, err := llm.NewDispatcher(pool, llm.CandidatesFromConfig(cfg.LLM.Models),
		llm.WithLogger(logger),
		llm.WithBackoff(time.Duration(cfg.LLM.RateLimitBackoffMS)*time.Millisecond),
		llm.WithSampling(cfg.LLM.Temperature, cfg.LLM.MaxTokens),
	)
	if err != nil {
		log.Fatalf("Failed to init model dispatcher: %v", err)
	}

	if cfg.PDF.FontPath == "" {
		log.Println("Warning: pdf.font_path is empty, Chinese reports cannot be rendered to PDF")
	}

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// 初始化 Redis 存储
	loginSessions := loginsession.NewStore(rdb, cfg.Session.IdleTimeout())
	oauthStates := oauth.NewStateStore(rdb)
	uploads := staging.NewStore(rdb, cfg.Upload.Expire())

	// 初始化 Service
	gate := service.NewAdmissionGate(userRepo, cfg)
	authService := service.NewAuthService(userRepo, loginSessions, oauthStates, gate, cfg)
	userService := service.NewUserService(userRepo, gate)
	sessionService := service.NewSessionService(sessionRepo, messageRepo, store)
	uploadService := service.NewUploadService(uploads, store, cfg)
	analysisService := service.NewAnalysisService(sessionService, uploadService, gate, dispatcher, cfg)
	exportService := service.NewExportService(sessionService, pdfreport.NewRenderer(cfg.PDF.FontPath), store)

	// 初始化 Handler
	router := api.NewRouter(
		handler.NewAuthHandler(authService),
		handler.NewUserHandler(userService),
		handler.NewSessionHandler(sessionService),
		handler.NewUploadHandler(uploadService),
		handler.NewAnalysisHandler(analysisService, exportService),
		handler.NewModelsHandler(analysisService),
		loginSessions,
		gate,
		logger,
		cfg,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router.Setup(),
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Received shutdown signal")

	// 模型调用可能较慢，留足时间让请求完成
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := rdb.Close(); err != nil {
		log.Printf("Redis close error: %v", err)
	}
	log.Println("Server stopped")
}
