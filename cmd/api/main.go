package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"line-recipe-bot/internal/api"
	"line-recipe-bot/internal/api/handlers/health"
	"line-recipe-bot/internal/api/handlers/webhook"
	"line-recipe-bot/internal/infrastructure/config"
	"line-recipe-bot/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("state_backend", cfg.State.Backend),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	app, err := buildApp(ctx, cfg)
	cancel()
	if err != nil {
		common.LogError("Failed to initialize services", zap.Error(err))
		common.Sync()
		os.Exit(1)
	}

	app.jobs.Start()

	// 快取停用時不回報統計
	var cacheStats health.CacheReporter
	if app.cache != nil {
		cacheStats = app.cache
	}

	dedup := webhook.NewDeduplicator(cfg.DedupWindow)
	defer dedup.Close()

	router, err := api.SetupRouter(cfg, api.Deps{
		Dispatcher:   app.bot,
		Repository:   app.repo,
		Queue:        app.jobs,
		Cache:        cacheStats,
		Deduplicator: dedup,
	})
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		app.close()
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	// 等待背景推播完成後再關閉外部連線
	app.close()

	common.LogInfo("Server exited")
}

// shutdownGrace 最後一個 webhook 完成後留給連線關閉的時間
const shutdownGrace = 10 * time.Second

// shutdownTimeout 須涵蓋一次完整的 webhook 處理
func shutdownTimeout(cfg *config.Config) time.Duration {
	return cfg.Server.WebhookTimeout + shutdownGrace
}
