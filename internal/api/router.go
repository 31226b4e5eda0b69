package api

import (
	"fmt"
	"time"

	"line-recipe-bot/internal/api/handlers/favorites"
	"line-recipe-bot/internal/api/handlers/health"
	"line-recipe-bot/internal/api/handlers/webhook"
	"line-recipe-bot/internal/api/middleware"
	"line-recipe-bot/internal/infrastructure/config"
	"line-recipe-bot/internal/infrastructure/store"
	"line-recipe-bot/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 請求體大小限制 (1MB)，webhook 只含事件 JSON
const maxBodySize = 1 << 20

// Deps 路由需要的服務
type Deps struct {
	Dispatcher   webhook.Dispatcher
	Repository   store.Repository
	Queue        health.QueueReporter
	Cache        health.CacheReporter
	Deduplicator *webhook.Deduplicator
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Deps) (*gin.Engine, error) {
	if deps.Dispatcher == nil || deps.Repository == nil {
		return nil, fmt.Errorf("router requires a dispatcher and a repository")
	}
	if deps.Deduplicator == nil {
		deps.Deduplicator = webhook.NewDeduplicator(cfg.DedupWindow)
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())
	router.Use(middleware.BodySizeLimit(maxBodySize))

	healthHandler := health.NewHandler(cfg.App.Version, deps.Repository, deps.Queue, deps.Cache)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	// 簽章驗證後才依 event id 去重
	webhookHandler := webhook.NewHandler(cfg.Line.ChannelSecret, deps.Dispatcher, cfg.Server.WebhookTimeout, deps.Deduplicator)
	router.POST("/callback", webhookHandler.Callback)

	api := router.Group("/api")
	api.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	favorites.NewHandler(deps.Repository, cfg.Store.Timeout).Register(api)

	common.LogInfo("Router setup completed",
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("dedup_window", cfg.DedupWindow),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
