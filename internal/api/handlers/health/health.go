package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"line-recipe-bot/internal/core/ai/queue"
	"line-recipe-bot/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger 可檢查連線的相依服務
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueueReporter 回報背景隊列狀態
type QueueReporter interface {
	GetQueueStatus() *queue.Status
}

// CacheReporter 回報快取統計
type CacheReporter interface {
	GetStats() map[string]interface{}
}

// ReadyResponse 就緒檢查響應
type ReadyResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Store     string                 `json:"store"`
	Queue     *queue.Status          `json:"queue,omitempty"`
	Cache     map[string]interface{} `json:"cache,omitempty"`
	Runtime   map[string]interface{} `json:"runtime"`
}

// Handler 健康檢查
type Handler struct {
	version string
	store   Pinger
	queue   QueueReporter
	cache   CacheReporter
}

// NewHandler 建立健康檢查處理器，store、queue 與 cache 皆可為 nil
func NewHandler(version string, store Pinger, queue QueueReporter, cache CacheReporter) *Handler {
	return &Handler{version: version, store: store, queue: queue, cache: cache}
}

// HealthCheck 平台使用的健康檢查，固定回覆 "OK"
func (h *Handler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// ReadinessCheck 檢查資料庫連線與隊列狀態
func (h *Handler) ReadinessCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	resp := ReadyResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   h.version,
		Store:     "ok",
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":  m.Alloc,
				"sys":    m.Sys,
				"num_gc": m.NumGC,
			},
		},
	}
	if h.queue != nil {
		resp.Queue = h.queue.GetQueueStatus()
	}
	if h.cache != nil {
		resp.Cache = h.cache.GetStats()
	}

	status := http.StatusOK
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			common.LogWarn("資料庫連線檢查失敗", zap.Error(err))
			resp.Status = "unavailable"
			resp.Store = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, resp)
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
