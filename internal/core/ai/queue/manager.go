package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"line-recipe-bot/internal/infrastructure/config"
	"line-recipe-bot/internal/pkg/common"

	"go.uber.org/zap"
)

// Job 背景工作
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int   `json:"queue_length"`
	ProcessedCount int64 `json:"processed_count"`
	FailedCount    int64 `json:"failed_count"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
}

// Manager 以固定數量 worker 執行背景工作
type Manager struct {
	config    config.QueueConfig
	queue     chan Job
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	processed int64
	failed    int64
}

// NewManager 創建新的隊列管理器
func NewManager(cfg config.QueueConfig) *Manager {
	return &Manager{
		config: cfg,
		queue:  make(chan Job, cfg.MaxSize),
	}
}

// Start 啟動 worker
func (m *Manager) Start() {
	for i := 0; i < m.config.Workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
	common.LogInfo("背景隊列已啟動",
		zap.Int("workers", m.config.Workers),
		zap.Int("max_queue_size", m.config.MaxSize),
	)
}

// Enqueue 將工作加入隊列，滿載時回傳 ErrQueueFull
func (m *Manager) Enqueue(job Job) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("queue manager is closed")
	}

	select {
	case m.queue <- job:
		common.LogDebug("工作已加入隊列",
			zap.String("job", job.Name),
			zap.Int("queue_length", len(m.queue)),
		)
		return nil
	default:
		return common.ErrQueueFull
	}
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for job := range m.queue {
		m.run(id, job)
	}
}

func (m *Manager) run(id int, job Job) {
	timeout := m.config.JobTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&m.failed, 1)
			common.LogError("背景工作發生 panic",
				zap.String("job", job.Name),
				zap.Any("panic", r),
			)
		}
	}()

	start := time.Now()
	err := job.Run(ctx)
	atomic.AddInt64(&m.processed, 1)
	if err != nil {
		atomic.AddInt64(&m.failed, 1)
		common.LogError("背景工作失敗",
			zap.Int("worker", id),
			zap.String("job", job.Name),
			zap.Error(err),
			zap.Duration("耗時", time.Since(start)),
		)
		return
	}
	common.LogInfo("背景工作完成",
		zap.Int("worker", id),
		zap.String("job", job.Name),
		zap.Duration("耗時", time.Since(start)),
	)
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		ProcessedCount: atomic.LoadInt64(&m.processed),
		FailedCount:    atomic.LoadInt64(&m.failed),
		MaxQueueSize:   m.config.MaxSize,
		Workers:        m.config.Workers,
	}
}

// Close 停止接受新工作，並等待已排入的工作完成
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	m.wg.Wait()
}
