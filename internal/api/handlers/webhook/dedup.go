package webhook

import (
	"sync"
	"time"

	"line-recipe-bot/internal/core/bot"
	"line-recipe-bot/internal/pkg/common"

	"go.uber.org/zap"
)

// Deduplicator 以 webhookEventId 記錄處理過的事件，平台重送時略過
type Deduplicator struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	stop   chan struct{}
	once   sync.Once
}

// NewDeduplicator 建立去重器並啟動清理 goroutine
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = 10 * time.Minute
	}
	d := &Deduplicator{
		window: window,
		seen:   make(map[string]time.Time),
		stop:   make(chan struct{}),
	}
	go d.cleanup(window)
	return d
}

func (d *Deduplicator) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.expire(time.Now())
		case <-d.stop:
			return
		}
	}
}

func (d *Deduplicator) expire(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, t := range d.seen {
		if now.Sub(t) > d.window {
			delete(d.seen, id)
		}
	}
}

// markSeen 回報事件是否在時間窗內處理過，並記錄本次時間
func (d *Deduplicator) markSeen(eventID string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.seen[eventID]; ok && now.Sub(last) <= d.window {
		return true
	}
	d.seen[eventID] = now
	return false
}

// Filter 移除已處理過的事件；沒有 event id 的事件一律保留
func (d *Deduplicator) Filter(events []bot.Event) []bot.Event {
	if d == nil {
		return events
	}
	now := time.Now()
	out := events[:0:0]
	for _, ev := range events {
		id := bot.EventID(ev)
		if id != "" && d.markSeen(id, now) {
			common.LogInfo("略過重送的事件", zap.String("event_id", id))
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Close 停止清理 goroutine
func (d *Deduplicator) Close() {
	d.once.Do(func() { close(d.stop) })
}
