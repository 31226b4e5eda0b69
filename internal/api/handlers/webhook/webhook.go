// Package webhook 接收 LINE 平台的事件回呼
package webhook

import (
	"context"
	"net/http"
	"time"

	"line-recipe-bot/internal/core/bot"
	"line-recipe-bot/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"go.uber.org/zap"
)

// Dispatcher 處理轉換後的事件
type Dispatcher interface {
	Dispatch(ctx context.Context, events []bot.Event)
}

// Handler POST /callback
type Handler struct {
	channelSecret string
	dispatcher    Dispatcher
	timeout       time.Duration
	dedup         *Deduplicator
}

// NewHandler 建立 webhook 處理器；timeout 限制單次回呼的處理時間，dedup 可為 nil
func NewHandler(channelSecret string, dispatcher Dispatcher, timeout time.Duration, dedup *Deduplicator) *Handler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Handler{
		channelSecret: channelSecret,
		dispatcher:    dispatcher,
		timeout:       timeout,
		dedup:         dedup,
	}
}

// Callback 驗證簽章後分派事件，成功一律回覆 200 "OK"
func (h *Handler) Callback(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		common.LogWarn("webhook 驗證失敗",
			zap.String("ip", c.ClientIP()),
			zap.Error(common.WrapError(common.ErrInvalidSignature, err)),
		)
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}

	received := ToEvents(cb.Events)
	events := h.dedup.Filter(received)
	common.LogInfo("收到 webhook",
		zap.String("destination", cb.Destination),
		zap.Int("events", len(received)),
		zap.Int("dispatched", len(events)),
	)
	if len(events) == 0 {
		c.String(http.StatusOK, "OK")
		return
	}

	// 用戶端斷線不應中斷已開始的回覆
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.timeout)
	defer cancel()
	h.dispatcher.Dispatch(ctx, events)

	c.String(http.StatusOK, "OK")
}

// ToEvents 將 SDK 事件轉為分派器的事件型別
func ToEvents(in []webhook.EventInterface) []bot.Event {
	out := make([]bot.Event, 0, len(in))
	for _, ev := range in {
		out = append(out, toEvent(ev))
	}
	return out
}

func toEvent(ev webhook.EventInterface) bot.Event {
	switch e := ev.(type) {
	case webhook.MessageEvent:
		env := bot.Envelope{
			EventID:    e.WebhookEventId,
			UserID:     userIDOf(e.Source),
			ReplyToken: e.ReplyToken,
		}
		switch m := e.Message.(type) {
		case webhook.TextMessageContent:
			return bot.TextMessage{Envelope: env, Text: m.Text}
		case webhook.ImageMessageContent:
			return bot.ImageMessage{Envelope: env, MessageID: m.Id}
		default:
			return bot.Unsupported{Envelope: env, Type: "message:" + messageType(e.Message)}
		}
	case webhook.PostbackEvent:
		env := bot.Envelope{
			EventID:    e.WebhookEventId,
			UserID:     userIDOf(e.Source),
			ReplyToken: e.ReplyToken,
		}
		data := ""
		if e.Postback != nil {
			data = e.Postback.Data
		}
		return bot.Postback{Envelope: env, Data: data}
	default:
		return bot.Unsupported{Type: eventType(ev)}
	}
}

func userIDOf(src webhook.SourceInterface) string {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}

func eventType(ev webhook.EventInterface) string {
	if ev == nil {
		return "unknown"
	}
	return ev.GetType()
}

func messageType(m webhook.MessageContentInterface) string {
	if m == nil {
		return "unknown"
	}
	return m.GetType()
}
