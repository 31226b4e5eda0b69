package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"line-recipe-bot/internal/api/handlers/webhook"
	"line-recipe-bot/internal/core/bot"
	"line-recipe-bot/internal/infrastructure/config"
	"line-recipe-bot/internal/infrastructure/store"

	"github.com/gin-gonic/gin"
)

type countingDispatcher struct{ calls int }

func (d *countingDispatcher) Dispatch(ctx context.Context, events []bot.Event) { d.calls++ }

func testConfig() *config.Config {
	cfg := &config.Config{DedupWindow: time.Minute}
	cfg.App.Version = "test"
	cfg.Line.ChannelSecret = "secret"
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 100, Window: time.Minute}
	return cfg
}

func newTestRouter(t *testing.T, d *countingDispatcher) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dedup := webhook.NewDeduplicator(time.Minute)
	t.Cleanup(dedup.Close)

	r, err := SetupRouter(testConfig(), Deps{
		Dispatcher:   d,
		Repository:   store.NewMemoryRepository(),
		Deduplicator: dedup,
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRouterHealth(t *testing.T) {
	r := newTestRouter(t, &countingDispatcher{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("request id header missing")
	}
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postCallback(r *gin.Engine, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	req.Header.Set("X-Line-Signature", signature)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func textEvent(redelivery bool) string {
	return fmt.Sprintf(`{"destination":"Ubot","events":[{"type":"message","mode":"active","timestamp":1,`+
		`"webhookEventId":"ev-1","deliveryContext":{"isRedelivery":%t},"replyToken":"rt",`+
		`"source":{"type":"user","userId":"U1"},"message":{"type":"text","id":"m1","quoteToken":"q","text":"兩道"}}]}`, redelivery)
}

func TestRouterCallbackSkipsRedeliveredEvents(t *testing.T) {
	d := &countingDispatcher{}
	r := newTestRouter(t, d)

	first := textEvent(false)
	if w := postCallback(r, first, sign(first)); w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("first delivery: got %d %q", w.Code, w.Body.String())
	}
	// 重送時 isRedelivery 改變，body 與簽章都不同，event id 相同
	again := textEvent(true)
	if w := postCallback(r, again, sign(again)); w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("redelivery: got %d %q", w.Code, w.Body.String())
	}
	if d.calls != 1 {
		t.Fatalf("dispatcher called %d times, want 1", d.calls)
	}
}

func TestRouterCallbackRepeatedBadSignature(t *testing.T) {
	d := &countingDispatcher{}
	r := newTestRouter(t, d)

	for i := 0; i < 2; i++ {
		w := postCallback(r, `{"events":[]}`, "bogus")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("attempt %d: got %d %q, want 400", i, w.Code, w.Body.String())
		}
	}
	if d.calls != 0 {
		t.Fatalf("dispatcher should not be called, calls=%d", d.calls)
	}
}

func TestRouterFavoritesRoutes(t *testing.T) {
	r := newTestRouter(t, &countingDispatcher{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/favorites?user_id=U1", nil))
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/favorites/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("got %d", w.Code)
	}
}

func TestSetupRouterRequiresDeps(t *testing.T) {
	if _, err := SetupRouter(testConfig(), Deps{}); err == nil {
		t.Fatal("expected error without dependencies")
	}
}
