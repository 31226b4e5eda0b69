package line

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"line-recipe-bot/internal/pkg/common"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

type recorded struct {
	path string
	auth string
	body map[string]interface{}
}

func newTestServer(t *testing.T) (*httptest.Server, *[]recorded, *sync.Mutex) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v2/bot/message/") && strings.HasSuffix(r.URL.Path, "/content"):
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v2/bot/message/"), "/content")
			if id == "big" {
				w.Write([]byte(strings.Repeat("x", 64)))
				return
			}
			w.Write([]byte("jpeg-bytes"))
			return
		}

		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)
		mu.Lock()
		reqs = append(reqs, recorded{path: r.URL.Path, auth: r.Header.Get("Authorization"), body: body})
		mu.Unlock()

		if body["replyToken"] == "expired" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"Invalid reply token"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sentMessages":[]}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs, &mu
}

func texts(n int) []messaging_api.MessageInterface {
	out := make([]messaging_api.MessageInterface, n)
	for i := range out {
		out[i] = &messaging_api.TextMessage{Text: "hi"}
	}
	return out
}

func TestReplyAndPush(t *testing.T) {
	srv, reqs, mu := newTestServer(t)
	c, err := newClient("token", srv.URL, srv.URL, 32)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Reply(context.Background(), "rt", texts(7)); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if err := c.Push(context.Background(), "U1", texts(1)); err != nil {
		t.Fatalf("Push: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(*reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(*reqs))
	}
	reply := (*reqs)[0]
	if reply.path != "/v2/bot/message/reply" || reply.auth != "Bearer token" {
		t.Fatalf("unexpected reply request %+v", reply)
	}
	if msgs := reply.body["messages"].([]interface{}); len(msgs) != maxMessagesPerRequest {
		t.Fatalf("reply should be truncated to %d messages, got %d", maxMessagesPerRequest, len(msgs))
	}
	push := (*reqs)[1]
	if push.path != "/v2/bot/message/push" || push.body["to"] != "U1" {
		t.Fatalf("unexpected push request %+v", push)
	}
}

func TestReplyError(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c, _ := newClient("token", srv.URL, srv.URL, 32)

	if err := c.Reply(context.Background(), "expired", texts(1)); err == nil {
		t.Fatal("expected error for rejected reply token")
	}
}

func TestFetchContent(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c, _ := newClient("token", srv.URL, srv.URL, 32)

	data, err := c.FetchContent(context.Background(), "m1")
	if err != nil || string(data) != "jpeg-bytes" {
		t.Fatalf("got %q %v", data, err)
	}

	_, err = c.FetchContent(context.Background(), "big")
	if !errors.Is(err, common.ErrInvalidImageSize) {
		t.Fatalf("expected ErrInvalidImageSize, got %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	c, _ := newClient("token", "http://127.0.0.1:0", "http://127.0.0.1:0", 32)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Push(ctx, "U1", texts(1)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCallsFollowContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c, err := newClient("token", srv.URL, srv.URL, 32)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		call func(ctx context.Context) error
	}{
		{"reply", func(ctx context.Context) error { return c.Reply(ctx, "rt", texts(1)) }},
		{"push", func(ctx context.Context) error { return c.Push(ctx, "U1", texts(1)) }},
		{"content", func(ctx context.Context) error { _, err := c.FetchContent(ctx, "m1"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			start := time.Now()
			err := tt.call(ctx)
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("expected context.DeadlineExceeded, got %v", err)
			}
			if elapsed := time.Since(start); elapsed > 5*time.Second {
				t.Fatalf("call ignored the deadline, took %s", elapsed)
			}
		})
	}
}
