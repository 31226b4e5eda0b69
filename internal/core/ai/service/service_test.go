package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"line-recipe-bot/internal/core/ai/cache"
	"line-recipe-bot/internal/core/ai/provider"
	"line-recipe-bot/internal/infrastructure/config"
)

type fakeProvider struct {
	calls    int
	lastReq  *provider.Request
	response string
	err      error
}

func (f *fakeProvider) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Response{Content: f.response}, nil
}

func (f *fakeProvider) GetModel() string { return "fake" }
func (f *fakeProvider) Close() error     { return nil }

func TestChatBuildsMessages(t *testing.T) {
	p := &fakeProvider{response: " 番茄、雞蛋 "}
	s := NewService(p, nil)

	got, err := s.Chat(context.Background(), "系統", "使用者", ChatOptions{MaxTokens: 100})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got != "番茄、雞蛋" {
		t.Errorf("got %q", got)
	}
	if len(p.lastReq.Messages) != 2 || p.lastReq.Messages[0].Role != provider.RoleSystem || p.lastReq.MaxTokens != 100 {
		t.Errorf("unexpected request %+v", p.lastReq)
	}
}

func TestChatCachesOnlyWhenCacheable(t *testing.T) {
	p := &fakeProvider{response: "番茄"}
	m := cache.NewManager(config.CacheConfig{Enabled: true, MaxSize: 10, TTL: time.Hour, CleanupInterval: time.Hour})
	s := NewService(p, m)
	defer s.Close()

	for i := 0; i < 2; i++ {
		if _, err := s.Chat(context.Background(), "sys", "tomato", ChatOptions{Cacheable: true}); err != nil {
			t.Fatalf("Chat: %v", err)
		}
	}
	if p.calls != 1 {
		t.Fatalf("expected one provider call with cache, got %d", p.calls)
	}

	for i := 0; i < 2; i++ {
		s.Chat(context.Background(), "sys", "recipe", ChatOptions{})
	}
	if p.calls != 3 {
		t.Fatalf("expected uncached calls to reach provider, got %d", p.calls)
	}
}

func TestChatPropagatesError(t *testing.T) {
	p := &fakeProvider{err: errors.New("boom")}
	s := NewService(p, nil)
	if _, err := s.Chat(context.Background(), "", "x", ChatOptions{}); err == nil {
		t.Fatalf("expected error")
	}
	if len(p.lastReq.Messages) != 1 {
		t.Fatalf("system message should be omitted when empty")
	}
}
