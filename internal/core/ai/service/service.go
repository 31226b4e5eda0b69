package service

import (
	"context"
	"strings"
	"time"

	"line-recipe-bot/internal/core/ai/cache"
	"line-recipe-bot/internal/core/ai/provider"
	"line-recipe-bot/internal/pkg/common"
)

// ChatOptions 單次對話選項
type ChatOptions struct {
	Purpose   string // 記錄用途，例如 translate、recipe
	MaxTokens int
	Cacheable bool
}

// Service LLM 服務，包裝提供者與翻譯快取
type Service struct {
	provider     provider.Provider
	cacheManager *cache.CacheManager
}

// NewService 創建 LLM 服務，cacheManager 可為 nil
func NewService(p provider.Provider, cacheManager *cache.CacheManager) *Service {
	return &Service{
		provider:     p,
		cacheManager: cacheManager,
	}
}

// Chat 以 system 與 user 提示詞發送單輪對話
func (s *Service) Chat(ctx context.Context, system, user string, opts ChatOptions) (string, error) {
	system = strings.TrimSpace(system)
	user = strings.TrimSpace(user)

	var key string
	if opts.Cacheable && s.cacheManager != nil {
		key = cache.Key(s.provider.GetModel(), system, user)
		if val, ok := s.cacheManager.Get(key); ok {
			return val, nil
		}
	}

	messages := make([]provider.Message, 0, 2)
	if system != "" {
		messages = append(messages, provider.Message{Role: provider.RoleSystem, Content: system})
	}
	messages = append(messages, provider.Message{Role: provider.RoleUser, Content: user})

	start := time.Now()
	resp, err := s.provider.Generate(ctx, &provider.Request{
		Messages:  messages,
		MaxTokens: opts.MaxTokens,
	})
	common.LogLLMCall(opts.Purpose, time.Since(start), err)
	if err != nil {
		return "", err
	}

	content := strings.TrimSpace(resp.Content)
	if key != "" && content != "" {
		s.cacheManager.Set(key, content)
	}
	return content, nil
}

// Model 回傳模型名稱
func (s *Service) Model() string {
	return s.provider.GetModel()
}

// Close 關閉提供者與快取
func (s *Service) Close() error {
	if s.cacheManager != nil {
		s.cacheManager.Close()
	}
	return s.provider.Close()
}
