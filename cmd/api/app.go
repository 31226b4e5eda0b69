package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"line-recipe-bot/internal/core/ai/cache"
	"line-recipe-bot/internal/core/ai/openai"
	"line-recipe-bot/internal/core/ai/queue"
	"line-recipe-bot/internal/core/ai/service"
	"line-recipe-bot/internal/core/bot"
	"line-recipe-bot/internal/core/conversation"
	"line-recipe-bot/internal/core/image"
	"line-recipe-bot/internal/core/recipe"
	"line-recipe-bot/internal/core/reply"
	"line-recipe-bot/internal/core/vision"
	"line-recipe-bot/internal/infrastructure/config"
	"line-recipe-bot/internal/infrastructure/credentials"
	"line-recipe-bot/internal/infrastructure/line"
	"line-recipe-bot/internal/infrastructure/store"
	"line-recipe-bot/internal/pkg/common"

	"go.uber.org/zap"
)

// app 組裝完成的服務與關閉順序
type app struct {
	bot     *bot.Bot
	repo    store.Repository
	jobs    *queue.Manager
	cache   *cache.CacheManager
	closers []func() error
}

// close 依建立的相反順序關閉
func (a *app) close() {
	if a.jobs != nil {
		a.jobs.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			common.LogWarn("關閉資源失敗", zap.Error(err))
		}
	}
}

func buildApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	credDir := filepath.Join(os.TempDir(), "line-recipe-bot")
	visionCreds, err := credentials.Materialize(cfg.Vision.CredentialsJSON, credDir, "vision.json")
	if err != nil {
		return nil, err
	}

	repo, err := buildRepository(ctx, cfg, credDir)
	if err != nil {
		return nil, err
	}
	a.repo = repo
	a.closers = append(a.closers, repo.Close)

	states, err := buildStateStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, states.Close)

	labeler, err := vision.NewCloudLabeler(ctx, cfg.Vision, visionCreds)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, labeler.Close)

	// 快取隨 LLM 服務一起關閉
	cacheManager := cache.NewManager(cfg.Cache)
	a.cache = cacheManager
	llm := service.NewService(openai.NewClient(cfg.LLM), cacheManager)
	a.closers = append(a.closers, llm.Close)

	lineClient, err := line.NewClient(cfg.Line, cfg.Image.MaxSizeBytes)
	if err != nil {
		return nil, err
	}

	a.jobs = queue.NewManager(cfg.Queue)

	a.bot = bot.New(bot.Deps{
		Messenger:  lineClient,
		Content:    lineClient,
		Recognizer: recipe.NewIngredientService(labeler, llm, image.NewService(cfg.Image.MaxSizeBytes, cfg.Image.MaxDimension)),
		Generator:  recipe.NewGenerator(llm, cfg.LLM.MaxTokens, cfg.Recipe.MaxAttempts),
		States:     states,
		Repository: repo,
		Composer:   reply.NewComposer(cfg.Server.PublicBaseURL, cfg.Recipe.MaxCards),
		Jobs:       a.jobs,
		MaxCards:   cfg.Recipe.MaxCards,
	})

	common.LogInfo("服務初始化完成",
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("state_backend", cfg.State.Backend),
		zap.Bool("cache_enabled", cacheManager != nil),
		zap.Int("queue_workers", cfg.Queue.Workers),
	)
	return a, nil
}

func buildRepository(ctx context.Context, cfg *config.Config, credDir string) (store.Repository, error) {
	switch cfg.Store.Backend {
	case "firestore":
		fs := cfg.Store.Firestore
		credsFile, err := credentials.Materialize(fs.CredentialsJSON, credDir, "firebase.json")
		if err != nil {
			return nil, err
		}
		projectID := fs.ProjectID
		if projectID == "" {
			projectID = credentials.ProjectID(fs.CredentialsJSON)
		}
		return store.NewFirestoreRepository(ctx, projectID, credsFile)
	case "postgres":
		return store.NewPostgresRepository(ctx, cfg.Store.Postgres.DSN())
	case "sqlite":
		return store.NewSQLiteRepository(ctx, cfg.Store.SQLite.Path)
	case "memory":
		common.LogWarn("使用記憶體儲存，重啟後資料會遺失")
		return store.NewMemoryRepository(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func buildStateStore(ctx context.Context, cfg *config.Config) (conversation.Store, error) {
	switch cfg.State.Backend {
	case "redis":
		return conversation.NewRedisStore(ctx, cfg.State)
	case "memory":
		return conversation.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
}
