package recipe

import (
	"context"
	"fmt"
	"strings"

	"line-recipe-bot/internal/core/ai/service"
	"line-recipe-bot/internal/pkg/common"

	"go.uber.org/zap"
)

// ChatService LLM 對話介面
type ChatService interface {
	Chat(ctx context.Context, system, user string, opts service.ChatOptions) (string, error)
}

// GeneratedRecipe 尚未儲存的食譜
type GeneratedRecipe struct {
	ParsedRecipe
	Kind    common.RecipeKind
	Cuisine string
}

// ToRecipe 轉為可儲存的紀錄
func (g *GeneratedRecipe) ToRecipe(userID string) *common.Recipe {
	return &common.Recipe{
		UserID:         userID,
		DishName:       g.DishName,
		IngredientText: g.IngredientText,
		RecipeText:     g.RecipeText,
		SourceURL:      g.SourceURL,
		Kind:           g.Kind,
		Cuisine:        g.Cuisine,
	}
}

// BatchRequest 一次產生多道料理
type BatchRequest struct {
	Intent      Intent
	Ingredients string
	AvoidNames  []string // 已存在、不可重複的名稱
}

// Generator 食譜生成
type Generator struct {
	llm         ChatService
	maxTokens   int
	maxAttempts int
}

// NewGenerator 建立生成器，maxAttempts 為名稱重複時的嘗試上限
func NewGenerator(llm ChatService, maxTokens, maxAttempts int) *Generator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Generator{llm: llm, maxTokens: maxTokens, maxAttempts: maxAttempts}
}

// GenerateOne 產生單道料理
func (g *Generator) GenerateOne(ctx context.Context, req RecipeRequest) (*GeneratedRecipe, error) {
	text, err := g.llm.Chat(ctx, recipeSystemPrompt, buildRecipePrompt(req), service.ChatOptions{
		Purpose:   "recipe",
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		return nil, common.WrapError(common.ErrGenerationFailed, err)
	}
	return &GeneratedRecipe{
		ParsedRecipe: ParseRecipeText(text),
		Kind:         req.Kind,
		Cuisine:      req.Cuisine,
	}, nil
}

// GenerateUnique 產生名稱不在 avoid 之中的料理
// 超過嘗試上限仍重複時回傳 nil
func (g *Generator) GenerateUnique(ctx context.Context, req RecipeRequest) (*GeneratedRecipe, error) {
	taken := make(map[string]bool, len(req.AvoidNames))
	for _, n := range req.AvoidNames {
		taken[normalizeName(n)] = true
	}

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		r, err := g.GenerateOne(ctx, req)
		if err != nil {
			return nil, err
		}
		if !taken[normalizeName(r.DishName)] {
			return r, nil
		}
		common.LogDebug("料理名稱重複，重新生成",
			zap.String("dish", r.DishName),
			zap.Int("attempt", attempt),
		)
		req.AvoidNames = append(req.AvoidNames, r.DishName)
	}
	return nil, nil
}

// GenerateBatch 依數量產生多道名稱互不重複的料理，先菜後湯
func (g *Generator) GenerateBatch(ctx context.Context, req BatchRequest) ([]*GeneratedRecipe, error) {
	kinds := make([]common.RecipeKind, 0, req.Intent.Total())
	for i := 0; i < req.Intent.Dishes; i++ {
		kinds = append(kinds, common.KindDish)
	}
	for i := 0; i < req.Intent.Soups; i++ {
		kinds = append(kinds, common.KindSoup)
	}

	avoid := append([]string(nil), req.AvoidNames...)
	results := make([]*GeneratedRecipe, 0, len(kinds))
	for _, kind := range kinds {
		if err := ctx.Err(); err != nil {
			return nil, common.WrapError(common.ErrGenerationFailed, err)
		}

		r, err := g.GenerateUnique(ctx, RecipeRequest{
			Kind:        kind,
			Cuisine:     req.Intent.Cuisine,
			Ingredients: req.Ingredients,
			AvoidNames:  avoid,
		})
		if err != nil {
			return nil, err
		}
		if r == nil {
			common.LogWarn("無法產生不重複的料理，略過",
				zap.String("kind", string(kind)),
				zap.Int("max_attempts", g.maxAttempts),
			)
			continue
		}
		results = append(results, r)
		avoid = append(avoid, r.DishName)
	}

	if len(results) == 0 && len(kinds) > 0 {
		return nil, common.WrapError(common.ErrGenerationFailed, fmt.Errorf("no distinct recipe after %d attempts", g.maxAttempts))
	}
	return results, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}
