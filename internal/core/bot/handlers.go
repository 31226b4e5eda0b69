package bot

import (
	"context"
	"errors"
	"fmt"

	"line-recipe-bot/internal/core/ai/queue"
	"line-recipe-bot/internal/core/conversation"
	"line-recipe-bot/internal/core/postback"
	"line-recipe-bot/internal/core/recipe"
	"line-recipe-bot/internal/core/reply"
	"line-recipe-bot/internal/infrastructure/store"
	"line-recipe-bot/internal/pkg/common"

	"go.uber.org/zap"
)

// handleImage 辨識食材並記錄在對話狀態
func (b *Bot) handleImage(ctx context.Context, ev ImageMessage) error {
	data, err := b.Content.FetchContent(ctx, ev.MessageID)
	if err != nil {
		return common.WrapError(common.ErrRecognitionFailed, err)
	}

	rec, err := b.Recognizer.Recognize(ctx, data)
	if err != nil {
		return err
	}
	if rec.Ingredients == "" {
		return b.reply(ctx, ev.Envelope, reply.Text(reply.MsgNoIngredients))
	}

	if err := b.States.Set(ctx, ev.UserID, rec.Ingredients); err != nil {
		return common.WrapError(common.ErrStorageFailure, err)
	}

	return b.reply(ctx, ev.Envelope,
		reply.Text(reply.IngredientsFound(rec.Ingredients)),
		reply.Text(reply.MsgAskQuantity),
	)
}

// handleText 依數量需求產生食譜並以輪播回覆
func (b *Bot) handleText(ctx context.Context, ev TextMessage) error {
	st, err := b.States.Get(ctx, ev.UserID)
	if errors.Is(err, conversation.ErrNoState) {
		return b.reply(ctx, ev.Envelope, reply.Text(reply.MsgUploadFirst))
	}
	if err != nil {
		return common.WrapError(common.ErrStorageFailure, err)
	}

	intent := recipe.ParseIntent(ev.Text, b.MaxCards)
	common.LogInfo("收到食譜需求",
		zap.String("user_id", ev.UserID),
		zap.Int("dishes", intent.Dishes),
		zap.Int("soups", intent.Soups),
		zap.String("cuisine", intent.Cuisine),
	)

	generated, err := b.Generator.GenerateBatch(ctx, recipe.BatchRequest{
		Intent:      intent,
		Ingredients: st.Ingredients,
	})
	if err != nil {
		return err
	}

	recipes, err := b.persist(ctx, ev.UserID, generated)
	if err != nil {
		return err
	}
	return b.reply(ctx, ev.Envelope, b.Composer.RecipeCarousel(recipes))
}

// handlePostback 格式錯誤或未知動作僅記錄，不回覆
func (b *Bot) handlePostback(ctx context.Context, ev Postback) error {
	data, err := postback.Parse(ev.Data)
	if err != nil {
		common.LogWarn("略過無效的 postback",
			zap.String("event_id", ev.EventID),
			zap.Error(err),
		)
		return nil
	}

	switch data.Action {
	case postback.ActionNewImage:
		// 只提示上傳，食材在下一張照片辨識成功時才覆蓋
		return b.reply(ctx, ev.Envelope, reply.Text(reply.MsgUploadNewImage))
	case postback.ActionSaveFavorite:
		return b.saveFavorite(ctx, ev, data.RecipeID)
	case postback.ActionNewRecipe:
		return b.requestAnother(ctx, ev, data.RecipeID)
	}
	return nil
}

// saveFavorite 複製食譜內容為收藏
func (b *Bot) saveFavorite(ctx context.Context, ev Postback, recipeID string) error {
	r, err := b.Repository.GetRecipe(ctx, recipeID)
	if errors.Is(err, store.ErrNotFound) {
		return common.WrapError(common.ErrRecipeNotFound, err)
	}
	if err != nil {
		return common.WrapError(common.ErrStorageFailure, err)
	}

	fav := common.FavoriteFromRecipe(r)
	if ev.UserID != "" {
		fav.UserID = ev.UserID
	}
	id, err := b.Repository.CreateFavorite(ctx, fav)
	if err != nil {
		return common.WrapError(common.ErrStorageFailure, err)
	}

	common.LogInfo("已加入最愛",
		zap.String("user_id", fav.UserID),
		zap.String("recipe_id", recipeID),
		zap.String("favorite_id", id),
	)
	return b.reply(ctx, ev.Envelope, reply.Text(reply.MsgFavoriteSaved))
}

// requestAnother 先回覆確認，實際生成交給背景工作後推播
func (b *Bot) requestAnother(ctx context.Context, ev Postback, recipeID string) error {
	userID := ev.UserID
	err := b.Jobs.Enqueue(queue.Job{
		Name: "new_recipe",
		Run: func(ctx context.Context) error {
			return b.generateAnother(ctx, userID, recipeID)
		},
	})
	if err != nil {
		if errors.Is(err, common.ErrQueueFull) {
			return err
		}
		return common.WrapError(common.ErrServiceUnavailable, err)
	}
	return b.reply(ctx, ev.Envelope, reply.Text(reply.MsgGeneratingMore))
}

// generateAnother 背景工作：產生一道與原食譜不同的料理並推播
func (b *Bot) generateAnother(ctx context.Context, userID, recipeID string) (err error) {
	defer func() {
		if err != nil {
			if perr := b.push(ctx, userID, reply.Text(userMessage(err))); perr != nil {
				common.LogError("推播錯誤訊息失敗", zap.String("user_id", userID), zap.Error(perr))
			}
		}
	}()

	req := recipe.RecipeRequest{Kind: common.KindDish}

	var source *common.Recipe
	if recipeID != "" {
		source, err = b.Repository.GetRecipe(ctx, recipeID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return common.WrapError(common.ErrStorageFailure, err)
		}
		err = nil
	}
	if source != nil {
		if source.Kind != "" {
			req.Kind = source.Kind
		}
		req.Cuisine = source.Cuisine
		req.AvoidNames = []string{source.DishName}
	}

	st, serr := b.States.Get(ctx, userID)
	switch {
	case serr == nil:
		req.Ingredients = st.Ingredients
	case errors.Is(serr, conversation.ErrNoState):
		if source != nil {
			req.Ingredients = source.IngredientText
		}
	default:
		return common.WrapError(common.ErrStorageFailure, serr)
	}
	if req.Ingredients == "" {
		return b.push(ctx, userID, reply.Text(reply.MsgUploadFirst))
	}

	generated, err := b.Generator.GenerateUnique(ctx, req)
	if err != nil {
		return err
	}
	if generated == nil {
		return common.WrapError(common.ErrGenerationFailed, fmt.Errorf("no distinct recipe for %s", recipeID))
	}

	recipes, err := b.persist(ctx, userID, []*recipe.GeneratedRecipe{generated})
	if err != nil {
		return err
	}
	return b.push(ctx, userID, b.Composer.RecipeCarousel(recipes))
}
