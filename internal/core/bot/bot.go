// Package bot 分派 LINE 事件並協調辨識、生成與儲存
package bot

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"line-recipe-bot/internal/core/ai/queue"
	"line-recipe-bot/internal/core/conversation"
	"line-recipe-bot/internal/core/recipe"
	"line-recipe-bot/internal/core/reply"
	"line-recipe-bot/internal/infrastructure/store"
	"line-recipe-bot/internal/pkg/common"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"go.uber.org/zap"
)

// Messenger 回覆與推播
type Messenger interface {
	Reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error
	Push(ctx context.Context, to string, messages []messaging_api.MessageInterface) error
}

// ContentFetcher 下載使用者上傳的內容
type ContentFetcher interface {
	FetchContent(ctx context.Context, messageID string) ([]byte, error)
}

// Recognizer 圖片轉食材
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (*recipe.Recognition, error)
}

// RecipeGenerator 食譜生成
type RecipeGenerator interface {
	GenerateBatch(ctx context.Context, req recipe.BatchRequest) ([]*recipe.GeneratedRecipe, error)
	GenerateUnique(ctx context.Context, req recipe.RecipeRequest) (*recipe.GeneratedRecipe, error)
}

// JobQueue 背景工作
type JobQueue interface {
	Enqueue(job queue.Job) error
}

// Deps Bot 的相依元件
type Deps struct {
	Messenger  Messenger
	Content    ContentFetcher
	Recognizer Recognizer
	Generator  RecipeGenerator
	States     conversation.Store
	Repository store.Repository
	Composer   *reply.Composer
	Jobs       JobQueue
	MaxCards   int
}

// Bot 事件分派器
type Bot struct {
	Deps
}

// New 建立 Bot
func New(deps Deps) *Bot {
	if deps.MaxCards <= 0 || deps.MaxCards > reply.MaxCarouselColumns {
		deps.MaxCards = reply.MaxCarouselColumns
	}
	if deps.Composer == nil {
		deps.Composer = reply.NewComposer("", deps.MaxCards)
	}
	return &Bot{Deps: deps}
}

// Dispatch 依序處理同一個 webhook 內的事件
func (b *Bot) Dispatch(ctx context.Context, events []Event) {
	for _, ev := range events {
		b.handleEvent(ctx, ev)
	}
}

// handleEvent 單一事件的錯誤與 panic 都在此轉成回覆
func (b *Bot) handleEvent(ctx context.Context, ev Event) {
	env := ev.envelope()
	defer func() {
		if r := recover(); r != nil {
			common.LogError("事件處理發生 panic",
				zap.String("event_id", env.EventID),
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
			)
			b.replyError(ctx, env, common.ErrInternalError)
		}
	}()

	var err error
	switch e := ev.(type) {
	case TextMessage:
		err = b.handleText(ctx, e)
	case ImageMessage:
		err = b.handleImage(ctx, e)
	case Postback:
		err = b.handlePostback(ctx, e)
	case Unsupported:
		common.LogDebug("略過不支援的事件",
			zap.String("event_id", env.EventID),
			zap.String("type", e.Type),
		)
	default:
		common.LogWarn("未知的事件型別", zap.String("type", fmt.Sprintf("%T", ev)))
	}

	if err != nil {
		b.replyError(ctx, env, err)
	}
}

// reply 優先使用 reply token，失敗時改為推播
func (b *Bot) reply(ctx context.Context, env Envelope, messages ...messaging_api.MessageInterface) error {
	var replyErr error
	if env.ReplyToken != "" {
		if replyErr = b.Messenger.Reply(ctx, env.ReplyToken, messages); replyErr == nil {
			return nil
		}
		common.LogWarn("回覆失敗，改用推播",
			zap.String("event_id", env.EventID),
			zap.Error(replyErr),
		)
	}
	if env.UserID == "" {
		if replyErr == nil {
			replyErr = fmt.Errorf("no reply token or user id")
		}
		return replyErr
	}
	return b.Messenger.Push(ctx, env.UserID, messages)
}

func (b *Bot) push(ctx context.Context, userID string, messages ...messaging_api.MessageInterface) error {
	if userID == "" {
		return fmt.Errorf("push requires a user id")
	}
	return b.Messenger.Push(ctx, userID, messages)
}

// userMessage 錯誤對應的使用者訊息
func userMessage(err error) string {
	if ce, ok := common.AsCustomError(err); ok && ce.Message != "" {
		return ce.Message
	}
	return reply.MsgGenericApology
}

func logHandlerError(env Envelope, err error) {
	fields := []zap.Field{
		zap.String("event_id", env.EventID),
		zap.String("user_id", env.UserID),
		zap.Error(err),
	}
	if ce, ok := common.AsCustomError(err); ok && ce.Status < http.StatusInternalServerError {
		common.LogWarn("事件處理未完成", fields...)
		return
	}
	common.LogError("事件處理失敗", fields...)
}

func (b *Bot) replyError(ctx context.Context, env Envelope, err error) {
	logHandlerError(env, err)
	if rerr := b.reply(ctx, env, reply.Text(userMessage(err))); rerr != nil {
		common.LogError("錯誤訊息回覆失敗",
			zap.String("event_id", env.EventID),
			zap.Error(rerr),
		)
	}
}

// persist 儲存生成的食譜並回傳帶有 ID 的紀錄
func (b *Bot) persist(ctx context.Context, userID string, generated []*recipe.GeneratedRecipe) ([]*common.Recipe, error) {
	recipes := make([]*common.Recipe, 0, len(generated))
	for _, g := range generated {
		r := g.ToRecipe(userID)
		id, err := b.Repository.CreateRecipe(ctx, r)
		if err != nil {
			return nil, common.WrapError(common.ErrStorageFailure, err)
		}
		r.ID = id
		recipes = append(recipes, r)
	}
	return recipes, nil
}
