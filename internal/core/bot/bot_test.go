package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"line-recipe-bot/internal/core/ai/queue"
	"line-recipe-bot/internal/core/ai/service"
	"line-recipe-bot/internal/core/conversation"
	"line-recipe-bot/internal/core/postback"
	"line-recipe-bot/internal/core/recipe"
	"line-recipe-bot/internal/core/reply"
	"line-recipe-bot/internal/infrastructure/config"
	"line-recipe-bot/internal/infrastructure/store"
	"line-recipe-bot/internal/pkg/common"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

type sent struct {
	to       string
	messages []messaging_api.MessageInterface
}

type fakeMessenger struct {
	mu       sync.Mutex
	replies  []sent
	pushes   []sent
	replyErr error
}

func (f *fakeMessenger) Reply(ctx context.Context, token string, messages []messaging_api.MessageInterface) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return f.replyErr
	}
	f.replies = append(f.replies, sent{to: token, messages: messages})
	return nil
}

func (f *fakeMessenger) Push(ctx context.Context, to string, messages []messaging_api.MessageInterface) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, sent{to: to, messages: messages})
	return nil
}

func (f *fakeMessenger) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replies) + len(f.pushes)
}

type fakeContent struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeContent) FetchContent(ctx context.Context, id string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

type fakeRecognizer struct {
	result *recipe.Recognition
	err    error
	calls  int
}

func (f *fakeRecognizer) Recognize(ctx context.Context, image []byte) (*recipe.Recognition, error) {
	f.calls++
	return f.result, f.err
}

// namedLLM 每次回覆一道新名稱的料理
type namedLLM struct {
	mu    sync.Mutex
	names []string
	calls int
	err   error
}

func (l *namedLLM) Chat(ctx context.Context, system, user string, opts service.ChatOptions) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return "", l.err
	}
	name := fmt.Sprintf("料理%d", l.calls)
	if len(l.names) > 0 {
		name = l.names[0]
		l.names = l.names[1:]
	}
	return fmt.Sprintf("料理名稱: %s\n食材: 番茄、雞蛋\n食譜內容:\n1. 下鍋", name), nil
}

type harness struct {
	bot        *Bot
	messenger  *fakeMessenger
	content    *fakeContent
	recognizer *fakeRecognizer
	llm        *namedLLM
	states     *conversation.MemoryStore
	repo       *store.MemoryRepository
	jobs       *queue.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		messenger:  &fakeMessenger{},
		content:    &fakeContent{data: []byte("jpeg")},
		recognizer: &fakeRecognizer{result: &recipe.Recognition{Labels: []string{"Tomato"}, Ingredients: "番茄、雞蛋"}},
		llm:        &namedLLM{},
		states:     conversation.NewMemoryStore(),
		repo:       store.NewMemoryRepository(),
		jobs:       queue.NewManager(config.QueueConfig{Workers: 1, MaxSize: 5, JobTimeout: time.Second}),
	}
	h.jobs.Start()
	t.Cleanup(h.jobs.Close)

	h.bot = New(Deps{
		Messenger:  h.messenger,
		Content:    h.content,
		Recognizer: h.recognizer,
		Generator:  recipe.NewGenerator(h.llm, 800, 5),
		States:     h.states,
		Repository: h.repo,
		Composer:   reply.NewComposer("", 10),
		Jobs:       h.jobs,
		MaxCards:   10,
	})
	return h
}

func env(user string) Envelope {
	return Envelope{EventID: "ev-" + user, UserID: user, ReplyToken: "token-" + user}
}

func textOf(t *testing.T, msg messaging_api.MessageInterface) string {
	t.Helper()
	tm, ok := msg.(*messaging_api.TextMessage)
	if !ok {
		t.Fatalf("expected text message, got %T", msg)
	}
	return tm.Text
}

func carouselOf(t *testing.T, msg messaging_api.MessageInterface) *messaging_api.CarouselTemplate {
	t.Helper()
	tm, ok := msg.(*messaging_api.TemplateMessage)
	if !ok {
		t.Fatalf("expected template message, got %T", msg)
	}
	return tm.Template.(*messaging_api.CarouselTemplate)
}

func postbackData(t *testing.T, col messaging_api.CarouselColumn, i int) *postback.Data {
	t.Helper()
	a := col.Actions[i].(*messaging_api.PostbackAction)
	d, err := postback.Parse(a.Data)
	if err != nil {
		t.Fatalf("parse postback: %v", err)
	}
	return d
}

func TestImageMessageStoresIngredients(t *testing.T) {
	h := newHarness(t)
	h.bot.Dispatch(context.Background(), []Event{ImageMessage{Envelope: env("U1"), MessageID: "m1"}})

	st, err := h.states.Get(context.Background(), "U1")
	if err != nil || st.Ingredients != "番茄、雞蛋" {
		t.Fatalf("state not stored: %+v %v", st, err)
	}
	if len(h.messenger.replies) != 1 {
		t.Fatalf("expected one reply, got %d", len(h.messenger.replies))
	}
	msgs := h.messenger.replies[0].messages
	if len(msgs) != 2 || !strings.Contains(textOf(t, msgs[0]), "番茄、雞蛋") || textOf(t, msgs[1]) != reply.MsgAskQuantity {
		t.Fatalf("unexpected reply messages")
	}
}

func TestImageWithoutIngredientsLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	h.states.Set(context.Background(), "U1", "豆腐")
	h.recognizer.result = &recipe.Recognition{}

	h.bot.Dispatch(context.Background(), []Event{ImageMessage{Envelope: env("U1"), MessageID: "m1"}})

	st, _ := h.states.Get(context.Background(), "U1")
	if st.Ingredients != "豆腐" {
		t.Fatalf("state should be unchanged, got %q", st.Ingredients)
	}
	if got := textOf(t, h.messenger.replies[0].messages[0]); got != reply.MsgNoIngredients {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestImageRecognitionFailureRepliesApology(t *testing.T) {
	h := newHarness(t)
	h.recognizer.err = common.WrapError(common.ErrRecognitionFailed, errors.New("vision down"))

	h.bot.Dispatch(context.Background(), []Event{ImageMessage{Envelope: env("U1"), MessageID: "m1"}})

	if got := textOf(t, h.messenger.replies[0].messages[0]); got != common.ErrRecognitionFailed.Message {
		t.Fatalf("unexpected reply %q", got)
	}
	if _, err := h.states.Get(context.Background(), "U1"); !errors.Is(err, conversation.ErrNoState) {
		t.Fatalf("state should not be written on failure")
	}
}

func TestTextWithoutStateAsksForImage(t *testing.T) {
	h := newHarness(t)
	h.bot.Dispatch(context.Background(), []Event{TextMessage{Envelope: env("U1"), Text: "三道"}})

	if got := textOf(t, h.messenger.replies[0].messages[0]); got != reply.MsgUploadFirst {
		t.Fatalf("unexpected reply %q", got)
	}
	if h.llm.calls != 0 {
		t.Fatalf("llm should not be called")
	}
}

func TestTextGeneratesPersistsAndRepliesCarousel(t *testing.T) {
	h := newHarness(t)
	h.states.Set(context.Background(), "U1", "番茄、雞蛋")

	h.bot.Dispatch(context.Background(), []Event{TextMessage{Envelope: env("U1"), Text: "做2道菜"}})

	if len(h.messenger.replies) != 1 {
		t.Fatalf("expected one reply, got %d", len(h.messenger.replies))
	}
	ct := carouselOf(t, h.messenger.replies[0].messages[0])
	if len(ct.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(ct.Columns))
	}
	if ct.Columns[0].Title == ct.Columns[1].Title {
		t.Fatalf("dish names should be distinct")
	}
	for _, col := range ct.Columns {
		d := postbackData(t, col, 1)
		r, err := h.repo.GetRecipe(context.Background(), d.RecipeID)
		if err != nil {
			t.Fatalf("recipe %s not persisted: %v", d.RecipeID, err)
		}
		if r.UserID != "U1" || r.DishName != col.Title {
			t.Fatalf("unexpected persisted recipe %+v", r)
		}
	}
}

func TestTextCapsCarouselAtTenCards(t *testing.T) {
	h := newHarness(t)
	h.states.Set(context.Background(), "U1", "番茄")

	h.bot.Dispatch(context.Background(), []Event{TextMessage{Envelope: env("U1"), Text: "十二道菜"}})

	ct := carouselOf(t, h.messenger.replies[0].messages[0])
	if len(ct.Columns) != 10 {
		t.Fatalf("expected 10 columns, got %d", len(ct.Columns))
	}
}

func TestTextGenerationFailureRepliesApology(t *testing.T) {
	h := newHarness(t)
	h.states.Set(context.Background(), "U1", "番茄")
	h.llm.err = errors.New("timeout")

	h.bot.Dispatch(context.Background(), []Event{TextMessage{Envelope: env("U1"), Text: "一道菜"}})

	if got := textOf(t, h.messenger.replies[0].messages[0]); got != common.ErrGenerationFailed.Message {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestSaveFavoriteCopiesRecipe(t *testing.T) {
	h := newHarness(t)
	id, _ := h.repo.CreateRecipe(context.Background(), &common.Recipe{UserID: "U1", DishName: "味噌湯", IngredientText: "豆腐", RecipeText: "煮"})

	data := postback.Data{Action: postback.ActionSaveFavorite, RecipeID: id}.Encode()
	h.bot.Dispatch(context.Background(), []Event{Postback{Envelope: env("U1"), Data: data}})

	favs, _ := h.repo.ListFavorites(context.Background(), "U1")
	if len(favs) != 1 || favs[0].RecipeID != id || favs[0].DishName != "味噌湯" || favs[0].RecipeText != "煮" {
		t.Fatalf("unexpected favorites %+v", favs)
	}
	if got := textOf(t, h.messenger.replies[0].messages[0]); got != reply.MsgFavoriteSaved {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestSaveFavoriteMissingRecipe(t *testing.T) {
	h := newHarness(t)
	data := postback.Data{Action: postback.ActionSaveFavorite, RecipeID: "missing"}.Encode()
	h.bot.Dispatch(context.Background(), []Event{Postback{Envelope: env("U1"), Data: data}})

	favs, _ := h.repo.ListFavorites(context.Background(), "U1")
	if len(favs) != 0 {
		t.Fatalf("no favorite should be created")
	}
	if got := textOf(t, h.messenger.replies[0].messages[0]); got != common.ErrRecipeNotFound.Message {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestNewImagePostbackKeepsState(t *testing.T) {
	h := newHarness(t)
	h.states.Set(context.Background(), "U1", "番茄")

	data := postback.Data{Action: postback.ActionNewImage}.Encode()
	h.bot.Dispatch(context.Background(), []Event{Postback{Envelope: env("U1"), Data: data}})

	if got := textOf(t, h.messenger.replies[0].messages[0]); got != reply.MsgUploadNewImage {
		t.Fatalf("unexpected reply %q", got)
	}
	st, err := h.states.Get(context.Background(), "U1")
	if err != nil || st.Ingredients != "番茄" {
		t.Fatalf("state should be untouched, got %+v %v", st, err)
	}
	if len(h.messenger.pushes) != 0 {
		t.Fatalf("unexpected pushes %+v", h.messenger.pushes)
	}
}

func TestNewRecipeAcknowledgesThenPushes(t *testing.T) {
	h := newHarness(t)
	h.states.Set(context.Background(), "U1", "番茄、雞蛋")
	h.llm.names = []string{"番茄炒蛋", "番茄蛋花湯"}
	id, _ := h.repo.CreateRecipe(context.Background(), &common.Recipe{UserID: "U1", DishName: "番茄炒蛋", IngredientText: "番茄", Kind: common.KindDish})

	data := postback.Data{Action: postback.ActionNewRecipe, RecipeID: id}.Encode()
	h.bot.Dispatch(context.Background(), []Event{Postback{Envelope: env("U1"), Data: data}})
	h.jobs.Close()

	if got := textOf(t, h.messenger.replies[0].messages[0]); got != reply.MsgGeneratingMore {
		t.Fatalf("unexpected ack %q", got)
	}
	if len(h.messenger.pushes) != 1 || h.messenger.pushes[0].to != "U1" {
		t.Fatalf("expected one push to U1, got %+v", h.messenger.pushes)
	}
	ct := carouselOf(t, h.messenger.pushes[0].messages[0])
	if len(ct.Columns) != 1 || ct.Columns[0].Title != "番茄蛋花湯" {
		t.Fatalf("expected a different dish, got %+v", ct.Columns)
	}
}

func TestNewRecipeFallsBackToRecipeIngredients(t *testing.T) {
	h := newHarness(t)
	id, _ := h.repo.CreateRecipe(context.Background(), &common.Recipe{UserID: "U1", DishName: "舊菜", IngredientText: "豆腐"})

	data := postback.Data{Action: postback.ActionNewRecipe, RecipeID: id}.Encode()
	h.bot.Dispatch(context.Background(), []Event{Postback{Envelope: env("U1"), Data: data}})
	h.jobs.Close()

	if len(h.messenger.pushes) != 1 {
		t.Fatalf("expected one push, got %d", len(h.messenger.pushes))
	}
	carouselOf(t, h.messenger.pushes[0].messages[0])
}

func TestInvalidAndUnknownPostbacksAreIgnored(t *testing.T) {
	h := newHarness(t)
	h.bot.Dispatch(context.Background(), []Event{
		Postback{Envelope: env("U1"), Data: "action=save"},
		Postback{Envelope: env("U1"), Data: `{"action":"launch_rocket"}`},
	})
	if h.messenger.total() != 0 {
		t.Fatalf("expected no messages, got %d", h.messenger.total())
	}
}

func TestUnsupportedEventsHaveNoSideEffects(t *testing.T) {
	h := newHarness(t)
	h.bot.Dispatch(context.Background(), []Event{
		Unsupported{Envelope: env("U1"), Type: "follow"},
		Unsupported{Envelope: env("U1"), Type: "sticker"},
	})
	if h.messenger.total() != 0 || h.content.calls != 0 || h.llm.calls != 0 {
		t.Fatalf("unsupported events should not trigger side effects")
	}
}

func TestReplyFailureFallsBackToPush(t *testing.T) {
	h := newHarness(t)
	h.messenger.replyErr = errors.New("invalid reply token")

	h.bot.Dispatch(context.Background(), []Event{TextMessage{Envelope: env("U1"), Text: "hi"}})

	if len(h.messenger.pushes) != 1 || textOf(t, h.messenger.pushes[0].messages[0]) != reply.MsgUploadFirst {
		t.Fatalf("expected push fallback, got %+v", h.messenger.pushes)
	}
}

type panickingRecognizer struct{}

func (panickingRecognizer) Recognize(ctx context.Context, image []byte) (*recipe.Recognition, error) {
	panic("boom")
}

func TestPanicIsRecoveredPerEvent(t *testing.T) {
	h := newHarness(t)
	h.bot.Recognizer = panickingRecognizer{}

	h.bot.Dispatch(context.Background(), []Event{
		ImageMessage{Envelope: env("U1"), MessageID: "m1"},
		TextMessage{Envelope: env("U2"), Text: "hi"},
	})

	if len(h.messenger.replies) != 2 {
		t.Fatalf("expected both events to get replies, got %d", len(h.messenger.replies))
	}
	if got := textOf(t, h.messenger.replies[0].messages[0]); got != common.ErrInternalError.Message {
		t.Fatalf("unexpected apology %q", got)
	}
}
