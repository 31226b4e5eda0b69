// Package reply 組合回覆給 LINE 使用者的訊息
package reply

import (
	"net/url"

	"line-recipe-bot/internal/core/postback"
	"line-recipe-bot/internal/pkg/common"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// 平台限制
const (
	MaxCarouselColumns = 10
	maxTitleRunes      = 40
	maxTextRunes       = 60
	maxAltTextRunes    = 400
	maxTextMessage     = 5000
)

// Composer 產生文字與輪播訊息
type Composer struct {
	publicBaseURL string
	maxCards      int
}

// NewComposer 建立 Composer，publicBaseURL 為空時「查看食譜」改用網頁搜尋
func NewComposer(publicBaseURL string, maxCards int) *Composer {
	if maxCards <= 0 || maxCards > MaxCarouselColumns {
		maxCards = MaxCarouselColumns
	}
	return &Composer{publicBaseURL: publicBaseURL, maxCards: maxCards}
}

// Text 文字訊息
func Text(text string) messaging_api.MessageInterface {
	return &messaging_api.TextMessage{Text: common.TruncateRunes(text, maxTextMessage)}
}

// RecipeCarousel 每道食譜一張卡片，超過上限的部分捨棄
func (c *Composer) RecipeCarousel(recipes []*common.Recipe) messaging_api.MessageInterface {
	if len(recipes) > c.maxCards {
		recipes = recipes[:c.maxCards]
	}

	columns := make([]messaging_api.CarouselColumn, 0, len(recipes))
	for _, r := range recipes {
		columns = append(columns, c.column(r))
	}

	return &messaging_api.TemplateMessage{
		AltText: common.TruncateRunes(MsgCarouselAltText+"："+dishNames(recipes), maxAltTextRunes),
		Template: &messaging_api.CarouselTemplate{
			Columns: columns,
		},
	}
}

// column 每張卡片固定三個按鈕，平台要求所有卡片按鈕數一致
func (c *Composer) column(r *common.Recipe) messaging_api.CarouselColumn {
	text := "食材：" + r.IngredientText
	return messaging_api.CarouselColumn{
		Title: common.TruncateRunes(r.DishName, maxTitleRunes),
		Text:  common.TruncateRunes(text, maxTextRunes),
		Actions: []messaging_api.ActionInterface{
			&messaging_api.PostbackAction{
				Label:       "再來一道",
				Data:        postback.Data{Action: postback.ActionNewRecipe, RecipeID: r.ID}.Encode(),
				DisplayText: "再來一道",
			},
			&messaging_api.PostbackAction{
				Label:       "加入最愛",
				Data:        postback.Data{Action: postback.ActionSaveFavorite, RecipeID: r.ID}.Encode(),
				DisplayText: "把「" + common.TruncateRunes(r.DishName, 20) + "」加入最愛",
			},
			&messaging_api.UriAction{
				Label: "查看食譜",
				Uri:   c.ViewURL(r),
			},
		},
	}
}

// ViewURL 食譜的查看連結：來源網址、本服務的食譜 API，或網頁搜尋
func (c *Composer) ViewURL(r *common.Recipe) string {
	if r.SourceURL != "" {
		return r.SourceURL
	}
	if c.publicBaseURL != "" && r.ID != "" {
		return c.publicBaseURL + "/api/recipes/" + url.PathEscape(r.ID)
	}
	return "https://www.google.com/search?q=" + url.QueryEscape(r.DishName+" 食譜")
}

func dishNames(recipes []*common.Recipe) string {
	names := make([]string, 0, len(recipes))
	for _, r := range recipes {
		names = append(names, r.DishName)
	}
	return common.StringSliceToString(names)
}
