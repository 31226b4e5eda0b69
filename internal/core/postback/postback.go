// Package postback 定義輪播按鈕回傳資料的格式
package postback

import (
	"encoding/json"
	"fmt"
	"strings"

	"line-recipe-bot/internal/pkg/common"
)

// Action 按鈕動作
type Action string

const (
	ActionNewRecipe    Action = "new_recipe"
	ActionSaveFavorite Action = "save_favorite"
	ActionNewImage     Action = "new_image"
)

// Data postback 內容，以 JSON 編碼
type Data struct {
	Action   Action `json:"action"`
	RecipeID string `json:"recipe_id,omitempty"`
}

// Encode 編碼為 postback 字串
func (d Data) Encode() string {
	b, _ := json.Marshal(d)
	return string(b)
}

// Parse 嚴格解析 postback 字串
// 格式錯誤回傳 ErrInvalidPostback，未知動作回傳 ErrUnknownAction
func Parse(raw string) (*Data, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, common.WrapError(common.ErrInvalidPostback, fmt.Errorf("empty postback data"))
	}

	var d Data
	if err := common.ParseJSONStrict(raw, &d); err != nil {
		return nil, common.WrapError(common.ErrInvalidPostback, err)
	}

	switch d.Action {
	case ActionSaveFavorite:
		if d.RecipeID == "" {
			return nil, common.WrapError(common.ErrInvalidPostback, fmt.Errorf("save_favorite requires recipe_id"))
		}
	case ActionNewRecipe, ActionNewImage:
	default:
		return nil, common.WrapError(common.ErrUnknownAction, fmt.Errorf("unknown action %q", d.Action))
	}
	return &d, nil
}
