package recipe

import (
	"fmt"
	"strings"

	"line-recipe-bot/internal/pkg/common"
)

const (
	translateSystemPrompt = "你是一個專業的翻譯助手，並且能過濾出與食材相關的內容。"
	recipeSystemPrompt    = "你是一位專業的廚師，會根據用戶的需求生成食譜。"
)

// buildTranslatePrompt 將圖片標籤翻成繁體中文並只保留食材
func buildTranslatePrompt(labels []string) string {
	return fmt.Sprintf(`以下是從圖片中辨識出的物體列表：
%s
請將其翻譯成繁體中文，並只保留與食材相關的詞彙，去除非食材的詞彙。
請只輸出食材名稱，以「、」分隔；若沒有任何食材，請輸出「無」。`, strings.Join(labels, ", "))
}

// RecipeRequest 單道料理的生成條件
type RecipeRequest struct {
	Kind        common.RecipeKind
	Cuisine     string
	Ingredients string
	AvoidNames  []string
}

func kindLabel(kind common.RecipeKind) string {
	if kind == common.KindSoup {
		return "一道湯品"
	}
	return "一道菜餚"
}

// buildRecipePrompt 產生食譜提示詞，輸出格式需與 ParseRecipeText 一致
func buildRecipePrompt(req RecipeRequest) string {
	var b strings.Builder

	want := kindLabel(req.Kind)
	if req.Cuisine != "" {
		want = req.Cuisine + want
	}
	fmt.Fprintf(&b, "用戶希望做料理 %s，可用的食材有：%s。", want, req.Ingredients)
	if len(req.AvoidNames) > 0 {
		fmt.Fprintf(&b, "請不要與以下料理重複：%s。", strings.Join(req.AvoidNames, "、"))
	}
	b.WriteString(`請按照以下格式生成一個適合的食譜：

料理名稱: [料理名稱]
食材: [食材列表，單行呈現]
食譜內容: [分步驟列點，詳述步驟]`)
	return b.String()
}
