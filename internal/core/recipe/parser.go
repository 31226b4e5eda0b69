package recipe

import (
	"regexp"
	"strings"

	"line-recipe-bot/internal/pkg/common"
)

// ParsedRecipe 從 LLM 回覆解析出的欄位
type ParsedRecipe struct {
	DishName       string
	IngredientText string
	RecipeText     string
	SourceURL      string
}

var (
	dishNamePattern   = regexp.MustCompile(`(?m)(?:料理名稱|菜名|名稱)\s*[:：]\s*(.+)$`)
	ingredientPattern = regexp.MustCompile(`(?m)(?:食材|材料)\s*[:：]\s*(.+)$`)
	stepsPattern      = regexp.MustCompile(`(?s)(?:食譜內容|步驟|做法)\s*[:：]\s*(.+)`)
	sourcePattern     = regexp.MustCompile(`(?:來源|參考|網址)\s*[:：]\s*(https?://\S+)`)
	emphasisReplacer  = strings.NewReplacer("**", "", "__", "", "###", "", "##", "", "# ", "")
)

// ParseRecipeText 解析 LLM 輸出，缺少的欄位以預設文字補上
func ParseRecipeText(text string) ParsedRecipe {
	clean := emphasisReplacer.Replace(text)

	parsed := ParsedRecipe{
		DishName:       common.PlaceholderDishName,
		IngredientText: common.PlaceholderIngredients,
		RecipeText:     common.PlaceholderRecipeText,
	}

	if m := dishNamePattern.FindStringSubmatch(clean); m != nil {
		if v := cleanDishName(m[1]); v != "" {
			parsed.DishName = v
		}
	}
	if m := ingredientPattern.FindStringSubmatch(clean); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			parsed.IngredientText = v
		}
	}

	steps := clean
	if m := sourcePattern.FindStringSubmatchIndex(clean); m != nil {
		parsed.SourceURL = strings.TrimRight(clean[m[2]:m[3]], ")）].,，。")
		steps = clean[:m[0]] + clean[m[1]:]
	}
	if m := stepsPattern.FindStringSubmatch(steps); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			parsed.RecipeText = v
		}
	}
	return parsed
}

func cleanDishName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "「」『』\"'[]【】")
	return strings.TrimSpace(s)
}

// parseIngredientList 整理翻譯結果；回覆「無」或空白時回傳空字串
func parseIngredientList(text string) string {
	text = strings.TrimSpace(emphasisReplacer.Replace(text))
	if text == "" || text == "無" || strings.HasPrefix(text, "無。") {
		return ""
	}

	fields := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '、', ',', '，', '\n', ';', '；':
			return true
		}
		return false
	})

	seen := make(map[string]bool, len(fields))
	items := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(f), "-*•0123456789. "))
		f = strings.TrimRight(f, "。")
		if f == "" || f == "無" || seen[f] {
			continue
		}
		seen[f] = true
		items = append(items, f)
	}
	return strings.Join(items, "、")
}
