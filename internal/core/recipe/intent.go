package recipe

import (
	"regexp"
	"strconv"
)

// Intent 使用者想做的料理數量與菜系
type Intent struct {
	Dishes   int
	Soups    int
	Cuisine  string
	Explicit bool // 訊息中是否明確指定數量
}

// Total 料理總數
func (i Intent) Total() int {
	return i.Dishes + i.Soups
}

const numberPattern = `(\d+|[零一二兩两三四五六七八九十]+)`

var (
	soupPattern    = regexp.MustCompile(numberPattern + `\s*[道個个碗份鍋]?\s*湯`)
	dishPattern    = regexp.MustCompile(numberPattern + `\s*(?:道菜|個菜|个菜|樣菜|份菜|道|菜)`)
	cuisinePattern = regexp.MustCompile(`(中|台|日|韓|泰|義|法|美|西|越|印|港)式`)
)

var chineseDigits = map[rune]int{
	'零': 0, '一': 1, '二': 2, '兩': 2, '两': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

// parseNumber 解析阿拉伯數字或一到九十九的中文數字
func parseNumber(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}

	runes := []rune(s)
	switch len(runes) {
	case 1:
		if runes[0] == '十' {
			return 10, true
		}
		d, ok := chineseDigits[runes[0]]
		return d, ok
	case 2:
		// 十X 或 X十
		if runes[0] == '十' {
			d, ok := chineseDigits[runes[1]]
			return 10 + d, ok
		}
		if runes[1] == '十' {
			d, ok := chineseDigits[runes[0]]
			return d * 10, ok
		}
	case 3:
		// X十Y
		if runes[1] == '十' {
			tens, ok1 := chineseDigits[runes[0]]
			ones, ok2 := chineseDigits[runes[2]]
			return tens*10 + ones, ok1 && ok2
		}
	}
	return 0, false
}

// ParseIntent 從文字訊息取出菜、湯數量與菜系
// 沒有明確數量時預設一道菜、零道湯；總數不超過 maxTotal
func ParseIntent(text string, maxTotal int) Intent {
	var intent Intent
	rest := text

	if m := soupPattern.FindStringSubmatchIndex(rest); m != nil {
		if n, ok := parseNumber(rest[m[2]:m[3]]); ok {
			intent.Soups = n
			intent.Explicit = true
		}
		rest = rest[:m[0]] + " " + rest[m[1]:]
	}

	if m := dishPattern.FindStringSubmatch(rest); m != nil {
		if n, ok := parseNumber(m[1]); ok {
			intent.Dishes = n
			intent.Explicit = true
		}
	}

	if m := cuisinePattern.FindString(text); m != "" {
		intent.Cuisine = m
	}

	if intent.Total() <= 0 {
		intent.Dishes, intent.Soups = 1, 0
	}

	if maxTotal > 0 && intent.Total() > maxTotal {
		if intent.Dishes > maxTotal {
			intent.Dishes = maxTotal
		}
		intent.Soups = maxTotal - intent.Dishes
	}
	return intent
}
