package common

import "time"

// RecipeKind 料理類型
type RecipeKind string

const (
	KindDish RecipeKind = "dish"
	KindSoup RecipeKind = "soup"
)

// 解析失敗時的預設值
const (
	PlaceholderDishName    = "未命名料理"
	PlaceholderIngredients = "未提供食材"
	PlaceholderRecipeText  = "未提供食譜內容"
)

// Recipe 已儲存的食譜
type Recipe struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	DishName       string     `json:"dish_name"`
	IngredientText string     `json:"ingredient_text"`
	RecipeText     string     `json:"recipe_text"`
	SourceURL      string     `json:"source_url,omitempty"`
	Kind           RecipeKind `json:"kind,omitempty"`
	Cuisine        string     `json:"cuisine,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Favorite 收藏的食譜，建立時複製食譜內容
type Favorite struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	RecipeID       string    `json:"recipe_id"`
	DishName       string    `json:"dish_name"`
	IngredientText string    `json:"ingredient_text"`
	RecipeText     string    `json:"recipe_text"`
	SourceURL      string    `json:"source_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// FavoriteFromRecipe 以食譜內容建立收藏
func FavoriteFromRecipe(r *Recipe) *Favorite {
	return &Favorite{
		UserID:         r.UserID,
		RecipeID:       r.ID,
		DishName:       r.DishName,
		IngredientText: r.IngredientText,
		RecipeText:     r.RecipeText,
		SourceURL:      r.SourceURL,
	}
}
