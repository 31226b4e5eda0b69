// Package store 提供食譜與收藏的持久化
package store

import (
	"context"
	"errors"

	"line-recipe-bot/internal/pkg/common"
)

// ErrNotFound 紀錄不存在
var ErrNotFound = errors.New("record not found")

// Repository 食譜與收藏的儲存介面
type Repository interface {
	CreateRecipe(ctx context.Context, r *common.Recipe) (string, error)
	GetRecipe(ctx context.Context, id string) (*common.Recipe, error)
	CreateFavorite(ctx context.Context, f *common.Favorite) (string, error)
	GetFavorite(ctx context.Context, id string) (*common.Favorite, error)
	ListFavorites(ctx context.Context, userID string) ([]*common.Favorite, error)
	DeleteFavorite(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}
