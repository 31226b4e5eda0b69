// Package conversation 保存每位使用者最近一次辨識出的食材
package conversation

import (
	"context"
	"errors"
	"time"
)

// ErrNoState 使用者尚無食材紀錄
var ErrNoState = errors.New("conversation state not found")

// State 使用者的對話狀態
type State struct {
	UserID      string    `json:"user_id"`
	Ingredients string    `json:"ingredients"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store 對話狀態儲存，後寫入者覆蓋
type Store interface {
	Get(ctx context.Context, userID string) (*State, error)
	Set(ctx context.Context, userID, ingredients string) error
	Clear(ctx context.Context, userID string) error
	Close() error
}
