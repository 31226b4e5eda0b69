package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"line-recipe-bot/internal/pkg/common"
)

// MemoryRepository 程序內儲存，用於測試與本機執行
type MemoryRepository struct {
	mu        sync.RWMutex
	recipes   map[string]common.Recipe
	favorites map[string]common.Favorite
}

// NewMemoryRepository 建立記憶體儲存
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		recipes:   make(map[string]common.Recipe),
		favorites: make(map[string]common.Favorite),
	}
}

func (m *MemoryRepository) CreateRecipe(ctx context.Context, r *common.Recipe) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := *r
	rec.ID = common.GenerateUUID()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.recipes[rec.ID] = rec
	return rec.ID, nil
}

func (m *MemoryRepository) GetRecipe(ctx context.Context, id string) (*common.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.recipes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *MemoryRepository) CreateFavorite(ctx context.Context, f *common.Favorite) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fav := *f
	fav.ID = common.GenerateUUID()
	if fav.CreatedAt.IsZero() {
		fav.CreatedAt = time.Now().UTC()
	}
	m.favorites[fav.ID] = fav
	return fav.ID, nil
}

func (m *MemoryRepository) GetFavorite(ctx context.Context, id string) (*common.Favorite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fav, ok := m.favorites[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &fav, nil
}

func (m *MemoryRepository) ListFavorites(ctx context.Context, userID string) ([]*common.Favorite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*common.Favorite, 0)
	for _, fav := range m.favorites {
		if fav.UserID == userID {
			f := fav
			out = append(out, &f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepository) DeleteFavorite(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.favorites[id]; !ok {
		return ErrNotFound
	}
	delete(m.favorites, id)
	return nil
}

func (m *MemoryRepository) Ping(ctx context.Context) error { return nil }

func (m *MemoryRepository) Close() error { return nil }
