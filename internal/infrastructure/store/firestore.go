package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"line-recipe-bot/internal/pkg/common"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	recipesCollection   = "recipes"
	favoritesCollection = "favorites"
)

// recipeDoc recipes 集合的文件欄位
type recipeDoc struct {
	UserID     string    `firestore:"user_id"`
	Dish       string    `firestore:"dish"`
	Ingredient string    `firestore:"ingredient"`
	Recipe     string    `firestore:"recipe"`
	SourceURL  string    `firestore:"source_url"`
	Kind       string    `firestore:"kind"`
	Cuisine    string    `firestore:"cuisine"`
	CreatedAt  time.Time `firestore:"created_at"`
}

// favoriteDoc favorites 集合的文件欄位
type favoriteDoc struct {
	UserID     string    `firestore:"user_id"`
	RecipeID   string    `firestore:"recipe_id"`
	Dish       string    `firestore:"dish"`
	Ingredient string    `firestore:"ingredient"`
	Recipe     string    `firestore:"recipe"`
	SourceURL  string    `firestore:"source_url"`
	CreatedAt  time.Time `firestore:"created_at"`
}

func (d *recipeDoc) toRecipe(id string) *common.Recipe {
	return &common.Recipe{
		ID:             id,
		UserID:         d.UserID,
		DishName:       d.Dish,
		IngredientText: d.Ingredient,
		RecipeText:     d.Recipe,
		SourceURL:      d.SourceURL,
		Kind:           common.RecipeKind(d.Kind),
		Cuisine:        d.Cuisine,
		CreatedAt:      d.CreatedAt,
	}
}

func (d *favoriteDoc) toFavorite(id string) *common.Favorite {
	return &common.Favorite{
		ID:             id,
		UserID:         d.UserID,
		RecipeID:       d.RecipeID,
		DishName:       d.Dish,
		IngredientText: d.Ingredient,
		RecipeText:     d.Recipe,
		SourceURL:      d.SourceURL,
		CreatedAt:      d.CreatedAt,
	}
}

// FirestoreRepository Firestore 實作
type FirestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository 建立 Firestore 用戶端
// projectID 為空時由憑證偵測；credentialsFile 為空時使用預設憑證
func NewFirestoreRepository(ctx context.Context, projectID, credentialsFile string) (*FirestoreRepository, error) {
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreRepository{client: client}, nil
}

func (s *FirestoreRepository) CreateRecipe(ctx context.Context, r *common.Recipe) (string, error) {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	doc := s.client.Collection(recipesCollection).NewDoc()
	_, err := doc.Create(ctx, &recipeDoc{
		UserID:     r.UserID,
		Dish:       r.DishName,
		Ingredient: r.IngredientText,
		Recipe:     r.RecipeText,
		SourceURL:  r.SourceURL,
		Kind:       string(r.Kind),
		Cuisine:    r.Cuisine,
		CreatedAt:  createdAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create recipe: %w", err)
	}
	return doc.ID, nil
}

func (s *FirestoreRepository) GetRecipe(ctx context.Context, id string) (*common.Recipe, error) {
	snap, err := s.client.Collection(recipesCollection).Doc(id).Get(ctx)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe %s: %w", id, err)
	}

	var d recipeDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode recipe %s: %w", id, err)
	}
	return d.toRecipe(snap.Ref.ID), nil
}

func (s *FirestoreRepository) CreateFavorite(ctx context.Context, f *common.Favorite) (string, error) {
	createdAt := f.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	doc := s.client.Collection(favoritesCollection).NewDoc()
	_, err := doc.Create(ctx, &favoriteDoc{
		UserID:     f.UserID,
		RecipeID:   f.RecipeID,
		Dish:       f.DishName,
		Ingredient: f.IngredientText,
		Recipe:     f.RecipeText,
		SourceURL:  f.SourceURL,
		CreatedAt:  createdAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create favorite: %w", err)
	}
	return doc.ID, nil
}

func (s *FirestoreRepository) GetFavorite(ctx context.Context, id string) (*common.Favorite, error) {
	snap, err := s.client.Collection(favoritesCollection).Doc(id).Get(ctx)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get favorite %s: %w", id, err)
	}

	var d favoriteDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode favorite %s: %w", id, err)
	}
	return d.toFavorite(snap.Ref.ID), nil
}

func (s *FirestoreRepository) ListFavorites(ctx context.Context, userID string) ([]*common.Favorite, error) {
	snaps, err := s.client.Collection(favoritesCollection).
		Where("user_id", "==", userID).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	favorites := make([]*common.Favorite, 0, len(snaps))
	for _, snap := range snaps {
		var d favoriteDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to decode favorite %s: %w", snap.Ref.ID, err)
		}
		favorites = append(favorites, d.toFavorite(snap.Ref.ID))
	}
	// 排序在本地處理，避免需要複合索引
	sort.Slice(favorites, func(i, j int) bool { return favorites[i].CreatedAt.Before(favorites[j].CreatedAt) })
	return favorites, nil
}

func (s *FirestoreRepository) DeleteFavorite(ctx context.Context, id string) error {
	// Exists 前置條件讓不存在的文件在同一次呼叫內回 NotFound
	_, err := s.client.Collection(favoritesCollection).Doc(id).Delete(ctx, firestore.Exists)
	if isNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete favorite %s: %w", id, err)
	}
	return nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// Ping 讀取不存在的文件以確認連線
func (s *FirestoreRepository) Ping(ctx context.Context) error {
	_, err := s.client.Collection(recipesCollection).Doc("_ping").Get(ctx)
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func (s *FirestoreRepository) Close() error {
	return s.client.Close()
}
