package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"line-recipe-bot/internal/pkg/common"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not found", status.Error(codes.NotFound, "no document"), true},
		{"wrapped not found", fmt.Errorf("delete: %w", status.Error(codes.NotFound, "no document")), true},
		{"failed precondition", status.Error(codes.FailedPrecondition, "precondition"), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNotFound(tt.err); got != tt.want {
				t.Fatalf("isNotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// 需要 FIRESTORE_EMULATOR_HOST，未設定時略過
func TestFirestoreDeleteFavoriteMissing(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	repo, err := NewFirestoreRepository(ctx, "line-recipe-bot-test", "")
	if err != nil {
		t.Fatalf("NewFirestoreRepository: %v", err)
	}
	defer repo.Close()

	if err := repo.DeleteFavorite(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	id, err := repo.CreateFavorite(ctx, &common.Favorite{UserID: "U-" + uuid.NewString(), RecipeID: "r1", DishName: "味噌湯", IngredientText: "豆腐", RecipeText: "煮"})
	if err != nil {
		t.Fatalf("CreateFavorite: %v", err)
	}
	if err := repo.DeleteFavorite(ctx, id); err != nil {
		t.Fatalf("DeleteFavorite: %v", err)
	}
	if _, err := repo.GetFavorite(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected favorite gone, got %v", err)
	}
}
