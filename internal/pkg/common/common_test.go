package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapErrorKeepsCodeAndCause(t *testing.T) {
	cause := errors.New("vision down")
	err := fmt.Errorf("recognize: %w", WrapError(ErrRecognitionFailed, cause))

	if !errors.Is(err, ErrRecognitionFailed) {
		t.Fatalf("expected errors.Is to match ErrRecognitionFailed")
	}
	if errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("did not expect match with a different code")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	ce, ok := AsCustomError(err)
	if !ok || ce.Message != ErrRecognitionFailed.Message {
		t.Fatalf("unexpected custom error: %+v", ce)
	}
}

func TestParseJSONStrict(t *testing.T) {
	var v struct {
		Action string `json:"action"`
	}
	if err := ParseJSONStrict(`{"action":"x"}`, &v); err != nil || v.Action != "x" {
		t.Fatalf("unexpected result: %v %+v", err, v)
	}
	if err := ParseJSONStrict(`{"action":"x","extra":1}`, &v); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
	if err := ParseJSONStrict(`{"action":"x"} {}`, &v); err == nil {
		t.Fatalf("expected trailing data to be rejected")
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"番茄炒蛋", 10, "番茄炒蛋"},
		{"番茄炒蛋", 3, "番茄…"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateRunes(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateRunes(%q,%d)=%q want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestFavoriteFromRecipeCopiesFields(t *testing.T) {
	r := &Recipe{ID: "r1", UserID: "u1", DishName: "番茄炒蛋", IngredientText: "番茄、蛋", RecipeText: "1. 炒", SourceURL: "https://example.com"}
	f := FavoriteFromRecipe(r)
	if f.RecipeID != "r1" || f.UserID != "u1" || f.DishName != r.DishName || f.RecipeText != r.RecipeText || f.SourceURL != r.SourceURL {
		t.Fatalf("favorite not copied: %+v", f)
	}
}
