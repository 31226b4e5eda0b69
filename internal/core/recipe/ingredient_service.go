package recipe

import (
	"context"

	"line-recipe-bot/internal/core/ai/service"
	"line-recipe-bot/internal/core/vision"
	"line-recipe-bot/internal/pkg/common"

	"go.uber.org/zap"
)

// ImageNormalizer 圖片前處理
type ImageNormalizer interface {
	Normalize(data []byte) ([]byte, error)
}

// Recognition 圖片辨識結果，Ingredients 為空表示無法辨識出食材
type Recognition struct {
	Labels      []string
	Ingredients string
}

// IngredientService 將圖片轉為繁體中文食材清單
type IngredientService struct {
	labeler vision.Labeler
	llm     ChatService
	images  ImageNormalizer
}

// NewIngredientService 創建食材辨識服務，images 可為 nil
func NewIngredientService(labeler vision.Labeler, llm ChatService, images ImageNormalizer) *IngredientService {
	return &IngredientService{labeler: labeler, llm: llm, images: images}
}

// Recognize 偵測標籤後請 LLM 翻譯並過濾出食材
func (s *IngredientService) Recognize(ctx context.Context, image []byte) (*Recognition, error) {
	data := image
	if s.images != nil {
		normalized, err := s.images.Normalize(image)
		if err != nil {
			return nil, common.WrapError(common.ErrRecognitionFailed, err)
		}
		data = normalized
	}

	labels, err := s.labeler.DetectLabels(ctx, data)
	if err != nil {
		return nil, common.WrapError(common.ErrRecognitionFailed, err)
	}
	if len(labels) == 0 {
		return &Recognition{}, nil
	}

	text, err := s.llm.Chat(ctx, translateSystemPrompt, buildTranslatePrompt(labels), service.ChatOptions{
		Purpose:   "translate",
		MaxTokens: 300,
		Cacheable: true,
	})
	if err != nil {
		return nil, common.WrapError(common.ErrRecognitionFailed, err)
	}

	ingredients := parseIngredientList(text)
	if ingredients == "" {
		common.LogInfo("標籤中沒有食材", zap.Strings("labels", labels))
		return &Recognition{Labels: labels}, nil
	}

	common.LogInfo("食材辨識完成",
		zap.Int("labels", len(labels)),
		zap.String("ingredients", ingredients),
	)
	return &Recognition{Labels: labels, Ingredients: ingredients}, nil
}
