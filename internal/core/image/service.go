package image

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	"line-recipe-bot/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // 支援 WebP
)

// Service 圖片處理服務
type Service struct {
	maxSizeBytes int64
	maxDimension int
}

// NewService 創建新的圖片處理服務
func NewService(maxSizeBytes int64, maxDimension int) *Service {
	return &Service{
		maxSizeBytes: maxSizeBytes,
		maxDimension: maxDimension,
	}
}

// Normalize 驗證圖片後縮放並轉為 JPEG
func (s *Service) Normalize(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, common.WrapError(common.ErrInvalidImageFormat, fmt.Errorf("image data is empty"))
	}
	if s.maxSizeBytes > 0 && int64(len(data)) > s.maxSizeBytes {
		return nil, common.WrapError(common.ErrInvalidImageSize,
			fmt.Errorf("image size %d exceeds maximum limit of %d bytes", len(data), s.maxSizeBytes))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, common.WrapError(common.ErrInvalidImageFormat, fmt.Errorf("failed to decode image: %w", err))
	}
	if !isSupportedFormat(format) {
		return nil, common.WrapError(common.ErrInvalidImageFormat, fmt.Errorf("unsupported image format: %s", format))
	}

	img = s.downscale(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode image as JPEG: %w", err)
	}

	common.LogDebug("圖片已正規化",
		zap.String("format", format),
		zap.Int("原始大小", len(data)),
		zap.Int("處理後大小", buf.Len()),
	)
	return buf.Bytes(), nil
}

// downscale 將最長邊縮至 maxDimension 以內
func (s *Service) downscale(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if s.maxDimension <= 0 || longest <= s.maxDimension {
		return src
	}

	nw := w * s.maxDimension / longest
	nh := h * s.maxDimension / longest
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

func isSupportedFormat(format string) bool {
	switch format {
	case "jpeg", "png", "gif", "webp":
		return true
	}
	return false
}
