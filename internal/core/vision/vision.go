// Package vision 透過 Google Cloud Vision 取得圖片標籤
package vision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"line-recipe-bot/internal/infrastructure/config"
	"line-recipe-bot/internal/pkg/common"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Labeler 回傳圖片中辨識出的物體名稱
type Labeler interface {
	DetectLabels(ctx context.Context, image []byte) ([]string, error)
}

// CloudLabeler Cloud Vision LABEL_DETECTION 實作
type CloudLabeler struct {
	client    *vision.ImageAnnotatorClient
	maxLabels int
	timeout   time.Duration
}

// NewCloudLabeler 建立 Cloud Vision 用戶端，credentialsFile 為空時使用預設憑證
func NewCloudLabeler(ctx context.Context, cfg config.VisionConfig, credentialsFile string) (*CloudLabeler, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}

	maxLabels := cfg.MaxLabels
	if maxLabels <= 0 {
		maxLabels = 20
	}
	return &CloudLabeler{client: client, maxLabels: maxLabels, timeout: cfg.Timeout}, nil
}

// DetectLabels 執行標籤偵測
func (l *CloudLabeler) DetectLabels(ctx context.Context, image []byte) ([]string, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	resp, err := l.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image: &visionpb.Image{Content: image},
			Features: []*visionpb.Feature{{
				Type:       visionpb.Feature_LABEL_DETECTION,
				MaxResults: int32(l.maxLabels),
			}},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("label detection failed: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, nil
	}

	r := resp.GetResponses()[0]
	if msg := r.GetError().GetMessage(); msg != "" {
		return nil, fmt.Errorf("label detection failed: %s", msg)
	}

	labels := DescriptionsOf(r.GetLabelAnnotations())
	common.LogDebug("圖片標籤辨識完成", zap.Int("labels", len(labels)))
	return labels, nil
}

// Close 關閉用戶端
func (l *CloudLabeler) Close() error {
	return l.client.Close()
}

// DescriptionsOf 取出去重後的標籤文字
func DescriptionsOf(annotations []*visionpb.EntityAnnotation) []string {
	seen := make(map[string]bool, len(annotations))
	labels := make([]string, 0, len(annotations))
	for _, a := range annotations {
		d := strings.TrimSpace(a.GetDescription())
		if d == "" || seen[strings.ToLower(d)] {
			continue
		}
		seen[strings.ToLower(d)] = true
		labels = append(labels, d)
	}
	return labels
}
