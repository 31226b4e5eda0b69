// Package line 包裝 LINE Messaging API
package line

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"line-recipe-bot/internal/infrastructure/config"
	"line-recipe-bot/internal/pkg/common"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"go.uber.org/zap"
)

// 單次回覆最多五則訊息
const maxMessagesPerRequest = 5

// Client 回覆、推播與下載使用者上傳的內容
type Client struct {
	token        string
	apiEndpoint  string
	blobEndpoint string
	httpClient   *http.Client
	maxBlobBytes int64
}

// NewClient 建立 LINE 用戶端
func NewClient(cfg config.LineConfig, maxBlobBytes int64) (*Client, error) {
	return newClient(cfg.ChannelAccessToken, "", "", maxBlobBytes)
}

// newClient endpoint 為空時使用官方網址
func newClient(token, apiEndpoint, blobEndpoint string, maxBlobBytes int64) (*Client, error) {
	c := &Client{
		token:        token,
		apiEndpoint:  apiEndpoint,
		blobEndpoint: blobEndpoint,
		httpClient:   &http.Client{Timeout: 20 * time.Second, Transport: http.DefaultTransport},
		maxBlobBytes: maxBlobBytes,
	}
	// 先建一次確認 token 與 endpoint 可用
	if _, err := c.messagingAPI(context.Background()); err != nil {
		return nil, err
	}
	if _, err := c.blobAPI(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

// ctxTransport 讓 SDK 發出的請求跟著呼叫端的 context 取消
type ctxTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

// boundHTTPClient 共用連線池，每次呼叫綁定自己的 context
func (c *Client) boundHTTPClient(ctx context.Context) *http.Client {
	return &http.Client{
		Timeout:   c.httpClient.Timeout,
		Transport: ctxTransport{ctx: ctx, base: c.httpClient.Transport},
	}
}

func (c *Client) messagingAPI(ctx context.Context) (*messaging_api.MessagingApiAPI, error) {
	opts := []messaging_api.MessagingApiAPIOption{messaging_api.WithHTTPClient(c.boundHTTPClient(ctx))}
	if c.apiEndpoint != "" {
		opts = append(opts, messaging_api.WithEndpoint(c.apiEndpoint))
	}
	api, err := messaging_api.NewMessagingApiAPI(c.token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging api client: %w", err)
	}
	return api, nil
}

func (c *Client) blobAPI(ctx context.Context) (*messaging_api.MessagingApiBlobAPI, error) {
	opts := []messaging_api.MessagingApiBlobAPIOption{messaging_api.WithBlobHTTPClient(c.boundHTTPClient(ctx))}
	if c.blobEndpoint != "" {
		opts = append(opts, messaging_api.WithBlobEndpoint(c.blobEndpoint))
	}
	blob, err := messaging_api.NewMessagingApiBlobAPI(c.token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob api client: %w", err)
	}
	return blob, nil
}

// Reply 以 reply token 回覆
func (c *Client) Reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(messages) > maxMessagesPerRequest {
		messages = messages[:maxMessagesPerRequest]
	}

	api, err := c.messagingAPI(ctx)
	if err != nil {
		return err
	}
	_, err = api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	if err != nil {
		return fmt.Errorf("reply message failed: %w", err)
	}
	return nil
}

// Push 主動推播給使用者
func (c *Client) Push(ctx context.Context, to string, messages []messaging_api.MessageInterface) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(messages) > maxMessagesPerRequest {
		messages = messages[:maxMessagesPerRequest]
	}

	api, err := c.messagingAPI(ctx)
	if err != nil {
		return err
	}
	_, err = api.PushMessage(&messaging_api.PushMessageRequest{
		To:       to,
		Messages: messages,
	}, "")
	if err != nil {
		return fmt.Errorf("push message failed: %w", err)
	}
	return nil
}

// FetchContent 下載使用者上傳的圖片
func (c *Client) FetchContent(ctx context.Context, messageID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blob, err := c.blobAPI(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := blob.GetMessageContent(messageID)
	if err != nil {
		return nil, fmt.Errorf("get message content failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get message content returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBlobBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read message content failed: %w", err)
	}
	if int64(len(data)) > c.maxBlobBytes {
		return nil, common.WrapError(common.ErrInvalidImageSize, fmt.Errorf("content exceeds %d bytes", c.maxBlobBytes))
	}

	common.LogDebug("已下載訊息內容",
		zap.String("message_id", messageID),
		zap.Int("bytes", len(data)),
	)
	return data, nil
}
