package bot

// Envelope 每個事件共有的欄位
type Envelope struct {
	EventID    string
	UserID     string
	ReplyToken string
}

// Event 分派器處理的事件
type Event interface {
	envelope() Envelope
}

// TextMessage 文字訊息
type TextMessage struct {
	Envelope
	Text string
}

// ImageMessage 圖片訊息，內容需另外下載
type ImageMessage struct {
	Envelope
	MessageID string
}

// Postback 輪播按鈕回傳
type Postback struct {
	Envelope
	Data string
}

// Unsupported 其他事件，僅記錄
type Unsupported struct {
	Envelope
	Type string
}

func (e Envelope) envelope() Envelope { return e }

// EventID 事件的 webhookEventId，沒有時為空字串
func EventID(ev Event) string {
	return ev.envelope().EventID
}
