package common

import (
	"errors"
	"net/http"
)

// CustomError 定義自定義錯誤類型
// Message 為可直接回覆給使用者的文字
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 回傳原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比對
func (e *CustomError) Is(target error) bool {
	var t *CustomError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// WrapError 以預定義錯誤為範本附加原始錯誤
func WrapError(base *CustomError, err error) *CustomError {
	return NewError(base.Code, base.Message, base.Status, err)
}

// AsCustomError 取出錯誤鏈中的 CustomError
func AsCustomError(err error) (*CustomError, bool) {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// 預定義錯誤代碼
const (
	ErrCodeInvalidSignature   = "INVALID_SIGNATURE"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeRecipeNotFound     = "RECIPE_NOT_FOUND"
	ErrCodeFavoriteNotFound   = "FAVORITE_NOT_FOUND"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeInvalidPostback    = "INVALID_POSTBACK"
	ErrCodeUnknownAction      = "UNKNOWN_ACTION"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeRecognitionFailed  = "RECOGNITION_FAILED"
	ErrCodeGenerationFailed   = "GENERATION_FAILED"
	ErrCodeStorageFailure     = "STORAGE_FAILURE"
	ErrCodeQueueFull          = "QUEUE_FULL"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// 預定義錯誤
var (
	ErrInvalidSignature = NewError(ErrCodeInvalidSignature, "簽章驗證失敗", http.StatusBadRequest, nil)
	ErrNotFound         = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrRecipeNotFound   = NewError(ErrCodeRecipeNotFound, "找不到這道食譜，可能已被刪除。", http.StatusNotFound, nil)
	ErrFavoriteNotFound = NewError(ErrCodeFavoriteNotFound, "找不到此收藏", http.StatusNotFound, nil)
	ErrTooManyRequests  = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)
	ErrInvalidPostback  = NewError(ErrCodeInvalidPostback, "無效的操作資料", http.StatusBadRequest, nil)
	ErrUnknownAction    = NewError(ErrCodeUnknownAction, "不支援的操作", http.StatusBadRequest, nil)

	ErrInternalError      = NewError(ErrCodeInternalError, "抱歉，發生了一些問題，請稍後再試。", http.StatusInternalServerError, nil)
	ErrRecognitionFailed  = NewError(ErrCodeRecognitionFailed, "圖片辨識失敗，請稍後再試或換一張照片。", http.StatusBadGateway, nil)
	ErrGenerationFailed   = NewError(ErrCodeGenerationFailed, "食譜生成失敗，請稍後再試。", http.StatusBadGateway, nil)
	ErrStorageFailure     = NewError(ErrCodeStorageFailure, "資料儲存失敗，請稍後再試。", http.StatusInternalServerError, nil)
	ErrQueueFull          = NewError(ErrCodeQueueFull, "目前使用人數較多，請稍後再試。", http.StatusServiceUnavailable, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)

	ErrInvalidImageFormat = NewError("INVALID_IMAGE_FORMAT", "無效的圖片格式", http.StatusBadRequest, nil)
	ErrInvalidImageSize   = NewError("INVALID_IMAGE_SIZE", "圖片大小超出限制", http.StatusBadRequest, nil)
)
