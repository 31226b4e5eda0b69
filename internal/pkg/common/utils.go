package common

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// WriteErrorResponse 寫入錯誤響應
func WriteErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// WriteCustomError 依 CustomError 的狀態碼寫入錯誤響應
func WriteCustomError(c *gin.Context, err error) {
	if ce, ok := AsCustomError(err); ok {
		WriteErrorResponse(c, ce.Status, ce.Message)
		return
	}
	WriteErrorResponse(c, ErrInternalError.Status, ErrInternalError.Message)
}
