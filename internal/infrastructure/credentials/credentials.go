// Package credentials 將環境變數中的服務帳戶 JSON 寫成暫存檔，供 Google 用戶端讀取
package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Materialize 將憑證內容寫入 dir 下的 name 檔案並回傳路徑
// content 為空時回傳空字串，由用戶端改用預設憑證
func Materialize(content, dir, name string) (string, error) {
	if content == "" {
		return "", nil
	}
	if !json.Valid([]byte(content)) {
		return "", fmt.Errorf("credentials %s is not valid JSON", name)
	}
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create credentials dir: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("failed to write credentials %s: %w", name, err)
	}
	return path, nil
}

// ProjectID 從服務帳戶 JSON 取出 project_id
func ProjectID(content string) string {
	if content == "" {
		return ""
	}
	var key struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal([]byte(content), &key); err != nil {
		return ""
	}
	return key.ProjectID
}
