package utils

import (
	"encoding/json"
	"net/http"

	"github.com/Dhvanitmonpara/interview.ai/internal/logging"
)

// Envelope 统一的 HTTP 响应结构。
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.For("http").WithError(err).Warn("failed to encode response")
	}
}

// RespondSuccess 发送成功响应
func RespondSuccess(w http.ResponseWriter, status int, data any, message string) {
	RespondJSON(w, status, Envelope{Success: true, Data: data, Message: message})
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, Envelope{Success: false, Error: message, Message: http.StatusText(status)})
}
