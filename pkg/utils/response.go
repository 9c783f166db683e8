package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/zhouzirui/mindmate/backend/internal/apperr"
)

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// StatusFor 按错误分类映射HTTP状态码
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindCapability:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondAppError 发送分类错误。校验与鉴权错误把原因返回给调用方，其余只给概要。
func RespondAppError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	message := http.StatusText(status)

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case apperr.KindValidation, apperr.KindAuthorization:
			if appErr.Err != nil {
				message = appErr.Err.Error()
			}
		case apperr.KindCapability:
			message = "AI service unavailable"
		case apperr.KindNotFound:
			message = "not found"
		}
	}
	RespondError(w, status, message)
}

// DecodeJSON 解析请求体，失败时返回校验错误。
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("decode request", "invalid request body")
	}
	return nil
}
