package codecov

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// APIError 表示 Codecov 返回了非预期的 HTTP 状态码。
type APIError struct {
	StatusCode int
	Detail     string
	URL        string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("codecov api %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("codecov api %s: status %d: %s", e.URL, e.StatusCode, e.Detail)
}

// Temporary 对 429 与 5xx 返回 true，这些状态会被自动重试。
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// IsUnauthorized reports whether err is a 401/403 response.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// StatusCode 返回 err 链上 APIError 的状态码，不存在时返回 0。
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

const maxDetailLen = 256

// parseDetail 优先读取 {"detail": "..."}，否则截断原始正文。
func parseDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxDetailLen {
		cut := maxDetailLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}
