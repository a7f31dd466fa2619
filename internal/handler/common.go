// Package handler はHTTPリクエストの受け口を提供する。
// ボディの解析とクエリパラメータの取り出しだけを担い、
// 業務ロジックはサービス層に委譲する。
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/burgas/gymhub/internal/middleware"
	"github.com/burgas/gymhub/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// decodeBody はリクエストボディをJSONとして解析する。
// 解析失敗はVALIDATION_ERRORとして呼び出し元起因のエラーに変換する。
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.NewValidationError("malformed request body")
	}
	return nil
}

// requireUUIDParam はid系クエリパラメータの値を取り出す。
// 欠落・UUID形式でない値はVALIDATION_ERROR。
// 形式をここで弾くことで、不正なidがドライバエラーとして漏れるのを防ぐ。
func requireUUIDParam(r *http.Request, name string) (string, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return "", model.NewValidationError(name + " query parameter is required")
	}
	if _, err := uuid.Parse(value); err != nil {
		return "", model.NewValidationError(name + " must be a valid UUID")
	}
	return value, nil
}

// requireUUIDParams は同名のid系クエリパラメータの値を全て取り出す。
// ひとつも無い場合、またはUUID形式でない値が含まれる場合はVALIDATION_ERROR。
func requireUUIDParams(r *http.Request, name string) ([]string, error) {
	values := r.URL.Query()[name]
	if len(values) == 0 {
		return nil, model.NewValidationError(name + " query parameter is required")
	}
	for _, value := range values {
		if _, err := uuid.Parse(value); err != nil {
			return nil, model.NewValidationError(name + " must be a valid UUID")
		}
	}
	return values, nil
}

// writeError は統一フォーマットでエラーレスポンスを書き込む。
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	middleware.WriteError(w, logger, err)
}
