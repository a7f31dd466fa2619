package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/burgas/gymhub/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 業務エラーはHTTPステータス・code・descriptionを区別せず、
// causeに元のメッセージだけを載せて返す。
type ErrorResponseBody struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
	Cause       string `json:"cause"`
}

// WriteError はエラーを統一フォーマットでレスポンスに書き込む。
// APIErrorは種別を問わず400 Bad Requestに畳み込み、
// それ以外は詳細をログに残して500を返す。
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponseBody{
			Code:        http.StatusBadRequest,
			Description: http.StatusText(http.StatusBadRequest),
			Cause:       apiErr.Message,
		})
		return
	}

	logger.Error("internal error", slog.String("error", err.Error()))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:        http.StatusInternalServerError,
		Description: http.StatusText(http.StatusInternalServerError),
		Cause:       "internal server error",
	})
}
