package model

import "fmt"

// APIError は呼び出し側起因の業務エラーを表す。
// サービス層・ガード層で発生させ、トップレベルのハンドラーで一括して
// レスポンスに変換する。リトライ対象にはならない。
type APIError struct {
	Code    string // エラー種別コード
	Message string // エラーメッセージ（レスポンスのcauseにそのまま載る）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeUnauthenticated = "UNAUTHENTICATED"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeConflict        = "CONFLICT"
)

// NewValidationError は必須フィールド欠落・不正値エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// NewNotFoundError は対象エンティティが存在しないエラーを生成する。
func NewNotFoundError(entity string) *APIError {
	return &APIError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", entity),
	}
}

// NewUnauthenticatedError は認証情報が欠落・無効なエラーを生成する。
// 所有権チェックはこのエラーの後には行われない。
func NewUnauthenticatedError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeUnauthenticated,
		Message: message,
	}
}

// NewUnauthorizedError は所有権不一致による拒否エラーを生成する。
func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeUnauthorized,
		Message: message,
	}
}

// NewConflictError は無変更更新（同一パスワード再設定等）の拒否エラーを生成する。
func NewConflictError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeConflict,
		Message: message,
	}
}
