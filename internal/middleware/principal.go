package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/burgas/gymhub/internal/auth"
	"github.com/burgas/gymhub/internal/model"
)

// contextKey はコンテキスト値の衝突を防ぐための非公開型。
type contextKey string

const (
	principalContextKey contextKey = "principal"

	identityBodyContextKey contextKey = "identityRequestBody"
	employeeBodyContextKey contextKey = "employeeRequestBody"
)

// ErrNoPrincipal はコンテキストにプリンシパルが存在しないことを示す。
var ErrNoPrincipal = errors.New("no principal in context")

// PrincipalFromContext はコンテキストから認証済みプリンシパルを取得する。
func PrincipalFromContext(ctx context.Context) (*auth.Principal, error) {
	principal, ok := ctx.Value(principalContextKey).(*auth.Principal)
	if !ok || principal == nil {
		return nil, ErrNoPrincipal
	}
	return principal, nil
}

// ContextWithPrincipal はプリンシパルをコンテキストに格納する。テスト用に公開。
func ContextWithPrincipal(ctx context.Context, principal *auth.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// Verifier はBasic認証の資格情報を検証する。
type Verifier interface {
	Verify(ctx context.Context, email, password string) (*auth.Principal, error)
	VerifyAdmin(ctx context.Context, email, password string) (*auth.Principal, error)
}

// NewBasicAuthMiddleware はBasic認証ミドルウェアを返す。
// 資格情報を検証し、プリンシパルをコンテキストに注入する。
// 認証失敗時は所有権チェックに進まず、UNAUTHENTICATEDで拒否する。
func NewBasicAuthMiddleware(verifier Verifier, logger *slog.Logger) func(next http.Handler) http.Handler {
	return newCredentialMiddleware(verifier.Verify, logger)
}

// NewAdminAuthMiddleware はADMIN権限を要求するBasic認証ミドルウェアを返す。
func NewAdminAuthMiddleware(verifier Verifier, logger *slog.Logger) func(next http.Handler) http.Handler {
	return newCredentialMiddleware(verifier.VerifyAdmin, logger)
}

func newCredentialMiddleware(
	verify func(ctx context.Context, email, password string) (*auth.Principal, error),
	logger *slog.Logger,
) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, password, ok := r.BasicAuth()
			if !ok {
				WriteError(w, logger, model.NewUnauthenticatedError("basic credentials are required"))
				return
			}

			principal, err := verify(r.Context(), email, password)
			if err != nil {
				WriteError(w, logger, err)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
