package middleware

import (
	"context"
	"log/slog"
	"net/http"
)

// sessionCookieName はOAuthセッションIDを保持するCookieの名前。
const sessionCookieName = "session_id"

// SessionValidator はOAuthセッションの有効性を確認する。
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID string) (bool, error)
}

// NewSessionGateMiddleware はOAuthセッションを要求するゲートを返す。
// 有効なセッションCookieがない場合はOAuthログインへリダイレクトする。
// ジムの閲覧系ルートにのみ適用され、Basic認証のプリンシパルとは独立している。
func NewSessionGateMiddleware(validator SessionValidator, loginPath string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, loginPath, http.StatusTemporaryRedirect)
				return
			}

			valid, err := validator.ValidateSession(r.Context(), cookie.Value)
			if err != nil {
				WriteError(w, logger, err)
				return
			}
			if !valid {
				http.Redirect(w, r, loginPath, http.StatusTemporaryRedirect)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SessionCookie はセッションCookieを構築する。発行とログアウトの双方で使う。
func SessionCookie(value string, maxAge int, secure bool, domain string) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SessionCookieFromRequest はリクエストからセッションIDを取り出す。
func SessionCookieFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
