package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/burgas/gymhub/internal/middleware"
	"github.com/burgas/gymhub/internal/model"
)

// oauthStateCookie はOAuthフローのCSRF対策stateを保持するCookieの名前。
const oauthStateCookie = "oauth_state"

// SecurityServiceInterface はセキュリティハンドラーが必要とするサービスインターフェース。
type SecurityServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// SecurityHandlerConfig はセキュリティハンドラーの設定。
type SecurityHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// SecurityHandler はOAuthログインフローとセッションCookieのHTTPハンドラー。
type SecurityHandler struct {
	service SecurityServiceInterface
	config  SecurityHandlerConfig
	logger  *slog.Logger
}

// NewSecurityHandler はSecurityHandlerを生成する。
func NewSecurityHandler(service SecurityServiceInterface, config SecurityHandlerConfig, logger *slog.Logger) *SecurityHandler {
	return &SecurityHandler{service: service, config: config, logger: logger}
}

// Login はGitHub OAuthフローを開始する。
// GET /api/v1/security/oauth/login
func (h *SecurityHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		h.logger.Error("failed to generate oauth state", slog.String("error", err.Error()))
		writeError(w, h.logger, err)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理し、セッションCookieを発行する。
// GET /api/v1/security/oauth/callback?code=xxx&state=yyy
func (h *SecurityHandler) Callback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		h.logger.Warn("oauth state mismatch", slog.String("query_state", state))
		writeError(w, h.logger, model.NewUnauthenticatedError("invalid state parameter"))
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, h.logger, model.NewValidationError("missing authorization code"))
		return
	}

	session, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback failed", slog.String("error", err.Error()))
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, middleware.SessionCookie(session.ID, h.config.SessionMaxAge, h.config.CookieSecure, h.config.CookieDomain))
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Logout はセッションを破棄し、Cookieをクリアする。
// POST /api/v1/security/oauth/logout
func (h *SecurityHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID := middleware.SessionCookieFromRequest(r); sessionID != "" {
		if err := h.service.Logout(r.Context(), sessionID); err != nil {
			// ログアウト失敗してもCookieはクリアする
			h.logger.Error("failed to logout", slog.String("error", err.Error()))
		}
	}

	http.SetCookie(w, middleware.SessionCookie("", -1, h.config.CookieSecure, h.config.CookieDomain))
	w.WriteHeader(http.StatusOK)
}

// generateState はOAuthフローのstateパラメータを生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
