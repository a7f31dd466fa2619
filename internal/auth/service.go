// Package auth はBasic認証の検証とOAuthセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/burgas/gymhub/internal/model"
	"github.com/burgas/gymhub/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Login          string
	Email          string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// Principal は認証済みの呼び出し元を表す。
type Principal struct {
	IdentityID string
	Email      string
	Authority  model.Authority
}

// CredentialVerifier はBasic認証のメール・パスワードを検証する。
// パスワードは保存済みのbcryptハッシュと比較し、無効化されたアカウントは拒否する。
type CredentialVerifier struct {
	identities repository.IdentityRepository
	logger     *slog.Logger
}

// NewCredentialVerifier はCredentialVerifierを生成する。
func NewCredentialVerifier(identities repository.IdentityRepository, logger *slog.Logger) *CredentialVerifier {
	return &CredentialVerifier{identities: identities, logger: logger}
}

// Verify はメールとパスワードを検証し、認証済みプリンシパルを返す。
// 失敗理由は呼び出し元に区別させない（全てUNAUTHENTICATED）。
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (*Principal, error) {
	identity, err := v.identities.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, model.NewUnauthenticatedError("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(identity.Password), []byte(password)) != nil {
		return nil, model.NewUnauthenticatedError("invalid credentials")
	}
	if !identity.IsActive {
		return nil, model.NewUnauthenticatedError("account is deactivated")
	}
	return &Principal{
		IdentityID: identity.ID,
		Email:      identity.Email,
		Authority:  identity.Authority,
	}, nil
}

// VerifyAdmin はVerifyに加えてADMIN権限を要求する。
func (v *CredentialVerifier) VerifyAdmin(ctx context.Context, email, password string) (*Principal, error) {
	principal, err := v.Verify(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if principal.Authority != model.AuthorityAdmin {
		return nil, model.NewUnauthenticatedError("admin authority required")
	}
	return principal, nil
}

// ServiceConfig はOAuthセッションサービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service はOAuthログインフローとセッションのライフサイクルを管理する。
// セッションはジム閲覧系ルートのゲートにのみ使われ、
// Basic認証のプリンシパルとは独立している。
type Service struct {
	oauth    OAuthProvider
	sessions repository.SessionRepository
	config   ServiceConfig
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(oauth OAuthProvider, sessions repository.SessionRepository, config ServiceConfig, logger *slog.Logger) *Service {
	return &Service{
		oauth:    oauth,
		sessions: sessions,
		config:   config,
		logger:   logger,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		Login:     userInfo.Login,
		Email:     userInfo.Email,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("oauth session created", slog.String("login", userInfo.Login))
	return session, nil
}

// ValidateSession はセッションIDの有効性を確認する。
// 存在しない・期限切れのセッションはfalseを返す。
func (s *Service) ValidateSession(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return session != nil, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.logger.Info("session revoked", slog.String("session_id", sessionID))
	return nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
