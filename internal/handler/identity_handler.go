package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/burgas/gymhub/internal/aggregate"
	"github.com/burgas/gymhub/internal/middleware"
	"github.com/burgas/gymhub/internal/model"
)

// IdentityServiceInterface はアイデンティティハンドラーが必要とするサービスインターフェース。
type IdentityServiceInterface interface {
	Create(ctx context.Context, req *model.IdentityRequest) (*aggregate.IdentityShortResponse, error)
	FindByID(ctx context.Context, id string) (*aggregate.IdentityFullResponse, error)
	FindAll(ctx context.Context) ([]aggregate.IdentityShortResponse, error)
	Update(ctx context.Context, req *model.IdentityRequest) (*aggregate.IdentityShortResponse, error)
	ChangePassword(ctx context.Context, id, newPassword string) error
	ChangeStatus(ctx context.Context, id string, isActive bool) error
	Delete(ctx context.Context, id string) error
}

// IdentityHandler はアイデンティティ管理のHTTPハンドラー。
type IdentityHandler struct {
	service IdentityServiceInterface
	logger  *slog.Logger
}

// NewIdentityHandler はIdentityHandlerを生成する。
func NewIdentityHandler(service IdentityServiceInterface, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{service: service, logger: logger}
}

// changeStatusRequest はアカウント有効・無効切り替えリクエストのボディ。
type changeStatusRequest struct {
	ID       string `json:"id"`
	IsActive *bool  `json:"isActive"`
}

// Create は新規アイデンティティの作成を処理する。認証不要の唯一の変更系ルート。
// POST /api/v1/identities/create
func (h *IdentityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.IdentityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	created, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// GetByID はアイデンティティの集約ビューを返す（キャッシュ対象）。
// GET /api/v1/identities/by-id?identityId=...
func (h *IdentityHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := requireUUIDParam(r, "identityId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// List は全アイデンティティの短縮ビュー一覧を返す（管理者専用、キャッシュ非対象）。
// GET /api/v1/identities
func (h *IdentityHandler) List(w http.ResponseWriter, r *http.Request) {
	responses, err := h.service.FindAll(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, responses)
}

// Update はアイデンティティの部分更新を処理する。
// ボディはガードで検証・ステージ済み。
// PUT /api/v1/identities/update
func (h *IdentityHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := middleware.IdentityBodyFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, model.NewValidationError("request body is missing"))
		return
	}

	updated, err := h.service.Update(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// ChangePassword はパスワード変更を処理する。既存と同一の場合はCONFLICT。
// PUT /api/v1/identities/change-password
func (h *IdentityHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	req, ok := middleware.IdentityBodyFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, model.NewValidationError("request body is missing"))
		return
	}
	if req.Password == nil || *req.Password == "" {
		writeError(w, h.logger, model.NewValidationError("password is required"))
		return
	}

	if err := h.service.ChangePassword(r.Context(), *req.ID, *req.Password); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ChangeStatus はアカウントの有効・無効を切り替える（管理者専用）。
// 変更が無い場合はCONFLICT。
// PUT /api/v1/identities/change-status
func (h *IdentityHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req changeStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.ID == "" {
		writeError(w, h.logger, model.NewValidationError("identity id is required"))
		return
	}
	if req.IsActive == nil {
		writeError(w, h.logger, model.NewValidationError("isActive is required"))
		return
	}

	if err := h.service.ChangeStatus(r.Context(), req.ID, *req.IsActive); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Delete はアイデンティティの削除を処理する。
// DELETE /api/v1/identities/delete?identityId=...
func (h *IdentityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := requireUUIDParam(r, "identityId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
