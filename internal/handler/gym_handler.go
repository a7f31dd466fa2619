package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/burgas/gymhub/internal/aggregate"
	"github.com/burgas/gymhub/internal/model"
)

// GymServiceInterface はジムハンドラーが必要とするサービスインターフェース。
type GymServiceInterface interface {
	Create(ctx context.Context, req *model.GymRequest) (*aggregate.GymShortResponse, error)
	FindByID(ctx context.Context, id string) (*aggregate.GymFullResponse, error)
	FindAll(ctx context.Context) ([]aggregate.GymShortResponse, error)
	Update(ctx context.Context, req *model.GymRequest) (*aggregate.GymShortResponse, error)
	Delete(ctx context.Context, id string) error
}

// GymHandler はジム管理のHTTPハンドラー。
type GymHandler struct {
	service GymServiceInterface
	logger  *slog.Logger
}

// NewGymHandler はGymHandlerを生成する。
func NewGymHandler(service GymServiceInterface, logger *slog.Logger) *GymHandler {
	return &GymHandler{service: service, logger: logger}
}

// Create は新規ジムの作成を処理する。名前の重複はCONFLICT。
// POST /api/v1/gyms/create
func (h *GymHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.GymRequest
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

// GetByID はジムの集約ビューを返す。全店舗を含むためキャッシュ非対象。
// GET /api/v1/gyms/by-id?gymId=...
func (h *GymHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := requireUUIDParam(r, "gymId")
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

// List は全ジムの短縮ビュー一覧を返す。
// GET /api/v1/gyms
func (h *GymHandler) List(w http.ResponseWriter, r *http.Request) {
	responses, err := h.service.FindAll(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, responses)
}

// Update はジムの部分更新を処理する。
// PUT /api/v1/gyms/update
func (h *GymHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.GymRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	updated, err := h.service.Update(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete はジムの削除を処理する。店舗・紐付けへカスケードする。
// DELETE /api/v1/gyms/delete?gymId=...
func (h *GymHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := requireUUIDParam(r, "gymId")
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
