package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/burgas/gymhub/internal/aggregate"
	"github.com/burgas/gymhub/internal/model"
)

// LocationServiceInterface は店舗ハンドラーが必要とするサービスインターフェース。
type LocationServiceInterface interface {
	Create(ctx context.Context, req *model.LocationRequest) (*aggregate.LocationShortResponse, error)
	FindByID(ctx context.Context, id string) (*aggregate.LocationFullResponse, error)
	FindAll(ctx context.Context) ([]aggregate.LocationFullResponse, error)
	Update(ctx context.Context, req *model.LocationRequest) (*aggregate.LocationShortResponse, error)
	Delete(ctx context.Context, id string) error
	AddEmployees(ctx context.Context, locationID string, employeeIDs []string) error
	RemoveEmployees(ctx context.Context, locationID string, employeeIDs []string) error
}

// LocationHandler は店舗管理のHTTPハンドラー。
type LocationHandler struct {
	service LocationServiceInterface
	logger  *slog.Logger
}

// NewLocationHandler はLocationHandlerを生成する。
func NewLocationHandler(service LocationServiceInterface, logger *slog.Logger) *LocationHandler {
	return &LocationHandler{service: service, logger: logger}
}

// Create は新規店舗の作成を処理する。参照先ジムが無ければNOT_FOUND。
// POST /api/v1/locations/create
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.LocationRequest
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

// GetByID は店舗の集約ビューを返す（キャッシュ対象）。
// GET /api/v1/locations/by-id?locationId=...
func (h *LocationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := requireUUIDParam(r, "locationId")
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

// List は全店舗の集約ビュー一覧を返す（キャッシュ非対象）。
// GET /api/v1/locations
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	responses, err := h.service.FindAll(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, responses)
}

// Update は店舗の部分更新を処理する。
// PUT /api/v1/locations/update
func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.LocationRequest
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

// Delete は店舗の削除を処理する。
// DELETE /api/v1/locations/delete?locationId=...
func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := requireUUIDParam(r, "locationId")
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

// AddEmployees は店舗に従業員を紐付ける。複数指定は1トランザクションでコミットされる。
// POST /api/v1/locations/add-employees?locationId=...&employeeId=...&employeeId=...
func (h *LocationHandler) AddEmployees(w http.ResponseWriter, r *http.Request) {
	h.changeEmployees(w, r, h.service.AddEmployees)
}

// RemoveEmployees は店舗と従業員の紐付けを解除する。
// DELETE /api/v1/locations/remove-employees?locationId=...&employeeId=...
func (h *LocationHandler) RemoveEmployees(w http.ResponseWriter, r *http.Request) {
	h.changeEmployees(w, r, h.service.RemoveEmployees)
}

func (h *LocationHandler) changeEmployees(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, locationID string, employeeIDs []string) error,
) {
	locationID, err := requireUUIDParam(r, "locationId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	employeeIDs, err := requireUUIDParams(r, "employeeId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := apply(r.Context(), locationID, employeeIDs); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
