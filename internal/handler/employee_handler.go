package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/burgas/gymhub/internal/aggregate"
	"github.com/burgas/gymhub/internal/middleware"
	"github.com/burgas/gymhub/internal/model"
)

// EmployeeServiceInterface は従業員ハンドラーが必要とするサービスインターフェース。
type EmployeeServiceInterface interface {
	Create(ctx context.Context, req *model.EmployeeRequest) (*aggregate.EmployeeFullResponse, error)
	FindByID(ctx context.Context, id string) (*aggregate.EmployeeFullResponse, error)
	FindByLocation(ctx context.Context, locationID string) ([]aggregate.EmployeeWithIdentityResponse, error)
	Update(ctx context.Context, req *model.EmployeeRequest) (*aggregate.EmployeeFullResponse, error)
	Delete(ctx context.Context, id string) error
	AddLocations(ctx context.Context, employeeID string, locationIDs []string) error
	RemoveLocations(ctx context.Context, employeeID string, locationIDs []string) error
}

// EmployeeHandler は従業員管理のHTTPハンドラー。
type EmployeeHandler struct {
	service EmployeeServiceInterface
	logger  *slog.Logger
}

// NewEmployeeHandler はEmployeeHandlerを生成する。
func NewEmployeeHandler(service EmployeeServiceInterface, logger *slog.Logger) *EmployeeHandler {
	return &EmployeeHandler{service: service, logger: logger}
}

// Create は新規従業員の作成を処理する。
// ボディはガードで検証・所有権確認・ステージ済み。
// POST /api/v1/employees/create
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := middleware.EmployeeBodyFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, model.NewValidationError("request body is missing"))
		return
	}

	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// GetByID は従業員の集約ビューを返す（キャッシュ対象）。
// GET /api/v1/employees/by-id?employeeId=...
func (h *EmployeeHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := requireUUIDParam(r, "employeeId")
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

// GetByLocation は指定店舗に勤務する従業員一覧を返す（キャッシュ非対象）。
// GET /api/v1/employees/by-location?locationId=...
func (h *EmployeeHandler) GetByLocation(w http.ResponseWriter, r *http.Request) {
	locationID, err := requireUUIDParam(r, "locationId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	responses, err := h.service.FindByLocation(r.Context(), locationID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, responses)
}

// Update は従業員の部分更新を処理する。
// PUT /api/v1/employees/update
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := middleware.EmployeeBodyFromContext(r.Context())
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

// Delete は従業員の削除を処理する。
// DELETE /api/v1/employees/delete?employeeId=...
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := requireUUIDParam(r, "employeeId")
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

// AddLocations は従業員を店舗に紐付ける。複数指定は1トランザクションでコミットされる。
// POST /api/v1/employees/add-locations?employeeId=...&locationId=...&locationId=...
func (h *EmployeeHandler) AddLocations(w http.ResponseWriter, r *http.Request) {
	h.changeLocations(w, r, h.service.AddLocations)
}

// RemoveLocations は従業員と店舗の紐付けを解除する。
// DELETE /api/v1/employees/remove-locations?employeeId=...&locationId=...
func (h *EmployeeHandler) RemoveLocations(w http.ResponseWriter, r *http.Request) {
	h.changeLocations(w, r, h.service.RemoveLocations)
}

func (h *EmployeeHandler) changeLocations(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, employeeID string, locationIDs []string) error,
) {
	employeeID, err := requireUUIDParam(r, "employeeId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	locationIDs, err := requireUUIDParams(r, "locationId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := apply(r.Context(), employeeID, locationIDs); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
