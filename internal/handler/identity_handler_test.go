package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/burgas/gymhub/internal/aggregate"
	"github.com/burgas/gymhub/internal/middleware"
	"github.com/burgas/gymhub/internal/model"
)

// --- モック定義 ---

// mockIdentityService はIdentityServiceInterfaceのモック実装。
type mockIdentityService struct {
	createFn         func(ctx context.Context, req *model.IdentityRequest) (*aggregate.IdentityShortResponse, error)
	findByIDFn       func(ctx context.Context, id string) (*aggregate.IdentityFullResponse, error)
	findAllFn        func(ctx context.Context) ([]aggregate.IdentityShortResponse, error)
	updateFn         func(ctx context.Context, req *model.IdentityRequest) (*aggregate.IdentityShortResponse, error)
	changePasswordFn func(ctx context.Context, id, newPassword string) error
	changeStatusFn   func(ctx context.Context, id string, isActive bool) error
	deleteFn         func(ctx context.Context, id string) error
}

func (m *mockIdentityService) Create(ctx context.Context, req *model.IdentityRequest) (*aggregate.IdentityShortResponse, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil, nil
}

func (m *mockIdentityService) FindByID(ctx context.Context, id string) (*aggregate.IdentityFullResponse, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockIdentityService) FindAll(ctx context.Context) ([]aggregate.IdentityShortResponse, error) {
	if m.findAllFn != nil {
		return m.findAllFn(ctx)
	}
	return nil, nil
}

func (m *mockIdentityService) Update(ctx context.Context, req *model.IdentityRequest) (*aggregate.IdentityShortResponse, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, req)
	}
	return nil, nil
}

func (m *mockIdentityService) ChangePassword(ctx context.Context, id, newPassword string) error {
	if m.changePasswordFn != nil {
		return m.changePasswordFn(ctx, id, newPassword)
	}
	return nil
}

func (m *mockIdentityService) ChangeStatus(ctx context.Context, id string, isActive bool) error {
	if m.changeStatusFn != nil {
		return m.changeStatusFn(ctx, id, isActive)
	}
	return nil
}

func (m *mockIdentityService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- テストヘルパー ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// withIdentityBody はテスト用にステージ済みのボディをコンテキストへ注入するヘルパー。
func withIdentityBody(r *http.Request, req *model.IdentityRequest) *http.Request {
	return r.WithContext(middleware.ContextWithIdentityBody(r.Context(), req))
}

// withEmployeeBody はテスト用にステージ済みのボディをコンテキストへ注入するヘルパー。
func withEmployeeBody(r *http.Request, req *model.EmployeeRequest) *http.Request {
	return r.WithContext(middleware.ContextWithEmployeeBody(r.Context(), req))
}

// parseErrorResponse はレスポンスボディから統一エラーフォーマットをパースするヘルパー。
func parseErrorResponse(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

func strPtr(s string) *string { return &s }

// --- POST /api/v1/identities/create テスト ---

func TestIdentityHandler_Create_Success(t *testing.T) {
	svc := &mockIdentityService{
		createFn: func(ctx context.Context, req *model.IdentityRequest) (*aggregate.IdentityShortResponse, error) {
			if req.Email == nil || *req.Email != "ivan@example.com" {
				t.Errorf("unexpected email in request: %v", req.Email)
			}
			return &aggregate.IdentityShortResponse{ID: "11111111-1111-4111-8111-111111111111", Email: "ivan@example.com", IsActive: true}, nil
		},
	}
	h := NewIdentityHandler(svc, testLogger())

	body := `{"authority":"USER","email":"ivan@example.com","password":"secret","firstname":"Ivan","lastname":"Petrov","patronymic":"Sergeevich"}`
	r := httptest.NewRequest(http.MethodPost, "/api/v1/identities/create", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	var resp aggregate.IdentityShortResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "11111111-1111-4111-8111-111111111111" {
		t.Errorf("id = %q, want 11111111-1111-4111-8111-111111111111", resp.ID)
	}
}

func TestIdentityHandler_Create_MalformedBody(t *testing.T) {
	h := NewIdentityHandler(&mockIdentityService{}, testLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/v1/identities/create", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()

	h.Create(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseErrorResponse(t, w); body.Cause != "malformed request body" {
		t.Errorf("cause = %q", body.Cause)
	}
}

func TestIdentityHandler_Create_ServiceErrorIsFlattened(t *testing.T) {
	svc := &mockIdentityService{
		createFn: func(ctx context.Context, req *model.IdentityRequest) (*aggregate.IdentityShortResponse, error) {
			return nil, model.NewConflictError("identity with this email already exists")
		},
	}
	h := NewIdentityHandler(svc, testLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/v1/identities/create", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	h.Create(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := parseErrorResponse(t, w)
	if body.Code != http.StatusBadRequest || body.Cause != "identity with this email already exists" {
		t.Errorf("unexpected error body: %+v", body)
	}
}

// --- GET /api/v1/identities/by-id テスト ---

func TestIdentityHandler_GetByID_Success(t *testing.T) {
	svc := &mockIdentityService{
		findByIDFn: func(ctx context.Context, id string) (*aggregate.IdentityFullResponse, error) {
			if id != "11111111-1111-4111-8111-111111111111" {
				t.Errorf("id = %q, want 11111111-1111-4111-8111-111111111111", id)
			}
			return &aggregate.IdentityFullResponse{
				IdentityShortResponse: aggregate.IdentityShortResponse{ID: "11111111-1111-4111-8111-111111111111"},
			}, nil
		},
	}
	h := NewIdentityHandler(svc, testLogger())

	r := httptest.NewRequest(http.MethodGet, "/api/v1/identities/by-id?identityId=11111111-1111-4111-8111-111111111111", nil)
	w := httptest.NewRecorder()

	h.GetByID(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	// 従業員を持たない場合employeeはnullでシリアライズされる
	if !strings.Contains(w.Body.String(), `"employee":null`) {
		t.Errorf("expected employee:null in response, got %s", w.Body.String())
	}
}

func TestIdentityHandler_GetByID_MissingParam(t *testing.T) {
	h := NewIdentityHandler(&mockIdentityService{}, testLogger())

	r := httptest.NewRequest(http.MethodGet, "/api/v1/identities/by-id", nil)
	w := httptest.NewRecorder()

	h.GetByID(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- PUT /api/v1/identities/update テスト ---

func TestIdentityHandler_Update_UsesStagedBody(t *testing.T) {
	svc := &mockIdentityService{
		updateFn: func(ctx context.Context, req *model.IdentityRequest) (*aggregate.IdentityShortResponse, error) {
			if req.ID == nil || *req.ID != "11111111-1111-4111-8111-111111111111" {
				t.Errorf("unexpected staged id: %v", req.ID)
			}
			return &aggregate.IdentityShortResponse{ID: "11111111-1111-4111-8111-111111111111"}, nil
		},
	}
	h := NewIdentityHandler(svc, testLogger())

	r := httptest.NewRequest(http.MethodPut, "/api/v1/identities/update", nil)
	r = withIdentityBody(r, &model.IdentityRequest{ID: strPtr("11111111-1111-4111-8111-111111111111"), Firstname: strPtr("Pyotr")})
	w := httptest.NewRecorder()

	h.Update(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestIdentityHandler_Update_MissingStagedBody(t *testing.T) {
	h := NewIdentityHandler(&mockIdentityService{}, testLogger())

	r := httptest.NewRequest(http.MethodPut, "/api/v1/identities/update", nil)
	w := httptest.NewRecorder()

	h.Update(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- PUT /api/v1/identities/change-password テスト ---

func TestIdentityHandler_ChangePassword_Success(t *testing.T) {
	var gotID, gotPassword string
	svc := &mockIdentityService{
		changePasswordFn: func(ctx context.Context, id, newPassword string) error {
			gotID, gotPassword = id, newPassword
			return nil
		},
	}
	h := NewIdentityHandler(svc, testLogger())

	r := httptest.NewRequest(http.MethodPut, "/api/v1/identities/change-password", nil)
	r = withIdentityBody(r, &model.IdentityRequest{ID: strPtr("11111111-1111-4111-8111-111111111111"), Password: strPtr("new-secret")})
	w := httptest.NewRecorder()

	h.ChangePassword(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotID != "11111111-1111-4111-8111-111111111111" || gotPassword != "new-secret" {
		t.Errorf("service called with (%q, %q)", gotID, gotPassword)
	}
}

func TestIdentityHandler_ChangePassword_MissingPassword(t *testing.T) {
	svc := &mockIdentityService{
		changePasswordFn: func(ctx context.Context, id, newPassword string) error {
			t.Fatal("service must not be called without a password")
			return nil
		},
	}
	h := NewIdentityHandler(svc, testLogger())

	r := httptest.NewRequest(http.MethodPut, "/api/v1/identities/change-password", nil)
	r = withIdentityBody(r, &model.IdentityRequest{ID: strPtr("11111111-1111-4111-8111-111111111111")})
	w := httptest.NewRecorder()

	h.ChangePassword(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- PUT /api/v1/identities/change-status テスト ---

func TestIdentityHandler_ChangeStatus_Success(t *testing.T) {
	var gotID string
	var gotActive bool
	svc := &mockIdentityService{
		changeStatusFn: func(ctx context.Context, id string, isActive bool) error {
			gotID, gotActive = id, isActive
			return nil
		},
	}
	h := NewIdentityHandler(svc, testLogger())

	r := httptest.NewRequest(http.MethodPut, "/api/v1/identities/change-status", strings.NewReader(`{"id":"11111111-1111-4111-8111-111111111111","isActive":false}`))
	w := httptest.NewRecorder()

	h.ChangeStatus(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotID != "11111111-1111-4111-8111-111111111111" || gotActive != false {
		t.Errorf("service called with (%q, %t)", gotID, gotActive)
	}
}

func TestIdentityHandler_ChangeStatus_MissingIsActive(t *testing.T) {
	h := NewIdentityHandler(&mockIdentityService{}, testLogger())

	r := httptest.NewRequest(http.MethodPut, "/api/v1/identities/change-status", strings.NewReader(`{"id":"11111111-1111-4111-8111-111111111111"}`))
	w := httptest.NewRecorder()

	h.ChangeStatus(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseErrorResponse(t, w); body.Cause != "isActive is required" {
		t.Errorf("cause = %q", body.Cause)
	}
}

// --- DELETE /api/v1/identities/delete テスト ---

func TestIdentityHandler_Delete_Success(t *testing.T) {
	var gotID string
	svc := &mockIdentityService{
		deleteFn: func(ctx context.Context, id string) error {
			gotID = id
			return nil
		},
	}
	h := NewIdentityHandler(svc, testLogger())

	r := httptest.NewRequest(http.MethodDelete, "/api/v1/identities/delete?identityId=11111111-1111-4111-8111-111111111111", nil)
	w := httptest.NewRecorder()

	h.Delete(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotID != "11111111-1111-4111-8111-111111111111" {
		t.Errorf("deleted id = %q, want 11111111-1111-4111-8111-111111111111", gotID)
	}
}

func TestIdentityHandler_Delete_NotFound(t *testing.T) {
	svc := &mockIdentityService{
		deleteFn: func(ctx context.Context, id string) error {
			return model.NewNotFoundError("identity")
		},
	}
	h := NewIdentityHandler(svc, testLogger())

	r := httptest.NewRequest(http.MethodDelete, "/api/v1/identities/delete?identityId=99999999-9999-4999-8999-999999999999", nil)
	w := httptest.NewRecorder()

	h.Delete(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseErrorResponse(t, w); body.Cause != "identity not found" {
		t.Errorf("cause = %q", body.Cause)
	}
}
