package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/burgas/gymhub/internal/aggregate"
	"github.com/burgas/gymhub/internal/model"
)

// mockLocationService はLocationServiceInterfaceのモック実装。
type mockLocationService struct {
	createFn          func(ctx context.Context, req *model.LocationRequest) (*aggregate.LocationShortResponse, error)
	findByIDFn        func(ctx context.Context, id string) (*aggregate.LocationFullResponse, error)
	findAllFn         func(ctx context.Context) ([]aggregate.LocationFullResponse, error)
	updateFn          func(ctx context.Context, req *model.LocationRequest) (*aggregate.LocationShortResponse, error)
	deleteFn          func(ctx context.Context, id string) error
	addEmployeesFn    func(ctx context.Context, locationID string, employeeIDs []string) error
	removeEmployeesFn func(ctx context.Context, locationID string, employeeIDs []string) error
}

func (m *mockLocationService) Create(ctx context.Context, req *model.LocationRequest) (*aggregate.LocationShortResponse, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil, nil
}

func (m *mockLocationService) FindByID(ctx context.Context, id string) (*aggregate.LocationFullResponse, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockLocationService) FindAll(ctx context.Context) ([]aggregate.LocationFullResponse, error) {
	if m.findAllFn != nil {
		return m.findAllFn(ctx)
	}
	return []aggregate.LocationFullResponse{}, nil
}

func (m *mockLocationService) Update(ctx context.Context, req *model.LocationRequest) (*aggregate.LocationShortResponse, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, req)
	}
	return nil, nil
}

func (m *mockLocationService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockLocationService) AddEmployees(ctx context.Context, locationID string, employeeIDs []string) error {
	if m.addEmployeesFn != nil {
		return m.addEmployeesFn(ctx, locationID, employeeIDs)
	}
	return nil
}

func (m *mockLocationService) RemoveEmployees(ctx context.Context, locationID string, employeeIDs []string) error {
	if m.removeEmployeesFn != nil {
		return m.removeEmployeesFn(ctx, locationID, employeeIDs)
	}
	return nil
}

func TestLocationHandler_Create_Success(t *testing.T) {
	svc := &mockLocationService{
		createFn: func(ctx context.Context, req *model.LocationRequest) (*aggregate.LocationShortResponse, error) {
			if req.GymID == nil || *req.GymID != "77777777-7777-4777-8777-777777777777" {
				t.Errorf("unexpected gym id: %v", req.GymID)
			}
			return &aggregate.LocationShortResponse{ID: "55555555-5555-4555-8555-555555555555"}, nil
		},
	}
	h := NewLocationHandler(svc, testLogger())

	body := `{"gymId":"77777777-7777-4777-8777-777777777777","address":"Lenina 1","open":"08:00","close":"22:00"}`
	r := httptest.NewRequest(http.MethodPost, "/api/v1/locations/create", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestLocationHandler_Create_MissingGymNotFound(t *testing.T) {
	svc := &mockLocationService{
		createFn: func(ctx context.Context, req *model.LocationRequest) (*aggregate.LocationShortResponse, error) {
			return nil, model.NewNotFoundError("gym")
		},
	}
	h := NewLocationHandler(svc, testLogger())

	body := `{"gymId":"missing","address":"Lenina 1","open":"08:00","close":"22:00"}`
	r := httptest.NewRequest(http.MethodPost, "/api/v1/locations/create", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseErrorResponse(t, w); body.Cause != "gym not found" {
		t.Errorf("cause = %q", body.Cause)
	}
}

func TestLocationHandler_GetByID_Success(t *testing.T) {
	svc := &mockLocationService{
		findByIDFn: func(ctx context.Context, id string) (*aggregate.LocationFullResponse, error) {
			return &aggregate.LocationFullResponse{
				Employees: []aggregate.EmployeeWithIdentityResponse{},
			}, nil
		},
	}
	h := NewLocationHandler(svc, testLogger())

	r := httptest.NewRequest(http.MethodGet, "/api/v1/locations/by-id?locationId=55555555-5555-4555-8555-555555555555", nil)
	w := httptest.NewRecorder()

	h.GetByID(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	// 従業員がいない店舗はnullではなく[]で返す
	if !strings.Contains(w.Body.String(), `"employees":[]`) {
		t.Errorf("expected employees:[] in response, got %s", w.Body.String())
	}
}

func TestLocationHandler_GetByID_MalformedID(t *testing.T) {
	svc := &mockLocationService{
		findByIDFn: func(ctx context.Context, id string) (*aggregate.LocationFullResponse, error) {
			t.Fatal("service must not be called with a malformed id")
			return nil, nil
		},
	}
	h := NewLocationHandler(svc, testLogger())

	// UUID形式でないidはリポジトリに渡さず400で拒否する
	r := httptest.NewRequest(http.MethodGet, "/api/v1/locations/by-id?locationId=not-a-uuid", nil)
	w := httptest.NewRecorder()

	h.GetByID(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseErrorResponse(t, w); body.Cause != "locationId must be a valid UUID" {
		t.Errorf("cause = %q", body.Cause)
	}
}

func TestLocationHandler_AddEmployees_PassesAllIDs(t *testing.T) {
	var gotLocation string
	var gotEmployees []string
	svc := &mockLocationService{
		addEmployeesFn: func(ctx context.Context, locationID string, employeeIDs []string) error {
			gotLocation, gotEmployees = locationID, employeeIDs
			return nil
		},
	}
	h := NewLocationHandler(svc, testLogger())

	r := httptest.NewRequest(http.MethodPost, "/api/v1/locations/add-employees?locationId=55555555-5555-4555-8555-555555555555&employeeId=33333333-3333-4333-8333-333333333333&employeeId=88888888-8888-4888-8888-888888888888", nil)
	w := httptest.NewRecorder()

	h.AddEmployees(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotLocation != "55555555-5555-4555-8555-555555555555" || len(gotEmployees) != 2 {
		t.Errorf("called with (%q, %v)", gotLocation, gotEmployees)
	}
}

func TestLocationHandler_RemoveEmployees_MissingEmployeeIDs(t *testing.T) {
	svc := &mockLocationService{
		removeEmployeesFn: func(ctx context.Context, locationID string, employeeIDs []string) error {
			t.Fatal("service must not be called without employee ids")
			return nil
		},
	}
	h := NewLocationHandler(svc, testLogger())

	r := httptest.NewRequest(http.MethodDelete, "/api/v1/locations/remove-employees?locationId=55555555-5555-4555-8555-555555555555", nil)
	w := httptest.NewRecorder()

	h.RemoveEmployees(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
