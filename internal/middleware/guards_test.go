package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/burgas/gymhub/internal/auth"
	"github.com/burgas/gymhub/internal/model"
	"github.com/burgas/gymhub/internal/repository"
)

// mockEmployeeRepo はFindIDByIdentityEmailだけを差し替えるモック。
type mockEmployeeRepo struct {
	repository.EmployeeRepository
	findIDByEmailFunc func(ctx context.Context, email string) (string, error)
}

func (m *mockEmployeeRepo) FindIDByIdentityEmail(ctx context.Context, email string) (string, error) {
	return m.findIDByEmailFunc(ctx, email)
}

// mockLocationRepo はExistsMembershipだけを差し替えるモック。
type mockLocationRepo struct {
	repository.LocationRepository
	existsMembershipFunc func(ctx context.Context, locationID, email string) (bool, error)
}

func (m *mockLocationRepo) ExistsMembership(ctx context.Context, locationID, email string) (bool, error) {
	return m.existsMembershipFunc(ctx, locationID, email)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func userPrincipal() *auth.Principal {
	return &auth.Principal{IdentityID: "11111111-1111-4111-8111-111111111111", Email: "ivan@example.com", Authority: model.AuthorityUser}
}

func adminPrincipal() *auth.Principal {
	return &auth.Principal{IdentityID: "admin-1", Email: "admin@example.com", Authority: model.AuthorityAdmin}
}

// requestWithPrincipal はプリンシパル注入済みのリクエストを作る。
func requestWithPrincipal(method, target string, body string, principal *auth.Principal) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	if principal != nil {
		r = r.WithContext(ContextWithPrincipal(r.Context(), principal))
	}
	return r
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestSelfEmployeeGuardAllowsOwner(t *testing.T) {
	employees := &mockEmployeeRepo{
		findIDByEmailFunc: func(ctx context.Context, email string) (string, error) {
			return "33333333-3333-4333-8333-333333333333", nil
		},
	}
	var called bool
	guard := NewSelfEmployeeGuard(employees, testLogger())(okHandler(&called))

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, requestWithPrincipal(http.MethodGet, "/api/v1/employees/by-id?employeeId=33333333-3333-4333-8333-333333333333", "", userPrincipal()))

	if !called {
		t.Error("owner must pass the guard")
	}
}

func TestSelfEmployeeGuardDeniesMismatch(t *testing.T) {
	employees := &mockEmployeeRepo{
		findIDByEmailFunc: func(ctx context.Context, email string) (string, error) {
			return "33333333-3333-4333-8333-333333333333", nil
		},
	}
	var called bool
	guard := NewSelfEmployeeGuard(employees, testLogger())(okHandler(&called))

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, requestWithPrincipal(http.MethodPut, "/api/v1/employees/update?employeeId=88888888-8888-4888-8888-888888888888", "", userPrincipal()))

	if called {
		t.Error("mismatched employee id must be denied before the handler runs")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected flattened 400, got %d", rec.Code)
	}
	body := decodeErrorBody(t, rec)
	if !strings.Contains(body.Cause, "does not own") {
		t.Errorf("unexpected cause %q", body.Cause)
	}
}

func TestSelfEmployeeGuardDeniesWithoutEmployee(t *testing.T) {
	employees := &mockEmployeeRepo{
		findIDByEmailFunc: func(ctx context.Context, email string) (string, error) {
			return "", nil
		},
	}
	var called bool
	guard := NewSelfEmployeeGuard(employees, testLogger())(okHandler(&called))

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, requestWithPrincipal(http.MethodGet, "/api/v1/employees/by-id?employeeId=33333333-3333-4333-8333-333333333333", "", userPrincipal()))

	if called {
		t.Error("identity without an employee must be denied")
	}
}

func TestEmployeeBodyGuardValidationBeforeOwnership(t *testing.T) {
	var called bool
	guard := NewEmployeeBodyGuard(true, testLogger())(okHandler(&called))

	// identityIdは他人のものだが、必須フィールドの欠落が先に検出される
	body := `{"identityId":"someone-else"}`
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, requestWithPrincipal(http.MethodPost, "/api/v1/employees/create", body, userPrincipal()))

	if called {
		t.Error("invalid body must be rejected before the ownership check")
	}
	errBody := decodeErrorBody(t, rec)
	if !strings.Contains(errBody.Cause, "position is required") {
		t.Errorf("expected validation cause, got %q", errBody.Cause)
	}
}

func TestEmployeeBodyGuardDeniesForeignIdentity(t *testing.T) {
	var called bool
	guard := NewEmployeeBodyGuard(true, testLogger())(okHandler(&called))

	body := `{"identityId":"someone-else","position":"MANAGER","birthday":"1990-03-15","address":"Sofia"}`
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, requestWithPrincipal(http.MethodPost, "/api/v1/employees/create", body, userPrincipal()))

	if called {
		t.Error("foreign identity reference must be denied")
	}
}

func TestEmployeeBodyGuardStagesValidatedBody(t *testing.T) {
	var staged *model.EmployeeRequest
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		staged, _ = EmployeeBodyFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	guard := NewEmployeeBodyGuard(true, testLogger())(handler)

	body := `{"identityId":"11111111-1111-4111-8111-111111111111","position":"MANAGER","birthday":"1990-03-15","address":"Sofia"}`
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, requestWithPrincipal(http.MethodPost, "/api/v1/employees/create", body, userPrincipal()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected guarded request to pass, got %d", rec.Code)
	}
	if staged == nil || *staged.IdentityID != "11111111-1111-4111-8111-111111111111" || *staged.Position != model.PositionManager {
		t.Errorf("expected validated body to be staged, got %+v", staged)
	}
}

func TestIdentityBodyGuardStagesBody(t *testing.T) {
	var staged *model.IdentityRequest
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		staged, _ = IdentityBodyFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	guard := NewIdentityBodyGuard(testLogger())(handler)

	body := `{"id":"11111111-1111-4111-8111-111111111111","lastname":"Ivanov"}`
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, requestWithPrincipal(http.MethodPut, "/api/v1/identities/update", body, userPrincipal()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected guarded request to pass, got %d", rec.Code)
	}
	if staged == nil || *staged.Lastname != "Ivanov" {
		t.Errorf("expected staged body, got %+v", staged)
	}
}

func TestIdentityBodyGuardDeniesForeignTarget(t *testing.T) {
	var called bool
	guard := NewIdentityBodyGuard(testLogger())(okHandler(&called))

	body := `{"id":"someone-else"}`
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, requestWithPrincipal(http.MethodPut, "/api/v1/identities/update", body, userPrincipal()))

	if called {
		t.Error("update of a foreign identity must be denied")
	}
}

func TestIdentitySelfGuardAdminBypass(t *testing.T) {
	var called bool
	guard := NewIdentitySelfGuard(true, testLogger())(okHandler(&called))

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, requestWithPrincipal(http.MethodGet, "/api/v1/identities/by-id?identityId=11111111-1111-4111-8111-111111111111", "", adminPrincipal()))

	if !called {
		t.Error("admin must bypass the self check on reads")
	}
}

func TestIdentitySelfGuardNoAdminBypassOnMutations(t *testing.T) {
	var called bool
	guard := NewIdentitySelfGuard(false, testLogger())(okHandler(&called))

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, requestWithPrincipal(http.MethodDelete, "/api/v1/identities/delete?identityId=11111111-1111-4111-8111-111111111111", "", adminPrincipal()))

	if called {
		t.Error("admin must not bypass the self check on mutations")
	}
}

func TestIdentitySelfGuardAllowsSelf(t *testing.T) {
	var called bool
	guard := NewIdentitySelfGuard(false, testLogger())(okHandler(&called))

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, requestWithPrincipal(http.MethodDelete, "/api/v1/identities/delete?identityId=11111111-1111-4111-8111-111111111111", "", userPrincipal()))

	if !called {
		t.Error("self target must pass the guard")
	}
}

func TestLocationMembershipGuard(t *testing.T) {
	locations := &mockLocationRepo{
		existsMembershipFunc: func(ctx context.Context, locationID, email string) (bool, error) {
			return locationID == "55555555-5555-4555-8555-555555555555" && email == "ivan@example.com", nil
		},
	}
	guard := NewLocationMembershipGuard(locations, testLogger())

	var called bool
	rec := httptest.NewRecorder()
	guard(okHandler(&called)).ServeHTTP(rec,
		requestWithPrincipal(http.MethodGet, "/api/v1/employees/by-location?locationId=55555555-5555-4555-8555-555555555555", "", userPrincipal()))
	if !called {
		t.Error("linked member must pass the guard")
	}

	called = false
	rec = httptest.NewRecorder()
	guard(okHandler(&called)).ServeHTTP(rec,
		requestWithPrincipal(http.MethodGet, "/api/v1/employees/by-location?locationId=66666666-6666-4666-8666-666666666666", "", userPrincipal()))
	if called {
		t.Error("non-member must be denied")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected flattened 400, got %d", rec.Code)
	}
}

func TestLocationMembershipGuard_MalformedLocationID(t *testing.T) {
	locations := &mockLocationRepo{
		existsMembershipFunc: func(ctx context.Context, locationID, email string) (bool, error) {
			t.Fatal("repository must not be queried with a malformed id")
			return false, nil
		},
	}
	guard := NewLocationMembershipGuard(locations, testLogger())

	var called bool
	rec := httptest.NewRecorder()
	guard(okHandler(&called)).ServeHTTP(rec,
		requestWithPrincipal(http.MethodGet, "/api/v1/employees/by-location?locationId=not-a-uuid", "", userPrincipal()))
	if called {
		t.Error("malformed id must be denied")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected flattened 400, got %d", rec.Code)
	}
}

func TestGuardsRequirePrincipal(t *testing.T) {
	var called bool
	guard := NewIdentitySelfGuard(false, testLogger())(okHandler(&called))

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, requestWithPrincipal(http.MethodDelete, "/api/v1/identities/delete?identityId=11111111-1111-4111-8111-111111111111", "", nil))

	if called {
		t.Error("unauthenticated request must not reach the handler")
	}
	body := decodeErrorBody(t, rec)
	if !strings.Contains(body.Cause, "authentication") {
		t.Errorf("unexpected cause %q", body.Cause)
	}
}
