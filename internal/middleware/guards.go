package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/burgas/gymhub/internal/model"
	"github.com/burgas/gymhub/internal/repository"
)

// 所有権ガード。認証ミドルウェアの後段に置かれ、プリンシパルが
// 対象リソースを所有しているときだけハンドラーへ通す。
// 不一致はUNAUTHORIZED、ボディ検証の失敗は所有権チェックより先に拒否する。

// IdentityBodyFromContext はガードが検証・ステージ済みのIdentityRequestを取得する。
func IdentityBodyFromContext(ctx context.Context) (*model.IdentityRequest, bool) {
	req, ok := ctx.Value(identityBodyContextKey).(*model.IdentityRequest)
	return req, ok
}

// EmployeeBodyFromContext はガードが検証・ステージ済みのEmployeeRequestを取得する。
func EmployeeBodyFromContext(ctx context.Context) (*model.EmployeeRequest, bool) {
	req, ok := ctx.Value(employeeBodyContextKey).(*model.EmployeeRequest)
	return req, ok
}

// ContextWithIdentityBody は検証済みボディをコンテキストに格納する。テスト用に公開。
func ContextWithIdentityBody(ctx context.Context, req *model.IdentityRequest) context.Context {
	return context.WithValue(ctx, identityBodyContextKey, req)
}

// ContextWithEmployeeBody は検証済みボディをコンテキストに格納する。テスト用に公開。
func ContextWithEmployeeBody(ctx context.Context, req *model.EmployeeRequest) context.Context {
	return context.WithValue(ctx, employeeBodyContextKey, req)
}

// NewSelfEmployeeGuard は従業員の自己リソースガードを返す。
// 呼び出し元のメールアドレスから従業員idを解決し、
// employeeIdクエリパラメータと一致する場合のみ通す。
func NewSelfEmployeeGuard(employees repository.EmployeeRepository, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := PrincipalFromContext(r.Context())
			if err != nil {
				WriteError(w, logger, model.NewUnauthenticatedError("authentication is required"))
				return
			}

			targetID := r.URL.Query().Get("employeeId")
			if targetID == "" {
				WriteError(w, logger, model.NewValidationError("employeeId query parameter is required"))
				return
			}

			ownID, err := employees.FindIDByIdentityEmail(r.Context(), principal.Email)
			if err != nil {
				WriteError(w, logger, err)
				return
			}
			if ownID == "" || ownID != targetID {
				logger.Warn("ownership check failed",
					slog.String("identity_id", principal.IdentityID),
					slog.String("target_employee_id", targetID))
				WriteError(w, logger, model.NewUnauthorizedError("caller does not own this employee"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewEmployeeBodyGuard は従業員の作成・更新ボディのガードを返す。
// ボディを先にデコード・検証し（検証失敗は所有権チェックより優先）、
// ボディのidentityIdが呼び出し元のアイデンティティidと一致する場合のみ通す。
// 検証済みボディはコンテキストにステージされ、ハンドラーは再パースしない。
func NewEmployeeBodyGuard(forCreate bool, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := PrincipalFromContext(r.Context())
			if err != nil {
				WriteError(w, logger, model.NewUnauthenticatedError("authentication is required"))
				return
			}

			req := &model.EmployeeRequest{}
			if err := json.NewDecoder(r.Body).Decode(req); err != nil {
				WriteError(w, logger, model.NewValidationError("invalid request body"))
				return
			}
			if forCreate {
				err = req.ValidateForCreate()
			} else {
				err = req.ValidateForUpdate()
			}
			if err != nil {
				WriteError(w, logger, err)
				return
			}
			if req.IdentityID == nil || *req.IdentityID == "" {
				WriteError(w, logger, model.NewValidationError("identity id is required"))
				return
			}

			if *req.IdentityID != principal.IdentityID {
				logger.Warn("ownership check failed",
					slog.String("identity_id", principal.IdentityID),
					slog.String("body_identity_id", *req.IdentityID))
				WriteError(w, logger, model.NewUnauthorizedError("caller does not own this identity"))
				return
			}

			ctx := ContextWithEmployeeBody(r.Context(), req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewIdentityBodyGuard はアイデンティティ更新ボディのガードを返す。
// ボディのidが呼び出し元のアイデンティティidと一致する場合のみ通す。
func NewIdentityBodyGuard(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := PrincipalFromContext(r.Context())
			if err != nil {
				WriteError(w, logger, model.NewUnauthenticatedError("authentication is required"))
				return
			}

			req := &model.IdentityRequest{}
			if err := json.NewDecoder(r.Body).Decode(req); err != nil {
				WriteError(w, logger, model.NewValidationError("invalid request body"))
				return
			}
			if err := req.ValidateForUpdate(); err != nil {
				WriteError(w, logger, err)
				return
			}

			if *req.ID != principal.IdentityID {
				logger.Warn("ownership check failed",
					slog.String("identity_id", principal.IdentityID),
					slog.String("body_identity_id", *req.ID))
				WriteError(w, logger, model.NewUnauthorizedError("caller does not own this identity"))
				return
			}

			ctx := ContextWithIdentityBody(r.Context(), req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewIdentitySelfGuard はアイデンティティの自己リソースガードを返す。
// identityIdクエリパラメータが呼び出し元のアイデンティティidと一致する場合のみ通す。
// allowAdminがtrueの場合、ADMIN権限の呼び出し元は対象を問わず通る（by-id閲覧用）。
func NewIdentitySelfGuard(allowAdmin bool, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := PrincipalFromContext(r.Context())
			if err != nil {
				WriteError(w, logger, model.NewUnauthenticatedError("authentication is required"))
				return
			}

			targetID := r.URL.Query().Get("identityId")
			if targetID == "" {
				WriteError(w, logger, model.NewValidationError("identityId query parameter is required"))
				return
			}

			if allowAdmin && principal.Authority == model.AuthorityAdmin {
				next.ServeHTTP(w, r)
				return
			}
			if targetID != principal.IdentityID {
				logger.Warn("ownership check failed",
					slog.String("identity_id", principal.IdentityID),
					slog.String("target_identity_id", targetID))
				WriteError(w, logger, model.NewUnauthorizedError("caller does not own this identity"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewLocationMembershipGuard は店舗スコープの従業員ルートのガードを返す。
// Location→LocationEmployee→Employee→Identityのジョインで、
// 呼び出し元のメールアドレスがその店舗に紐付く場合のみ通す。
func NewLocationMembershipGuard(locations repository.LocationRepository, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := PrincipalFromContext(r.Context())
			if err != nil {
				WriteError(w, logger, model.NewUnauthenticatedError("authentication is required"))
				return
			}

			locationID := r.URL.Query().Get("locationId")
			if locationID == "" {
				WriteError(w, logger, model.NewValidationError("locationId query parameter is required"))
				return
			}
			// 不正な形式のidはDBに渡す前に弾く
			if _, err := uuid.Parse(locationID); err != nil {
				WriteError(w, logger, model.NewValidationError("locationId must be a valid UUID"))
				return
			}

			member, err := locations.ExistsMembership(r.Context(), locationID, principal.Email)
			if err != nil {
				WriteError(w, logger, err)
				return
			}
			if !member {
				logger.Warn("location membership check failed",
					slog.String("identity_id", principal.IdentityID),
					slog.String("location_id", locationID))
				WriteError(w, logger, model.NewUnauthorizedError("caller is not linked to this location"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
