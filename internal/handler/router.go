package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/burgas/gymhub/internal/middleware"
	"github.com/burgas/gymhub/internal/repository"
)

// Pinger はヘルスチェックで依存先の死活を確認する。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	Verifier          middleware.Verifier
	SessionValidator  middleware.SessionValidator
	RateLimiter       *middleware.RateLimiter
	HTTPRecorder      middleware.HTTPRecorder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig

	// ガード依存（所有権解決に使うリポジトリ）
	Employees repository.EmployeeRepository
	Locations repository.LocationRepository

	// サービス
	IdentityService IdentityServiceInterface
	EmployeeService EmployeeServiceInterface
	GymService      GymServiceInterface
	LocationService LocationServiceInterface
	SecurityService SecurityServiceInterface
	SecurityConfig  SecurityHandlerConfig

	// ヘルスチェック対象
	DB Pinger

	// /metrics のスクレイプハンドラー
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → CORS → SecurityHeaders → Metrics → CSRF
//
// 認証・ガード・レート制限はルートごとに適用する。
// ヘルスチェックと/metricsはチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	identityHandler := NewIdentityHandler(deps.IdentityService, deps.Logger)
	employeeHandler := NewEmployeeHandler(deps.EmployeeService, deps.Logger)
	gymHandler := NewGymHandler(deps.GymService, deps.Logger)
	locationHandler := NewLocationHandler(deps.LocationService, deps.Logger)
	securityHandler := NewSecurityHandler(deps.SecurityService, deps.SecurityConfig, deps.Logger)

	basicAuth := middleware.NewBasicAuthMiddleware(deps.Verifier, deps.Logger)
	adminAuth := middleware.NewAdminAuthMiddleware(deps.Verifier, deps.Logger)
	sessionGate := middleware.NewSessionGateMiddleware(deps.SessionValidator, "/api/v1/security/oauth/login", deps.Logger)
	general := deps.RateLimiter.GeneralMiddleware()
	mutation := deps.RateLimiter.MutationMiddleware()

	selfEmployee := middleware.NewSelfEmployeeGuard(deps.Employees, deps.Logger)
	employeeCreateBody := middleware.NewEmployeeBodyGuard(true, deps.Logger)
	employeeUpdateBody := middleware.NewEmployeeBodyGuard(false, deps.Logger)
	identityBody := middleware.NewIdentityBodyGuard(deps.Logger)
	identitySelfOrAdmin := middleware.NewIdentitySelfGuard(true, deps.Logger)
	identitySelf := middleware.NewIdentitySelfGuard(false, deps.Logger)
	locationMembership := middleware.NewLocationMembershipGuard(deps.Locations, deps.Logger)

	// 運用系ルートはミドルウェアチェーンの外
	r.Get("/health", newHealthHandler(deps.DB, deps.Logger))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRecoveryMiddleware())
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		r.Use(middleware.NewSecurityHeadersMiddleware())
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig, deps.Logger))

		r.Route("/api/v1", func(r chi.Router) {
			// アイデンティティ管理
			r.Route("/identities", func(r chi.Router) {
				// 作成だけは認証不要
				r.Post("/create", identityHandler.Create)

				r.With(adminAuth, general).Get("/", identityHandler.List)
				r.With(basicAuth, general, identitySelfOrAdmin).Get("/by-id", identityHandler.GetByID)
				r.With(basicAuth, general, mutation, identityBody).Put("/update", identityHandler.Update)
				r.With(basicAuth, general, mutation, identityBody).Put("/change-password", identityHandler.ChangePassword)
				r.With(adminAuth, general, mutation).Put("/change-status", identityHandler.ChangeStatus)
				r.With(basicAuth, general, mutation, identitySelf).Delete("/delete", identityHandler.Delete)
			})

			// 従業員管理
			r.Route("/employees", func(r chi.Router) {
				r.Use(basicAuth, general)

				r.With(mutation, employeeCreateBody).Post("/create", employeeHandler.Create)
				r.With(selfEmployee).Get("/by-id", employeeHandler.GetByID)
				r.With(locationMembership).Get("/by-location", employeeHandler.GetByLocation)
				r.With(mutation, employeeUpdateBody).Put("/update", employeeHandler.Update)
				r.With(mutation, selfEmployee).Delete("/delete", employeeHandler.Delete)
				r.With(mutation, selfEmployee).Post("/add-locations", employeeHandler.AddLocations)
				r.With(mutation, selfEmployee).Delete("/remove-locations", employeeHandler.RemoveLocations)
			})

			// ジム管理: 閲覧はOAuthセッション、変更はBasic認証でゲートする
			r.Route("/gyms", func(r chi.Router) {
				r.With(sessionGate).Get("/", gymHandler.List)
				r.With(sessionGate).Get("/by-id", gymHandler.GetByID)

				r.Group(func(r chi.Router) {
					r.Use(basicAuth, general, mutation)
					r.Post("/create", gymHandler.Create)
					r.Put("/update", gymHandler.Update)
					r.Delete("/delete", gymHandler.Delete)
				})
			})

			// 店舗管理
			r.Route("/locations", func(r chi.Router) {
				r.Get("/", locationHandler.List)
				r.Get("/by-id", locationHandler.GetByID)

				r.Group(func(r chi.Router) {
					r.Use(basicAuth, general, mutation)
					r.Post("/create", locationHandler.Create)
					r.Put("/update", locationHandler.Update)
					r.Delete("/delete", locationHandler.Delete)
					r.Post("/add-employees", locationHandler.AddEmployees)
					r.Delete("/remove-employees", locationHandler.RemoveEmployees)
				})
			})

			// セキュリティ
			r.Route("/security", func(r chi.Router) {
				r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig, deps.Logger))
				r.Get("/oauth/login", securityHandler.Login)
				r.Get("/oauth/callback", securityHandler.Callback)
				r.Post("/oauth/logout", securityHandler.Logout)
			})
		})
	})

	return r
}

// newHealthHandler はDBへの疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(db Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			logger.Error("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
