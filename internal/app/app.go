package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/burgas/gymhub/internal/aggregate"
	"github.com/burgas/gymhub/internal/auth"
	"github.com/burgas/gymhub/internal/cache"
	"github.com/burgas/gymhub/internal/config"
	"github.com/burgas/gymhub/internal/database"
	"github.com/burgas/gymhub/internal/employee"
	"github.com/burgas/gymhub/internal/gym"
	"github.com/burgas/gymhub/internal/handler"
	"github.com/burgas/gymhub/internal/identity"
	"github.com/burgas/gymhub/internal/location"
	"github.com/burgas/gymhub/internal/logger"
	"github.com/burgas/gymhub/internal/metrics"
	"github.com/burgas/gymhub/internal/middleware"
	"github.com/burgas/gymhub/internal/repository"
	"github.com/burgas/gymhub/internal/security"
	"github.com/burgas/gymhub/internal/worker/agerecon"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "9000"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// relationResolver は無効化の1ホップ解決に使う親参照をリポジトリから束ねる。
type relationResolver struct {
	employees *repository.PostgresEmployeeRepo
	locations *repository.PostgresLocationRepo
}

func (r *relationResolver) FindIdentityIDByEmployeeID(ctx context.Context, employeeID string) (string, error) {
	return r.employees.FindIdentityIDByEmployeeID(ctx, employeeID)
}

func (r *relationResolver) FindGymIDByLocationID(ctx context.Context, locationID string) (string, error) {
	return r.locations.FindGymIDByLocationID(ctx, locationID)
}

// runServe はAPIサーバーモードで起動する。
// DBとRedisに接続し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. キャッシュストアの接続
	redis := cache.NewClient(cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redis.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := redis.Ping(pingCtx); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis connection established", slog.String("addr", cfg.RedisAddr))

	// 3. リポジトリの初期化
	identityRepo := repository.NewPostgresIdentityRepo(db)
	employeeRepo := repository.NewPostgresEmployeeRepo(db)
	gymRepo := repository.NewPostgresGymRepo(db)
	locationRepo := repository.NewPostgresLocationRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	aggregateRepo := repository.NewPostgresAggregateRepo(db)

	// 4. メトリクスと集約キャッシュ層の初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	resolver := &relationResolver{employees: employeeRepo, locations: locationRepo}
	reader := aggregate.NewReader(aggregateRepo, redis, collector, slog.Default())
	invalidator := aggregate.NewInvalidator(redis, resolver, collector, slog.Default())

	// 5. ドメインサービスの初期化
	sanitizer := security.NewSanitizer()

	identityService := identity.NewService(identityRepo, reader, invalidator, sanitizer, slog.Default())
	employeeService := employee.NewService(employeeRepo, identityRepo, locationRepo, reader, invalidator, sanitizer, slog.Default())
	gymService := gym.NewService(gymRepo, reader, invalidator, sanitizer, slog.Default())
	locationService := location.NewService(locationRepo, gymRepo, aggregateRepo, reader, invalidator, sanitizer, slog.Default())

	// 6. 認証まわりの初期化
	verifier := auth.NewCredentialVerifier(identityRepo, slog.Default())

	oauthProvider := auth.NewGitHubOAuthProvider(auth.GitHubOAuthConfig{
		ClientID:     cfg.GithubClientID,
		ClientSecret: cfg.GithubClientSecret,
		RedirectURL:  cfg.GithubRedirectURL,
	})
	securityService := auth.NewService(
		oauthProvider, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
		slog.Default(),
	)

	// 7. レートリミッターの初期化（configはreq/min単位なのでreq/secに変換する）
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(cfg.RateLimitGeneral) / 60.0),
		GeneralBurst:    cfg.RateLimitGeneral,
		MutationRate:    rate.Limit(float64(cfg.RateLimitMutation) / 60.0),
		MutationBurst:   cfg.RateLimitMutation,
		CleanupInterval: 5 * time.Minute,
	}, slog.Default())
	defer rateLimiter.Stop()

	// 8. ルーターの構築
	deps := &handler.RouterDeps{
		Logger: slog.Default(),

		Verifier:          verifier,
		SessionValidator:  securityService,
		RateLimiter:       rateLimiter,
		HTTPRecorder:      collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		Employees: employeeRepo,
		Locations: locationRepo,

		IdentityService: identityService,
		EmployeeService: employeeService,
		GymService:      gymService,
		LocationService: locationService,
		SecurityService: securityService,
		SecurityConfig: handler.SecurityHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		DB: db,

		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、年齢再計算ジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. ジョブの初期化
	employeeRepo := repository.NewPostgresEmployeeRepo(db)
	job := agerecon.NewJob(employeeRepo, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("age_recon_interval", cfg.AgeReconInterval),
	)

	// 年齢再計算ジョブをメインgoroutineで実行（ブロッキング）
	job.Start(ctx, cfg.AgeReconInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
