package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）
	GeneralBurst    int           // API全般のバーストサイズ
	MutationRate    rate.Limit    // 変更系リクエストのレート（req/sec）
	MutationBurst   int           // 変更系リクエストのバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/caller、変更系 30 req/min/caller。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(120.0 / 60.0),
		GeneralBurst:    120,
		MutationRate:    rate.Limit(30.0 / 60.0),
		MutationBurst:   30,
		CleanupInterval: 5 * time.Minute,
	}
}

// callerLimiter は呼び出し元ごとのレートリミッターとアクセス時刻を保持する。
type callerLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter は認証済み呼び出し元（メールアドレス単位）のレート制限を管理する。
// API全般と変更系の2種類を独立に提供する。
type RateLimiter struct {
	config RateLimiterConfig
	logger *slog.Logger

	generalMu       sync.RWMutex
	generalLimiters map[string]*callerLimiter

	mutationMu       sync.RWMutex
	mutationLimiters map[string]*callerLimiter

	stopCh chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		config:           config,
		logger:           logger,
		generalLimiters:  make(map[string]*callerLimiter),
		mutationLimiters: make(map[string]*callerLimiter),
		stopCh:           make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// プリンシパル注入後に配置する。未認証リクエストには適用されない。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.getOrCreateGeneralLimiter, rl.config.GeneralRate, "general")
}

// MutationMiddleware は変更系リクエスト専用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) MutationMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.getOrCreateMutationLimiter, rl.config.MutationRate, "mutation")
}

func (rl *RateLimiter) middleware(
	getLimiter func(caller string) *rate.Limiter,
	limit rate.Limit,
	limitType string,
) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := PrincipalFromContext(r.Context())
			if err != nil {
				// 未認証ルートはレート制限の対象外
				next.ServeHTTP(w, r)
				return
			}

			if !getLimiter(principal.Email).Allow() {
				writeRateLimitResponse(w, limit)
				rl.logger.Warn("rate limit exceeded",
					slog.String("caller", principal.Email),
					slog.String("limit_type", limitType))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) getOrCreateGeneralLimiter(caller string) *rate.Limiter {
	rl.generalMu.Lock()
	defer rl.generalMu.Unlock()

	entry, ok := rl.generalLimiters[caller]
	if !ok {
		entry = &callerLimiter{
			limiter: rate.NewLimiter(rl.config.GeneralRate, rl.config.GeneralBurst),
		}
		rl.generalLimiters[caller] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter
}

func (rl *RateLimiter) getOrCreateMutationLimiter(caller string) *rate.Limiter {
	rl.mutationMu.Lock()
	defer rl.mutationMu.Unlock()

	entry, ok := rl.mutationLimiters[caller]
	if !ok {
		entry = &callerLimiter{
			limiter: rate.NewLimiter(rl.config.MutationRate, rl.config.MutationBurst),
		}
		rl.mutationLimiters[caller] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter
}

// cleanupLoop は一定間隔でアクセスのないリミッターを破棄する。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.config.CleanupInterval)

			rl.generalMu.Lock()
			for caller, entry := range rl.generalLimiters {
				if entry.lastAccess.Before(cutoff) {
					delete(rl.generalLimiters, caller)
				}
			}
			rl.generalMu.Unlock()

			rl.mutationMu.Lock()
			for caller, entry := range rl.mutationLimiters {
				if entry.lastAccess.Before(cutoff) {
					delete(rl.mutationLimiters, caller)
				}
			}
			rl.mutationMu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

// writeRateLimitResponse は429レスポンスとRetry-Afterヘッダーを書き込む。
func writeRateLimitResponse(w http.ResponseWriter, limit rate.Limit) {
	retryAfter := 1
	if limit > 0 {
		retryAfter = int(math.Ceil(1.0 / float64(limit)))
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:        http.StatusTooManyRequests,
		Description: http.StatusText(http.StatusTooManyRequests),
		Cause:       "rate limit exceeded",
	})
}
