package aggregate

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/burgas/gymhub/internal/model"
	"github.com/burgas/gymhub/internal/repository"
)

// キャッシュキーのプレフィックス。値は集約DTOのJSON表現。
const (
	identityKeyPrefix = "identityFullResponse:"
	employeeKeyPrefix = "employeeFullResponse:"
	locationKeyPrefix = "locationFullResponse:"
	gymKeyPrefix      = "gymFullResponse:"
)

// IdentityCacheKey はアイデンティティ集約のキャッシュキーを返す。
func IdentityCacheKey(id string) string { return identityKeyPrefix + id }

// EmployeeCacheKey は従業員集約のキャッシュキーを返す。
func EmployeeCacheKey(id string) string { return employeeKeyPrefix + id }

// LocationCacheKey は店舗集約のキャッシュキーを返す。
func LocationCacheKey(id string) string { return locationKeyPrefix + id }

// GymCacheKey はジム集約のキャッシュキーを返す。
// ジムのフルレスポンスはキャッシュされないため、無効化対象としてのみ使われる。
func GymCacheKey(id string) string { return gymKeyPrefix + id }

// Cache は集約DTOキャッシュへのアクセスを抽象化する。
type Cache interface {
	// Get はキーに対応する値を取得する。存在しない場合はfoundがfalseになる。
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set はキーに値を格納する。既存の値は上書きされる（last-write-wins）。
	Set(ctx context.Context, key, value string) error
	// Delete は指定キーを削除する。存在しないキーは無視される。
	Delete(ctx context.Context, keys ...string) error
}

// MetricsRecorder はキャッシュのヒット・ミス・無効化を記録する。
type MetricsRecorder interface {
	RecordCacheHit(entity string)
	RecordCacheMiss(entity string)
	RecordInvalidatedKeys(entity string, count int)
}

// Reader は集約DTOのリードスルーキャッシュ。
// ヒット時はキャッシュのバイト列をそのままデコードして返し、
// ミス時は単一の読み取り専用スナップショットでDTOを構築してから格納する。
type Reader struct {
	repo    repository.AggregateRepository
	cache   Cache
	metrics MetricsRecorder
	logger  *slog.Logger
}

// NewReader はReaderを生成する。
func NewReader(repo repository.AggregateRepository, cache Cache, metrics MetricsRecorder, logger *slog.Logger) *Reader {
	return &Reader{
		repo:    repo,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// GetIdentity はアイデンティティ集約をリードスルーで取得する。
// ルートが存在しない場合はNOT_FOUNDを返す。
func (r *Reader) GetIdentity(ctx context.Context, id string) (*IdentityFullResponse, error) {
	key := IdentityCacheKey(id)
	if cached, ok := r.lookup(ctx, "identity", key); ok {
		resp := &IdentityFullResponse{}
		if err := json.Unmarshal([]byte(cached), resp); err == nil {
			return resp, nil
		}
		// 壊れたエントリはミスと同様にDBから再構築する
		r.logger.Warn("discarding undecodable cache entry", slog.String("key", key))
	}

	agg, err := r.repo.LoadIdentity(ctx, id)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		return nil, model.NewNotFoundError("identity")
	}
	resp := NewIdentityFullResponse(agg)
	r.store(ctx, key, resp)
	return &resp, nil
}

// GetEmployee は従業員集約をリードスルーで取得する。
func (r *Reader) GetEmployee(ctx context.Context, id string) (*EmployeeFullResponse, error) {
	key := EmployeeCacheKey(id)
	if cached, ok := r.lookup(ctx, "employee", key); ok {
		resp := &EmployeeFullResponse{}
		if err := json.Unmarshal([]byte(cached), resp); err == nil {
			return resp, nil
		}
		r.logger.Warn("discarding undecodable cache entry", slog.String("key", key))
	}

	agg, err := r.repo.LoadEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		return nil, model.NewNotFoundError("employee")
	}
	resp := NewEmployeeFullResponse(agg)
	r.store(ctx, key, resp)
	return &resp, nil
}

// GetLocation は店舗集約をリードスルーで取得する。
func (r *Reader) GetLocation(ctx context.Context, id string) (*LocationFullResponse, error) {
	key := LocationCacheKey(id)
	if cached, ok := r.lookup(ctx, "location", key); ok {
		resp := &LocationFullResponse{}
		if err := json.Unmarshal([]byte(cached), resp); err == nil {
			return resp, nil
		}
		r.logger.Warn("discarding undecodable cache entry", slog.String("key", key))
	}

	agg, err := r.repo.LoadLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		return nil, model.NewNotFoundError("location")
	}
	resp := NewLocationFullResponse(agg)
	r.store(ctx, key, resp)
	return &resp, nil
}

// GetGym はジム集約を構築して返す。ジムのフルレスポンスはキャッシュしない。
func (r *Reader) GetGym(ctx context.Context, id string) (*GymFullResponse, error) {
	agg, err := r.repo.LoadGym(ctx, id)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		return nil, model.NewNotFoundError("gym")
	}
	resp := NewGymFullResponse(agg)
	return &resp, nil
}

// lookup はキャッシュを参照し、ヒット・ミスをメトリクスに記録する。
// キャッシュ障害はミスとして扱い、読み取りは継続する。
func (r *Reader) lookup(ctx context.Context, entity, key string) (string, bool) {
	value, found, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("cache lookup failed, falling back to database",
			slog.String("key", key), slog.String("error", err.Error()))
		r.metrics.RecordCacheMiss(entity)
		return "", false
	}
	if !found {
		r.metrics.RecordCacheMiss(entity)
		return "", false
	}
	r.metrics.RecordCacheHit(entity)
	return value, true
}

// store はDTOをJSON化してキャッシュに格納する。格納失敗はレスポンスに影響しない。
func (r *Reader) store(ctx context.Context, key string, resp any) {
	data, err := json.Marshal(resp)
	if err != nil {
		r.logger.Error("failed to marshal aggregate response",
			slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	if err := r.cache.Set(ctx, key, string(data)); err != nil {
		r.logger.Warn("failed to populate cache",
			slog.String("key", key), slog.String("error", err.Error()))
	}
}
