package aggregate

import (
	"context"
	"log/slog"
)

// RelationResolver は無効化対象の1ホップ関連idを解決する。
// 更新系では変更後の状態をコミット後に読み直して解決するが、
// 削除系ではエッジがコミット時点で消えるため、削除トランザクションが
// 返したidをそのまま受け取る。
type RelationResolver interface {
	// FindIdentityIDByEmployeeID は従業員idから所有アイデンティティidを解決する。
	FindIdentityIDByEmployeeID(ctx context.Context, employeeID string) (string, error)
	// FindGymIDByLocationID は店舗idから所有ジムidを解決する。
	FindGymIDByLocationID(ctx context.Context, locationID string) (string, error)
}

// Invalidator はコミット後・レスポンス前に、変更されたエンティティ自身と
// それを埋め込む1ホップ先の集約キーを削除する。2ホップ以上はたどらない。
type Invalidator struct {
	cache    Cache
	resolver RelationResolver
	metrics  MetricsRecorder
	logger   *slog.Logger
}

// NewInvalidator はInvalidatorを生成する。
func NewInvalidator(cache Cache, resolver RelationResolver, metrics MetricsRecorder, logger *slog.Logger) *Invalidator {
	return &Invalidator{
		cache:    cache,
		resolver: resolver,
		metrics:  metrics,
		logger:   logger,
	}
}

// IdentityChanged はアイデンティティの作成・更新後の無効化を行う。
func (inv *Invalidator) IdentityChanged(ctx context.Context, identityID string) {
	inv.deleteKeys(ctx, "identity", IdentityCacheKey(identityID))
}

// IdentityDeleted はアイデンティティ削除後の無効化を行う。
// CASCADE削除された従業員のidは削除トランザクションが解決済みのものを受け取る。
func (inv *Invalidator) IdentityDeleted(ctx context.Context, identityID, employeeID string) {
	keys := []string{IdentityCacheKey(identityID)}
	if employeeID != "" {
		keys = append(keys, EmployeeCacheKey(employeeID))
	}
	inv.deleteKeys(ctx, "identity", keys...)
}

// EmployeeCreated は従業員作成後の無効化を行う。
// アイデンティティ集約は従業員を埋め込むため、所有アイデンティティのキーを消す。
func (inv *Invalidator) EmployeeCreated(ctx context.Context, identityID string) {
	inv.deleteKeys(ctx, "employee", IdentityCacheKey(identityID))
}

// EmployeeChanged は従業員更新後の無効化を行う。
// 所有アイデンティティidはコミット後の読み直しで解決する。
func (inv *Invalidator) EmployeeChanged(ctx context.Context, employeeID string) {
	ctx = context.WithoutCancel(ctx)
	keys := []string{EmployeeCacheKey(employeeID)}
	identityID, err := inv.resolver.FindIdentityIDByEmployeeID(ctx, employeeID)
	if err != nil {
		inv.logger.Error("failed to resolve identity for invalidation",
			slog.String("employee_id", employeeID), slog.String("error", err.Error()))
	} else if identityID != "" {
		keys = append(keys, IdentityCacheKey(identityID))
	}
	inv.deleteKeys(ctx, "employee", keys...)
}

// EmployeeDeleted は従業員削除後の無効化を行う。
func (inv *Invalidator) EmployeeDeleted(ctx context.Context, employeeID, identityID string) {
	keys := []string{EmployeeCacheKey(employeeID)}
	if identityID != "" {
		keys = append(keys, IdentityCacheKey(identityID))
	}
	inv.deleteKeys(ctx, "employee", keys...)
}

// EmployeeLocationsChanged は従業員と店舗のリンク変更後の無効化を行う。
// 従業員集約は店舗一覧を、店舗集約は従業員一覧を埋め込むため双方向に消す。
func (inv *Invalidator) EmployeeLocationsChanged(ctx context.Context, employeeID string, locationIDs []string) {
	keys := make([]string, 0, len(locationIDs)+1)
	keys = append(keys, EmployeeCacheKey(employeeID))
	for _, id := range locationIDs {
		keys = append(keys, LocationCacheKey(id))
	}
	inv.deleteKeys(ctx, "employee", keys...)
}

// GymChanged はジムの作成・更新後の無効化を行う。
func (inv *Invalidator) GymChanged(ctx context.Context, gymID string) {
	inv.deleteKeys(ctx, "gym", GymCacheKey(gymID))
}

// GymDeleted はジム削除後の無効化を行う。
// CASCADE削除された店舗のidは削除トランザクションが解決済みのものを受け取る。
func (inv *Invalidator) GymDeleted(ctx context.Context, gymID string, locationIDs []string) {
	keys := make([]string, 0, len(locationIDs)+1)
	keys = append(keys, GymCacheKey(gymID))
	for _, id := range locationIDs {
		keys = append(keys, LocationCacheKey(id))
	}
	inv.deleteKeys(ctx, "gym", keys...)
}

// LocationCreated は店舗作成後の無効化を行う。
// ジム集約は店舗一覧を埋め込むため、所有ジムのキーを消す。
func (inv *Invalidator) LocationCreated(ctx context.Context, gymID string) {
	inv.deleteKeys(ctx, "location", GymCacheKey(gymID))
}

// LocationChanged は店舗更新後の無効化を行う。
// 店舗自身のキーと所有ジムのキーを消す。リンク済み従業員の集約には触れない。
func (inv *Invalidator) LocationChanged(ctx context.Context, locationID string) {
	ctx = context.WithoutCancel(ctx)
	keys := []string{LocationCacheKey(locationID)}
	gymID, err := inv.resolver.FindGymIDByLocationID(ctx, locationID)
	if err != nil {
		inv.logger.Error("failed to resolve gym for invalidation",
			slog.String("location_id", locationID), slog.String("error", err.Error()))
	} else if gymID != "" {
		keys = append(keys, GymCacheKey(gymID))
	}
	inv.deleteKeys(ctx, "location", keys...)
}

// LocationDeleted は店舗削除後の無効化を行う。
func (inv *Invalidator) LocationDeleted(ctx context.Context, locationID, gymID string) {
	keys := []string{LocationCacheKey(locationID)}
	if gymID != "" {
		keys = append(keys, GymCacheKey(gymID))
	}
	inv.deleteKeys(ctx, "location", keys...)
}

// LocationEmployeesChanged は店舗と従業員のリンク変更後の無効化を行う。
func (inv *Invalidator) LocationEmployeesChanged(ctx context.Context, locationID string, employeeIDs []string) {
	keys := make([]string, 0, len(employeeIDs)+1)
	keys = append(keys, LocationCacheKey(locationID))
	for _, id := range employeeIDs {
		keys = append(keys, EmployeeCacheKey(id))
	}
	inv.deleteKeys(ctx, "location", keys...)
}

// deleteKeys はキーを削除し、件数をメトリクスに記録する。
// リクエストがコミット後にキャンセルされても無効化は完了させる。
func (inv *Invalidator) deleteKeys(ctx context.Context, entity string, keys ...string) {
	ctx = context.WithoutCancel(ctx)
	if err := inv.cache.Delete(ctx, keys...); err != nil {
		// 削除漏れは古い集約が残ることを意味するので、警告ではなくエラーで残す
		inv.logger.Error("cache invalidation failed",
			slog.String("entity", entity), slog.Any("keys", keys), slog.String("error", err.Error()))
		return
	}
	inv.metrics.RecordInvalidatedKeys(entity, len(keys))
}
