// Package agerecon は従業員の導出フィールドageの定期再計算ジョブを提供する。
// ageは誕生日から導出される値で、書き込み時にしか再計算されないため、
// 年を越して実年齢とずれた行をバックグラウンドで補正する。
package agerecon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/burgas/gymhub/internal/model"
	"github.com/burgas/gymhub/internal/repository"
)

// EmployeeAgeStore はジョブが必要とする従業員ストアのインターフェース。
// PostgresEmployeeRepoが実装する。
type EmployeeAgeStore interface {
	// ListAgeRecords は全従業員のid・誕生日・保存済みageを返す。
	ListAgeRecords(ctx context.Context) ([]repository.EmployeeAgeRecord, error)
	// UpdateAges は指定idのageを1つのread-committedトランザクションで更新する。
	UpdateAges(ctx context.Context, ages map[string]int) error
}

// Job は全従業員のageを誕生日から再計算するバッチジョブ。
// ずれた行だけを1トランザクションで更新する。冪等。
type Job struct {
	store  EmployeeAgeStore
	logger *slog.Logger
	now    func() time.Time
}

// NewJob は新しいJobを生成する。
func NewJob(store EmployeeAgeStore, logger *slog.Logger) *Job {
	return &Job{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Start は指定間隔のティッカーでジョブを起動する。
// 起動直後に1回実行し、コンテキストがキャンセルされるまで継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("age reconciliation job started", slog.Duration("interval", interval))

	if err := j.RunOnce(ctx); err != nil {
		j.logger.Error("age reconciliation cycle failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("age reconciliation job stopped")
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.Error("age reconciliation cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce は従業員全件を走査し、誕生日から再計算したageと
// 保存値が異なる行だけを更新する。更新対象がなくてもエラーにならない。
func (j *Job) RunOnce(ctx context.Context) error {
	start := time.Now()

	records, err := j.store.ListAgeRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to list employee ages: %w", err)
	}

	today := j.now()
	corrections := make(map[string]int)
	for _, rec := range records {
		if actual := model.YearsBetween(rec.Birthday, today); actual != rec.Age {
			corrections[rec.ID] = actual
		}
	}

	if len(corrections) > 0 {
		if err := j.store.UpdateAges(ctx, corrections); err != nil {
			return fmt.Errorf("failed to update employee ages: %w", err)
		}
	}

	j.logger.Info("age reconciliation cycle completed",
		slog.Int("corrected_count", len(corrections)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}
