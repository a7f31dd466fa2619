package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/burgas/gymhub/internal/model"
)

// PostgresGymRepo はPostgreSQLを使用したジムリポジトリ。
type PostgresGymRepo struct {
	db *sql.DB
}

// NewPostgresGymRepo はPostgresGymRepoを生成する。
func NewPostgresGymRepo(db *sql.DB) *PostgresGymRepo {
	return &PostgresGymRepo{db: db}
}

// Create はジムを作成する。
func (r *PostgresGymRepo) Create(ctx context.Context, gym *model.Gym) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO gyms (id, name, description, created_at) VALUES ($1, $2, $3, $4)`,
		gym.ID, gym.Name, gym.Description, gym.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert gym: %w", err)
	}
	return nil
}

// FindByID は指定IDのジムを取得する。見つからない場合はnilを返す。
func (r *PostgresGymRepo) FindByID(ctx context.Context, id string) (*model.Gym, error) {
	gym := &model.Gym{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM gyms WHERE id = $1`, id,
	).Scan(&gym.ID, &gym.Name, &gym.Description, &gym.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find gym: %w", err)
	}
	return gym, nil
}

// FindAll は全ジムを返す。
func (r *PostgresGymRepo) FindAll(ctx context.Context) ([]*model.Gym, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, created_at FROM gyms ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list gyms: %w", err)
	}
	defer rows.Close()

	var gyms []*model.Gym
	for rows.Next() {
		gym := &model.Gym{}
		if err := rows.Scan(&gym.ID, &gym.Name, &gym.Description, &gym.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan gym: %w", err)
		}
		gyms = append(gyms, gym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate gyms: %w", err)
	}
	return gyms, nil
}

// Update はジムの属性を上書き更新する。
func (r *PostgresGymRepo) Update(ctx context.Context, gym *model.Gym) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE gyms SET name = $2, description = $3 WHERE id = $1`,
		gym.ID, gym.Name, gym.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to update gym: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのジムを削除する。
// CASCADE削除される前に、同一トランザクション内で所属Location idを解決して返す。
func (r *PostgresGymRepo) DeleteByID(ctx context.Context, id string) ([]string, bool, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM locations WHERE gym_id = $1`, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve gym locations: %w", err)
	}
	var locationIDs []string
	for rows.Next() {
		var locationID string
		if err := rows.Scan(&locationID); err != nil {
			rows.Close()
			return nil, false, fmt.Errorf("failed to scan location id: %w", err)
		}
		locationIDs = append(locationIDs, locationID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, false, fmt.Errorf("failed to iterate location ids: %w", err)
	}
	rows.Close()

	result, err := tx.ExecContext(ctx, `DELETE FROM gyms WHERE id = $1`, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to delete gym: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, false, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return locationIDs, true, nil
}

// compile-time interface check
var _ GymRepository = (*PostgresGymRepo)(nil)
