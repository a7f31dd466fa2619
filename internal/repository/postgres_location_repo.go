package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/burgas/gymhub/internal/model"
)

// timeOfDayColumnLayout はTIMEカラムとの変換に使用する形式。
const timeOfDayColumnLayout = "15:04:05"

// PostgresLocationRepo はPostgreSQLを使用した店舗リポジトリ。
type PostgresLocationRepo struct {
	db *sql.DB
}

// NewPostgresLocationRepo はPostgresLocationRepoを生成する。
func NewPostgresLocationRepo(db *sql.DB) *PostgresLocationRepo {
	return &PostgresLocationRepo{db: db}
}

// Create は店舗を作成する。
func (r *PostgresLocationRepo) Create(ctx context.Context, location *model.Location) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO locations (id, gym_id, address, open, close)
		 VALUES ($1, $2, $3, $4::time, $5::time)`,
		location.ID, location.GymID, location.Address,
		location.Open.Format(timeOfDayColumnLayout),
		location.Close.Format(timeOfDayColumnLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert location: %w", err)
	}
	return nil
}

// FindByID は指定IDの店舗を取得する。見つからない場合はnilを返す。
func (r *PostgresLocationRepo) FindByID(ctx context.Context, id string) (*model.Location, error) {
	var (
		location  model.Location
		openText  string
		closeText string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, gym_id, address, open::text, close::text FROM locations WHERE id = $1`, id,
	).Scan(&location.ID, &location.GymID, &location.Address, &openText, &closeText)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find location: %w", err)
	}
	if location.Open, err = time.Parse(timeOfDayColumnLayout, openText); err != nil {
		return nil, fmt.Errorf("failed to parse open time: %w", err)
	}
	if location.Close, err = time.Parse(timeOfDayColumnLayout, closeText); err != nil {
		return nil, fmt.Errorf("failed to parse close time: %w", err)
	}
	return &location, nil
}

// ListIDs は全店舗のidを返す。
func (r *PostgresLocationRepo) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM locations ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("failed to list location ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan location id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate location ids: %w", err)
	}
	return ids, nil
}

// FindGymIDByLocationID は店舗idから所有ジムidを解決する。
// 該当しない場合は空文字列を返す。
func (r *PostgresLocationRepo) FindGymIDByLocationID(ctx context.Context, locationID string) (string, error) {
	var gymID string
	err := r.db.QueryRowContext(ctx,
		`SELECT g.id
		 FROM gyms g
		 JOIN locations l ON l.gym_id = g.id
		 WHERE l.id = $1`,
		locationID,
	).Scan(&gymID)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve gym by location: %w", err)
	}
	return gymID, nil
}

// ExistsMembership は指定店舗に指定メールアドレスのアイデンティティを持つ
// 従業員が紐付いているかを判定する。
func (r *PostgresLocationRepo) ExistsMembership(ctx context.Context, locationID, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1
		   FROM locations l
		   JOIN locations_employees le ON le.location_id = l.id
		   JOIN employees e ON e.id = le.employee_id
		   JOIN identities i ON i.id = e.identity_id
		   WHERE l.id = $1 AND i.email = $2
		 )`,
		locationID, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check location membership: %w", err)
	}
	return exists, nil
}

// Update は店舗の属性を上書き更新する。
func (r *PostgresLocationRepo) Update(ctx context.Context, location *model.Location) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE locations
		 SET gym_id = $2, address = $3, open = $4::time, close = $5::time
		 WHERE id = $1`,
		location.ID, location.GymID, location.Address,
		location.Open.Format(timeOfDayColumnLayout),
		location.Close.Format(timeOfDayColumnLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to update location: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの店舗を削除する。
// 削除トランザクション内で所有ジムidを解決して返す。
func (r *PostgresLocationRepo) DeleteByID(ctx context.Context, id string) (string, bool, error) {
	var gymID string
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM locations WHERE id = $1 RETURNING gym_id`, id,
	).Scan(&gymID)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to delete location: %w", err)
	}
	return gymID, true, nil
}

// AddEmployees は店舗と従業員のリンクを1トランザクションで追加する。
// 存在しない従業員idは黙ってスキップされる（原子性は保たれる）。
func (r *PostgresLocationRepo) AddEmployees(ctx context.Context, locationID string, employeeIDs []string) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, employeeID := range employeeIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO locations_employees (location_id, employee_id)
			 SELECT $1, e.id FROM employees e WHERE e.id = $2
			 ON CONFLICT DO NOTHING`,
			locationID, employeeID,
		)
		if err != nil {
			return fmt.Errorf("failed to link employee %s: %w", employeeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RemoveEmployees は店舗と従業員のリンクを1トランザクションで削除する。
func (r *PostgresLocationRepo) RemoveEmployees(ctx context.Context, locationID string, employeeIDs []string) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, employeeID := range employeeIDs {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM locations_employees WHERE location_id = $1 AND employee_id = $2`,
			locationID, employeeID,
		)
		if err != nil {
			return fmt.Errorf("failed to unlink employee %s: %w", employeeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// compile-time interface check
var _ LocationRepository = (*PostgresLocationRepo)(nil)
