package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/burgas/gymhub/internal/model"
)

// PostgresAggregateRepo は集約DTO構築用の読み取り専用スナップショットロードを提供する。
// 各Loadはルートと1ホップの関連を単一のREPEATABLE READ・read-onlyトランザクションで読み、
// コミット済みのある一時点の状態だけを返す。
type PostgresAggregateRepo struct {
	db TxBeginner
}

// NewPostgresAggregateRepo はPostgresAggregateRepoを生成する。
func NewPostgresAggregateRepo(db TxBeginner) *PostgresAggregateRepo {
	return &PostgresAggregateRepo{db: db}
}

// snapshotTxOptions は集約ロードのトランザクション設定。
var snapshotTxOptions = &sql.TxOptions{
	Isolation: sql.LevelRepeatableRead,
	ReadOnly:  true,
}

// LoadIdentity はアイデンティティと（存在すれば）その従業員を読む。
// ルートが存在しない場合はnilを返す。
func (r *PostgresAggregateRepo) LoadIdentity(ctx context.Context, id string) (*IdentityAggregate, error) {
	tx, err := r.db.BeginTx(ctx, snapshotTxOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	agg := &IdentityAggregate{}
	err = tx.QueryRowContext(ctx,
		`SELECT id, authority, email, password, firstname, lastname, patronymic, is_active
		 FROM identities WHERE id = $1`, id,
	).Scan(&agg.Identity.ID, &agg.Identity.Authority, &agg.Identity.Email, &agg.Identity.Password,
		&agg.Identity.Firstname, &agg.Identity.Lastname, &agg.Identity.Patronymic, &agg.Identity.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	employee, err := scanOptionalEmployee(tx.QueryRowContext(ctx,
		`SELECT id, identity_id, position, birthday, age, address
		 FROM employees WHERE identity_id = $1`, id))
	if err != nil {
		return nil, err
	}
	agg.Employee = employee

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot transaction: %w", err)
	}
	return agg, nil
}

// LoadEmployee は従業員・所有アイデンティティ・リンク済み店舗（ジム付き）を読む。
// ルートが存在しない場合はnilを返す。
func (r *PostgresAggregateRepo) LoadEmployee(ctx context.Context, id string) (*EmployeeAggregate, error) {
	tx, err := r.db.BeginTx(ctx, snapshotTxOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	agg := &EmployeeAggregate{}
	err = tx.QueryRowContext(ctx,
		`SELECT e.id, e.identity_id, e.position, e.birthday, e.age, e.address,
		        i.id, i.authority, i.email, i.password, i.firstname, i.lastname, i.patronymic, i.is_active
		 FROM employees e
		 JOIN identities i ON i.id = e.identity_id
		 WHERE e.id = $1`, id,
	).Scan(&agg.Employee.ID, &agg.Employee.IdentityID, &agg.Employee.Position,
		&agg.Employee.Birthday, &agg.Employee.Age, &agg.Employee.Address,
		&agg.Identity.ID, &agg.Identity.Authority, &agg.Identity.Email, &agg.Identity.Password,
		&agg.Identity.Firstname, &agg.Identity.Lastname, &agg.Identity.Patronymic, &agg.Identity.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT l.id, l.gym_id, l.address, l.open::text, l.close::text,
		        g.id, g.name, g.description, g.created_at
		 FROM locations_employees le
		 JOIN locations l ON l.id = le.location_id
		 JOIN gyms g ON g.id = l.gym_id
		 WHERE le.employee_id = $1
		 ORDER BY l.address`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load employee locations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			lwg       LocationWithGym
			openText  string
			closeText string
		)
		if err := rows.Scan(
			&lwg.Location.ID, &lwg.Location.GymID, &lwg.Location.Address, &openText, &closeText,
			&lwg.Gym.ID, &lwg.Gym.Name, &lwg.Gym.Description, &lwg.Gym.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan location with gym: %w", err)
		}
		if lwg.Location.Open, err = time.Parse(timeOfDayColumnLayout, openText); err != nil {
			return nil, fmt.Errorf("failed to parse open time: %w", err)
		}
		if lwg.Location.Close, err = time.Parse(timeOfDayColumnLayout, closeText); err != nil {
			return nil, fmt.Errorf("failed to parse close time: %w", err)
		}
		agg.Locations = append(agg.Locations, lwg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employee locations: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot transaction: %w", err)
	}
	return agg, nil
}

// LoadLocation は店舗・所有ジム・リンク済み従業員（アイデンティティ付き）を読む。
// ルートが存在しない場合はnilを返す。
func (r *PostgresAggregateRepo) LoadLocation(ctx context.Context, id string) (*LocationAggregate, error) {
	tx, err := r.db.BeginTx(ctx, snapshotTxOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	agg := &LocationAggregate{}
	var openText, closeText string
	err = tx.QueryRowContext(ctx,
		`SELECT l.id, l.gym_id, l.address, l.open::text, l.close::text,
		        g.id, g.name, g.description, g.created_at
		 FROM locations l
		 JOIN gyms g ON g.id = l.gym_id
		 WHERE l.id = $1`, id,
	).Scan(&agg.Location.ID, &agg.Location.GymID, &agg.Location.Address, &openText, &closeText,
		&agg.Gym.ID, &agg.Gym.Name, &agg.Gym.Description, &agg.Gym.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load location: %w", err)
	}
	if agg.Location.Open, err = time.Parse(timeOfDayColumnLayout, openText); err != nil {
		return nil, fmt.Errorf("failed to parse open time: %w", err)
	}
	if agg.Location.Close, err = time.Parse(timeOfDayColumnLayout, closeText); err != nil {
		return nil, fmt.Errorf("failed to parse close time: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT e.id, e.identity_id, e.position, e.birthday, e.age, e.address,
		        i.id, i.authority, i.email, i.password, i.firstname, i.lastname, i.patronymic, i.is_active
		 FROM locations_employees le
		 JOIN employees e ON e.id = le.employee_id
		 JOIN identities i ON i.id = e.identity_id
		 WHERE le.location_id = $1
		 ORDER BY i.email`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load location employees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ewi EmployeeWithIdentity
		if err := rows.Scan(
			&ewi.Employee.ID, &ewi.Employee.IdentityID, &ewi.Employee.Position,
			&ewi.Employee.Birthday, &ewi.Employee.Age, &ewi.Employee.Address,
			&ewi.Identity.ID, &ewi.Identity.Authority, &ewi.Identity.Email, &ewi.Identity.Password,
			&ewi.Identity.Firstname, &ewi.Identity.Lastname, &ewi.Identity.Patronymic, &ewi.Identity.IsActive,
		); err != nil {
			return nil, fmt.Errorf("failed to scan employee with identity: %w", err)
		}
		agg.Employees = append(agg.Employees, ewi)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate location employees: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot transaction: %w", err)
	}
	return agg, nil
}

// LoadGym はジムと所属店舗を読む。ルートが存在しない場合はnilを返す。
func (r *PostgresAggregateRepo) LoadGym(ctx context.Context, id string) (*GymAggregate, error) {
	tx, err := r.db.BeginTx(ctx, snapshotTxOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	agg := &GymAggregate{}
	err = tx.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM gyms WHERE id = $1`, id,
	).Scan(&agg.Gym.ID, &agg.Gym.Name, &agg.Gym.Description, &agg.Gym.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load gym: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, gym_id, address, open::text, close::text
		 FROM locations WHERE gym_id = $1
		 ORDER BY address`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load gym locations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			location  model.Location
			openText  string
			closeText string
		)
		if err := rows.Scan(&location.ID, &location.GymID, &location.Address, &openText, &closeText); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		if location.Open, err = time.Parse(timeOfDayColumnLayout, openText); err != nil {
			return nil, fmt.Errorf("failed to parse open time: %w", err)
		}
		if location.Close, err = time.Parse(timeOfDayColumnLayout, closeText); err != nil {
			return nil, fmt.Errorf("failed to parse close time: %w", err)
		}
		agg.Locations = append(agg.Locations, location)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate gym locations: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot transaction: %w", err)
	}
	return agg, nil
}

// scanOptionalEmployee は従業員行をスキャンする。行が存在しない場合はnilを返す。
func scanOptionalEmployee(row *sql.Row) (*model.Employee, error) {
	e := &model.Employee{}
	err := row.Scan(&e.ID, &e.IdentityID, &e.Position, &e.Birthday, &e.Age, &e.Address)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan employee: %w", err)
	}
	return e, nil
}

// compile-time interface check
var _ AggregateRepository = (*PostgresAggregateRepo)(nil)
