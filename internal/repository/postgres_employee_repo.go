package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/burgas/gymhub/internal/model"
)

// PostgresEmployeeRepo はPostgreSQLを使用した従業員リポジトリ。
type PostgresEmployeeRepo struct {
	db *sql.DB
}

// NewPostgresEmployeeRepo はPostgresEmployeeRepoを生成する。
func NewPostgresEmployeeRepo(db *sql.DB) *PostgresEmployeeRepo {
	return &PostgresEmployeeRepo{db: db}
}

const employeeColumns = `id, identity_id, position, birthday, age, address`

// Create は従業員を作成する。
func (r *PostgresEmployeeRepo) Create(ctx context.Context, employee *model.Employee) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO employees (id, identity_id, position, birthday, age, address)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		employee.ID, employee.IdentityID, employee.Position,
		employee.Birthday, employee.Age, employee.Address,
	)
	if err != nil {
		return fmt.Errorf("failed to insert employee: %w", err)
	}
	return nil
}

// FindByID は指定IDの従業員を取得する。見つからない場合はnilを返す。
func (r *PostgresEmployeeRepo) FindByID(ctx context.Context, id string) (*model.Employee, error) {
	employee := &model.Employee{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id,
	).Scan(&employee.ID, &employee.IdentityID, &employee.Position,
		&employee.Birthday, &employee.Age, &employee.Address)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find employee: %w", err)
	}
	return employee, nil
}

// FindIDByIdentityEmail はアイデンティティのメールアドレスから従業員idを解決する。
// 該当する従業員がいない場合は空文字列を返す。
func (r *PostgresEmployeeRepo) FindIDByIdentityEmail(ctx context.Context, email string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT e.id
		 FROM employees e
		 JOIN identities i ON i.id = e.identity_id
		 WHERE i.email = $1`,
		email,
	).Scan(&id)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve employee by identity email: %w", err)
	}
	return id, nil
}

// FindIdentityIDByEmployeeID は従業員idから所有アイデンティティidを解決する。
// 該当しない場合は空文字列を返す。
func (r *PostgresEmployeeRepo) FindIdentityIDByEmployeeID(ctx context.Context, employeeID string) (string, error) {
	var identityID string
	err := r.db.QueryRowContext(ctx,
		`SELECT i.id
		 FROM identities i
		 JOIN employees e ON e.identity_id = i.id
		 WHERE e.id = $1`,
		employeeID,
	).Scan(&identityID)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve identity by employee: %w", err)
	}
	return identityID, nil
}

// ListByLocationWithIdentity は指定店舗に紐付く従業員をアイデンティティ付きで返す。
func (r *PostgresEmployeeRepo) ListByLocationWithIdentity(ctx context.Context, locationID string) ([]EmployeeWithIdentity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.identity_id, e.position, e.birthday, e.age, e.address,
		        i.id, i.authority, i.email, i.password, i.firstname, i.lastname, i.patronymic, i.is_active
		 FROM locations_employees le
		 JOIN employees e ON e.id = le.employee_id
		 JOIN identities i ON i.id = e.identity_id
		 WHERE le.location_id = $1
		 ORDER BY i.email`,
		locationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees by location: %w", err)
	}
	defer rows.Close()

	var results []EmployeeWithIdentity
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
		results = append(results, ewi)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}
	return results, nil
}

// Update は従業員の属性を上書き更新する。
func (r *PostgresEmployeeRepo) Update(ctx context.Context, employee *model.Employee) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE employees
		 SET identity_id = $2, position = $3, birthday = $4, age = $5, address = $6
		 WHERE id = $1`,
		employee.ID, employee.IdentityID, employee.Position,
		employee.Birthday, employee.Age, employee.Address,
	)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの従業員を削除する。
// 削除トランザクション内で所有アイデンティティidを解決して返す。
func (r *PostgresEmployeeRepo) DeleteByID(ctx context.Context, id string) (string, bool, error) {
	var identityID string
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM employees WHERE id = $1 RETURNING identity_id`, id,
	).Scan(&identityID)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to delete employee: %w", err)
	}
	return identityID, true, nil
}

// AddLocations は従業員と店舗のリンクを1トランザクションで追加する。
// 存在しない店舗idは黙ってスキップされる（原子性は保たれる）。
func (r *PostgresEmployeeRepo) AddLocations(ctx context.Context, employeeID string, locationIDs []string) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, locationID := range locationIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO locations_employees (location_id, employee_id)
			 SELECT l.id, $2 FROM locations l WHERE l.id = $1
			 ON CONFLICT DO NOTHING`,
			locationID, employeeID,
		)
		if err != nil {
			return fmt.Errorf("failed to link location %s: %w", locationID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RemoveLocations は従業員と店舗のリンクを1トランザクションで削除する。
func (r *PostgresEmployeeRepo) RemoveLocations(ctx context.Context, employeeID string, locationIDs []string) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, locationID := range locationIDs {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM locations_employees WHERE location_id = $1 AND employee_id = $2`,
			locationID, employeeID,
		)
		if err != nil {
			return fmt.Errorf("failed to unlink location %s: %w", locationID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListAgeRecords は全従業員のid・誕生日・保存済みageを返す（age再計算ジョブ用）。
func (r *PostgresEmployeeRepo) ListAgeRecords(ctx context.Context) ([]EmployeeAgeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, birthday, age FROM employees`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employee ages: %w", err)
	}
	defer rows.Close()

	var records []EmployeeAgeRecord
	for rows.Next() {
		var rec EmployeeAgeRecord
		if err := rows.Scan(&rec.ID, &rec.Birthday, &rec.Age); err != nil {
			return nil, fmt.Errorf("failed to scan employee age row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employee ages: %w", err)
	}
	return records, nil
}

// UpdateAges は指定idのageを1つのread-committedトランザクションで更新する。
func (r *PostgresEmployeeRepo) UpdateAges(ctx context.Context, ages map[string]int) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for id, age := range ages {
		if _, err := tx.ExecContext(ctx, `UPDATE employees SET age = $1 WHERE id = $2`, age, id); err != nil {
			return fmt.Errorf("failed to update age for employee %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// compile-time interface check
var _ EmployeeRepository = (*PostgresEmployeeRepo)(nil)
