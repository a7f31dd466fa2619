package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/burgas/gymhub/internal/model"
)

// PostgresIdentityRepo はPostgreSQLを使用したアイデンティティリポジトリ。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

const identityColumns = `id, authority, email, password, firstname, lastname, patronymic, is_active`

// Create はアイデンティティを作成する。
func (r *PostgresIdentityRepo) Create(ctx context.Context, identity *model.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (id, authority, email, password, firstname, lastname, patronymic, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		identity.ID, identity.Authority, identity.Email, identity.Password,
		identity.Firstname, identity.Lastname, identity.Patronymic, identity.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}
	return nil
}

// FindByID は指定IDのアイデンティティを取得する。見つからない場合はnilを返す。
func (r *PostgresIdentityRepo) FindByID(ctx context.Context, id string) (*model.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	return scanIdentity(row)
}

// FindByEmail はメールアドレスでアイデンティティを検索する。見つからない場合はnilを返す。
func (r *PostgresIdentityRepo) FindByEmail(ctx context.Context, email string) (*model.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = $1`, email)
	return scanIdentity(row)
}

// FindAll は全アイデンティティを返す。
func (r *PostgresIdentityRepo) FindAll(ctx context.Context) ([]*model.Identity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+identityColumns+` FROM identities ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer rows.Close()

	var identities []*model.Identity
	for rows.Next() {
		identity := &model.Identity{}
		if err := rows.Scan(
			&identity.ID, &identity.Authority, &identity.Email, &identity.Password,
			&identity.Firstname, &identity.Lastname, &identity.Patronymic, &identity.IsActive,
		); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate identities: %w", err)
	}
	return identities, nil
}

// Update はアイデンティティの属性（パスワード以外）を上書き更新する。
func (r *PostgresIdentityRepo) Update(ctx context.Context, identity *model.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities
		 SET authority = $2, email = $3, firstname = $4, lastname = $5, patronymic = $6
		 WHERE id = $1`,
		identity.ID, identity.Authority, identity.Email,
		identity.Firstname, identity.Lastname, identity.Patronymic,
	)
	if err != nil {
		return fmt.Errorf("failed to update identity: %w", err)
	}
	return nil
}

// UpdatePassword はパスワードハッシュのみを更新する。
func (r *PostgresIdentityRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities SET password = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update identity password: %w", err)
	}
	return nil
}

// UpdateStatus は有効フラグのみを更新する。
func (r *PostgresIdentityRepo) UpdateStatus(ctx context.Context, id string, isActive bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities SET is_active = $2 WHERE id = $1`, id, isActive)
	if err != nil {
		return fmt.Errorf("failed to update identity status: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのアイデンティティを削除する。
// CASCADE削除される前に、同一トランザクション内でリンク済みEmployee idを解決して返す。
func (r *PostgresIdentityRepo) DeleteByID(ctx context.Context, id string) (string, bool, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return "", false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var employeeID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM employees WHERE identity_id = $1`, id).Scan(&employeeID)
	if err != nil && err != sql.ErrNoRows {
		return "", false, fmt.Errorf("failed to resolve linked employee: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return "", false, fmt.Errorf("failed to delete identity: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return "", false, nil
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return employeeID, true, nil
}

func scanIdentity(row *sql.Row) (*model.Identity, error) {
	identity := &model.Identity{}
	err := row.Scan(
		&identity.ID, &identity.Authority, &identity.Email, &identity.Password,
		&identity.Firstname, &identity.Lastname, &identity.Patronymic, &identity.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	return identity, nil
}

// compile-time interface check
var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
