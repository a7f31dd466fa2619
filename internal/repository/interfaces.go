// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/burgas/gymhub/internal/model"
)

// IdentityRepository はアイデンティティの永続化インターフェース。
type IdentityRepository interface {
	// Create はアイデンティティを作成する。
	Create(ctx context.Context, identity *model.Identity) error

	// FindByID は指定IDのアイデンティティを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Identity, error)

	// FindByEmail はメールアドレスでアイデンティティを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Identity, error)

	// FindAll は全アイデンティティを返す。
	FindAll(ctx context.Context) ([]*model.Identity, error)

	// Update はアイデンティティの属性（パスワード以外）を上書き更新する。
	Update(ctx context.Context, identity *model.Identity) error

	// UpdatePassword はパスワードハッシュのみを更新する。
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// UpdateStatus は有効フラグのみを更新する。
	UpdateStatus(ctx context.Context, id string, isActive bool) error

	// DeleteByID は指定IDのアイデンティティを削除する。
	// 1:1対応するEmployeeはCASCADE削除される。削除トランザクション内で
	// 解決したEmployee idを返す（存在しない場合は空文字列）。
	// 行が存在しない場合はfound=falseを返す。
	DeleteByID(ctx context.Context, id string) (employeeID string, found bool, err error)
}

// EmployeeRepository は従業員の永続化インターフェース。
type EmployeeRepository interface {
	// Create は従業員を作成する。
	Create(ctx context.Context, employee *model.Employee) error

	// FindByID は指定IDの従業員を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Employee, error)

	// FindIDByIdentityEmail はアイデンティティのメールアドレスから
	// 従業員idを解決する（所有権チェック用のジョイン）。
	// 該当する従業員がいない場合は空文字列を返す。
	FindIDByIdentityEmail(ctx context.Context, email string) (string, error)

	// FindIdentityIDByEmployeeID は従業員idから所有アイデンティティidを解決する
	// （キャッシュ無効化の1ホップ解決用）。該当しない場合は空文字列を返す。
	FindIdentityIDByEmployeeID(ctx context.Context, employeeID string) (string, error)

	// ListByLocationWithIdentity は指定店舗に紐付く従業員を
	// アイデンティティ付きで返す。
	ListByLocationWithIdentity(ctx context.Context, locationID string) ([]EmployeeWithIdentity, error)

	// Update は従業員の属性を上書き更新する。
	Update(ctx context.Context, employee *model.Employee) error

	// DeleteByID は指定IDの従業員を削除する。削除トランザクション内で
	// 解決した所有アイデンティティidを返す。
	// 行が存在しない場合はfound=falseを返す。
	DeleteByID(ctx context.Context, id string) (identityID string, found bool, err error)

	// AddLocations は従業員と店舗のリンクを1トランザクションで追加する。
	AddLocations(ctx context.Context, employeeID string, locationIDs []string) error

	// RemoveLocations は従業員と店舗のリンクを1トランザクションで削除する。
	RemoveLocations(ctx context.Context, employeeID string, locationIDs []string) error
}

// GymRepository はジムの永続化インターフェース。
type GymRepository interface {
	// Create はジムを作成する。
	Create(ctx context.Context, gym *model.Gym) error

	// FindByID は指定IDのジムを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Gym, error)

	// FindAll は全ジムを返す。
	FindAll(ctx context.Context) ([]*model.Gym, error)

	// Update はジムの属性を上書き更新する。
	Update(ctx context.Context, gym *model.Gym) error

	// DeleteByID は指定IDのジムを削除する。所属LocationはCASCADE削除される。
	// 削除トランザクション内で解決した所属Location idの一覧を返す。
	// 行が存在しない場合はfound=falseを返す。
	DeleteByID(ctx context.Context, id string) (locationIDs []string, found bool, err error)
}

// LocationRepository は店舗の永続化インターフェース。
type LocationRepository interface {
	// Create は店舗を作成する。
	Create(ctx context.Context, location *model.Location) error

	// FindByID は指定IDの店舗を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Location, error)

	// ListIDs は全店舗のidを返す。
	ListIDs(ctx context.Context) ([]string, error)

	// FindGymIDByLocationID は店舗idから所有ジムidを解決する
	// （キャッシュ無効化の1ホップ解決用）。該当しない場合は空文字列を返す。
	FindGymIDByLocationID(ctx context.Context, locationID string) (string, error)

	// ExistsMembership は指定店舗に指定メールアドレスのアイデンティティを持つ
	// 従業員が紐付いているかを、Location→LocationEmployee→Employee→Identityの
	// ジョインで判定する。
	ExistsMembership(ctx context.Context, locationID, email string) (bool, error)

	// Update は店舗の属性を上書き更新する。
	Update(ctx context.Context, location *model.Location) error

	// DeleteByID は指定IDの店舗を削除する。ジョイン行はCASCADE削除される。
	// 削除トランザクション内で解決した所有ジムidを返す。
	// 行が存在しない場合はfound=falseを返す。
	DeleteByID(ctx context.Context, id string) (gymID string, found bool, err error)

	// AddEmployees は店舗と従業員のリンクを1トランザクションで追加する。
	AddEmployees(ctx context.Context, locationID string, employeeIDs []string) error

	// RemoveEmployees は店舗と従業員のリンクを1トランザクションで削除する。
	RemoveEmployees(ctx context.Context, locationID string, employeeIDs []string) error
}

// SessionRepository はOAuthセッションの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// AggregateRepository は集約DTO構築用の読み取り専用スナップショットロードを提供する。
// 各Loadはルートエンティティと1ホップの関連を単一のread-onlyトランザクションで読む。
type AggregateRepository interface {
	// LoadIdentity はアイデンティティと（存在すれば）その従業員を読む。
	// ルートが存在しない場合はnilを返す。
	LoadIdentity(ctx context.Context, id string) (*IdentityAggregate, error)

	// LoadEmployee は従業員・所有アイデンティティ・リンク済み店舗（ジム付き）を読む。
	LoadEmployee(ctx context.Context, id string) (*EmployeeAggregate, error)

	// LoadLocation は店舗・所有ジム・リンク済み従業員（アイデンティティ付き）を読む。
	LoadLocation(ctx context.Context, id string) (*LocationAggregate, error)

	// LoadGym はジムと所属店舗を読む。
	LoadGym(ctx context.Context, id string) (*GymAggregate, error)
}

// IdentityAggregate はアイデンティティと1ホップの関連のスナップショット。
type IdentityAggregate struct {
	Identity model.Identity
	Employee *model.Employee // 存在しない場合はnil
}

// EmployeeAggregate は従業員と1ホップの関連のスナップショット。
type EmployeeAggregate struct {
	Employee  model.Employee
	Identity  model.Identity
	Locations []LocationWithGym
}

// LocationWithGym は店舗とその所有ジムの組。
type LocationWithGym struct {
	Location model.Location
	Gym      model.Gym
}

// EmployeeWithIdentity は従業員とそのアイデンティティの組。
type EmployeeWithIdentity struct {
	Employee model.Employee
	Identity model.Identity
}

// EmployeeAgeRecord はage再計算ジョブが走査する従業員の最小ビュー。
type EmployeeAgeRecord struct {
	ID       string
	Birthday time.Time
	Age      int
}

// LocationAggregate は店舗と1ホップの関連のスナップショット。
type LocationAggregate struct {
	Location  model.Location
	Gym       model.Gym
	Employees []EmployeeWithIdentity
}

// GymAggregate はジムと所属店舗のスナップショット。
type GymAggregate struct {
	Gym       model.Gym
	Locations []model.Location
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
