// Package model はドメインモデルを定義する。
package model

// Authority はアイデンティティの権限レベルを表す。
type Authority string

const (
	// AuthorityAdmin は管理者権限を示す。
	AuthorityAdmin Authority = "ADMIN"
	// AuthorityUser は一般ユーザー権限を示す。
	AuthorityUser Authority = "USER"
)

// IsValid は権限レベルが定義済みの値かどうかを判定する。
func (a Authority) IsValid() bool {
	switch a {
	case AuthorityAdmin, AuthorityUser:
		return true
	default:
		return false
	}
}

// Identity はアカウント（認証主体）を表す。
// Employeeと1:1で対応する（Employeeを持たない場合もある）。
type Identity struct {
	ID         string
	Authority  Authority
	Email      string
	Password   string // bcryptハッシュ
	Firstname  string
	Lastname   string
	Patronymic string
	IsActive   bool
}
