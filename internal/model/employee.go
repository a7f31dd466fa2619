package model

import "time"

// Position は従業員の役職を表す。
type Position string

const (
	// PositionDirector はディレクター職を示す。
	PositionDirector Position = "DIRECTOR"
	// PositionManager はマネージャー職を示す。
	PositionManager Position = "MANAGER"
	// PositionServant は一般スタッフ職を示す。
	PositionServant Position = "SERVANT"
)

// IsValid は役職が定義済みの値かどうかを判定する。
func (p Position) IsValid() bool {
	switch p {
	case PositionDirector, PositionManager, PositionServant:
		return true
	default:
		return false
	}
}

// Employee は従業員を表す。
// Identityと1:1で対応し、LocationとはN:Mで関連する。
// Ageは誕生日から導出される値であり、バックグラウンドジョブで定期的に再計算される。
type Employee struct {
	ID         string
	IdentityID string
	Position   Position
	Birthday   time.Time
	Age        int
	Address    string
}

// AgeAt は誕生日から指定時点での満年齢を計算する。
func (e *Employee) AgeAt(now time.Time) int {
	return YearsBetween(e.Birthday, now)
}

// YearsBetween は2つの日付の間の満年数を返す。
func YearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	// 誕生日が未到来の場合は1引く
	anniversary := from.AddDate(years, 0, 0)
	if anniversary.After(to) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
