package model

import "time"

// Session はOAuthログイン済みユーザーのセッションを表す。
// ジム一覧・詳細の閲覧ゲートに使用する。
type Session struct {
	ID        string
	Login     string // 外部IdP上のユーザー名
	Email     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
