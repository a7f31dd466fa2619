package model

import "time"

// Gym はジム（ブランド・運営主体）を表す。
// 0個以上のLocationを所有する。
type Gym struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// Location はジムの店舗（拠点）を表す。
// ちょうど1つのGymに属し、EmployeeとはN:Mで関連する。
// Open/Closeは営業開始・終了時刻で、日付部分は意味を持たない。
type Location struct {
	ID      string
	GymID   string
	Address string
	Open    time.Time
	Close   time.Time
}
