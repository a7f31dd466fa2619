package model

import (
	"fmt"
	"time"
)

// リクエストの日付・時刻フィールドの入力形式
const (
	DateLayout        = "2006-01-02"
	TimeOfDayLayout   = "15:04"
	timeOfDayLongForm = "15:04:05"
)

// ParseDate は"2006-01-02"形式の日付文字列を解析する。
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, NewValidationError(fmt.Sprintf("invalid date %q, expected format %s", s, DateLayout))
	}
	return t, nil
}

// ParseTimeOfDay は"15:04"または"15:04:05"形式の時刻文字列を解析する。
func ParseTimeOfDay(s string) (time.Time, error) {
	if t, err := time.Parse(timeOfDayLongForm, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(TimeOfDayLayout, s)
	if err != nil {
		return time.Time{}, NewValidationError(fmt.Sprintf("invalid time %q, expected format %s", s, TimeOfDayLayout))
	}
	return t, nil
}

// IdentityRequest はアイデンティティの作成・更新リクエストのボディ。
// 未設定のフィールドは更新時に既存値を維持する（部分更新）。
type IdentityRequest struct {
	ID         *string    `json:"id,omitempty"`
	Authority  *Authority `json:"authority,omitempty"`
	Email      *string    `json:"email,omitempty"`
	Password   *string    `json:"password,omitempty"`
	Firstname  *string    `json:"firstname,omitempty"`
	Lastname   *string    `json:"lastname,omitempty"`
	Patronymic *string    `json:"patronymic,omitempty"`
	IsActive   *bool      `json:"isActive,omitempty"`
}

// ValidateForCreate は作成時の必須フィールドを検証する。
// 欠落があればVALIDATION_ERRORを返す。
func (r *IdentityRequest) ValidateForCreate() error {
	switch {
	case r.Authority == nil:
		return NewValidationError("authority is required")
	case !r.Authority.IsValid():
		return NewValidationError(fmt.Sprintf("invalid authority %q", *r.Authority))
	case r.Email == nil || *r.Email == "":
		return NewValidationError("email is required")
	case r.Password == nil || *r.Password == "":
		return NewValidationError("password is required")
	case r.Firstname == nil || *r.Firstname == "":
		return NewValidationError("firstname is required")
	case r.Lastname == nil || *r.Lastname == "":
		return NewValidationError("lastname is required")
	case r.Patronymic == nil || *r.Patronymic == "":
		return NewValidationError("patronymic is required")
	}
	return nil
}

// ValidateForUpdate は更新時にターゲットidの存在を検証する。
func (r *IdentityRequest) ValidateForUpdate() error {
	if r.ID == nil || *r.ID == "" {
		return NewValidationError("identity id is required")
	}
	if r.Authority != nil && !r.Authority.IsValid() {
		return NewValidationError(fmt.Sprintf("invalid authority %q", *r.Authority))
	}
	return nil
}

// EmployeeRequest は従業員の作成・更新リクエストのボディ。
type EmployeeRequest struct {
	ID         *string   `json:"id,omitempty"`
	IdentityID *string   `json:"identityId,omitempty"`
	Position   *Position `json:"position,omitempty"`
	Birthday   *string   `json:"birthday,omitempty"` // "2006-01-02"
	Address    *string   `json:"address,omitempty"`
}

// ValidateForCreate は作成時の必須フィールドを検証する。
func (r *EmployeeRequest) ValidateForCreate() error {
	switch {
	case r.IdentityID == nil || *r.IdentityID == "":
		return NewValidationError("identity id is required")
	case r.Position == nil:
		return NewValidationError("position is required")
	case !r.Position.IsValid():
		return NewValidationError(fmt.Sprintf("invalid position %q", *r.Position))
	case r.Birthday == nil || *r.Birthday == "":
		return NewValidationError("birthday is required")
	case r.Address == nil || *r.Address == "":
		return NewValidationError("address is required")
	}
	if _, err := ParseDate(*r.Birthday); err != nil {
		return err
	}
	return nil
}

// ValidateForUpdate は更新時にターゲットidと任意フィールドの形式を検証する。
func (r *EmployeeRequest) ValidateForUpdate() error {
	if r.ID == nil || *r.ID == "" {
		return NewValidationError("employee id is required")
	}
	if r.Position != nil && !r.Position.IsValid() {
		return NewValidationError(fmt.Sprintf("invalid position %q", *r.Position))
	}
	if r.Birthday != nil {
		if _, err := ParseDate(*r.Birthday); err != nil {
			return err
		}
	}
	return nil
}

// GymRequest はジムの作成・更新リクエストのボディ。
type GymRequest struct {
	ID          *string `json:"id,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ValidateForCreate は作成時の必須フィールドを検証する。
func (r *GymRequest) ValidateForCreate() error {
	switch {
	case r.Name == nil || *r.Name == "":
		return NewValidationError("name is required")
	case r.Description == nil || *r.Description == "":
		return NewValidationError("description is required")
	}
	return nil
}

// ValidateForUpdate は更新時にターゲットidの存在を検証する。
func (r *GymRequest) ValidateForUpdate() error {
	if r.ID == nil || *r.ID == "" {
		return NewValidationError("gym id is required")
	}
	return nil
}

// LocationRequest は店舗の作成・更新リクエストのボディ。
type LocationRequest struct {
	ID      *string `json:"id,omitempty"`
	GymID   *string `json:"gymId,omitempty"`
	Address *string `json:"address,omitempty"`
	Open    *string `json:"open,omitempty"`  // "15:04"
	Close   *string `json:"close,omitempty"` // "15:04"
}

// ValidateForCreate は作成時の必須フィールドを検証する。
func (r *LocationRequest) ValidateForCreate() error {
	switch {
	case r.GymID == nil || *r.GymID == "":
		return NewValidationError("gym id is required")
	case r.Address == nil || *r.Address == "":
		return NewValidationError("address is required")
	case r.Open == nil || *r.Open == "":
		return NewValidationError("open is required")
	case r.Close == nil || *r.Close == "":
		return NewValidationError("close is required")
	}
	if _, err := ParseTimeOfDay(*r.Open); err != nil {
		return err
	}
	if _, err := ParseTimeOfDay(*r.Close); err != nil {
		return err
	}
	return nil
}

// ValidateForUpdate は更新時にターゲットidと任意フィールドの形式を検証する。
func (r *LocationRequest) ValidateForUpdate() error {
	if r.ID == nil || *r.ID == "" {
		return NewValidationError("location id is required")
	}
	if r.Open != nil {
		if _, err := ParseTimeOfDay(*r.Open); err != nil {
			return err
		}
	}
	if r.Close != nil {
		if _, err := ParseTimeOfDay(*r.Close); err != nil {
			return err
		}
	}
	return nil
}
