// Package aggregate は非正規化された集約DTOの構築・キャッシュ・無効化を提供する。
package aggregate

import (
	"time"

	"github.com/burgas/gymhub/internal/model"
	"github.com/burgas/gymhub/internal/repository"
)

// レスポンスの日付・時刻表現。
const (
	birthdayFormat  = "02 January 2006"
	createdAtFormat = "02 January 2006, 03:04"
	clockFormat     = "03:04"
)

// IdentityShortResponse はアイデンティティの短縮表現。
type IdentityShortResponse struct {
	ID         string `json:"id"`
	Authority  string `json:"authority"`
	Email      string `json:"email"`
	Firstname  string `json:"firstname"`
	Lastname   string `json:"lastname"`
	Patronymic string `json:"patronymic"`
	IsActive   bool   `json:"isActive"`
}

// IdentityFullResponse はアイデンティティと従業員の集約表現。
// 従業員を持たない場合employeeはnullになる。
type IdentityFullResponse struct {
	IdentityShortResponse
	Employee *EmployeeNoIdentityResponse `json:"employee"`
}

// EmployeeNoIdentityResponse はアイデンティティを含まない従業員表現。
type EmployeeNoIdentityResponse struct {
	ID       string `json:"id"`
	Position string `json:"position"`
	Birthday string `json:"birthday"`
	Age      int    `json:"age"`
	Address  string `json:"address"`
}

// EmployeeWithIdentityResponse はアイデンティティ付きの従業員表現。
type EmployeeWithIdentityResponse struct {
	EmployeeNoIdentityResponse
	Identity IdentityShortResponse `json:"identity"`
}

// EmployeeFullResponse は従業員・アイデンティティ・勤務店舗の集約表現。
type EmployeeFullResponse struct {
	EmployeeWithIdentityResponse
	Locations []LocationWithGymResponse `json:"locations"`
}

// GymShortResponse はジムの短縮表現。
type GymShortResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
}

// GymFullResponse はジムと所属店舗の集約表現。
type GymFullResponse struct {
	GymShortResponse
	Locations []LocationShortResponse `json:"locations"`
}

// LocationShortResponse は店舗の短縮表現。
type LocationShortResponse struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	Open    string `json:"open"`
	Close   string `json:"close"`
}

// LocationWithGymResponse は所有ジム付きの店舗表現。
type LocationWithGymResponse struct {
	LocationShortResponse
	Gym GymShortResponse `json:"gym"`
}

// LocationFullResponse は店舗・ジム・所属従業員の集約表現。
type LocationFullResponse struct {
	LocationWithGymResponse
	Employees []EmployeeWithIdentityResponse `json:"employees"`
}

// NewIdentityShortResponse はIdentityからIdentityShortResponseを構築する。
func NewIdentityShortResponse(identity *model.Identity) IdentityShortResponse {
	return IdentityShortResponse{
		ID:         identity.ID,
		Authority:  string(identity.Authority),
		Email:      identity.Email,
		Firstname:  identity.Firstname,
		Lastname:   identity.Lastname,
		Patronymic: identity.Patronymic,
		IsActive:   identity.IsActive,
	}
}

// NewEmployeeNoIdentityResponse はEmployeeからEmployeeNoIdentityResponseを構築する。
func NewEmployeeNoIdentityResponse(employee *model.Employee) EmployeeNoIdentityResponse {
	return EmployeeNoIdentityResponse{
		ID:       employee.ID,
		Position: string(employee.Position),
		Birthday: employee.Birthday.Format(birthdayFormat),
		Age:      employee.Age,
		Address:  employee.Address,
	}
}

// NewEmployeeWithIdentityResponse は従業員とアイデンティティの組から
// EmployeeWithIdentityResponseを構築する。
func NewEmployeeWithIdentityResponse(employee *model.Employee, identity *model.Identity) EmployeeWithIdentityResponse {
	return EmployeeWithIdentityResponse{
		EmployeeNoIdentityResponse: NewEmployeeNoIdentityResponse(employee),
		Identity:                   NewIdentityShortResponse(identity),
	}
}

// NewGymShortResponse はGymからGymShortResponseを構築する。
func NewGymShortResponse(gym *model.Gym) GymShortResponse {
	return GymShortResponse{
		ID:          gym.ID,
		Name:        gym.Name,
		Description: gym.Description,
		CreatedAt:   gym.CreatedAt.Format(createdAtFormat),
	}
}

// NewLocationShortResponse はLocationからLocationShortResponseを構築する。
func NewLocationShortResponse(location *model.Location) LocationShortResponse {
	return LocationShortResponse{
		ID:      location.ID,
		Address: location.Address,
		Open:    formatClock(location.Open),
		Close:   formatClock(location.Close),
	}
}

// NewLocationWithGymResponse は店舗とジムの組からLocationWithGymResponseを構築する。
func NewLocationWithGymResponse(location *model.Location, gym *model.Gym) LocationWithGymResponse {
	return LocationWithGymResponse{
		LocationShortResponse: NewLocationShortResponse(location),
		Gym:                   NewGymShortResponse(gym),
	}
}

// NewIdentityFullResponse はスナップショットからIdentityFullResponseを構築する。
func NewIdentityFullResponse(agg *repository.IdentityAggregate) IdentityFullResponse {
	resp := IdentityFullResponse{
		IdentityShortResponse: NewIdentityShortResponse(&agg.Identity),
	}
	if agg.Employee != nil {
		e := NewEmployeeNoIdentityResponse(agg.Employee)
		resp.Employee = &e
	}
	return resp
}

// NewEmployeeFullResponse はスナップショットからEmployeeFullResponseを構築する。
func NewEmployeeFullResponse(agg *repository.EmployeeAggregate) EmployeeFullResponse {
	resp := EmployeeFullResponse{
		EmployeeWithIdentityResponse: NewEmployeeWithIdentityResponse(&agg.Employee, &agg.Identity),
		Locations:                    make([]LocationWithGymResponse, 0, len(agg.Locations)),
	}
	for i := range agg.Locations {
		resp.Locations = append(resp.Locations,
			NewLocationWithGymResponse(&agg.Locations[i].Location, &agg.Locations[i].Gym))
	}
	return resp
}

// NewLocationFullResponse はスナップショットからLocationFullResponseを構築する。
func NewLocationFullResponse(agg *repository.LocationAggregate) LocationFullResponse {
	resp := LocationFullResponse{
		LocationWithGymResponse: NewLocationWithGymResponse(&agg.Location, &agg.Gym),
		Employees:               make([]EmployeeWithIdentityResponse, 0, len(agg.Employees)),
	}
	for i := range agg.Employees {
		resp.Employees = append(resp.Employees,
			NewEmployeeWithIdentityResponse(&agg.Employees[i].Employee, &agg.Employees[i].Identity))
	}
	return resp
}

// NewGymFullResponse はスナップショットからGymFullResponseを構築する。
func NewGymFullResponse(agg *repository.GymAggregate) GymFullResponse {
	resp := GymFullResponse{
		GymShortResponse: NewGymShortResponse(&agg.Gym),
		Locations:        make([]LocationShortResponse, 0, len(agg.Locations)),
	}
	for i := range agg.Locations {
		resp.Locations = append(resp.Locations, NewLocationShortResponse(&agg.Locations[i]))
	}
	return resp
}

func formatClock(t time.Time) string {
	return t.Format(clockFormat)
}
