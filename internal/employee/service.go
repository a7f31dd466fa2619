// Package employee は従業員のユースケースを提供する。
package employee

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/burgas/gymhub/internal/aggregate"
	"github.com/burgas/gymhub/internal/model"
	"github.com/burgas/gymhub/internal/repository"
	"github.com/burgas/gymhub/internal/security"
)

// AggregateReader は従業員集約のリードスルー取得インターフェース。
type AggregateReader interface {
	GetEmployee(ctx context.Context, id string) (*aggregate.EmployeeFullResponse, error)
}

// Invalidator は従業員変更後のキャッシュ無効化インターフェース。
type Invalidator interface {
	EmployeeCreated(ctx context.Context, identityID string)
	EmployeeChanged(ctx context.Context, employeeID string)
	EmployeeDeleted(ctx context.Context, employeeID, identityID string)
	EmployeeLocationsChanged(ctx context.Context, employeeID string, locationIDs []string)
}

// Service は従業員のユースケースを実装する。
type Service struct {
	repo        repository.EmployeeRepository
	identities  repository.IdentityRepository
	locations   repository.LocationRepository
	reader      AggregateReader
	invalidator Invalidator
	sanitizer   *security.Sanitizer
	logger      *slog.Logger
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	repo repository.EmployeeRepository,
	identities repository.IdentityRepository,
	locations repository.LocationRepository,
	reader AggregateReader,
	invalidator Invalidator,
	sanitizer *security.Sanitizer,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		identities:  identities,
		locations:   locations,
		reader:      reader,
		invalidator: invalidator,
		sanitizer:   sanitizer,
		logger:      logger,
		now:         time.Now,
	}
}

// Create は新しい従業員を作成する。
// 年齢は誕生日から導出して保存する。参照先のアイデンティティが存在しない
// 場合はNOT_FOUND、既に従業員を持つ場合はCONFLICTを返す。
func (s *Service) Create(ctx context.Context, req *model.EmployeeRequest) (*aggregate.EmployeeFullResponse, error) {
	if err := req.ValidateForCreate(); err != nil {
		return nil, err
	}

	identity, err := s.identities.FindByID(ctx, *req.IdentityID)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, model.NewNotFoundError("identity")
	}
	existingID, err := s.repo.FindIDByIdentityEmail(ctx, identity.Email)
	if err != nil {
		return nil, err
	}
	if existingID != "" {
		return nil, model.NewConflictError("identity already has an employee")
	}

	birthday, err := model.ParseDate(*req.Birthday)
	if err != nil {
		return nil, err
	}
	employee := &model.Employee{
		ID:         uuid.NewString(),
		IdentityID: identity.ID,
		Position:   *req.Position,
		Birthday:   birthday,
		Age:        model.YearsBetween(birthday, s.now()),
		Address:    s.sanitizer.Clean(*req.Address),
	}
	if err := s.repo.Create(ctx, employee); err != nil {
		return nil, err
	}
	s.invalidator.EmployeeCreated(ctx, identity.ID)

	s.logger.Info("employee created",
		slog.String("employee_id", employee.ID), slog.String("identity_id", identity.ID))
	return s.reader.GetEmployee(ctx, employee.ID)
}

// FindByID は従業員集約をキャッシュ経由で取得する。
func (s *Service) FindByID(ctx context.Context, id string) (*aggregate.EmployeeFullResponse, error) {
	return s.reader.GetEmployee(ctx, id)
}

// FindByLocation は指定店舗に紐付く従業員をアイデンティティ付きで返す。
// キャッシュは使わない。店舗が存在しない場合はNOT_FOUNDを返す。
func (s *Service) FindByLocation(ctx context.Context, locationID string) ([]aggregate.EmployeeWithIdentityResponse, error) {
	location, err := s.locations.FindByID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, model.NewNotFoundError("location")
	}

	pairs, err := s.repo.ListByLocationWithIdentity(ctx, locationID)
	if err != nil {
		return nil, err
	}
	resp := make([]aggregate.EmployeeWithIdentityResponse, 0, len(pairs))
	for i := range pairs {
		resp = append(resp, aggregate.NewEmployeeWithIdentityResponse(&pairs[i].Employee, &pairs[i].Identity))
	}
	return resp, nil
}

// Update は従業員の属性を部分更新する。
// 誕生日が変わった場合は年齢も再計算する。
func (s *Service) Update(ctx context.Context, req *model.EmployeeRequest) (*aggregate.EmployeeFullResponse, error) {
	if err := req.ValidateForUpdate(); err != nil {
		return nil, err
	}

	employee, err := s.repo.FindByID(ctx, *req.ID)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, model.NewNotFoundError("employee")
	}

	if req.Position != nil {
		employee.Position = *req.Position
	}
	if req.Birthday != nil {
		birthday, err := model.ParseDate(*req.Birthday)
		if err != nil {
			return nil, err
		}
		employee.Birthday = birthday
		employee.Age = model.YearsBetween(birthday, s.now())
	}
	if req.Address != nil {
		employee.Address = s.sanitizer.Clean(*req.Address)
	}
	if err := s.repo.Update(ctx, employee); err != nil {
		return nil, err
	}
	s.invalidator.EmployeeChanged(ctx, employee.ID)

	return s.reader.GetEmployee(ctx, employee.ID)
}

// Delete は従業員を削除する。所有アイデンティティのキャッシュも無効化する。
func (s *Service) Delete(ctx context.Context, id string) error {
	identityID, found, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return model.NewNotFoundError("employee")
	}
	s.invalidator.EmployeeDeleted(ctx, id, identityID)

	s.logger.Info("employee deleted",
		slog.String("employee_id", id), slog.String("identity_id", identityID))
	return nil
}

// AddLocations は従業員と店舗のリンクを追加する。
// リンク追加は1トランザクションでコミットされ、その後に両側の集約キーを無効化する。
func (s *Service) AddLocations(ctx context.Context, employeeID string, locationIDs []string) error {
	if err := s.checkRelationArgs(ctx, employeeID, locationIDs); err != nil {
		return err
	}
	if err := s.repo.AddLocations(ctx, employeeID, locationIDs); err != nil {
		return err
	}
	s.invalidator.EmployeeLocationsChanged(ctx, employeeID, locationIDs)
	return nil
}

// RemoveLocations は従業員と店舗のリンクを削除する。
func (s *Service) RemoveLocations(ctx context.Context, employeeID string, locationIDs []string) error {
	if err := s.checkRelationArgs(ctx, employeeID, locationIDs); err != nil {
		return err
	}
	if err := s.repo.RemoveLocations(ctx, employeeID, locationIDs); err != nil {
		return err
	}
	s.invalidator.EmployeeLocationsChanged(ctx, employeeID, locationIDs)
	return nil
}

func (s *Service) checkRelationArgs(ctx context.Context, employeeID string, locationIDs []string) error {
	if len(locationIDs) == 0 {
		return model.NewValidationError("at least one location id is required")
	}
	employee, err := s.repo.FindByID(ctx, employeeID)
	if err != nil {
		return err
	}
	if employee == nil {
		return model.NewNotFoundError("employee")
	}
	return nil
}
