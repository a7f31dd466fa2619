// Package location はジム店舗のユースケースを提供する。
package location

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/burgas/gymhub/internal/aggregate"
	"github.com/burgas/gymhub/internal/model"
	"github.com/burgas/gymhub/internal/repository"
	"github.com/burgas/gymhub/internal/security"
)

// AggregateReader は店舗集約のリードスルー取得インターフェース。
type AggregateReader interface {
	GetLocation(ctx context.Context, id string) (*aggregate.LocationFullResponse, error)
}

// Invalidator は店舗変更後のキャッシュ無効化インターフェース。
type Invalidator interface {
	LocationCreated(ctx context.Context, gymID string)
	LocationChanged(ctx context.Context, locationID string)
	LocationDeleted(ctx context.Context, locationID, gymID string)
	LocationEmployeesChanged(ctx context.Context, locationID string, employeeIDs []string)
}

// Service は店舗のユースケースを実装する。
type Service struct {
	repo        repository.LocationRepository
	gyms        repository.GymRepository
	aggregates  repository.AggregateRepository
	reader      AggregateReader
	invalidator Invalidator
	sanitizer   *security.Sanitizer
	logger      *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	repo repository.LocationRepository,
	gyms repository.GymRepository,
	aggregates repository.AggregateRepository,
	reader AggregateReader,
	invalidator Invalidator,
	sanitizer *security.Sanitizer,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		gyms:        gyms,
		aggregates:  aggregates,
		reader:      reader,
		invalidator: invalidator,
		sanitizer:   sanitizer,
		logger:      logger,
	}
}

// Create は新しい店舗を作成する。参照先のジムが存在しない場合はNOT_FOUND。
func (s *Service) Create(ctx context.Context, req *model.LocationRequest) (*aggregate.LocationShortResponse, error) {
	if err := req.ValidateForCreate(); err != nil {
		return nil, err
	}

	gym, err := s.gyms.FindByID(ctx, *req.GymID)
	if err != nil {
		return nil, err
	}
	if gym == nil {
		return nil, model.NewNotFoundError("gym")
	}

	open, err := model.ParseTimeOfDay(*req.Open)
	if err != nil {
		return nil, err
	}
	closeAt, err := model.ParseTimeOfDay(*req.Close)
	if err != nil {
		return nil, err
	}

	location := &model.Location{
		ID:      uuid.NewString(),
		GymID:   gym.ID,
		Address: s.sanitizer.Clean(*req.Address),
		Open:    open,
		Close:   closeAt,
	}
	if err := s.repo.Create(ctx, location); err != nil {
		return nil, err
	}
	s.invalidator.LocationCreated(ctx, gym.ID)

	s.logger.Info("location created",
		slog.String("location_id", location.ID), slog.String("gym_id", gym.ID))
	resp := aggregate.NewLocationShortResponse(location)
	return &resp, nil
}

// FindByID は店舗集約をキャッシュ経由で取得する。
func (s *Service) FindByID(ctx context.Context, id string) (*aggregate.LocationFullResponse, error) {
	return s.reader.GetLocation(ctx, id)
}

// FindAll は全店舗のフル表現を返す。
// 一覧読み取りはキャッシュを参照せず、毎回スナップショットから構築する。
func (s *Service) FindAll(ctx context.Context) ([]aggregate.LocationFullResponse, error) {
	ids, err := s.repo.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]aggregate.LocationFullResponse, 0, len(ids))
	for _, id := range ids {
		agg, err := s.aggregates.LoadLocation(ctx, id)
		if err != nil {
			return nil, err
		}
		// 一覧取得とスナップショットの間に削除された行はスキップする
		if agg == nil {
			continue
		}
		resp = append(resp, aggregate.NewLocationFullResponse(agg))
	}
	return resp, nil
}

// Update は店舗の属性を部分更新する。
// 店舗自身と所有ジムの集約キーを無効化する。リンク済み従業員の集約には触れない。
func (s *Service) Update(ctx context.Context, req *model.LocationRequest) (*aggregate.LocationShortResponse, error) {
	if err := req.ValidateForUpdate(); err != nil {
		return nil, err
	}

	location, err := s.repo.FindByID(ctx, *req.ID)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, model.NewNotFoundError("location")
	}

	if req.Address != nil {
		location.Address = s.sanitizer.Clean(*req.Address)
	}
	if req.Open != nil {
		open, err := model.ParseTimeOfDay(*req.Open)
		if err != nil {
			return nil, err
		}
		location.Open = open
	}
	if req.Close != nil {
		closeAt, err := model.ParseTimeOfDay(*req.Close)
		if err != nil {
			return nil, err
		}
		location.Close = closeAt
	}
	if err := s.repo.Update(ctx, location); err != nil {
		return nil, err
	}
	s.invalidator.LocationChanged(ctx, location.ID)

	resp := aggregate.NewLocationShortResponse(location)
	return &resp, nil
}

// Delete は店舗を削除する。所有ジムの集約キーも無効化する。
func (s *Service) Delete(ctx context.Context, id string) error {
	gymID, found, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return model.NewNotFoundError("location")
	}
	s.invalidator.LocationDeleted(ctx, id, gymID)

	s.logger.Info("location deleted",
		slog.String("location_id", id), slog.String("gym_id", gymID))
	return nil
}

// AddEmployees は店舗と従業員のリンクを追加する。
func (s *Service) AddEmployees(ctx context.Context, locationID string, employeeIDs []string) error {
	if err := s.checkRelationArgs(ctx, locationID, employeeIDs); err != nil {
		return err
	}
	if err := s.repo.AddEmployees(ctx, locationID, employeeIDs); err != nil {
		return err
	}
	s.invalidator.LocationEmployeesChanged(ctx, locationID, employeeIDs)
	return nil
}

// RemoveEmployees は店舗と従業員のリンクを削除する。
func (s *Service) RemoveEmployees(ctx context.Context, locationID string, employeeIDs []string) error {
	if err := s.checkRelationArgs(ctx, locationID, employeeIDs); err != nil {
		return err
	}
	if err := s.repo.RemoveEmployees(ctx, locationID, employeeIDs); err != nil {
		return err
	}
	s.invalidator.LocationEmployeesChanged(ctx, locationID, employeeIDs)
	return nil
}

func (s *Service) checkRelationArgs(ctx context.Context, locationID string, employeeIDs []string) error {
	if len(employeeIDs) == 0 {
		return model.NewValidationError("at least one employee id is required")
	}
	location, err := s.repo.FindByID(ctx, locationID)
	if err != nil {
		return err
	}
	if location == nil {
		return model.NewNotFoundError("location")
	}
	return nil
}
