// Package gym はジム（ブランド）のユースケースを提供する。
package gym

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/burgas/gymhub/internal/aggregate"
	"github.com/burgas/gymhub/internal/model"
	"github.com/burgas/gymhub/internal/repository"
	"github.com/burgas/gymhub/internal/security"
)

// AggregateReader はジム集約の取得インターフェース。
// ジムのフルレスポンスはキャッシュされず、常にDBから構築される。
type AggregateReader interface {
	GetGym(ctx context.Context, id string) (*aggregate.GymFullResponse, error)
}

// Invalidator はジム変更後のキャッシュ無効化インターフェース。
type Invalidator interface {
	GymChanged(ctx context.Context, gymID string)
	GymDeleted(ctx context.Context, gymID string, locationIDs []string)
}

// Service はジムのユースケースを実装する。
type Service struct {
	repo        repository.GymRepository
	reader      AggregateReader
	invalidator Invalidator
	sanitizer   *security.Sanitizer
	logger      *slog.Logger
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	repo repository.GymRepository,
	reader AggregateReader,
	invalidator Invalidator,
	sanitizer *security.Sanitizer,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		reader:      reader,
		invalidator: invalidator,
		sanitizer:   sanitizer,
		logger:      logger,
		now:         time.Now,
	}
}

// Create は新しいジムを作成する。名前・説明の重複はCONFLICTを返す。
func (s *Service) Create(ctx context.Context, req *model.GymRequest) (*aggregate.GymShortResponse, error) {
	if err := req.ValidateForCreate(); err != nil {
		return nil, err
	}

	name := s.sanitizer.Clean(*req.Name)
	description := s.sanitizer.Clean(*req.Description)
	if err := s.checkUnique(ctx, "", name, description); err != nil {
		return nil, err
	}

	g := &model.Gym{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, err
	}
	s.invalidator.GymChanged(ctx, g.ID)

	s.logger.Info("gym created", slog.String("gym_id", g.ID), slog.String("name", g.Name))
	resp := aggregate.NewGymShortResponse(g)
	return &resp, nil
}

// checkUnique は名前・説明が他のジムと衝突しないことを確認する。
// nameとdescriptionはどちらもユニーク列で、DB制約違反をドライバエラーの
// まま漏らさないよう保存前にCONFLICTへ変換する。selfIDのジム自身は除外する。
func (s *Service) checkUnique(ctx context.Context, selfID, name, description string) error {
	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return err
	}
	for _, existing := range all {
		if existing.ID == selfID {
			continue
		}
		if existing.Name == name {
			return model.NewConflictError(fmt.Sprintf("gym %q already exists", name))
		}
		if existing.Description == description {
			return model.NewConflictError("gym description is already in use")
		}
	}
	return nil
}

// FindByID はジム集約を取得する。キャッシュは使わない。
func (s *Service) FindByID(ctx context.Context, id string) (*aggregate.GymFullResponse, error) {
	return s.reader.GetGym(ctx, id)
}

// FindAll は全ジムの短縮表現を返す。
func (s *Service) FindAll(ctx context.Context) ([]aggregate.GymShortResponse, error) {
	gyms, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]aggregate.GymShortResponse, 0, len(gyms))
	for _, g := range gyms {
		resp = append(resp, aggregate.NewGymShortResponse(g))
	}
	return resp, nil
}

// Update はジムの属性を部分更新する。
func (s *Service) Update(ctx context.Context, req *model.GymRequest) (*aggregate.GymShortResponse, error) {
	if err := req.ValidateForUpdate(); err != nil {
		return nil, err
	}

	g, err := s.repo.FindByID(ctx, *req.ID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, model.NewNotFoundError("gym")
	}

	if req.Name != nil {
		g.Name = s.sanitizer.Clean(*req.Name)
	}
	if req.Description != nil {
		g.Description = s.sanitizer.Clean(*req.Description)
	}
	if err := s.checkUnique(ctx, g.ID, g.Name, g.Description); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, g); err != nil {
		return nil, err
	}
	s.invalidator.GymChanged(ctx, g.ID)

	resp := aggregate.NewGymShortResponse(g)
	return &resp, nil
}

// Delete はジムを削除する。CASCADE削除された店舗のキャッシュも無効化する。
func (s *Service) Delete(ctx context.Context, id string) error {
	locationIDs, found, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return model.NewNotFoundError("gym")
	}
	s.invalidator.GymDeleted(ctx, id, locationIDs)

	s.logger.Info("gym deleted",
		slog.String("gym_id", id), slog.Int("cascaded_locations", len(locationIDs)))
	return nil
}
