// Package identity はアイデンティティ（アカウント）のユースケースを提供する。
package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/burgas/gymhub/internal/aggregate"
	"github.com/burgas/gymhub/internal/model"
	"github.com/burgas/gymhub/internal/repository"
	"github.com/burgas/gymhub/internal/security"
)

// AggregateReader はアイデンティティ集約のリードスルー取得インターフェース。
type AggregateReader interface {
	GetIdentity(ctx context.Context, id string) (*aggregate.IdentityFullResponse, error)
}

// Invalidator はアイデンティティ変更後のキャッシュ無効化インターフェース。
type Invalidator interface {
	IdentityChanged(ctx context.Context, identityID string)
	IdentityDeleted(ctx context.Context, identityID, employeeID string)
}

// Service はアイデンティティのユースケースを実装する。
type Service struct {
	repo        repository.IdentityRepository
	reader      AggregateReader
	invalidator Invalidator
	sanitizer   *security.Sanitizer
	logger      *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	repo repository.IdentityRepository,
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
	}
}

// Create は新しいアイデンティティを作成する。
// パスワードはbcryptでハッシュ化して保存する。メール重複はCONFLICT。
func (s *Service) Create(ctx context.Context, req *model.IdentityRequest) (*aggregate.IdentityShortResponse, error) {
	if err := req.ValidateForCreate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByEmail(ctx, *req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, model.NewConflictError(fmt.Sprintf("email %s is already in use", *req.Email))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	identity := &model.Identity{
		ID:         uuid.NewString(),
		Authority:  *req.Authority,
		Email:      s.sanitizer.Clean(*req.Email),
		Password:   string(hash),
		Firstname:  s.sanitizer.Clean(*req.Firstname),
		Lastname:   s.sanitizer.Clean(*req.Lastname),
		Patronymic: s.sanitizer.Clean(*req.Patronymic),
		IsActive:   true,
	}
	if err := s.repo.Create(ctx, identity); err != nil {
		return nil, err
	}
	// 採番直後のidはキャッシュに存在し得ないため、作成時は無効化しない

	s.logger.Info("identity created",
		slog.String("identity_id", identity.ID), slog.String("authority", string(identity.Authority)))
	resp := aggregate.NewIdentityShortResponse(identity)
	return &resp, nil
}

// FindByID はアイデンティティ集約をキャッシュ経由で取得する。
func (s *Service) FindByID(ctx context.Context, id string) (*aggregate.IdentityFullResponse, error) {
	return s.reader.GetIdentity(ctx, id)
}

// FindAll は全アイデンティティの短縮表現を返す。キャッシュは使わない。
func (s *Service) FindAll(ctx context.Context) ([]aggregate.IdentityShortResponse, error) {
	identities, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]aggregate.IdentityShortResponse, 0, len(identities))
	for _, identity := range identities {
		resp = append(resp, aggregate.NewIdentityShortResponse(identity))
	}
	return resp, nil
}

// Update はアイデンティティの属性を部分更新する。
// 設定されていないフィールドは既存値を維持する。パスワードはここでは変更しない。
func (s *Service) Update(ctx context.Context, req *model.IdentityRequest) (*aggregate.IdentityShortResponse, error) {
	if err := req.ValidateForUpdate(); err != nil {
		return nil, err
	}

	identity, err := s.repo.FindByID(ctx, *req.ID)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, model.NewNotFoundError("identity")
	}

	if req.Authority != nil {
		identity.Authority = *req.Authority
	}
	if req.Email != nil {
		identity.Email = s.sanitizer.Clean(*req.Email)
	}
	if req.Firstname != nil {
		identity.Firstname = s.sanitizer.Clean(*req.Firstname)
	}
	if req.Lastname != nil {
		identity.Lastname = s.sanitizer.Clean(*req.Lastname)
	}
	if req.Patronymic != nil {
		identity.Patronymic = s.sanitizer.Clean(*req.Patronymic)
	}
	if err := s.repo.Update(ctx, identity); err != nil {
		return nil, err
	}
	s.invalidator.IdentityChanged(ctx, identity.ID)

	resp := aggregate.NewIdentityShortResponse(identity)
	return &resp, nil
}

// ChangePassword はパスワードを更新する。
// 新しいパスワードが現在のものと一致する場合はCONFLICTを返し、行は変更しない。
func (s *Service) ChangePassword(ctx context.Context, id, newPassword string) error {
	if newPassword == "" {
		return model.NewValidationError("password is required")
	}

	identity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if identity == nil {
		return model.NewNotFoundError("identity")
	}
	if bcrypt.CompareHashAndPassword([]byte(identity.Password), []byte(newPassword)) == nil {
		return model.NewConflictError("new password must differ from the current one")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, id, string(hash)); err != nil {
		return err
	}
	s.invalidator.IdentityChanged(ctx, id)
	return nil
}

// ChangeStatus は有効フラグを更新する。変更がない場合はCONFLICTを返す。
func (s *Service) ChangeStatus(ctx context.Context, id string, isActive bool) error {
	identity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if identity == nil {
		return model.NewNotFoundError("identity")
	}
	if identity.IsActive == isActive {
		return model.NewConflictError(fmt.Sprintf("identity is already isActive=%t", isActive))
	}

	if err := s.repo.UpdateStatus(ctx, id, isActive); err != nil {
		return err
	}
	s.invalidator.IdentityChanged(ctx, id)
	return nil
}

// Delete はアイデンティティを削除する。
// CASCADE削除された従業員のキャッシュも合わせて無効化する。
func (s *Service) Delete(ctx context.Context, id string) error {
	employeeID, found, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return model.NewNotFoundError("identity")
	}
	s.invalidator.IdentityDeleted(ctx, id, employeeID)

	s.logger.Info("identity deleted",
		slog.String("identity_id", id), slog.String("cascaded_employee_id", employeeID))
	return nil
}
