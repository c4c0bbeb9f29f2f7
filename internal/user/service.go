package user

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	errors "github.com/frahmantamala/finance-dashboard/internal"
	"github.com/frahmantamala/finance-dashboard/internal/auth"
	userDatamodel "github.com/frahmantamala/finance-dashboard/internal/core/datamodel/user"
	"github.com/frahmantamala/finance-dashboard/internal/core/events"
)

type RepositoryAPI interface {
	List(ctx context.Context) ([]*userDatamodel.User, error)
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
	Update(ctx context.Context, u *userDatamodel.User) error
	Delete(ctx context.Context, id int64) error
}

type ServiceAPI interface {
	List(ctx context.Context) ([]*User, error)
	Create(ctx context.Context, dto CreateUserDTO) (*User, error)
	Update(ctx context.Context, actorID, id int64, dto UpdateUserDTO) (*User, error)
	Delete(ctx context.Context, actorID, id int64) error
}

type Service struct {
	repo       RepositoryAPI
	publisher  events.Publisher
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, publisher events.Publisher, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		publisher:  publisher,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) List(ctx context.Context) ([]*User, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, errors.NewInternalError("failed to list users", err)
	}
	return FromDataModelSlice(rows), nil
}

func (s *Service) Create(ctx context.Context, dto CreateUserDTO) (*User, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, errors.NewInternalError("failed to hash password", err)
	}

	now := time.Now()
	row := &userDatamodel.User{
		Username:     dto.Username,
		PasswordHash: hash,
		IsActive:     dto.Active(),
		IsAdmin:      dto.IsAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if _, ok := errors.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to create user", "error", err, "username", dto.Username)
		return nil, errors.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", row.ID, "is_admin", row.IsAdmin)
	return FromDataModel(row), nil
}

// Update applies dto to user id. An admin may not deactivate or demote
// their own account.
func (s *Service) Update(ctx context.Context, actorID, id int64, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if actorID == id && dto.demotesSelf() {
		return nil, errors.ErrCannotModifySelf
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.IsActive != nil {
		row.IsActive = *dto.IsActive
	}
	if dto.IsAdmin != nil {
		row.IsAdmin = *dto.IsAdmin
	}
	if dto.Password != nil {
		hash, err := auth.HashPassword(*dto.Password, s.bcryptCost)
		if err != nil {
			return nil, errors.NewInternalError("failed to hash password", err)
		}
		row.PasswordHash = hash
	}
	row.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, row); err != nil {
		if _, ok := errors.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to update user", "error", err, "user_id", id)
		return nil, errors.NewInternalError("failed to update user", err)
	}

	s.logger.Info("user updated", "user_id", id, "actor_id", actorID,
		"is_active", row.IsActive, "is_admin", row.IsAdmin, "password_changed", dto.Password != nil)
	return FromDataModel(row), nil
}

// Delete removes user id. Subscribers of user.deleted run synchronously
// first so the user's transactions are gone before the account is.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return errors.ErrCannotModifySelf
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishSync(ctx, events.NewUserDeletedEvent(id, actorID)); err != nil {
			s.logger.Error("user.deleted handlers failed", "error", err, "user_id", id)
			return errors.NewInternalError("failed to delete user data", err)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if _, ok := errors.IsAppError(err); ok {
			return err
		}
		s.logger.Error("failed to delete user", "error", err, "user_id", id)
		return errors.NewInternalError("failed to delete user", err)
	}

	s.logger.Info("user deleted", "user_id", id, "actor_id", actorID)
	return nil
}
